package app

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
)

// ManifestEntry is one line of the manifest written next to the documents.
type ManifestEntry struct {
	School  string `csv:"school"`
	File    string `csv:"file"`
	Entries int    `csv:"entries"`
	Status  string `csv:"status"`
	Error   string `csv:"error"`
}

// WriteManifest replaces the manifest at path.
func WriteManifest(path string, entries []ManifestEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	if err := gocsv.MarshalFile(&entries, f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write manifest: %w", err)
	}
	return f.Close()
}

// ReadManifest loads the manifest at path.
func ReadManifest(path string) ([]ManifestEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	var entries []ManifestEntry
	if err := gocsv.UnmarshalFile(f, &entries); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return entries, nil
}
