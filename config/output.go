package config

import (
	"fmt"
	"strings"

	"github.com/kilianp07/schedpdf/core/render"
)

// OutputConfig defines where generated files are written.
type OutputConfig struct {
	// Dir receives one .tex document per school.
	Dir string `json:"dir"`
	// ArtifactsDir receives the compiled PDFs.
	ArtifactsDir string `json:"artifacts_dir"`
	// Suffix is appended to the sanitized school name.
	Suffix string `json:"suffix"`
	// Manifest is the CSV file name written inside Dir.
	Manifest string `json:"manifest"`
}

// SetDefaults applies sane defaults.
func (c *OutputConfig) SetDefaults() {
	if c.Dir == "" {
		c.Dir = "output"
	}
	if c.ArtifactsDir == "" {
		c.ArtifactsDir = "pdf"
	}
	if c.Suffix == "" {
		c.Suffix = render.DefaultSuffix
	}
	if c.Manifest == "" {
		c.Manifest = "manifest.csv"
	}
}

// Validate checks mandatory fields.
func (c OutputConfig) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("dir is required")
	}
	if strings.ContainsAny(c.Suffix, `/\`) {
		return fmt.Errorf("suffix must not contain path separators")
	}
	if strings.ContainsAny(c.Manifest, `/\`) {
		return fmt.Errorf("manifest must be a file name")
	}
	return nil
}
