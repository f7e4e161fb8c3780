package render

import (
	"fmt"
	"strings"
)

// DefaultSuffix is appended to every generated document name.
const DefaultSuffix = "_schedule.tex"

var fileNameReplacer = strings.NewReplacer(" ", "_", "/", "_", `\`, "_")

// FileName derives the document file name from a display name.
func FileName(displayName, suffix string) string {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	base := fileNameReplacer.Replace(strings.TrimSpace(displayName))
	if base == "" || base == "." || base == ".." {
		base = "school"
	}
	return base + suffix
}

// Namer hands out file names that are unique within one run. A repeated
// display name gets a numeric suffix: SP_1_schedule.tex, SP_1_2_schedule.tex.
type Namer struct {
	suffix string
	used   map[string]bool
}

// NewNamer returns a Namer using suffix for every name.
func NewNamer(suffix string) *Namer {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	return &Namer{suffix: suffix, used: make(map[string]bool)}
}

// Next returns the file name for displayName.
func (n *Namer) Next(displayName string) string {
	name := FileName(displayName, n.suffix)
	base := strings.TrimSuffix(name, n.suffix)
	for i := 2; n.used[name]; i++ {
		name = fmt.Sprintf("%s_%d%s", base, i, n.suffix)
	}
	n.used[name] = true
	return name
}
