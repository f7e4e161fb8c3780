package compiler

import "fmt"

// Config defines how the document compiler is invoked.
type Config struct {
	// Enabled runs the compiler after documents are written.
	Enabled bool `json:"enabled"`
	// Binary is the compiler executable, looked up in PATH.
	Binary string   `json:"binary"`
	Args   []string `json:"args"`
	// Passes is the number of consecutive runs per document.
	Passes int `json:"passes"`
	// TimeoutSeconds bounds each pass.
	TimeoutSeconds int `json:"timeout_seconds"`
	// Workers is the number of documents compiled concurrently.
	Workers int `json:"workers"`
	// CleanupExtensions lists working files removed after a successful run.
	CleanupExtensions []string `json:"cleanup_extensions"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Binary == "" {
		c.Binary = "pdflatex"
	}
	if c.Args == nil {
		c.Args = []string{"-interaction=nonstopmode"}
	}
	if c.Passes == 0 {
		c.Passes = 2
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 120
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
	if c.CleanupExtensions == nil {
		c.CleanupExtensions = []string{".aux", ".log"}
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.Binary == "" {
		return fmt.Errorf("compiler binary is required")
	}
	if c.Passes < 1 {
		return fmt.Errorf("compiler passes must be at least 1")
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("compiler timeout must not be negative")
	}
	if c.Workers < 1 {
		return fmt.Errorf("compiler workers must be at least 1")
	}
	return nil
}
