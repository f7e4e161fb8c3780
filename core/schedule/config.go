package schedule

import "fmt"

// Config defines how the schedule table is read.
type Config struct {
	// SkipRows is the number of rows before the header row.
	SkipRows int `json:"skip_rows"`
	// SkipAfterHeader is the number of rows between the header and the first data row.
	SkipAfterHeader int `json:"skip_after_header"`
	// ExcludeToken marks rows that do not describe a school.
	ExcludeToken string `json:"exclude_token"`
	// Sentinel marks events that do not apply to a school.
	Sentinel string `json:"sentinel"`
	// Order is either "column" or "time".
	Order string `json:"order"`
}

const (
	DefaultExcludeToken = "poza szkolni"
	DefaultSentinel     = "x"
)

// SetDefaults applies the values used by the source spreadsheets.
func (c *Config) SetDefaults() {
	if c.ExcludeToken == "" {
		c.ExcludeToken = DefaultExcludeToken
	}
	if c.Sentinel == "" {
		c.Sentinel = DefaultSentinel
	}
	if c.Order == "" {
		c.Order = string(OrderColumn)
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.SkipRows < 0 {
		return fmt.Errorf("skip_rows must not be negative")
	}
	if c.SkipAfterHeader < 0 {
		return fmt.Errorf("skip_after_header must not be negative")
	}
	if _, err := ParseOrder(c.Order); err != nil {
		return err
	}
	return nil
}

// Options converts the configuration into parser options.
func (c Config) Options() (Options, error) {
	order, err := ParseOrder(c.Order)
	if err != nil {
		return Options{}, err
	}
	return Options{
		SkipRows:        c.SkipRows,
		SkipAfterHeader: c.SkipAfterHeader,
		ExcludeToken:    c.ExcludeToken,
		Sentinel:        c.Sentinel,
		Order:           order,
	}, nil
}
