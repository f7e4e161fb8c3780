package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/schedpdf/core/ledger"
	"github.com/kilianp07/schedpdf/core/metrics"
	"github.com/kilianp07/schedpdf/core/render"
	"github.com/kilianp07/schedpdf/core/schedule"
	"github.com/kilianp07/schedpdf/infra/compiler"
	"github.com/kilianp07/schedpdf/infra/notify"
	"github.com/kilianp07/schedpdf/infra/source"
)

// EnvPrefix is the prefix of environment overrides. Nested keys are joined
// with a double underscore: K_PARSE__ORDER=time sets parse.order.
const EnvPrefix = "K_"

type Config struct {
	LogLevel string          `json:"log_level"`
	Source   source.Config   `json:"source"`
	Parse    schedule.Config `json:"parse"`
	Render   render.Config   `json:"render"`
	Output   OutputConfig    `json:"output"`
	Compiler compiler.Config `json:"compiler"`
	Ledger   ledger.Config   `json:"ledger"`
	Metrics  metrics.Config  `json:"metrics"`
	Notify   notify.Config   `json:"notify"`
	Sentry   SentryConfig    `json:"sentry"`
}

// defaults are loaded before the file for values whose zero value is meaningful.
var defaults = map[string]any{
	"log_level":        "info",
	"compiler.enabled": true,
}

// Load reads the configuration file at path, applies environment overrides
// and defaults, then validates every section. An empty path skips the file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, err
	}
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.Source.SetDefaults()
	c.Parse.SetDefaults()
	c.Render.SetDefaults()
	c.Output.SetDefaults()
	c.Compiler.SetDefaults()
	if c.Ledger.Path == "" {
		c.Ledger.Path = filepath.Join(c.Output.Dir, ledger.DefaultFile(c.Ledger.Backend))
	}
	c.Ledger.SetDefaults()
	c.Notify.SetDefaults()
}

// Validate checks every section and joins the errors.
func (c Config) Validate() error {
	var errs []error
	add := func(section string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", section, err))
		}
	}
	add("source", c.Source.Validate())
	add("parse", c.Parse.Validate())
	add("output", c.Output.Validate())
	add("compiler", c.Compiler.Validate())
	add("ledger", c.Ledger.Validate())
	add("notify", c.Notify.Validate())
	add("sentry", c.Sentry.Validate())
	return errors.Join(errs...)
}
