package source

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/kilianp07/schedpdf/auth"
	"github.com/kilianp07/schedpdf/core/factory"
)

// Reader turns an input stream into raw table rows.
type Reader interface {
	Read(ctx context.Context, in io.Reader) ([][]string, error)
}

// Config describes the schedule source file.
type Config struct {
	// Path of the CSV or XLSX file.
	Path string `json:"path"`
	// URL fetches the file over HTTP instead of reading Path.
	URL string `json:"url"`
	// Auth adds a client credentials bearer token to URL requests.
	Auth auth.Conf `json:"auth"`
	// TimeoutSeconds bounds the HTTP download.
	TimeoutSeconds int `json:"timeout_seconds"`
	// Format is "csv" or "xlsx"; empty selects by file extension.
	Format string `json:"format"`
	// Delimiter for CSV input: a single character, "tab" or "auto".
	Delimiter string `json:"delimiter"`
	// Sheet for XLSX input; empty selects the first sheet.
	Sheet string `json:"sheet"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Path == "" && c.URL == "" {
		c.Path = "roboday.csv"
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 30
	}
	if c.Delimiter == "" {
		c.Delimiter = ","
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Path == "" && c.URL == "" {
		return fmt.Errorf("source path or url is required")
	}
	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("source url must be an http(s) url")
		}
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if _, err := c.format(); err != nil {
		return err
	}
	if _, err := parseDelimiter(c.Delimiter); err != nil {
		return err
	}
	return nil
}

func (c Config) format() (string, error) {
	f := strings.ToLower(c.Format)
	if f == "" {
		switch strings.ToLower(filepath.Ext(c.Name())) {
		case ".csv", ".txt", ".tsv":
			f = "csv"
		case ".xlsx", ".xlsm":
			f = "xlsx"
		default:
			return "", fmt.Errorf("cannot detect source format of %s", c.Name())
		}
	}
	return f, nil
}

// Name identifies the source in logs: the URL path or the file path.
func (c Config) Name() string {
	if c.URL != "" {
		if u, err := url.Parse(c.URL); err == nil {
			return u.Path
		}
		return c.URL
	}
	return c.Path
}

var readers = factory.NewRegistry[Reader]()

// Register adds a reader factory for a format name.
func Register(name string, f factory.Factory[Reader]) error {
	return readers.Register(name, f)
}

// New creates the reader matching the configured or detected format.
func New(cfg Config) (Reader, error) {
	f, err := cfg.format()
	if err != nil {
		return nil, err
	}
	return readers.Create(factory.ModuleConfig{Type: f, Conf: map[string]any{
		"delimiter": cfg.Delimiter,
		"sheet":     cfg.Sheet,
	}})
}

// Load opens the configured file or URL and returns its rows.
func Load(ctx context.Context, cfg Config) ([][]string, error) {
	r, err := New(cfg)
	if err != nil {
		return nil, err
	}
	var in io.ReadCloser
	if cfg.URL != "" {
		in, err = fetch(ctx, cfg)
	} else {
		in, err = os.Open(cfg.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = in.Close() }()
	rows, err := r.Read(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", cfg.Name(), err)
	}
	return rows, nil
}

func init() {
	_ = Register("csv", func(conf map[string]any) (Reader, error) {
		var c struct {
			Delimiter string `json:"delimiter"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewCSVReader(c.Delimiter)
	})
	_ = Register("xlsx", func(conf map[string]any) (Reader, error) {
		var c struct {
			Sheet string `json:"sheet"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewXLSXReader(c.Sheet), nil
	})
}
