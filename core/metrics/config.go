package metrics

import "github.com/kilianp07/schedpdf/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// Listen exposes Prometheus sinks on /metrics while a run is in progress.
	Listen string `json:"listen"`
}
