package metrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	coremetrics "github.com/kilianp07/schedpdf/core/metrics"
)

// PromConfig selects where the collected metrics go at the end of a run.
// A batch job does not live long enough to be scraped, so metrics are pushed
// to a Pushgateway and/or written for the node exporter textfile collector.
type PromConfig struct {
	PushURL  string `json:"push_url"`
	Job      string `json:"job"`
	Textfile string `json:"textfile"`
}

// PromSink records pipeline metrics in a dedicated Prometheus registry.
type PromSink struct {
	cfg             PromConfig
	reg             *prometheus.Registry
	documents       *prometheus.CounterVec
	entries         prometheus.Histogram
	compiles        *prometheus.CounterVec
	compileDuration prometheus.Histogram
	lastFailures    *prometheus.GaugeVec
	lastSuccess     *prometheus.GaugeVec
}

// NewPromSink creates a sink with its own registry.
func NewPromSink(cfg PromConfig) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.NewRegistry())
}

// NewPromSinkWithRegistry registers metrics on the provided registry.
func NewPromSinkWithRegistry(cfg PromConfig, reg *prometheus.Registry) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if cfg.Job == "" {
		cfg.Job = "schedpdf"
	}
	s := &PromSink{cfg: cfg, reg: reg}
	var err error
	if s.documents, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedpdf_documents_total",
		Help: "Number of school documents handled, by status",
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if s.entries, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "schedpdf_document_entries",
		Help:    "Schedule entries per generated document",
		Buckets: prometheus.LinearBuckets(0, 5, 8),
	})); err != nil {
		return nil, err
	}
	if s.compiles, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedpdf_compilations_total",
		Help: "Number of compiler runs, by status",
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if s.compileDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "schedpdf_compile_duration_seconds",
		Help:    "Time spent compiling one document",
		Buckets: prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	if s.lastFailures, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "schedpdf_last_run_failures",
		Help: "Failures in the last run of a stage",
	}, []string{"stage"})); err != nil {
		return nil, err
	}
	if s.lastSuccess, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "schedpdf_last_run_timestamp_seconds",
		Help: "Unix time the stage last completed",
	}, []string{"stage"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Registry exposes the registry the sink writes to.
func (s *PromSink) Registry() *prometheus.Registry { return s.reg }

// RecordDocument counts the document and observes its entry count.
func (s *PromSink) RecordDocument(rec coremetrics.DocumentRecord) error {
	s.documents.WithLabelValues(status(rec.OK)).Inc()
	if rec.OK {
		s.entries.Observe(float64(rec.Entries))
	}
	return nil
}

// RecordCompile counts the compiler run and observes its duration.
func (s *PromSink) RecordCompile(rec coremetrics.CompileRecord) error {
	s.compiles.WithLabelValues(compileStatus(rec.OK, rec.TimedOut)).Inc()
	if rec.OK {
		s.compileDuration.Observe(rec.Duration.Seconds())
	}
	return nil
}

// RecordRun sets the per stage gauges.
func (s *PromSink) RecordRun(sum coremetrics.RunSummary) error {
	s.lastFailures.WithLabelValues(sum.Stage).Set(float64(sum.Failed))
	s.lastSuccess.WithLabelValues(sum.Stage).Set(float64(sum.Time.Unix()))
	return nil
}

// Flush writes the textfile and pushes to the gateway when configured.
func (s *PromSink) Flush(ctx context.Context) error {
	var errs []error
	if s.cfg.Textfile != "" {
		if err := prometheus.WriteToTextfile(s.cfg.Textfile, s.reg); err != nil {
			errs = append(errs, fmt.Errorf("write textfile: %w", err))
		}
	}
	if s.cfg.PushURL != "" {
		if err := push.New(s.cfg.PushURL, s.cfg.Job).Gatherer(s.reg).PushContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("push metrics: %w", err))
		}
	}
	return errors.Join(errs...)
}
