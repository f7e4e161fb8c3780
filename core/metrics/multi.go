package metrics

import (
	"context"
	"errors"
)

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordDocument forwards the record to all sinks, returning the first error encountered.
func (m *MultiSink) RecordDocument(rec DocumentRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordDocument(rec); err != nil {
			return err
		}
	}
	return nil
}

// RecordCompile forwards compile records when supported by the sink.
func (m *MultiSink) RecordCompile(rec CompileRecord) error {
	for _, s := range m.Sinks {
		if r, ok := s.(CompileRecorder); ok {
			if err := r.RecordCompile(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordRun forwards stage summaries when supported by the sink.
func (m *MultiSink) RecordRun(sum RunSummary) error {
	for _, s := range m.Sinks {
		if r, ok := s.(RunRecorder); ok {
			if err := r.RecordRun(sum); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush flushes every sink and joins their errors.
func (m *MultiSink) Flush(ctx context.Context) error {
	var errs []error
	for _, s := range m.Sinks {
		if f, ok := s.(Flusher); ok {
			errs = append(errs, f.Flush(ctx))
		}
	}
	return errors.Join(errs...)
}
