package metrics

import (
	"context"
	"time"
)

// DocumentRecord describes one generated (or failed) school document.
type DocumentRecord struct {
	RunID   string
	School  string
	Entries int
	OK      bool
	Time    time.Time
}

// MetricsSink records document generation outcomes.
type MetricsSink interface {
	RecordDocument(rec DocumentRecord) error
}

// CompileRecord describes one compiler invocation.
type CompileRecord struct {
	RunID    string
	File     string
	OK       bool
	TimedOut bool
	Duration time.Duration
	Time     time.Time
}

// CompileRecorder is implemented by sinks able to record compilations.
type CompileRecorder interface {
	RecordCompile(rec CompileRecord) error
}

// RunSummary aggregates one pipeline stage.
type RunSummary struct {
	RunID     string
	Stage     string
	Total     int
	Succeeded int
	Failed    int
	Duration  time.Duration
	Time      time.Time
}

// RunRecorder is implemented by sinks able to record stage summaries.
type RunRecorder interface {
	RecordRun(sum RunSummary) error
}

// Flusher is implemented by sinks that buffer records until the end of a run.
type Flusher interface {
	Flush(ctx context.Context) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordDocument(DocumentRecord) error { return nil }
func (NopSink) RecordCompile(CompileRecord) error   { return nil }
func (NopSink) RecordRun(RunSummary) error          { return nil }
func (NopSink) Flush(context.Context) error         { return nil }
