// Package ledger keeps an append-only record of what every run produced.
package ledger

import (
	"context"
	"time"
)

// Status values stored in Record.Status.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusTimeout = "timeout"
)

// Stage values stored in Record.Stage.
const (
	StageGenerate = "generate"
	StageCompile  = "compile"
)

// Record captures the outcome of one document in one stage of a run.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
	Stage     string    `json:"stage"`
	School    string    `json:"school,omitempty"`
	File      string    `json:"file,omitempty"`
	PDF       string    `json:"pdf,omitempty"`
	Entries   int       `json:"entries"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
}

// Query defines filters for retrieving records. Zero values match everything.
type Query struct {
	Start  time.Time
	End    time.Time
	RunID  string
	Stage  string
	School string
	Status string
}

// Match reports whether r passes every filter of q.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	if q.Stage != "" && r.Stage != q.Stage {
		return false
	}
	if q.School != "" && r.School != q.School {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore discards every record.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error          { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }
