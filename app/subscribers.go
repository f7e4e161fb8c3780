package app

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/kilianp07/schedpdf/core/events"
	"github.com/kilianp07/schedpdf/core/ledger"
	"github.com/kilianp07/schedpdf/infra/compiler"
	"github.com/kilianp07/schedpdf/infra/logger"
	"github.com/kilianp07/schedpdf/infra/notify"
	"github.com/kilianp07/schedpdf/internal/eventbus"
)

// startLedgerWriter appends a ledger record for every document and compile
// event until the bus is closed.
func startLedgerWriter(ctx context.Context, bus eventbus.EventBus, store ledger.Store, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		for ev := range sub {
			rec, ok := ledgerRecord(ev)
			if !ok {
				continue
			}
			if err := store.Append(ctx, rec); err != nil {
				log.Warnf("ledger append: %v", err)
			}
		}
	}()
	return done
}

func ledgerRecord(ev eventbus.Event) (ledger.Record, bool) {
	switch e := ev.(type) {
	case events.DocumentEvent:
		rec := ledger.Record{
			Timestamp: e.Time,
			RunID:     e.RunID,
			Stage:     ledger.StageGenerate,
			School:    e.School,
			File:      filepath.Base(e.File),
			Entries:   e.Entries,
			Status:    ledger.StatusOK,
		}
		if e.Err != nil {
			rec.Status = ledger.StatusFailed
			rec.Error = e.Err.Error()
		}
		return rec, true
	case events.CompileEvent:
		rec := ledger.Record{
			Timestamp: e.Time,
			RunID:     e.RunID,
			Stage:     ledger.StageCompile,
			School:    e.School,
			File:      filepath.Base(e.Source),
			PDF:       e.PDF,
			Status:    ledger.StatusOK,
		}
		if e.Err != nil {
			rec.Status = ledger.StatusFailed
			var cerr *compiler.CompilationError
			if e.TimedOut || (errors.As(e.Err, &cerr) && cerr.TimedOut) {
				rec.Status = ledger.StatusTimeout
			}
			rec.Error = e.Err.Error()
		}
		return rec, true
	}
	return ledger.Record{}, false
}

// startNotifier announces artifacts until the bus is closed.
func startNotifier(ctx context.Context, bus *eventbus.TypedBus[notify.Artifact], n notify.Notifier, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		for a := range sub {
			if err := n.Notify(ctx, a); err != nil {
				log.Warnf("notify %s: %v", a.PDF, err)
			}
		}
	}()
	return done
}
