package metrics

import (
	"context"
	"path/filepath"

	"github.com/kilianp07/schedpdf/core/events"
	coremetrics "github.com/kilianp07/schedpdf/core/metrics"
	"github.com/kilianp07/schedpdf/infra/logger"
	"github.com/kilianp07/schedpdf/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// pipeline events. The returned channel is closed once the subscription ends,
// either because the context is canceled or the bus is closed.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(sink, ev); err != nil {
					log.Warnf("record metrics: %v", err)
				}
			}
		}
	}()
	return done
}

func record(sink coremetrics.MetricsSink, ev eventbus.Event) error {
	switch e := ev.(type) {
	case events.DocumentEvent:
		return sink.RecordDocument(coremetrics.DocumentRecord{
			RunID:   e.RunID,
			School:  e.School,
			Entries: e.Entries,
			OK:      e.Err == nil,
			Time:    e.Time,
		})
	case events.CompileEvent:
		if r, ok := sink.(coremetrics.CompileRecorder); ok {
			return r.RecordCompile(coremetrics.CompileRecord{
				RunID:    e.RunID,
				File:     filepath.Base(e.Source),
				OK:       e.Err == nil,
				TimedOut: e.TimedOut,
				Duration: e.Duration,
				Time:     e.Time,
			})
		}
	case events.RunEvent:
		if r, ok := sink.(coremetrics.RunRecorder); ok {
			return r.RecordRun(coremetrics.RunSummary{
				RunID:     e.RunID,
				Stage:     e.Stage,
				Total:     e.Total,
				Succeeded: e.Succeeded,
				Failed:    e.Failed,
				Duration:  e.Duration,
				Time:      e.Time,
			})
		}
	}
	return nil
}
