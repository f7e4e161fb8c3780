package monitoring

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

type recordMonitor struct {
	errs []error
	tags map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.errs = append(r.errs, err)
	r.tags = tags
}
func (r *recordMonitor) Recover(v any)       { r.errs = append(r.errs, fmt.Errorf("panic: %v", v)) }
func (r *recordMonitor) Flush(time.Duration) {}

func TestCaptureException(t *testing.T) {
	mon := &recordMonitor{}
	Init(mon)
	defer Init(NopMonitor{})

	CaptureException(nil, nil)
	CaptureException(errors.New("compile failed"), map[string]string{"module": "compiler"})
	if len(mon.errs) != 1 {
		t.Fatalf("expected 1 captured error, got %d", len(mon.errs))
	}
	if mon.tags["module"] != "compiler" {
		t.Fatalf("tags not forwarded: %v", mon.tags)
	}
	Init(nil)
	CaptureException(errors.New("again"), nil)
	if len(mon.errs) != 2 {
		t.Fatalf("nil Init must keep the current monitor")
	}
}

func TestRecover_ReportsAndRepanics(t *testing.T) {
	mon := &recordMonitor{}
	Init(mon)
	defer Init(NopMonitor{})

	defer func() {
		if r := recover(); r != "boom" {
			t.Fatalf("expected re-panic with boom, got %v", r)
		}
		if len(mon.errs) != 1 {
			t.Fatalf("panic not reported")
		}
	}()
	func() {
		defer Recover()
		panic("boom")
	}()
}
