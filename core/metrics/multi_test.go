package metrics

import (
	"context"
	"errors"
	"testing"
)

type recordSink struct {
	docs, compiles, runs, flushes int
	flushErr                      error
}

func (r *recordSink) RecordDocument(DocumentRecord) error { r.docs++; return nil }
func (r *recordSink) RecordCompile(CompileRecord) error   { r.compiles++; return nil }
func (r *recordSink) RecordRun(RunSummary) error          { r.runs++; return nil }
func (r *recordSink) Flush(context.Context) error         { r.flushes++; return r.flushErr }

type docOnlySink struct{ docs int }

func (d *docOnlySink) RecordDocument(DocumentRecord) error { d.docs++; return nil }

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{flushErr: errors.New("push failed")}
	s3 := &docOnlySink{}
	m := NewMultiSink(s1, s2, s3)
	if err := m.RecordDocument(DocumentRecord{School: "SP 1", OK: true}); err != nil {
		t.Fatalf("record document: %v", err)
	}
	if err := m.RecordCompile(CompileRecord{File: "SP_1_schedule.tex", OK: true}); err != nil {
		t.Fatalf("record compile: %v", err)
	}
	if err := m.RecordRun(RunSummary{Stage: "generate"}); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if s1.docs != 1 || s2.docs != 1 || s3.docs != 1 {
		t.Fatalf("documents not forwarded")
	}
	if s1.compiles != 1 || s2.runs != 1 {
		t.Fatalf("optional records not forwarded")
	}
	if err := m.Flush(context.Background()); err == nil {
		t.Fatal("expected flush error")
	}
	if s1.flushes != 1 || s2.flushes != 1 {
		t.Fatalf("flush not forwarded")
	}
}
