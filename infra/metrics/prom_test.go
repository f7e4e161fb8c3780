package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/schedpdf/core/metrics"
)

func TestPromSink_Records(t *testing.T) {
	sink, err := NewPromSink(PromConfig{})
	require.NoError(t, err)

	require.NoError(t, sink.RecordDocument(coremetrics.DocumentRecord{School: "A", Entries: 3, OK: true}))
	require.NoError(t, sink.RecordDocument(coremetrics.DocumentRecord{School: "B", Entries: 2, OK: true}))
	require.NoError(t, sink.RecordDocument(coremetrics.DocumentRecord{School: "C"}))
	require.NoError(t, sink.RecordCompile(coremetrics.CompileRecord{File: "a.tex", OK: true, Duration: time.Second}))
	require.NoError(t, sink.RecordCompile(coremetrics.CompileRecord{File: "b.tex", TimedOut: true}))
	now := time.Unix(1700000000, 0)
	require.NoError(t, sink.RecordRun(coremetrics.RunSummary{Stage: "compile", Failed: 1, Time: now}))

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.documents.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.documents.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.compiles.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.compiles.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.lastFailures.WithLabelValues("compile")))
	assert.Equal(t, float64(now.Unix()), testutil.ToFloat64(sink.lastSuccess.WithLabelValues("compile")))
	assert.Equal(t, 1, testutil.CollectAndCount(sink.entries))
}

func TestPromSink_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(PromConfig{}, reg)
	require.NoError(t, err)
	second, err := NewPromSinkWithRegistry(PromConfig{}, reg)
	require.NoError(t, err)

	require.NoError(t, first.RecordDocument(coremetrics.DocumentRecord{OK: true}))
	assert.Equal(t, 1.0, testutil.ToFloat64(second.documents.WithLabelValues("ok")))
}

func TestPromSink_FlushTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedpdf.prom")
	sink, err := NewPromSink(PromConfig{Textfile: path})
	require.NoError(t, err)
	require.NoError(t, sink.RecordDocument(coremetrics.DocumentRecord{OK: true, Entries: 1}))
	require.NoError(t, sink.Flush(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `schedpdf_documents_total{status="ok"} 1`)
}

func TestPromSink_FlushPush(t *testing.T) {
	var path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink, err := NewPromSink(PromConfig{PushURL: srv.URL, Job: "roboday"})
	require.NoError(t, err)
	require.NoError(t, sink.RecordDocument(coremetrics.DocumentRecord{OK: true}))
	require.NoError(t, sink.Flush(context.Background()))
	assert.True(t, strings.HasPrefix(path, "/metrics/job/roboday"), path)
	assert.NotEmpty(t, body)
}
