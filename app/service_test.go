package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/schedpdf/config"
	"github.com/kilianp07/schedpdf/core/ledger"
	coremetrics "github.com/kilianp07/schedpdf/core/metrics"
	"github.com/kilianp07/schedpdf/core/render"
	"github.com/kilianp07/schedpdf/core/schedule"
	"github.com/kilianp07/schedpdf/infra/compiler"
	"github.com/kilianp07/schedpdf/infra/logger"
	"github.com/kilianp07/schedpdf/infra/notify"
)

const roboday = `,Open,Talk
"Liceum Nr 5, ul. Kwiatowa",09:00,10:00
SP 1,x,11:00
poza szkolni,09:00,10:00
SP 1,08:00,
`

const missingPackage = "! LaTeX Error: File `polski.sty' not found."

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Notify(_ context.Context, a notify.Artifact) error {
	return m.Called(filepath.Base(a.PDF)).Error(0)
}

func (m *mockNotifier) Close() { m.Called() }

// fakeCompiler produces an artifact for every document whose base name is
// not listed in fail.
type fakeCompiler struct {
	dir  string
	fail map[string]bool
}

func (f fakeCompiler) CompileAll(_ context.Context, files []string, onResult func(compiler.Result)) []compiler.Result {
	results := make([]compiler.Result, len(files))
	for i, file := range files {
		base := strings.TrimSuffix(filepath.Base(file), ".tex")
		r := compiler.Result{Source: file}
		if f.fail[base] {
			r.Err = &compiler.CompilationError{Source: file, Pass: 1, ExitCode: 1, Output: missingPackage, Err: errors.New("exit status 1")}
		} else {
			r.Artifact = &compiler.Artifact{Source: file, PDF: filepath.Join(f.dir, base+".pdf"), Passes: 2}
		}
		results[i] = r
		if onResult != nil {
			onResult(r)
		}
	}
	return results
}

func testConfig(t *testing.T, csv string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "roboday.csv")
	require.NoError(t, os.WriteFile(src, []byte(csv), 0o644))
	cfg := &config.Config{}
	cfg.Source.Path = src
	cfg.Output.Dir = filepath.Join(dir, "output")
	cfg.Output.ArtifactsDir = filepath.Join(dir, "pdf")
	cfg.Ledger.Path = filepath.Join(dir, "ledger.jsonl")
	cfg.Compiler.Enabled = true
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func newService(t *testing.T, cfg *config.Config, opts ...Option) *Service {
	t.Helper()
	base := []Option{WithLogger(logger.NopLogger{}), WithMetricsSink(coremetrics.NopSink{}), WithNotifier(notify.NopNotifier{})}
	svc, err := New(context.Background(), cfg, append(base, opts...)...)
	require.NoError(t, err)
	return svc
}

func TestService_Generate(t *testing.T) {
	cfg := testConfig(t, roboday)
	svc := newService(t, cfg)
	defer func() { require.NoError(t, svc.Close(context.Background())) }()

	rep, err := svc.Generate(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, 3, rep.Generated())
	assert.Equal(t, 0, rep.Failed())

	names := []string{"Liceum_Nr_5_schedule.tex", "SP_1_schedule.tex", "SP_1_2_schedule.tex"}
	for i, name := range names {
		assert.Equal(t, filepath.Join(cfg.Output.Dir, name), rep.Documents[i].File)
		assert.FileExists(t, rep.Documents[i].File)
	}
	doc, err := os.ReadFile(rep.Documents[0].File)
	require.NoError(t, err)
	assert.Contains(t, string(doc), `\large\textbf{Liceum Nr 5}`)
	assert.Contains(t, string(doc), "Open & 09:00 \\\\")

	manifest, err := ReadManifest(filepath.Join(cfg.Output.Dir, cfg.Output.Manifest))
	require.NoError(t, err)
	require.Len(t, manifest, 3)
	assert.Equal(t, ManifestEntry{School: "SP 1", File: "SP_1_2_schedule.tex", Entries: 1, Status: ledger.StatusOK}, manifest[2])

	records, err := svc.History(context.Background(), ledger.Query{RunID: rep.RunID})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, ledger.StageGenerate, records[0].Stage)
	assert.Equal(t, 2, records[0].Entries)
}

func TestService_Generate_WriteFailureIsolated(t *testing.T) {
	cfg := testConfig(t, roboday)
	blocked := filepath.Join(cfg.Output.Dir, "Liceum_Nr_5_schedule.tex")
	require.NoError(t, os.MkdirAll(blocked, 0o755))
	svc := newService(t, cfg)
	defer func() { _ = svc.Close(context.Background()) }()

	rep, err := svc.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Generated())
	assert.Equal(t, 1, rep.Failed())
	var rerr *render.RenderError
	require.True(t, errors.As(rep.Documents[0].Err, &rerr), "got %v", rep.Documents[0].Err)
	assert.Equal(t, "Liceum Nr 5", rerr.School)
	assert.FileExists(t, filepath.Join(cfg.Output.Dir, "SP_1_schedule.tex"))
	assert.FileExists(t, filepath.Join(cfg.Output.Dir, "SP_1_2_schedule.tex"))

	manifest, err := ReadManifest(filepath.Join(cfg.Output.Dir, cfg.Output.Manifest))
	require.NoError(t, err)
	require.Len(t, manifest, 3)
	assert.Equal(t, ledger.StatusFailed, manifest[0].Status)
	assert.NotEmpty(t, manifest[0].Error)
	assert.Equal(t, ledger.StatusOK, manifest[1].Status)

	failed, err := svc.History(context.Background(), ledger.Query{RunID: rep.RunID, Status: ledger.StatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "Liceum Nr 5", failed[0].School)
	assert.Equal(t, ledger.StageGenerate, failed[0].Stage)
}

func TestService_New_SQLiteLedgerInFreshDir(t *testing.T) {
	cfg := testConfig(t, roboday)
	cfg.Ledger = ledger.Config{Backend: ledger.BackendSQLite, Path: filepath.Join(cfg.Output.Dir, "ledger.db")}
	cfg.Ledger.SetDefaults()
	svc, err := New(context.Background(), cfg, WithLogger(logger.NopLogger{}), WithMetricsSink(coremetrics.NopSink{}), WithNotifier(notify.NopNotifier{}))
	require.NoError(t, err)
	defer func() { require.NoError(t, svc.Close(context.Background())) }()

	rep, err := svc.Generate(context.Background())
	require.NoError(t, err)
	records, err := svc.History(context.Background(), ledger.Query{RunID: rep.RunID})
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestService_Generate_MalformedSource(t *testing.T) {
	cfg := testConfig(t, ",Open\nSP 1,09:00,10:00\n")
	svc := newService(t, cfg)
	defer func() { _ = svc.Close(context.Background()) }()

	rep, err := svc.Generate(context.Background())
	var merr *schedule.MalformedSourceError
	require.True(t, errors.As(err, &merr), "got %v", err)
	assert.Equal(t, 2, merr.Row)
	assert.Empty(t, rep.Documents)
	assert.NoFileExists(t, filepath.Join(cfg.Output.Dir, cfg.Output.Manifest))
}

func TestService_Run_CompilesAndNotifies(t *testing.T) {
	cfg := testConfig(t, roboday)
	n := &mockNotifier{}
	n.On("Notify", "Liceum_Nr_5_schedule.pdf").Return(nil).Once()
	n.On("Notify", "SP_1_2_schedule.pdf").Return(errors.New("broker down")).Once()
	n.On("Close").Return().Once()

	fc := fakeCompiler{dir: cfg.Output.ArtifactsDir, fail: map[string]bool{"SP_1_schedule": true}}
	var logs bytes.Buffer
	svc := newService(t, cfg, WithNotifier(n), WithLogger(logger.NewZerologLoggerTo(zerolog.SyncWriter(&logs), "service")), WithCompilerFactory(func(compiler.Config, string, logger.Logger) (DocumentCompiler, error) {
		return fc, nil
	}))

	rep, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Generated())
	assert.Equal(t, 2, rep.Compiled())
	assert.Equal(t, 1, rep.Failed())
	require.Len(t, rep.Compilations, 3)
	assert.Equal(t, "SP 1", rep.Compilations[1].School)
	assert.Error(t, rep.Compilations[1].Err)

	failed, err := svc.History(context.Background(), ledger.Query{RunID: rep.RunID, Stage: ledger.StageCompile, Status: ledger.StatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "SP_1_schedule.tex", failed[0].File)
	assert.Contains(t, logs.String(), "polski.sty")

	require.NoError(t, svc.Close(context.Background()))
	n.AssertExpectations(t)
}

func TestService_Run_CompilerDisabled(t *testing.T) {
	cfg := testConfig(t, roboday)
	cfg.Compiler.Enabled = false
	called := false
	svc := newService(t, cfg, WithCompilerFactory(func(compiler.Config, string, logger.Logger) (DocumentCompiler, error) {
		called = true
		return fakeCompiler{}, nil
	}))
	defer func() { _ = svc.Close(context.Background()) }()

	rep, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, called)
	assert.Empty(t, rep.Compilations)
}

func TestService_Compile_UsesManifestThenDirectory(t *testing.T) {
	cfg := testConfig(t, roboday)
	fc := fakeCompiler{dir: cfg.Output.ArtifactsDir}
	svc := newService(t, cfg, WithCompilerFactory(func(compiler.Config, string, logger.Logger) (DocumentCompiler, error) {
		return fc, nil
	}))
	defer func() { _ = svc.Close(context.Background()) }()

	_, err := svc.Generate(context.Background())
	require.NoError(t, err)
	extra := filepath.Join(cfg.Output.Dir, "manual_schedule.tex")
	require.NoError(t, os.WriteFile(extra, []byte("x"), 0o644))

	rep, err := svc.Compile(context.Background())
	require.NoError(t, err)
	assert.Len(t, rep.Compilations, 3)
	assert.Equal(t, "Liceum Nr 5", rep.Compilations[0].School)

	require.NoError(t, os.Remove(filepath.Join(cfg.Output.Dir, cfg.Output.Manifest)))
	rep, err = svc.Compile(context.Background())
	require.NoError(t, err)
	assert.Len(t, rep.Compilations, 4)
	assert.Empty(t, rep.Compilations[0].School)
}

func TestService_Compile_CompilerUnavailable(t *testing.T) {
	cfg := testConfig(t, roboday)
	svc := newService(t, cfg, WithCompilerFactory(func(compiler.Config, string, logger.Logger) (DocumentCompiler, error) {
		return nil, errors.New("pdflatex not found")
	}))
	defer func() { _ = svc.Close(context.Background()) }()

	_, err := svc.Compile(context.Background())
	assert.ErrorContains(t, err, "pdflatex not found")
}

func TestManifest_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.csv")
	in := []ManifestEntry{
		{School: "Liceum Nr 5", File: "Liceum_Nr_5_schedule.tex", Entries: 2, Status: ledger.StatusOK},
		{School: "R&D, Lab", File: "R&D_schedule.tex", Status: ledger.StatusFailed, Error: "write: disk full"},
	}
	require.NoError(t, WriteManifest(path, in))
	out, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = ReadManifest(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReport_Counts(t *testing.T) {
	rep := Report{
		Documents:    []DocumentOutcome{{}, {Err: errors.New("x")}},
		Compilations: []CompileOutcome{{}, {Err: errors.New("y")}, {}},
	}
	assert.Equal(t, 1, rep.Generated())
	assert.Equal(t, 2, rep.Compiled())
	assert.Equal(t, 2, rep.Failed())
}
