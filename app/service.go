package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/schedpdf/config"
	"github.com/kilianp07/schedpdf/core/events"
	"github.com/kilianp07/schedpdf/core/ledger"
	coremetrics "github.com/kilianp07/schedpdf/core/metrics"
	coremon "github.com/kilianp07/schedpdf/core/monitoring"
	"github.com/kilianp07/schedpdf/core/render"
	"github.com/kilianp07/schedpdf/core/schedule"
	"github.com/kilianp07/schedpdf/infra/compiler"
	"github.com/kilianp07/schedpdf/infra/logger"
	"github.com/kilianp07/schedpdf/infra/metrics"
	"github.com/kilianp07/schedpdf/infra/notify"
	"github.com/kilianp07/schedpdf/infra/source"
	"github.com/kilianp07/schedpdf/internal/eventbus"
)

// DocumentCompiler compiles a batch of documents.
type DocumentCompiler interface {
	CompileAll(ctx context.Context, files []string, onResult func(compiler.Result)) []compiler.Result
}

// CompilerFactory builds the compiler used by Compile and Run.
type CompilerFactory func(cfg compiler.Config, artifactsDir string, log logger.Logger) (DocumentCompiler, error)

func defaultCompiler(cfg compiler.Config, artifactsDir string, log logger.Logger) (DocumentCompiler, error) {
	return compiler.New(cfg, artifactsDir, log)
}

// Option customizes a Service.
type Option func(*Service)

// WithCompilerFactory replaces the external compiler.
func WithCompilerFactory(f CompilerFactory) Option { return func(s *Service) { s.newCompiler = f } }

// WithLogger replaces the service logger.
func WithLogger(l logger.Logger) Option { return func(s *Service) { s.log = l } }

// WithLedger replaces the ledger store configured in the ledger section.
func WithLedger(st ledger.Store) Option { return func(s *Service) { s.ledger = st } }

// WithMetricsSink replaces the sinks configured in the metrics section.
func WithMetricsSink(m coremetrics.MetricsSink) Option { return func(s *Service) { s.sink = m } }

// WithNotifier replaces the notifier configured in the notify section.
func WithNotifier(n notify.Notifier) Option { return func(s *Service) { s.notifier = n } }

// Service runs the schedule pipeline: read, parse, render, write and compile.
type Service struct {
	cfg         *config.Config
	log         logger.Logger
	ledger      ledger.Store
	sink        coremetrics.MetricsSink
	notifier    notify.Notifier
	newCompiler CompilerFactory
	now         func() time.Time
	cancel      context.CancelFunc
}

// New wires the collaborators described by cfg. Close releases them.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	s := &Service{cfg: cfg, newCompiler: defaultCompiler, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = logger.New("service")
	}
	var err error
	if s.ledger == nil {
		if s.ledger, err = ledger.Open(cfg.Ledger); err != nil {
			return nil, fmt.Errorf("ledger: %w", err)
		}
	}
	if s.sink == nil {
		if s.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
			_ = s.ledger.Close()
			return nil, fmt.Errorf("metrics sink: %w", err)
		}
	}
	if s.notifier == nil {
		if s.notifier, err = notify.New(cfg.Notify, logger.New("notify")); err != nil {
			_ = s.ledger.Close()
			return nil, fmt.Errorf("notifier: %w", err)
		}
	}
	ctx, s.cancel = context.WithCancel(ctx)
	if cfg.Metrics.Listen != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, cfg.Metrics.Listen, metrics.Gatherer(), s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	return s, nil
}

// Close flushes metrics and releases the ledger and the notifier.
func (s *Service) Close(ctx context.Context) error {
	var errs []error
	if f, ok := s.sink.(coremetrics.Flusher); ok {
		errs = append(errs, f.Flush(ctx))
	}
	s.notifier.Close()
	errs = append(errs, s.ledger.Close())
	if s.cancel != nil {
		s.cancel()
	}
	return errors.Join(errs...)
}

// Parse reads and parses the configured source.
func (s *Service) Parse(ctx context.Context) (*schedule.Result, error) {
	rows, err := source.Load(ctx, s.cfg.Source)
	if err != nil {
		return nil, err
	}
	opts, err := s.cfg.Parse.Options()
	if err != nil {
		return nil, err
	}
	res, err := schedule.Parse(rows, opts)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.cfg.Source.Name(), err)
	}
	return res, nil
}

// Generate writes one document per school.
func (s *Service) Generate(ctx context.Context) (*Report, error) {
	runID := uuid.NewString()
	rep := &Report{RunID: runID}
	start := s.now()
	_, err := s.generate(ctx, runID, rep)
	rep.Duration = time.Since(start)
	return rep, err
}

// Compile compiles the documents listed in the manifest, or every document
// in the output directory when no manifest exists.
func (s *Service) Compile(ctx context.Context) (*Report, error) {
	runID := uuid.NewString()
	rep := &Report{RunID: runID}
	start := s.now()
	targets, err := s.compileTargets()
	if err == nil {
		err = s.compile(ctx, runID, targets, rep)
	}
	rep.Duration = time.Since(start)
	return rep, err
}

// Run generates the documents and compiles them when the compiler is enabled.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	runID := uuid.NewString()
	rep := &Report{RunID: runID}
	start := s.now()
	defer func() { rep.Duration = time.Since(start) }()
	targets, err := s.generate(ctx, runID, rep)
	if err != nil {
		return rep, err
	}
	if !s.cfg.Compiler.Enabled {
		return rep, nil
	}
	if err := ctx.Err(); err != nil {
		return rep, err
	}
	return rep, s.compile(ctx, runID, targets, rep)
}

type target struct {
	school string
	file   string
}

// stage holds the buses of one pipeline stage and the goroutines draining them.
type stage struct {
	bus       *eventbus.Bus
	artifacts *eventbus.TypedBus[notify.Artifact]
	done      []<-chan struct{}
}

// beginStage sizes the buses so that no event of the stage is dropped.
func (s *Service) beginStage(ctx context.Context, items int, log logger.Logger) *stage {
	bg := context.WithoutCancel(ctx)
	st := &stage{
		bus:       eventbus.NewWithBuffer(items + 2),
		artifacts: eventbus.NewTypedWithBuffer[notify.Artifact](items + 1),
	}
	st.done = append(st.done,
		metrics.StartEventCollector(bg, st.bus, s.sink, log),
		startLedgerWriter(bg, st.bus, s.ledger, log),
		startNotifier(bg, st.artifacts, s.notifier, log),
	)
	return st
}

func (st *stage) end() {
	st.bus.Close()
	st.artifacts.Close()
	for _, d := range st.done {
		<-d
	}
}

func (s *Service) generate(ctx context.Context, runID string, rep *Report) ([]target, error) {
	log := s.log.With("run_id", runID)
	res, err := s.Parse(ctx)
	if err != nil {
		coremon.CaptureException(err, map[string]string{"module": "parser", "run_id": runID})
		return nil, err
	}
	log.Infof("parsed %d schools and %d events from %s", len(res.Schools), len(res.Headers), s.cfg.Source.Name())

	out := s.cfg.Output
	if err := os.MkdirAll(out.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}
	order, _ := schedule.ParseOrder(s.cfg.Parse.Order)
	renderer := render.New(s.cfg.Render, order)
	namer := render.NewNamer(out.Suffix)

	st := s.beginStage(ctx, len(res.Schools), log)
	defer st.end()

	start := s.now()
	var targets []target
	manifest := make([]ManifestEntry, 0, len(res.Schools))
	for _, school := range res.Schools {
		if err := ctx.Err(); err != nil {
			return targets, err
		}
		path := filepath.Join(out.Dir, namer.Next(school.Name))
		err := writeDocument(renderer, school, path)
		outcome := DocumentOutcome{School: school.Name, File: path, Entries: len(school.Entries), Err: err}
		rep.Documents = append(rep.Documents, outcome)
		entry := ManifestEntry{School: school.Name, File: filepath.Base(path), Entries: len(school.Entries), Status: ledger.StatusOK}
		if err != nil {
			entry.Status = ledger.StatusFailed
			entry.Error = err.Error()
			log.Errorf("school %q (row %d): %v", school.Name, school.Row, err)
			coremon.CaptureException(err, map[string]string{"module": "render", "school": school.Name, "run_id": runID})
		} else {
			targets = append(targets, target{school: school.Name, file: path})
			log.Debugw("document written", map[string]any{"school": school.Name, "file": path, "entries": len(school.Entries)})
		}
		manifest = append(manifest, entry)
		st.bus.Publish(events.DocumentEvent{RunID: runID, School: school.Name, File: path, Entries: len(school.Entries), Err: err, Time: s.now()})
	}
	if err := WriteManifest(filepath.Join(out.Dir, out.Manifest), manifest); err != nil {
		log.Errorf("%v", err)
	}
	generated := len(targets)
	st.bus.Publish(events.RunEvent{
		RunID:     runID,
		Stage:     ledger.StageGenerate,
		Total:     len(res.Schools),
		Succeeded: generated,
		Failed:    len(res.Schools) - generated,
		Duration:  time.Since(start),
		Time:      s.now(),
	})
	log.Infof("generated %d of %d documents in %s", generated, len(res.Schools), out.Dir)
	return targets, nil
}

func writeDocument(r *render.Renderer, school schedule.SchoolSchedule, path string) error {
	doc, err := r.Render(school.Name, school.Entries)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return &render.RenderError{School: school.Name, Err: err}
	}
	return nil
}

// compileTargets reads successful entries of the manifest, falling back to
// every .tex file in the output directory.
func (s *Service) compileTargets() ([]target, error) {
	out := s.cfg.Output
	entries, err := ReadManifest(filepath.Join(out.Dir, out.Manifest))
	if err == nil {
		var targets []target
		for _, e := range entries {
			if e.Status == ledger.StatusOK {
				targets = append(targets, target{school: e.School, file: filepath.Join(out.Dir, e.File)})
			}
		}
		return targets, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	files, err := compiler.Discover(out.Dir)
	if err != nil {
		return nil, err
	}
	targets := make([]target, len(files))
	for i, f := range files {
		targets[i] = target{file: f}
	}
	return targets, nil
}

func (s *Service) compile(ctx context.Context, runID string, targets []target, rep *Report) error {
	log := s.log.With("run_id", runID)
	comp, err := s.newCompiler(s.cfg.Compiler, s.cfg.Output.ArtifactsDir, log)
	if err != nil {
		coremon.CaptureException(err, map[string]string{"module": "compiler", "run_id": runID})
		return err
	}
	files := make([]string, len(targets))
	schools := make(map[string]string, len(targets))
	for i, t := range targets {
		files[i] = t.file
		schools[t.file] = t.school
	}

	st := s.beginStage(ctx, len(files), log)
	defer st.end()

	start := s.now()
	results := comp.CompileAll(ctx, files, func(r compiler.Result) {
		ev := events.CompileEvent{RunID: runID, School: schools[r.Source], Source: r.Source, Err: r.Err, Time: s.now()}
		var cerr *compiler.CompilationError
		if errors.As(r.Err, &cerr) {
			ev.TimedOut = cerr.TimedOut
		}
		if r.Artifact != nil {
			ev.PDF = r.Artifact.PDF
			ev.Duration = r.Artifact.Duration
			st.artifacts.Publish(notify.Artifact{
				RunID:      runID,
				School:     schools[r.Source],
				Source:     r.Source,
				PDF:        r.Artifact.PDF,
				Passes:     r.Artifact.Passes,
				DurationMS: r.Artifact.Duration.Milliseconds(),
				Timestamp:  ev.Time,
			})
		}
		st.bus.Publish(ev)
	})

	compiled := 0
	for _, r := range results {
		outcome := CompileOutcome{School: schools[r.Source], Source: r.Source, Err: r.Err}
		if r.Artifact != nil {
			outcome.PDF = r.Artifact.PDF
			outcome.Duration = r.Artifact.Duration
		}
		if r.Err != nil {
			log.Errorf("compile %s: %v", filepath.Base(r.Source), r.Err)
			var cerr *compiler.CompilationError
			if errors.As(r.Err, &cerr) && cerr.Output != "" {
				log.Warnf("%s compiler output:\n%s", filepath.Base(r.Source), cerr.Output)
			}
		} else {
			compiled++
		}
		rep.Compilations = append(rep.Compilations, outcome)
	}
	st.bus.Publish(events.RunEvent{
		RunID:     runID,
		Stage:     ledger.StageCompile,
		Total:     len(files),
		Succeeded: compiled,
		Failed:    len(files) - compiled,
		Duration:  time.Since(start),
		Time:      s.now(),
	})
	log.Infof("compiled %d of %d documents into %s", compiled, len(files), s.cfg.Output.ArtifactsDir)
	return ctx.Err()
}

// History returns ledger records matching q.
func (s *Service) History(ctx context.Context, q ledger.Query) ([]ledger.Record, error) {
	return s.ledger.Query(ctx, q)
}
