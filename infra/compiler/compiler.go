// Package compiler drives an external LaTeX compiler over generated
// documents and files the resulting PDFs.
package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	coremon "github.com/kilianp07/schedpdf/core/monitoring"
	"github.com/kilianp07/schedpdf/infra/logger"
)

const (
	outputTailLines = 20
	// waitDelay bounds how long output is drained after the process is killed.
	waitDelay = time.Second
)

// Artifact describes a successfully compiled document.
type Artifact struct {
	Source   string        `json:"source"`
	PDF      string        `json:"pdf"`
	Passes   int           `json:"passes"`
	Duration time.Duration `json:"duration"`
}

// Result is the outcome of compiling one document.
type Result struct {
	Source   string
	Artifact *Artifact
	Err      error
}

// Compiler runs the configured binary on .tex files and moves the produced
// PDFs into the artifacts directory.
type Compiler struct {
	cfg          Config
	binary       string
	artifactsDir string
	log          logger.Logger
}

// New resolves the compiler binary and prepares the artifacts directory.
func New(cfg Config, artifactsDir string, log logger.Logger) (*Compiler, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	bin, err := exec.LookPath(cfg.Binary)
	if err != nil {
		return nil, fmt.Errorf("compiler %s not found: %w", cfg.Binary, err)
	}
	if err := os.MkdirAll(artifactsDir, 0o755); err != nil {
		return nil, fmt.Errorf("artifacts dir: %w", err)
	}
	if log == nil {
		log = logger.New("compiler")
	}
	return &Compiler{cfg: cfg, binary: bin, artifactsDir: artifactsDir, log: log}, nil
}

// Discover lists the .tex files in dir in lexical order.
func Discover(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.tex"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Compile runs every pass on src. The first failing pass abandons the
// document; nothing is retried.
func (c *Compiler) Compile(ctx context.Context, src string) (*Artifact, error) {
	start := time.Now()
	dir := filepath.Dir(src)
	for pass := 1; pass <= c.cfg.Passes; pass++ {
		if err := c.runPass(ctx, src, dir, pass); err != nil {
			coremon.CaptureException(err, map[string]string{"module": "compiler", "file": filepath.Base(src)})
			return nil, err
		}
	}
	base := strings.TrimSuffix(src, filepath.Ext(src))
	pdf := base + ".pdf"
	if _, err := os.Stat(pdf); err != nil {
		return nil, &CompilationError{Source: src, Pass: c.cfg.Passes, Err: fmt.Errorf("no pdf produced: %w", err)}
	}
	dst := filepath.Join(c.artifactsDir, filepath.Base(pdf))
	if err := moveFile(pdf, dst); err != nil {
		return nil, &CompilationError{Source: src, Pass: c.cfg.Passes, Err: fmt.Errorf("move pdf: %w", err)}
	}
	for _, ext := range c.cfg.CleanupExtensions {
		if err := os.Remove(base + ext); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.log.Warnf("cleanup %s: %v", base+ext, err)
		}
	}
	return &Artifact{Source: src, PDF: dst, Passes: c.cfg.Passes, Duration: time.Since(start)}, nil
}

func (c *Compiler) runPass(ctx context.Context, src, dir string, pass int) error {
	pctx := ctx
	if c.cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, time.Duration(c.cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}
	args := append(append([]string{}, c.cfg.Args...), "-output-directory="+dir, src)
	cmd := exec.CommandContext(pctx, c.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	c.log.Debugf("pass %d: %s %s", pass, c.binary, strings.Join(args, " "))
	err := cmd.Run()
	if err == nil {
		return nil
	}
	cerr := &CompilationError{Source: src, Pass: pass, Output: diagnostics(stderr.String(), stdout.String()), Err: err}
	if errors.Is(pctx.Err(), context.DeadlineExceeded) {
		cerr.TimedOut = true
		return cerr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cerr.ExitCode = exitErr.ExitCode()
	}
	return cerr
}

// CompileAll compiles files with up to Workers documents in flight. A failing
// document never stops the others. Results keep the order of files;
// onResult may be called concurrently.
func (c *Compiler) CompileAll(ctx context.Context, files []string, onResult func(Result)) []Result {
	results := make([]Result, len(files))
	var g errgroup.Group
	g.SetLimit(c.cfg.Workers)
	for i, f := range files {
		g.Go(func() error {
			res := Result{Source: f}
			if err := ctx.Err(); err != nil {
				res.Err = err
			} else {
				res.Artifact, res.Err = c.Compile(ctx, f)
			}
			results[i] = res
			if onResult != nil {
				onResult(res)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func diagnostics(stderr, stdout string) string {
	if s := strings.TrimSpace(stderr); s != "" {
		return s
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) > outputTailLines {
		lines = lines[len(lines)-outputTailLines:]
	}
	return strings.Join(lines, "\n")
}

// moveFile renames src to dst and falls back to copying across devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
