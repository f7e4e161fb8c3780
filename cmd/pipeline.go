package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/schedpdf/app"
	"github.com/kilianp07/schedpdf/config"
	"github.com/kilianp07/schedpdf/core/schedule"
	"github.com/kilianp07/schedpdf/infra/compiler"
)

var (
	inputPath string
	orderFlag string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate the documents and compile them",
	RunE:  runPipeline,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write one LaTeX document per school",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, sourceOverrides, func(ctx context.Context, svc *app.Service) error {
			rep, err := svc.Generate(ctx)
			return finish(cmd.OutOrStdout(), rep, err)
		})
	},
}

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile previously generated documents into PDFs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, nil, func(ctx context.Context, svc *app.Service) error {
			rep, err := svc.Compile(ctx)
			return finish(cmd.OutOrStdout(), rep, err)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, runCmd, generateCmd} {
		c.Flags().StringVarP(&inputPath, "input", "i", "", "schedule table, overrides source.path")
		c.Flags().StringVar(&orderFlag, "order", "", "entry order: column or time")
	}
	rootCmd.AddCommand(runCmd, generateCmd, compileCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	return withService(cmd, sourceOverrides, func(ctx context.Context, svc *app.Service) error {
		rep, err := svc.Run(ctx)
		return finish(cmd.OutOrStdout(), rep, err)
	})
}

// printDiagnostics writes the compiler output carried by err, indented.
func printDiagnostics(w io.Writer, err error) {
	var cerr *compiler.CompilationError
	if !errors.As(err, &cerr) || cerr.Output == "" {
		return
	}
	for _, line := range strings.Split(strings.TrimRight(cerr.Output, "\n"), "\n") {
		_, _ = fmt.Fprintf(w, "    %s\n", line)
	}
}

func sourceOverrides(cfg *config.Config) error {
	if inputPath != "" {
		cfg.Source.Path = inputPath
		cfg.Source.URL = ""
		cfg.Source.Format = ""
		cfg.Source.SetDefaults()
	}
	if orderFlag != "" {
		if _, err := schedule.ParseOrder(orderFlag); err != nil {
			return err
		}
		cfg.Parse.Order = orderFlag
	}
	return nil
}

// finish prints every failure and a summary line. A run with failures
// returns an error so the process exits non-zero.
func finish(w io.Writer, rep *app.Report, err error) error {
	if rep != nil {
		for _, d := range rep.Documents {
			if d.Err != nil {
				_, _ = fmt.Fprintf(w, "FAILED %s: %v\n", d.School, d.Err)
			}
		}
		for _, c := range rep.Compilations {
			if c.Err != nil {
				_, _ = fmt.Fprintf(w, "FAILED %s: %v\n", filepath.Base(c.Source), c.Err)
				printDiagnostics(w, c.Err)
			}
		}
		_, _ = fmt.Fprintf(w, "run %s: %d documents written, %d compiled, %d failed in %s\n",
			rep.RunID, rep.Generated(), rep.Compiled(), rep.Failed(), rep.Duration.Round(time.Millisecond))
	}
	if err != nil {
		return err
	}
	if rep != nil && rep.Failed() > 0 {
		return fmt.Errorf("%d document(s) failed", rep.Failed())
	}
	return nil
}
