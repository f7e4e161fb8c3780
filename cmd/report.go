package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/schedpdf/app"
	"github.com/kilianp07/schedpdf/core/ledger"
	"github.com/kilianp07/schedpdf/core/stats"
	"github.com/kilianp07/schedpdf/pkg/export"
)

var (
	historySchool string
	historyStatus string
	historyStage  string
	historyRun    string
	historySince  time.Duration

	statsFormat string
	statsChart  string

	exportFormat string
	exportOut    string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List ledger records of previous runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, nil, func(ctx context.Context, svc *app.Service) error {
			q := ledger.Query{RunID: historyRun, Stage: historyStage, School: historySchool, Status: historyStatus}
			if historySince > 0 {
				q.Start = time.Now().Add(-historySince)
			}
			records, err := svc.History(ctx, q)
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), records)
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the parsed schedule table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, sourceOverrides, func(ctx context.Context, svc *app.Service) error {
			res, err := svc.Parse(ctx)
			if err != nil {
				return err
			}
			sum := stats.Compute(res)
			if statsChart != "" {
				if err := writeFile(statsChart, func(w io.Writer) error {
					return export.WriteCoverageChart(w, "Event coverage", sum)
				}); err != nil {
					return err
				}
			}
			return printSummary(cmd.OutOrStdout(), statsFormat, sum)
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the normalized schedule as json, yaml or csv",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, sourceOverrides, func(ctx context.Context, svc *app.Service) error {
			res, err := svc.Parse(ctx)
			if err != nil {
				return err
			}
			if exportOut == "" || exportOut == "-" {
				return export.Write(cmd.OutOrStdout(), exportFormat, res)
			}
			return writeFile(exportOut, func(w io.Writer) error {
				return export.Write(w, exportFormat, res)
			})
		})
	},
}

func init() {
	historyCmd.Flags().StringVar(&historySchool, "school", "", "filter by school")
	historyCmd.Flags().StringVar(&historyStatus, "status", "", "filter by status: ok, failed or timeout")
	historyCmd.Flags().StringVar(&historyStage, "stage", "", "filter by stage: generate or compile")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "filter by run id")
	historyCmd.Flags().DurationVar(&historySince, "since", 0, "only records newer than this duration")

	for _, c := range []*cobra.Command{statsCmd, exportCmd} {
		c.Flags().StringVarP(&inputPath, "input", "i", "", "schedule table, overrides source.path")
		c.Flags().StringVar(&orderFlag, "order", "", "entry order: column or time")
	}
	statsCmd.Flags().StringVarP(&statsFormat, "format", "f", "text", "output format: text, json or yaml")
	statsCmd.Flags().StringVar(&statsChart, "chart", "", "write an HTML coverage chart to this file")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", export.FormatJSON, "output format: json, yaml or csv")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file, stdout when empty")

	rootCmd.AddCommand(historyCmd, statsCmd, exportCmd)
}

func printHistory(w io.Writer, records []ledger.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TIME\tRUN\tSTAGE\tSCHOOL\tFILE\tSTATUS\tERROR")
	for _, r := range records {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Timestamp.Local().Format(time.DateTime), shortID(r.RunID), r.Stage, r.School, r.File, r.Status, r.Error)
	}
	return tw.Flush()
}

func printSummary(w io.Writer, format string, sum stats.Summary) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	case "yaml", "yml":
		return yaml.NewEncoder(w).Encode(sum)
	case "text", "":
	default:
		return fmt.Errorf("unknown stats format %q", format)
	}
	_, _ = fmt.Fprintf(w, "schools: %d (%d without entries)\n", sum.Schools, sum.EmptySchools)
	_, _ = fmt.Fprintf(w, "entries: %d, per school mean %.2f sd %.2f median %.1f min %d max %d\n",
		sum.Entries, sum.MeanEntries, sum.StdDevEntries, sum.MedianEntries, sum.MinEntries, sum.MaxEntries)
	if sum.Earliest != "" {
		_, _ = fmt.Fprintf(w, "times: %s to %s\n", sum.Earliest, sum.Latest)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "EVENT\tSCHOOLS\tSHARE")
	for _, e := range sum.Events {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%.0f%%\n", e.Event, e.Schools, e.Share*100)
	}
	return tw.Flush()
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
