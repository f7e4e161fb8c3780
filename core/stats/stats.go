// Package stats summarizes a parsed schedule table.
package stats

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/schedpdf/core/schedule"
)

// EventCoverage counts how many schools take part in one event.
type EventCoverage struct {
	Event   string  `json:"event" yaml:"event"`
	Schools int     `json:"schools" yaml:"schools"`
	Share   float64 `json:"share" yaml:"share"`
}

// Summary aggregates entries over all schools.
type Summary struct {
	Schools       int             `json:"schools" yaml:"schools"`
	EmptySchools  int             `json:"empty_schools" yaml:"empty_schools"`
	Entries       int             `json:"entries" yaml:"entries"`
	MeanEntries   float64         `json:"mean_entries" yaml:"mean_entries"`
	StdDevEntries float64         `json:"stddev_entries" yaml:"stddev_entries"`
	MedianEntries float64         `json:"median_entries" yaml:"median_entries"`
	MinEntries    int             `json:"min_entries" yaml:"min_entries"`
	MaxEntries    int             `json:"max_entries" yaml:"max_entries"`
	Earliest      string          `json:"earliest,omitempty" yaml:"earliest,omitempty"`
	Latest        string          `json:"latest,omitempty" yaml:"latest,omitempty"`
	Events        []EventCoverage `json:"events" yaml:"events"`
}

// Compute builds a Summary. Event coverage follows header order; times are
// compared as strings, the same way the time ordering policy sorts them.
func Compute(res *schedule.Result) Summary {
	var sum Summary
	if res == nil {
		return sum
	}
	sum.Schools = len(res.Schools)
	counts := make([]float64, 0, len(res.Schools))
	perEvent := make(map[string]int)
	for i, s := range res.Schools {
		n := len(s.Entries)
		counts = append(counts, float64(n))
		sum.Entries += n
		if n == 0 {
			sum.EmptySchools++
		}
		if i == 0 || n < sum.MinEntries {
			sum.MinEntries = n
		}
		if n > sum.MaxEntries {
			sum.MaxEntries = n
		}
		seen := make(map[string]bool, n)
		for _, e := range s.Entries {
			if !seen[e.Event] {
				seen[e.Event] = true
				perEvent[e.Event]++
			}
			if sum.Earliest == "" || e.Time < sum.Earliest {
				sum.Earliest = e.Time
			}
			if e.Time > sum.Latest {
				sum.Latest = e.Time
			}
		}
	}
	if len(counts) > 0 {
		sum.MeanEntries, sum.StdDevEntries = stat.MeanStdDev(counts, nil)
		if len(counts) == 1 {
			sum.StdDevEntries = 0
		}
		sorted := append([]float64(nil), counts...)
		sort.Float64s(sorted)
		sum.MedianEntries = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	}
	sum.Events = make([]EventCoverage, 0, len(res.Headers))
	listed := make(map[string]bool, len(res.Headers))
	for _, h := range res.Headers {
		if listed[h] {
			continue
		}
		listed[h] = true
		n := perEvent[h]
		cov := EventCoverage{Event: h, Schools: n}
		if sum.Schools > 0 {
			cov.Share = float64(n) / float64(sum.Schools)
		}
		sum.Events = append(sum.Events, cov)
	}
	return sum
}
