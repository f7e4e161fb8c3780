package schedule

import (
	"fmt"
	"slices"
	"strings"
)

// Options control how Parse reads the table. The zero value parses a table
// whose first row is the header, using the default sentinel and exclusion
// token and keeping header column order.
type Options struct {
	SkipRows        int
	SkipAfterHeader int
	ExcludeToken    string
	Sentinel        string
	Order           Order
}

func (o Options) withDefaults() Options {
	if o.ExcludeToken == "" {
		o.ExcludeToken = DefaultExcludeToken
	}
	if o.Sentinel == "" {
		o.Sentinel = DefaultSentinel
	}
	if o.Order == "" {
		o.Order = OrderColumn
	}
	return o
}

// Parse normalizes raw table rows into one SchoolSchedule per school row.
//
// The first cell of the header row labels the school column and is not an
// event. A data row holding a value in a column the header does not cover
// yields a *MalformedSourceError; empty padding cells are ignored.
func Parse(rows [][]string, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	if opts.SkipRows < 0 || opts.SkipAfterHeader < 0 {
		return nil, fmt.Errorf("negative row offset")
	}
	if len(rows) <= opts.SkipRows {
		return nil, &MalformedSourceError{Reason: "no header row"}
	}
	headerRow := rows[opts.SkipRows]
	if isBlank(headerRow) {
		return nil, &MalformedSourceError{Row: opts.SkipRows + 1, Reason: "header row is empty"}
	}
	if len(headerRow) < 2 {
		return nil, &MalformedSourceError{Row: opts.SkipRows + 1, Reason: "header row has no event columns"}
	}
	headers := make([]string, len(headerRow)-1)
	for i, h := range headerRow[1:] {
		headers[i] = strings.TrimSpace(h)
	}

	res := &Result{Headers: headers, Schools: []SchoolSchedule{}}
	for i := opts.SkipRows + 1 + opts.SkipAfterHeader; i < len(rows); i++ {
		row := rows[i]
		if isBlank(row) {
			continue
		}
		raw := strings.TrimSpace(row[0])
		if raw == "" || strings.EqualFold(raw, opts.ExcludeToken) {
			continue
		}
		entries, err := pairRow(headers, row[1:], opts)
		if err != nil {
			return nil, &MalformedSourceError{Row: i + 1, Reason: err.Error()}
		}
		res.Schools = append(res.Schools, SchoolSchedule{
			Name:    DisplayName(raw),
			RawName: raw,
			Row:     i + 1,
			Entries: entries,
		})
	}
	return res, nil
}

func pairRow(headers, cells []string, opts Options) ([]Entry, error) {
	for j := len(headers); j < len(cells); j++ {
		if strings.TrimSpace(cells[j]) != "" {
			return nil, fmt.Errorf("column %d has a value but the header only has %d event columns", j+2, len(headers))
		}
	}
	entries := make([]Entry, 0, len(headers))
	for j, event := range headers {
		if j >= len(cells) {
			break
		}
		t := strings.TrimSpace(cells[j])
		if !applies(event, opts.Sentinel) || !applies(t, opts.Sentinel) {
			continue
		}
		entries = append(entries, Entry{Event: event, Time: t})
	}
	if opts.Order == OrderTime {
		slices.SortStableFunc(entries, func(a, b Entry) int {
			return strings.Compare(a.Time, b.Time)
		})
	}
	return entries, nil
}

// applies reports whether a trimmed header or cell carries a usable value.
func applies(v, sentinel string) bool {
	return v != "" && !strings.EqualFold(v, sentinel)
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
