package schedule

import (
	"fmt"
	"strings"
)

// Entry is a single (event, time) pair that survived all exclusion filters.
type Entry struct {
	Event string `json:"event" yaml:"event"`
	Time  string `json:"time" yaml:"time"`
}

// SchoolSchedule holds the normalized entries of one school.
type SchoolSchedule struct {
	// Name is the display name: the raw name cut at the first comma.
	Name string `json:"name" yaml:"name"`
	// RawName is the unmodified first cell of the source row.
	RawName string `json:"raw_name" yaml:"raw_name"`
	// Row is the 1-based row number in the source.
	Row     int     `json:"row" yaml:"row"`
	Entries []Entry `json:"entries" yaml:"entries"`
}

// Result is the outcome of parsing a schedule table.
type Result struct {
	Headers []string         `json:"headers" yaml:"headers"`
	Schools []SchoolSchedule `json:"schools" yaml:"schools"`
}

// Order selects how entries of a school are arranged.
type Order string

const (
	// OrderColumn keeps entries in header column order.
	OrderColumn Order = "column"
	// OrderTime sorts entries by their time string.
	OrderTime Order = "time"
)

// ParseOrder converts a configuration value into an Order.
func ParseOrder(s string) (Order, error) {
	switch Order(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderColumn:
		return OrderColumn, nil
	case OrderTime:
		return OrderTime, nil
	default:
		return "", fmt.Errorf("unknown order %q", s)
	}
}

// DisplayName returns the part of a raw school name before the first comma.
func DisplayName(raw string) string {
	name, _, _ := strings.Cut(raw, ",")
	return strings.TrimSpace(name)
}
