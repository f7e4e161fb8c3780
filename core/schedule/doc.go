// Package schedule normalizes a loosely structured schedule table into one
// SchoolSchedule per school.
//
// The table has a header row naming the events and one row per school with
// the time of each event. Rows before the header, and optionally right after
// it, can be skipped. Cells holding the sentinel value ("x" by default) or
// nothing at all mark events that do not apply to a school and are dropped.
// Rows naming the exclusion token ("poza szkolni" by default) do not describe
// a school and are skipped entirely.
package schedule
