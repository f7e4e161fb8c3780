package schedule

import "fmt"

// MalformedSourceError reports a structural problem in the schedule table.
// Row is the 1-based source row, or 0 when the problem is not tied to a row.
type MalformedSourceError struct {
	Row    int
	Reason string
}

func (e *MalformedSourceError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("malformed source: row %d: %s", e.Row, e.Reason)
	}
	return "malformed source: " + e.Reason
}
