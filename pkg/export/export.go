// Package export writes normalized schedules in machine readable formats.
package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/schedpdf/core/schedule"
)

// Formats accepted by Write.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
)

// Row is one entry in the long CSV layout.
type Row struct {
	School string `csv:"school"`
	Event  string `csv:"event"`
	Time   string `csv:"time"`
}

// Write encodes res in the given format.
func Write(w io.Writer, format string, res *schedule.Result) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, res)
	case FormatYAML, "yml":
		return WriteYAML(w, res)
	case FormatCSV:
		return WriteCSV(w, res)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// WriteJSON writes the parsed schedule to w in indented JSON.
func WriteJSON(w io.Writer, res *schedule.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// WriteYAML writes the parsed schedule to w in YAML.
func WriteYAML(w io.Writer, res *schedule.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(res); err != nil {
		return err
	}
	return enc.Close()
}

// WriteCSV writes one line per entry with school, event and time columns.
// Schools without entries do not appear.
func WriteCSV(w io.Writer, res *schedule.Result) error {
	rows := Rows(res)
	if len(rows) == 0 {
		_, err := io.WriteString(w, "school,event,time\n")
		return err
	}
	return gocsv.Marshal(&rows, w)
}

// Rows flattens res into the long layout used by WriteCSV.
func Rows(res *schedule.Result) []Row {
	var rows []Row
	if res == nil {
		return rows
	}
	for _, s := range res.Schools {
		for _, e := range s.Entries {
			rows = append(rows, Row{School: s.Name, Event: e.Event, Time: e.Time})
		}
	}
	return rows
}
