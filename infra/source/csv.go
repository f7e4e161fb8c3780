package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// autoDelimiter asks the reader to guess the delimiter from the first line.
const autoDelimiter rune = 0

// CSVReader reads delimited text. Rows may have different lengths and
// quotes are parsed leniently, as exported spreadsheets often need.
type CSVReader struct {
	delim rune
}

// NewCSVReader creates a reader for the given delimiter.
func NewCSVReader(delimiter string) (*CSVReader, error) {
	d, err := parseDelimiter(delimiter)
	if err != nil {
		return nil, err
	}
	return &CSVReader{delim: d}, nil
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "", ",":
		return ',', nil
	case "auto":
		return autoDelimiter, nil
	case "tab", `\t`, "\t":
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return r, nil
}

// Read decodes the stream. A byte order mark selects UTF-8 or UTF-16 and is
// dropped; input without one is read as UTF-8.
func (c *CSVReader) Read(ctx context.Context, in io.Reader) ([][]string, error) {
	br := bufio.NewReader(transform.NewReader(in, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	delim := c.delim
	if delim == autoDelimiter {
		first, _ := br.Peek(4096)
		delim = sniffDelimiter(first)
	}
	rows, err := newCSVReader(br, delim).ReadAll()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

func newCSVReader(in io.Reader, delim rune) *csv.Reader {
	r := csv.NewReader(in)
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r
}

// sniffDelimiter picks the most frequent candidate on the first line.
func sniffDelimiter(head []byte) rune {
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	best, bestCount := ',', 0
	for _, cand := range []rune{',', ';', '\t', '|'} {
		if n := bytes.Count(head, []byte(string(cand))); n > bestCount {
			best, bestCount = cand, n
		}
	}
	return best
}
