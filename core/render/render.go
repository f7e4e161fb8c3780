// Package render turns a normalized school schedule into a LaTeX document.
package render

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/kilianp07/schedpdf/core/schedule"
)

const documentTemplate = `\documentclass{article}
\usepackage[utf8]{inputenc}
\usepackage{<<.Language>>}
\usepackage{geometry}
\geometry{<<.Geometry>>}
\begin{document}
\begin{center}
\Large\textbf{<<.Title>>}\\[0.5em]
\large\textbf{<<.School>>}
\end{center}
\vspace{1cm}
\begin{center}
\begin{tabular}{|l|l|}
\hline
\textbf{<<index .Labels 0>>} & \textbf{<<index .Labels 1>>} \\
\hline
<<- range .Rows>>
<<index . 0>> & <<index . 1>> \\
\hline
<<- end>>
\end{tabular}
\end{center}
\end{document}
`

var tmpl = template.Must(template.New("schedule").Delims("<<", ">>").Parse(documentTemplate))

// RenderError reports a failure to execute the document template.
type RenderError struct {
	School string
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %q: %v", e.School, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Renderer produces documents with a fixed template configuration.
type Renderer struct {
	cfg   Config
	order schedule.Order
}

// New returns a Renderer. Column labels follow the order policy: event
// first for column order, time first when entries are sorted by time.
func New(cfg Config, order schedule.Order) *Renderer {
	cfg.SetDefaults()
	if order == "" {
		order = schedule.OrderColumn
	}
	return &Renderer{cfg: cfg, order: order}
}

type documentData struct {
	Language string
	Geometry string
	Title    string
	School   string
	Labels   [2]string
	Rows     [][2]string
}

// Render returns the document for one school. User supplied text is escaped.
// An empty schedule yields a table holding only the header row.
func (r *Renderer) Render(school string, entries []schedule.Entry) (string, error) {
	data := documentData{
		Language: r.cfg.Language,
		Geometry: r.cfg.Geometry,
		Title:    Escape(r.cfg.Title),
		School:   Escape(school),
		Labels:   r.columns(r.cfg.EventLabel, r.cfg.TimeLabel),
		Rows:     make([][2]string, 0, len(entries)),
	}
	for _, e := range entries {
		data.Rows = append(data.Rows, r.columns(Escape(e.Event), Escape(e.Time)))
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", &RenderError{School: school, Err: err}
	}
	return buf.String(), nil
}

func (r *Renderer) columns(event, time string) [2]string {
	if r.order == schedule.OrderTime {
		return [2]string{time, event}
	}
	return [2]string{event, time}
}

var defaultRenderer = New(Config{}, schedule.OrderColumn)

// Render renders a document with the default configuration.
func Render(school string, entries []schedule.Entry) (string, error) {
	return defaultRenderer.Render(school, entries)
}
