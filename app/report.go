package app

import (
	"time"
)

// DocumentOutcome is the result of generating one school document.
type DocumentOutcome struct {
	School  string
	File    string
	Entries int
	Err     error
}

// CompileOutcome is the result of compiling one document.
type CompileOutcome struct {
	School   string
	Source   string
	PDF      string
	Duration time.Duration
	Err      error
}

// Report summarizes a run.
type Report struct {
	RunID        string
	Documents    []DocumentOutcome
	Compilations []CompileOutcome
	Duration     time.Duration
}

// Generated counts documents written successfully.
func (r Report) Generated() int {
	n := 0
	for _, d := range r.Documents {
		if d.Err == nil {
			n++
		}
	}
	return n
}

// Compiled counts documents compiled successfully.
func (r Report) Compiled() int {
	n := 0
	for _, c := range r.Compilations {
		if c.Err == nil {
			n++
		}
	}
	return n
}

// Failed counts failures of both stages.
func (r Report) Failed() int {
	return len(r.Documents) - r.Generated() + len(r.Compilations) - r.Compiled()
}
