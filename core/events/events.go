package events

import "time"

// DocumentEvent is published for every school handled by the generator.
type DocumentEvent struct {
	RunID   string
	School  string
	File    string
	Entries int
	Err     error
	Time    time.Time
}

// CompileEvent is published for every document handed to the compiler.
type CompileEvent struct {
	RunID    string
	School   string
	Source   string
	PDF      string
	Duration time.Duration
	TimedOut bool
	Err      error
	Time     time.Time
}

// RunEvent is published when a stage ("generate" or "compile") completes.
type RunEvent struct {
	RunID     string
	Stage     string
	Total     int
	Succeeded int
	Failed    int
	Duration  time.Duration
	Time      time.Time
}
