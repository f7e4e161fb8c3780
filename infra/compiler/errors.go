package compiler

import (
	"fmt"
	"path/filepath"
)

// CompilationError reports a compiler run that did not produce an artifact.
type CompilationError struct {
	Source   string
	Pass     int
	ExitCode int
	TimedOut bool
	// Output is the compiler's error stream, or the tail of its standard
	// output when the error stream is empty.
	Output string
	Err    error
}

func (e *CompilationError) Error() string {
	name := filepath.Base(e.Source)
	switch {
	case e.TimedOut:
		return fmt.Sprintf("compile %s: pass %d timed out", name, e.Pass)
	case e.ExitCode != 0:
		return fmt.Sprintf("compile %s: pass %d exited with status %d", name, e.Pass, e.ExitCode)
	default:
		return fmt.Sprintf("compile %s: %v", name, e.Err)
	}
}

func (e *CompilationError) Unwrap() error { return e.Err }
