package tactile

import (
	"errors"
	"fmt"
	"strings"
)

// ToolError reports an external process that did not exit cleanly.
// Stderr is kept verbatim for diagnostics.
type ToolError struct {
	Command  Command
	ExitCode int
	Stderr   string
	Reason   string // set when the process was killed, never started or overflowed its output cap
	Err      error
}

func newToolError(cmd Command, result *ExecutionResult) *ToolError {
	te := &ToolError{
		Command:  cmd,
		ExitCode: result.ExitCode,
		Stderr:   result.Stderr,
	}
	switch {
	case !result.Success:
		te.Reason = result.Error
	case result.Killed:
		te.Reason = result.KillReason
	case result.Truncated:
		te.Reason = fmt.Sprintf("output truncated, %d bytes discarded", result.TruncatedBytes)
	}
	return te
}

func (e *ToolError) Error() string {
	var b strings.Builder
	b.WriteString(e.Command.CommandString())
	switch {
	case e.Err != nil:
		fmt.Fprintf(&b, ": %v", e.Err)
	case e.Reason != "":
		fmt.Fprintf(&b, ": %s", e.Reason)
	default:
		fmt.Fprintf(&b, ": exit status %d", e.ExitCode)
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		b.WriteString("\n")
		b.WriteString(stderr)
	}
	return b.String()
}

func (e *ToolError) Unwrap() error { return e.Err }

// IsToolError reports whether err wraps a *ToolError.
func IsToolError(err error) bool {
	var te *ToolError
	return errors.As(err, &te)
}
