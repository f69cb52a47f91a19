package tactile

import (
	"context"
)

// Executor is the interface for command execution.
// All executor implementations must satisfy this interface.
type Executor interface {
	// Execute runs a command and returns a comprehensive result.
	// A non-zero exit is reported in the result, not as an error; the
	// error is reserved for commands that cannot be attempted at all.
	Execute(ctx context.Context, cmd Command) (*ExecutionResult, error)
}

// Run executes cmd and converts every outcome other than a clean zero exit
// with complete output into a *ToolError carrying the process diagnostics.
func Run(ctx context.Context, e Executor, cmd Command) (*ExecutionResult, error) {
	result, err := e.Execute(ctx, cmd)
	if err != nil {
		return nil, &ToolError{Command: cmd, ExitCode: -1, Err: err}
	}
	if !result.Exited() || result.Truncated {
		return result, newToolError(cmd, result)
	}
	return result, nil
}
