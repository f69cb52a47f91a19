package tactile

import (
	"context"
	"sync"
)

// FakeExecutor records commands and answers them from Respond.
// It is safe for concurrent use; Respond itself must be too.
type FakeExecutor struct {
	// Respond produces the result for a command. A nil Respond, or a nil
	// result with a nil error, means a clean exit with no output.
	Respond func(ctx context.Context, cmd Command) (*ExecutionResult, error)

	mu    sync.Mutex
	calls []Command
}

// Execute implements Executor.
func (f *FakeExecutor) Execute(ctx context.Context, cmd Command) (*ExecutionResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()

	if f.Respond == nil {
		return Exit(0, "", ""), nil
	}
	result, err := f.Respond(ctx, cmd)
	if result == nil && err == nil {
		result = Exit(0, "", "")
	}
	if result != nil && result.Command == nil {
		result.Command = &cmd
	}
	return result, err
}

// Calls returns a copy of every command executed so far, in call order.
func (f *FakeExecutor) Calls() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Command, len(f.calls))
	copy(out, f.calls)
	return out
}

// Exit builds a result for a process that ran and exited with code.
func Exit(code int, stdout, stderr string) *ExecutionResult {
	return &ExecutionResult{
		Success:  true,
		ExitCode: code,
		Stdout:   stdout,
		Stderr:   stderr,
	}
}
