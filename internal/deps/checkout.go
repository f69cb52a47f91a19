package deps

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"tizenci/internal/logging"
	"tizenci/internal/tactile"
)

// Step names one stage of a shallow checkout.
type Step string

const (
	StepPath     Step = "path"
	StepMkdir    Step = "mkdir"
	StepInit     Step = "init"
	StepConfig   Step = "config"
	StepRemote   Step = "remote"
	StepFetch    Step = "fetch"
	StepCheckout Step = "checkout"
)

// CheckoutError reports the step at which one dependency's checkout failed.
type CheckoutError struct {
	Dependency string
	Step       Step
	Err        error
}

func (e *CheckoutError) Error() string {
	return fmt.Sprintf("checkout %s failed at %s: %v", e.Dependency, e.Step, e.Err)
}

func (e *CheckoutError) Unwrap() error { return e.Err }

// Checkouter materializes one dependency as a history-free git checkout.
type Checkouter struct {
	executor tactile.Executor
	git      string
	timeout  time.Duration
	logger   *zap.Logger
}

// CheckoutOption configures a Checkouter.
type CheckoutOption func(*Checkouter)

// WithGit sets the git binary.
func WithGit(binary string) CheckoutOption {
	return func(c *Checkouter) { c.git = binary }
}

// WithStepTimeout bounds each git process. Zero means no timeout.
func WithStepTimeout(d time.Duration) CheckoutOption {
	return func(c *Checkouter) { c.timeout = d }
}

// WithCheckoutLogger sets the checkouter's logger.
func WithCheckoutLogger(logger *zap.Logger) CheckoutOption {
	return func(c *Checkouter) { c.logger = logger }
}

// NewCheckouter returns a Checkouter running git through executor.
func NewCheckouter(executor tactile.Executor, opts ...CheckoutOption) *Checkouter {
	c := &Checkouter{
		executor: executor,
		git:      "git",
		logger:   logging.Get(logging.CategorySync),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Checkout runs, in dest:
//
//	git init --quiet
//	git config advice.detachedHead false   (best-effort)
//	git remote add origin <url>
//	git fetch --depth 1 origin <revision>
//	git checkout FETCH_HEAD
//
// The first failing step aborts the sequence.
func (c *Checkouter) Checkout(ctx context.Context, dep Dependency, dest string) error {
	log := c.logger.With(zap.String("dependency", dep.Name))

	if err := os.MkdirAll(dest, 0755); err != nil {
		return &CheckoutError{Dependency: dep.Name, Step: StepMkdir, Err: err}
	}

	if err := c.runGit(ctx, dest, "init", "--quiet"); err != nil {
		return &CheckoutError{Dependency: dep.Name, Step: StepInit, Err: err}
	}
	if err := c.runGit(ctx, dest, "config", "advice.detachedHead", "false"); err != nil {
		log.Warn("could not silence detached HEAD advice", zap.Error(err))
	}
	if err := c.runGit(ctx, dest, "remote", "add", "origin", dep.URL); err != nil {
		return &CheckoutError{Dependency: dep.Name, Step: StepRemote, Err: err}
	}
	if err := c.runGit(ctx, dest, "fetch", "--depth", "1", "origin", dep.Revision); err != nil {
		return &CheckoutError{Dependency: dep.Name, Step: StepFetch, Err: err}
	}
	if err := c.runGit(ctx, dest, "checkout", "FETCH_HEAD"); err != nil {
		return &CheckoutError{Dependency: dep.Name, Step: StepCheckout, Err: err}
	}

	log.Debug("checked out", zap.String("url", dep.URL), zap.String("revision", dep.Revision), zap.String("dest", dest))
	return nil
}

func (c *Checkouter) runGit(ctx context.Context, dir string, args ...string) error {
	cmd := tactile.Command{
		Binary:           c.git,
		Arguments:        args,
		WorkingDirectory: dir,
	}
	if c.timeout > 0 {
		cmd.Limits = &tactile.ResourceLimits{TimeoutMs: c.timeout.Milliseconds()}
	}
	_, err := tactile.Run(ctx, c.executor, cmd)
	return err
}
