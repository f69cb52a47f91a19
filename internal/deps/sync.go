package deps

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tizenci/internal/logging"
)

// DefaultWorkers bounds concurrent checkouts. It is also the ceiling.
const DefaultWorkers = 8

// CheckoutRunner performs one dependency's checkout into dest.
type CheckoutRunner interface {
	Checkout(ctx context.Context, dep Dependency, dest string) error
}

// Synchronizer checks out every git dependency of a manifest concurrently.
type Synchronizer struct {
	runner  CheckoutRunner
	root    string
	workers int
	logger  *zap.Logger

	mu       sync.Mutex
	failures *multierror.Error
}

// SyncOption configures a Synchronizer.
type SyncOption func(*Synchronizer)

// WithRoot sets the directory dependency paths are relative to.
func WithRoot(root string) SyncOption {
	return func(s *Synchronizer) { s.root = root }
}

// WithWorkers lowers the pool size. Values outside 1..DefaultWorkers are ignored.
func WithWorkers(n int) SyncOption {
	return func(s *Synchronizer) {
		if n > 0 && n <= DefaultWorkers {
			s.workers = n
		}
	}
}

// WithSyncLogger sets the synchronizer's logger.
func WithSyncLogger(logger *zap.Logger) SyncOption {
	return func(s *Synchronizer) { s.logger = logger }
}

// NewSynchronizer returns a Synchronizer delegating each checkout to runner.
func NewSynchronizer(runner CheckoutRunner, opts ...SyncOption) *Synchronizer {
	s := &Synchronizer{
		runner:  runner,
		root:    ".",
		workers: DefaultWorkers,
		logger:  logging.Get(logging.CategorySync),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncAll checks out every git-typed dependency into <root>/<name>.
// Other kinds are skipped. All scheduled checkouts run to completion even
// when some fail; the first failure to complete is returned and every
// failure is logged and kept in Failures.
func (s *Synchronizer) SyncAll(ctx context.Context, deps map[string]Dependency) error {
	names := make([]string, 0, len(deps))
	for name, dep := range deps {
		if dep.Kind != KindGit {
			s.logger.Debug("skipping dependency", zap.String("dependency", name), zap.String("dep_type", dep.Kind))
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	s.logger.Info("syncing dependencies", zap.Int("git", len(names)), zap.Int("workers", s.workers))

	var (
		g        errgroup.Group
		mu       sync.Mutex
		failures *multierror.Error
	)
	g.SetLimit(s.workers)

	for _, name := range names {
		if !LocalName(name) {
			err := &CheckoutError{Dependency: name, Step: StepPath, Err: fmt.Errorf("%q leaves the checkout root", name)}
			s.logger.Error("checkout failed", zap.String("dependency", name), zap.Error(err))
			mu.Lock()
			failures = multierror.Append(failures, err)
			mu.Unlock()
			continue
		}

		dep := deps[name]
		if dep.Name == "" {
			dep.Name = name
		}
		dest := filepath.Join(s.root, filepath.FromSlash(name))

		// Tasks report through failures, never through the group, so one
		// failure cannot short-circuit the others.
		g.Go(func() error {
			if err := s.runner.Checkout(ctx, dep, dest); err != nil {
				s.logger.Error("checkout failed", zap.String("dependency", dep.Name), zap.Error(err))
				mu.Lock()
				failures = multierror.Append(failures, err)
				mu.Unlock()
				return nil
			}
			s.logger.Info("checked out",
				zap.String("dependency", dep.Name),
				zap.String("revision", dep.Revision))
			return nil
		})
	}

	_ = g.Wait()

	s.mu.Lock()
	s.failures = failures
	s.mu.Unlock()

	if failures == nil {
		return nil
	}
	s.logger.Error("dependency sync failed",
		zap.Int("failed", failures.Len()),
		zap.Int("total", len(names)),
		zap.Errors("errors", failures.Errors))
	return failures.Errors[0]
}

// Failures returns every failure of the last SyncAll, or nil.
func (s *Synchronizer) Failures() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures == nil {
		return nil
	}
	out := make([]error, len(s.failures.Errors))
	copy(out, s.failures.Errors)
	return out
}
