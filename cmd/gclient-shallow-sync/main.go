// Command gclient-shallow-sync checks out every git dependency of a DEPS
// manifest as a depth-1 fetch of its pinned revision.
//
//	gclient-shallow-sync src/flutter/DEPS
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tizenci/internal/config"
	"tizenci/internal/deps"
	"tizenci/internal/logging"
	"tizenci/internal/tactile"
)

type app struct {
	stdout, stderr io.Writer

	// executor overrides the process runner built from config.
	executor tactile.Executor

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gclient-shallow-sync <DEPS>",
		Short: "Shallow-fetch the pinned git dependencies of a DEPS file",
		Long: `Reads the deps mapping of a gclient DEPS file (JSON and YAML also work)
and materializes every dep_type=git entry at <root>/<name> with a depth-1
fetch of its pinned revision, eight dependencies at a time.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
		RunE: a.runSync,
	}
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	return cmd
}

func (a *app) setup() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	logger, err := logging.Initialize(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger.Named(string(logging.CategoryBoot))
	if a.executor == nil {
		execCfg := tactile.DefaultExecutorConfig()
		execCfg.MaxOutputBytes = cfg.Tools.MaxOutputBytes
		a.executor = tactile.NewDirectExecutorWithConfig(execCfg)
	}
	return nil
}

func (a *app) runSync(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("DEPS file does not exist: %w", err)
	}

	manifest, err := deps.LoadManifest(path)
	if err != nil {
		return err
	}
	a.logger.Debug("manifest loaded", zap.String("path", path), zap.Int("entries", len(manifest)))

	checkouter := deps.NewCheckouter(a.executor,
		deps.WithGit(a.cfg.Tools.Git),
		deps.WithStepTimeout(a.cfg.GetCheckoutTimeout()))
	syncer := deps.NewSynchronizer(checkouter,
		deps.WithRoot(a.cfg.Sync.Root),
		deps.WithWorkers(a.cfg.Sync.Workers))

	start := time.Now()
	if err := syncer.SyncAll(cmd.Context(), manifest); err != nil {
		if failures := syncer.Failures(); len(failures) > 1 {
			return fmt.Errorf("%w (and %d more failures)", err, len(failures)-1)
		}
		return err
	}
	fmt.Fprintf(a.stdout, "synced %d git dependencies in %s\n",
		len(deps.GitDependencies(manifest)), time.Since(start).Round(time.Millisecond))
	return nil
}

func run(ctx context.Context, a *app, args []string) int {
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(a.stderr, "gclient-shallow-sync: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, &app{stdout: os.Stdout, stderr: os.Stderr}, os.Args[1:])
	stop()
	os.Exit(code)
}
