// Command check-symbol fails when a shared library exports undefined symbols
// that are neither engine API nor allowlisted.
//
//	check-symbol --allowlist allowlist.txt libflutter_tizen_common.so [...]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tizenci/internal/config"
	"tizenci/internal/logging"
	"tizenci/internal/symbols"
	"tizenci/internal/tactile"
)

var (
	passStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
)

// errUsage and errViolations map to exit status 1 without a second message.
var (
	errUsage      = errors.New("usage")
	errViolations = errors.New("symbols not allowed")
)

type app struct {
	stdout, stderr io.Writer

	// executor overrides the process runner built from config.
	executor tactile.Executor

	allowlist string
	verbose   bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "check-symbol --allowlist <path> [sofile ...]",
		Short:         "Verify that shared libraries export only allowed symbols",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
		RunE: a.runCheck,
	}
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	cmd.Flags().StringVar(&a.allowlist, "allowlist", "", "Path to the allowlist file")
	cmd.Flags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	return cmd
}

func (a *app) setup() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	level := cfg.Logging.Level
	if a.verbose {
		level = "debug"
	}
	logger, err := logging.Initialize(level, cfg.Logging.Format)
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
	a.logger.Debug("configured", zap.String("nm", cfg.Tools.NM), zap.String("reserved_prefix", cfg.Symbols.ReservedPrefix))
	return nil
}

func (a *app) runCheck(cmd *cobra.Command, libraries []string) error {
	if a.allowlist == "" {
		fmt.Fprintln(a.stdout, "--allowlist is required")
		return errUsage
	}
	if len(libraries) == 0 {
		fmt.Fprintln(a.stdout, "sofile is required")
		return errUsage
	}

	guard := symbols.NewGuard(a.executor,
		symbols.WithNM(a.cfg.Tools.NM),
		symbols.WithReservedPrefix(a.cfg.Symbols.ReservedPrefix))

	ok, err := guard.CheckAll(cmd.Context(), libraries, a.allowlist, a.stdout)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.stderr, failStyle.Render("symbol check failed"))
		return errViolations
	}
	fmt.Fprintln(a.stderr, passStyle.Render(fmt.Sprintf("symbol check passed (%d libraries)", len(libraries))))
	return nil
}

func run(ctx context.Context, a *app, args []string) int {
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, errViolations) {
			fmt.Fprintf(a.stderr, "check-symbol: %v\n", err)
		}
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
