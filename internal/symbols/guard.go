package symbols

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"tizenci/internal/logging"
	"tizenci/internal/tactile"
)

// DefaultReservedPrefix marks the engine's stable public API.
const DefaultReservedPrefix = "FlutterEngine"

// Guard checks libraries against the export policy.
type Guard struct {
	executor       tactile.Executor
	nm             string
	reservedPrefix string
	logger         *zap.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithNM sets the symbol-dump binary. The argument contract is unchanged.
func WithNM(binary string) Option {
	return func(g *Guard) { g.nm = binary }
}

// WithReservedPrefix overrides the always-permitted name prefix.
func WithReservedPrefix(prefix string) Option {
	return func(g *Guard) { g.reservedPrefix = prefix }
}

// WithLogger sets the guard's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

// NewGuard returns a guard running nm through executor.
func NewGuard(executor tactile.Executor, opts ...Option) *Guard {
	g := &Guard{
		executor:       executor,
		nm:             "nm",
		reservedPrefix: DefaultReservedPrefix,
		logger:         logging.Get(logging.CategorySymbols),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Result is the outcome of checking one library.
type Result struct {
	Library    string
	Symbols    []Symbol
	Violations []Symbol
}

// OK reports whether the library passed.
func (r *Result) OK() bool { return len(r.Violations) == 0 }

// Check verifies one library against the allowlist file.
func (g *Guard) Check(ctx context.Context, library, allowlistPath string) (*Result, error) {
	if err := checkReadable(library); err != nil {
		return nil, err
	}
	allow, err := LoadAllowlist(allowlistPath)
	if err != nil {
		return nil, err
	}
	return g.check(ctx, library, allow)
}

// CheckAll verifies every library, continuing past policy failures, and
// writes a report section for each failing library to w. It returns false if
// any library failed. Fatal errors stop the run immediately.
func (g *Guard) CheckAll(ctx context.Context, libraries []string, allowlistPath string, w io.Writer) (bool, error) {
	allow, err := LoadAllowlist(allowlistPath)
	if err != nil {
		return false, err
	}
	g.logger.Debug("allowlist loaded", zap.String("path", allowlistPath), zap.Int("entries", len(allow)))

	ok := true
	for _, library := range libraries {
		if err := checkReadable(library); err != nil {
			return false, err
		}
		result, err := g.check(ctx, library, allow)
		if err != nil {
			return false, err
		}
		if result.OK() {
			continue
		}
		ok = false
		if err := WriteReport(w, result); err != nil {
			return false, fmt.Errorf("write report: %w", err)
		}
	}
	return ok, nil
}

func (g *Guard) check(ctx context.Context, library string, allow Allowlist) (*Result, error) {
	symbols, err := g.dump(ctx, library)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Library:    library,
		Symbols:    symbols,
		Violations: Violations(symbols, allow, g.reservedPrefix),
	}
	g.logger.Info("library checked",
		zap.String("library", library),
		zap.Int("symbols", len(symbols)),
		zap.Int("violations", len(result.Violations)))
	return result, nil
}

// dump lists global, dynamic, demangled symbols: `nm -gDC <library>`.
func (g *Guard) dump(ctx context.Context, library string) ([]Symbol, error) {
	result, err := tactile.Run(ctx, g.executor, tactile.Command{
		Binary:    g.nm,
		Arguments: []string{"-gDC", library},
	})
	if err != nil {
		return nil, err
	}
	symbols, err := ParseTable(result.Stdout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", library, err)
	}
	return symbols, nil
}

// Violations returns, in table order, the undefined symbols that are neither
// reserved API nor allowlisted.
func Violations(symbols []Symbol, allow Allowlist, reservedPrefix string) []Symbol {
	var violations []Symbol
	for _, sym := range symbols {
		if sym.Defined() {
			continue
		}
		if reservedPrefix != "" && strings.HasPrefix(sym.Name, reservedPrefix) {
			continue
		}
		if allow.Contains(sym.Name) {
			continue
		}
		violations = append(violations, sym)
	}
	return violations
}

// WriteReport prints the violations of a failing library:
//
//	Symbols not allowed (libflutter_tizen.so):
//	 U some_symbol
func WriteReport(w io.Writer, r *Result) error {
	if _, err := fmt.Fprintf(w, "Symbols not allowed (%s):\n", r.Library); err != nil {
		return err
	}
	for _, sym := range r.Violations {
		if _, err := fmt.Fprintln(w, sym.String()); err != nil {
			return err
		}
	}
	return nil
}
