package symbols

import (
	"fmt"
	"strings"
)

// Column layout of an `nm` line for 32-bit binaries:
//
//	00012a40 T FlutterEngineRun
//	         U malloc
const (
	addressWidth = 8                // columns 0-7
	kindColumn   = addressWidth + 1 // column 9
	nameColumn   = kindColumn + 2   // column 11 onward

	// 64-bit binaries print 16-digit addresses; the same layout shifts right.
	wideAddressWidth = 16
)

// Symbol is one entry of a library's dynamic symbol table.
type Symbol struct {
	Address string // empty for undefined symbols
	Kind    byte
	Name    string
}

// Defined reports whether the symbol is resolved inside the binary.
func (s Symbol) Defined() bool { return s.Address != "" }

// String renders the symbol the way the violation report prints it.
func (s Symbol) String() string {
	return fmt.Sprintf("%s %c %s", s.Address, s.Kind, s.Name)
}

// ParseError reports a symbol-table line that does not fit the column layout.
type ParseError struct {
	Line   int // 1-based; zero when parsing a single line
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("symbol table line %d: %s: %q", e.Line, e.Reason, e.Text)
	}
	return fmt.Sprintf("symbol table line: %s: %q", e.Reason, e.Text)
}

// ParseLine turns one fixed-column line into a Symbol. Lines too short to
// hold a name are rejected rather than truncated.
func ParseLine(line string) (Symbol, error) {
	width := addressWidth
	if len(line) > addressWidth && line[addressWidth] != ' ' {
		width = wideAddressWidth
	} else if len(line) > kindColumn && line[kindColumn] == ' ' {
		// Undefined symbol in a 64-bit table: the kind sits further right.
		width = wideAddressWidth
	}
	kindCol := width + 1
	nameCol := kindCol + 2

	if len(line) <= nameCol {
		return Symbol{}, &ParseError{Text: line, Reason: fmt.Sprintf("shorter than %d columns", nameCol+1)}
	}
	if line[width] != ' ' || line[kindCol+1] != ' ' {
		return Symbol{}, &ParseError{Text: line, Reason: "missing column separator"}
	}

	sym := Symbol{
		Address: strings.TrimSpace(line[:width]),
		Kind:    line[kindCol],
		Name:    strings.TrimSpace(line[nameCol:]),
	}
	if sym.Kind == ' ' {
		return Symbol{}, &ParseError{Text: line, Reason: "missing symbol kind"}
	}
	if sym.Name == "" {
		return Symbol{}, &ParseError{Text: line, Reason: "missing symbol name"}
	}
	return sym, nil
}

// ParseTable parses a full symbol dump. Blank lines are skipped.
func ParseTable(text string) ([]Symbol, error) {
	var symbols []Symbol
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		sym, err := ParseLine(line)
		if err != nil {
			if pe, ok := err.(*ParseError); ok {
				pe.Line = i + 1
			}
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	return symbols, nil
}
