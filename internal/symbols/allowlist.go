package symbols

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// IOError reports an input file that cannot be read. It is fatal and
// distinct from a policy failure.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s is not readable: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Allowlist is an exact-match set of symbol names permitted to stay undefined.
type Allowlist map[string]struct{}

// Contains reports whether name is allowlisted.
func (a Allowlist) Contains(name string) bool {
	_, ok := a[name]
	return ok
}

// ParseAllowlist reads one name per line. Lines are trimmed and blank lines
// ignored; there are no wildcards or comments.
func ParseAllowlist(r io.Reader) (Allowlist, error) {
	allow := make(Allowlist)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		allow[name] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return allow, nil
}

// LoadAllowlist reads an allowlist file.
func LoadAllowlist(path string) (Allowlist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	defer f.Close()

	allow, err := ParseAllowlist(f)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	return allow, nil
}

// checkReadable opens and closes path so unreadable inputs fail before any
// process is started.
func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &IOError{Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return &IOError{Path: path, Err: err}
	}
	if info.IsDir() {
		return &IOError{Path: path, Err: fmt.Errorf("is a directory")}
	}
	return nil
}
