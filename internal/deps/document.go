package deps

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is a read-only view over a decoded structured document.
// Accessors return *ManifestError naming the source and key path on misuse.
type Document struct {
	source string
	path   string
	values map[string]any
}

// assignmentPattern matches a top-level gclient assignment such as `deps = {`.
var assignmentPattern = regexp.MustCompile(`(?m)^([A-Za-z_][A-Za-z0-9_]*)[ \t]*=[ \t]*`)

// DecodeDocument parses JSON, YAML or a gclient DEPS file.
//
// DEPS files are Python assignments of literal values. They are rewritten
// into one YAML flow mapping ({deps: {...}, vars: {...}}); Python dict and
// list literals are already valid flow collections. Expressions such as
// Var('x') are not evaluated and fail to decode.
func DecodeDocument(text, source string) (*Document, error) {
	if assignmentPattern.MatchString(text) {
		text = rewriteAssignments(text)
	}

	var values map[string]any
	if err := yaml.Unmarshal([]byte(text), &values); err != nil {
		return nil, &ManifestError{Source: source, Reason: "malformed document", Err: err}
	}
	if values == nil {
		return nil, &ManifestError{Source: source, Reason: "empty document"}
	}
	return &Document{source: source, values: values}, nil
}

func rewriteAssignments(text string) string {
	first := true
	body := assignmentPattern.ReplaceAllStringFunc(text, func(m string) string {
		name := assignmentPattern.FindStringSubmatch(m)[1]
		if first {
			first = false
			return name + ": "
		}
		return ", " + name + ": "
	})
	return "{\n" + body + "\n}\n"
}

// Has reports whether key is present.
func (d *Document) Has(key string) bool {
	_, ok := d.values[key]
	return ok
}

// Keys returns the document's keys in sorted order.
func (d *Document) Keys() []string {
	keys := make([]string, 0, len(d.values))
	for k := range d.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetMapping returns the nested mapping stored under key.
func (d *Document) GetMapping(key string) (*Document, error) {
	v, ok := d.values[key]
	if !ok {
		return nil, d.errorf(key, "missing %q mapping", key)
	}
	m, ok := asMapping(v)
	if !ok {
		return nil, d.errorf(key, "%q is not a mapping", key)
	}
	return &Document{source: d.source, path: d.join(key), values: m}, nil
}

// GetString returns the string stored under key.
func (d *Document) GetString(key string) (string, error) {
	v, ok := d.values[key]
	if !ok {
		return "", d.errorf(key, "missing %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", d.errorf(key, "%q is not a string", key)
	}
	return s, nil
}

func (d *Document) join(key string) string {
	if d.path == "" {
		return key
	}
	return d.path + "." + key
}

func (d *Document) errorf(key, format string, args ...any) error {
	return &ManifestError{Source: d.source, Key: d.join(key), Reason: fmt.Sprintf(format, args...)}
}

// asMapping normalizes decoded YAML mappings. Non-string keys are rendered
// with %v; DEPS keys are always strings in practice.
func asMapping(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[strings.TrimSpace(fmt.Sprint(k))] = val
		}
		return out, true
	default:
		return nil, false
	}
}
