package deps

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// KindGit is the only dependency type the synchronizer acts on.
const KindGit = "git"

// Dependency is one manifest entry.
type Dependency struct {
	Name     string
	Kind     string
	URL      string // repository location, empty for non-git kinds
	Revision string
	Raw      string // the manifest's url@revision value
}

// ManifestError reports a missing or malformed manifest structure.
type ManifestError struct {
	Source string
	Key    string
	Reason string
	Err    error
}

func (e *ManifestError) Error() string {
	var b strings.Builder
	b.WriteString(e.Source)
	if e.Key != "" {
		fmt.Fprintf(&b, ": %s", e.Key)
	}
	fmt.Fprintf(&b, ": %s", e.Reason)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ManifestError) Unwrap() error { return e.Err }

// SplitURL splits url@revision on the first '@'. Values containing
// whitespace are unevaluated expressions, not literals, and are rejected.
func SplitURL(raw string) (url, revision string, ok bool) {
	if strings.ContainsAny(raw, " \t\r\n") {
		return "", "", false
	}
	url, revision, ok = strings.Cut(raw, "@")
	if !ok || url == "" || revision == "" {
		return "", "", false
	}
	return url, revision, true
}

// ParseManifest extracts the deps mapping from manifest text. source names
// the manifest in errors.
func ParseManifest(text, source string) (map[string]Dependency, error) {
	doc, err := DecodeDocument(text, source)
	if err != nil {
		return nil, err
	}
	entries, err := doc.GetMapping("deps")
	if err != nil {
		return nil, err
	}

	deps := make(map[string]Dependency, len(entries.Keys()))
	for _, name := range entries.Keys() {
		if !LocalName(name) {
			return nil, entries.errorf(name, "dependency path %q leaves the checkout root", name)
		}
		dep, err := parseEntry(entries, name)
		if err != nil {
			return nil, err
		}
		deps[name] = dep
	}
	return deps, nil
}

// LocalName reports whether a dependency name, read as a slash-separated
// path, stays inside the checkout root.
func LocalName(name string) bool {
	return filepath.IsLocal(filepath.FromSlash(name))
}

// parseEntry reads one deps entry. As in gclient, a bare string is shorthand
// for {url: <string>} and a mapping without dep_type is a git dependency.
func parseEntry(entries *Document, name string) (Dependency, error) {
	if raw, err := entries.GetString(name); err == nil {
		return gitDependency(entries, name, name, raw)
	}
	entry, err := entries.GetMapping(name)
	if err != nil {
		return Dependency{}, entries.errorf(name, "%q is neither a url string nor a mapping", name)
	}

	kind := KindGit
	if entry.Has("dep_type") {
		if kind, err = entry.GetString("dep_type"); err != nil {
			return Dependency{}, err
		}
	}
	if kind != KindGit {
		return Dependency{Name: name, Kind: kind}, nil
	}

	raw, err := entry.GetString("url")
	if err != nil {
		return Dependency{}, err
	}
	return gitDependency(entry, "url", name, raw)
}

func gitDependency(doc *Document, key, name, raw string) (Dependency, error) {
	url, revision, ok := SplitURL(raw)
	if !ok {
		return Dependency{}, doc.errorf(key, "url %q is not of the form repository@revision", raw)
	}
	return Dependency{
		Name:     name,
		Kind:     KindGit,
		URL:      url,
		Revision: revision,
		Raw:      raw,
	}, nil
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (map[string]Dependency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		reason := "cannot read manifest"
		if errors.Is(err, os.ErrNotExist) {
			reason = "manifest does not exist"
		}
		return nil, &ManifestError{Source: path, Reason: reason, Err: err}
	}
	return ParseManifest(string(data), path)
}

// GitDependencies returns the git-typed entries sorted by name.
func GitDependencies(deps map[string]Dependency) []Dependency {
	var out []Dependency
	for _, dep := range deps {
		if dep.Kind == KindGit {
			out = append(out, dep)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
