package deps

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifest_JSON(t *testing.T) {
	text := `{"deps": {"libx": {"dep_type": "git", "url": "https://example/repo@abc123"}}}`

	deps, err := ParseManifest(text, "DEPS.json")
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, Dependency{
		Name:     "libx",
		Kind:     KindGit,
		URL:      "https://example/repo",
		Revision: "abc123",
		Raw:      "https://example/repo@abc123",
	}, deps["libx"])
}

func TestParseManifest_YAML(t *testing.T) {
	text := `
deps:
  src/third_party/skia:
    dep_type: git
    url: https://skia.googlesource.com/skia.git@0123abcd
  src/buildtools/linux64:
    dep_type: cipd
    packages:
      - package: gn/gn/linux-amd64
        version: git_revision:abc
`
	deps, err := ParseManifest(text, "DEPS.yaml")
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, "0123abcd", deps["src/third_party/skia"].Revision)
	assert.Equal(t, "cipd", deps["src/buildtools/linux64"].Kind)
	assert.Empty(t, deps["src/buildtools/linux64"].URL)
}

func TestParseManifest_GclientDEPS(t *testing.T) {
	text := `# Generated DEPS for the embedder.
vars = {
  'github': 'https://github.com',
}

deps = {
  'src/third_party/libcxx': {
    'url': 'https://llvm.googlesource.com/llvm-project/libcxx@44079a4cc04c',
    'dep_type': 'git',
    'condition': 'True',
  },
  'src/flutter/third_party/rapidjson': {
    "url": "https://fuchsia.googlesource.com/third_party/rapidjson@ef3564c5c8824989393b87df25355baf35ff544b",
    'dep_type': 'git',
  },
  'src/buildtools/linux-x64/clang': {
    'packages': [
      {
        'package': 'fuchsia/third_party/clang/linux-amd64',
        'version': 'git_revision:1234',
      },
    ],
    'dep_type': 'cipd',
  },
}
`
	deps, err := ParseManifest(text, "DEPS")
	require.NoError(t, err)
	require.Len(t, deps, 3)

	libcxx := deps["src/third_party/libcxx"]
	assert.Equal(t, "https://llvm.googlesource.com/llvm-project/libcxx", libcxx.URL)
	assert.Equal(t, "44079a4cc04c", libcxx.Revision)
	assert.Equal(t, "ef3564c5c8824989393b87df25355baf35ff544b", deps["src/flutter/third_party/rapidjson"].Revision)
	assert.Equal(t, "cipd", deps["src/buildtools/linux-x64/clang"].Kind)
}

func TestParseManifest_SplitsOnFirstAt(t *testing.T) {
	text := `{"deps": {"odd": {"dep_type": "git", "url": "https://example/repo@v1@beta"}}}`

	deps, err := ParseManifest(text, "DEPS")
	require.NoError(t, err)
	assert.Equal(t, "https://example/repo", deps["odd"].URL)
	assert.Equal(t, "v1@beta", deps["odd"].Revision)
}

func TestParseManifest_Errors(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantKey string
	}{
		{"missing deps", `{"vars": {}}`, "deps"},
		{"deps not a mapping", `{"deps": ["a"]}`, "deps"},
		{"entry is a list", `{"deps": {"a": ["https://x@1"]}}`, "deps.a"},
		{"string entry without revision", `{"deps": {"a": "https://x"}}`, "deps.a"},
		{"dep_type not a string", `{"deps": {"a": {"dep_type": 1, "url": "https://x@1"}}}`, "deps.a.dep_type"},
		{"name leaves root", `{"deps": {"../../escape": {"dep_type": "git", "url": "https://x@1"}}}`, "deps.../../escape"},
		{"absolute name", `{"deps": {"/etc/escape": {"dep_type": "git", "url": "https://x@1"}}}`, "deps./etc/escape"},
		{"git without url", `{"deps": {"a": {"dep_type": "git"}}}`, "deps.a.url"},
		{"url without revision", `{"deps": {"a": {"dep_type": "git", "url": "https://x"}}}`, "deps.a.url"},
		{"url not a string", `{"deps": {"a": {"dep_type": "git", "url": 42}}}`, "deps.a.url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest(tt.text, "/src/DEPS")
			var me *ManifestError
			require.True(t, errors.As(err, &me), "got %v", err)
			assert.Equal(t, "/src/DEPS", me.Source)
			assert.Equal(t, tt.wantKey, me.Key)
			assert.Contains(t, err.Error(), "/src/DEPS")
		})
	}
}

func TestParseManifest_ShorthandEntries(t *testing.T) {
	text := `deps = {
  'src/a': 'https://example/a.git@111',
  'src/b': {'url': 'https://example/b.git@222'},
  'src/c': {'dep_type': 'cipd', 'packages': []},
}
`
	deps, err := ParseManifest(text, "DEPS")
	require.NoError(t, err)
	assert.Equal(t, Dependency{
		Name:     "src/a",
		Kind:     KindGit,
		URL:      "https://example/a.git",
		Revision: "111",
		Raw:      "https://example/a.git@111",
	}, deps["src/a"])
	assert.Equal(t, KindGit, deps["src/b"].Kind)
	assert.Equal(t, "222", deps["src/b"].Revision)
	assert.Equal(t, Dependency{Name: "src/c", Kind: "cipd"}, deps["src/c"])
}

func TestLocalName(t *testing.T) {
	for name, want := range map[string]bool{
		"src/third_party/libx": true,
		"src/../libx":          true,
		"libx":                 true,
		"":                     false,
		"..":                   false,
		"../../escape":         false,
		"src/../../escape":     false,
		"/abs/path":            false,
	} {
		assert.Equal(t, want, LocalName(name), name)
	}
}

func TestParseManifest_UnevaluatedExpression(t *testing.T) {
	text := `deps = {
  'src/a': {
    'url': Var('github') + '/a.git@123',
    'dep_type': 'git',
  },
}
`
	_, err := ParseManifest(text, "DEPS")
	var me *ManifestError
	require.True(t, errors.As(err, &me), "got %v", err)
}

func TestParseManifest_Empty(t *testing.T) {
	_, err := ParseManifest("", "DEPS")
	var me *ManifestError
	require.True(t, errors.As(err, &me))
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "DEPS")
	require.NoError(t, os.WriteFile(path, []byte(`{"deps": {"a": {"dep_type": "git", "url": "u@r"}}}`), 0644))

	deps, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "u", deps["a"].URL)

	_, err = LoadManifest(filepath.Join(dir, "missing"))
	var me *ManifestError
	require.True(t, errors.As(err, &me))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), "does not exist")
}

func TestSplitURL(t *testing.T) {
	tests := []struct {
		raw, url, rev string
		ok            bool
	}{
		{"https://example/repo@abc123", "https://example/repo", "abc123", true},
		{"a@b@c", "a", "b@c", true},
		{"https://example/repo", "", "", false},
		{"@abc", "", "", false},
		{"https://example/repo@", "", "", false},
		{"Var('github') + '/a.git@123'", "", "", false},
	}
	for _, tt := range tests {
		url, rev, ok := SplitURL(tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
		assert.Equal(t, tt.url, url, tt.raw)
		assert.Equal(t, tt.rev, rev, tt.raw)
	}
}

func TestDocumentAccessors(t *testing.T) {
	doc, err := DecodeDocument("name: tizen\nnested:\n  key: value\n", "cfg")
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "nested"}, doc.Keys())
	assert.True(t, doc.Has("name"))
	assert.False(t, doc.Has("absent"))

	name, err := doc.GetString("name")
	require.NoError(t, err)
	assert.Equal(t, "tizen", name)

	nested, err := doc.GetMapping("nested")
	require.NoError(t, err)
	v, err := nested.GetString("key")
	require.NoError(t, err)
	assert.Equal(t, "value", v)

	_, err = doc.GetMapping("name")
	assert.Error(t, err)
	_, err = nested.GetString("missing")
	var me *ManifestError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "nested.missing", me.Key)
}

func TestGitDependencies(t *testing.T) {
	deps := map[string]Dependency{
		"b": {Name: "b", Kind: KindGit},
		"a": {Name: "a", Kind: KindGit},
		"c": {Name: "c", Kind: "cipd"},
	}
	got := GitDependencies(deps)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "b", got[1].Name)
}
