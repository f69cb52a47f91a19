package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tizenci/internal/logging"
	"tizenci/internal/tactile"
)

func newTestApp(t *testing.T, fake *tactile.FakeExecutor) (*app, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	t.Setenv("TIZENCI_CONFIG", "")
	t.Cleanup(func() { logging.SetRoot(nil) })

	var stdout, stderr bytes.Buffer
	return &app{stdout: &stdout, stderr: &stderr, executor: fake}, &stdout, &stderr
}

func TestRun_RequiresExactlyOneArgument(t *testing.T) {
	for _, args := range [][]string{nil, {"a", "b"}} {
		a, _, stderr := newTestApp(t, &tactile.FakeExecutor{})
		assert.Equal(t, 1, run(context.Background(), a, args))
		assert.Contains(t, stderr.String(), "arg(s)")
	}
}

func TestRun_MissingManifest(t *testing.T) {
	fake := &tactile.FakeExecutor{}
	a, _, stderr := newTestApp(t, fake)

	code := run(context.Background(), a, []string{filepath.Join(t.TempDir(), "DEPS")})
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "DEPS file does not exist")
	assert.Empty(t, fake.Calls())
}

func TestRun_MalformedManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "DEPS")
	require.NoError(t, os.WriteFile(path, []byte(`{"vars": {}}`), 0644))

	a, _, stderr := newTestApp(t, &tactile.FakeExecutor{})
	assert.Equal(t, 1, run(context.Background(), a, []string{path}))
	assert.Contains(t, stderr.String(), path)
	assert.Contains(t, stderr.String(), `missing "deps" mapping`)
}

func TestRun_SyncsGitDependencies(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "checkout")
	t.Setenv("TIZENCI_SYNC_ROOT", root)

	path := filepath.Join(dir, "DEPS")
	manifest := `deps = {
  'src/third_party/libx': {'dep_type': 'git', 'url': 'https://example/repo@abc123'},
  'src/buildtools': {'dep_type': 'cipd', 'packages': []},
}
`
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0644))

	fake := &tactile.FakeExecutor{}
	a, stdout, _ := newTestApp(t, fake)

	require.Equal(t, 0, run(context.Background(), a, []string{path}))
	assert.Contains(t, stdout.String(), "synced 1 git dependencies")

	var args []string
	for _, c := range fake.Calls() {
		assert.Equal(t, filepath.Join(root, "src", "third_party", "libx"), c.WorkingDirectory)
		args = append(args, strings.Join(c.Arguments, " "))
	}
	assert.Equal(t, []string{
		"init --quiet",
		"config advice.detachedHead false",
		"remote add origin https://example/repo",
		"fetch --depth 1 origin abc123",
		"checkout FETCH_HEAD",
	}, args)
}

func TestRun_CheckoutFailure(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TIZENCI_SYNC_ROOT", filepath.Join(dir, "checkout"))
	path := filepath.Join(dir, "DEPS")
	require.NoError(t, os.WriteFile(path, []byte(`{"deps": {
		"a": {"dep_type": "git", "url": "https://unreachable.invalid/a@1"},
		"b": {"dep_type": "git", "url": "https://unreachable.invalid/b@2"},
		"c": {"dep_type": "git", "url": "https://example/c@3"}
	}}`), 0644))

	fake := &tactile.FakeExecutor{
		Respond: func(ctx context.Context, cmd tactile.Command) (*tactile.ExecutionResult, error) {
			if cmd.Arguments[0] == "remote" && strings.Contains(cmd.Arguments[3], "unreachable") {
				return tactile.Exit(128, "", "fatal: remote origin already exists.\n"), nil
			}
			return nil, nil
		},
	}
	a, _, stderr := newTestApp(t, fake)

	assert.Equal(t, 1, run(context.Background(), a, []string{path}))
	assert.Contains(t, stderr.String(), "failed at remote")
	assert.Contains(t, stderr.String(), "and 1 more failures")
}
