package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	color.NoColor = true
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := runCLI(t, "--version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "extsort dev\n", out)
}

func TestWrongArgCount(t *testing.T) {
	code, _, errOut := runCLI(t, "only-one")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "accepts 2 arg(s)")
}

func TestSortEndToEnd(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, src, "a/report.txt", "a")
	writeFile(t, src, "b/report.txt", "b")
	writeFile(t, src, "Makefile", "all:")

	code, _, errOut := runCLI(t, src, dst)
	require.Equal(t, 0, code, errOut)

	assert.FileExists(t, filepath.Join(dst, "txt", "report.txt"))
	assert.FileExists(t, filepath.Join(dst, "txt", "report_1.txt"))
	assert.FileExists(t, filepath.Join(dst, "no_extension", "Makefile"))
	assert.Equal(t, 3, strings.Count(errOut, "msg=copied"))
	assert.Contains(t, errOut, "files 3  copied 3  skipped 0  failed 0")
}

func TestSortMirrorAndFilters(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, src, "a/keep.go", "package a")
	writeFile(t, src, "a/skip.log", "noise")

	code, _, errOut := runCLI(t, "--mirror", "--exclude", "*.log", "-q", src, dst)
	require.Equal(t, 0, code, errOut)

	assert.FileExists(t, filepath.Join(dst, "go", "a", "keep.go"))
	assert.NoDirExists(t, filepath.Join(dst, "log"))
	assert.Empty(t, errOut)
}

func TestSortMissingSource(t *testing.T) {
	parent := t.TempDir()
	dst := filepath.Join(parent, "out")

	code, _, errOut := runCLI(t, filepath.Join(parent, "missing"), dst)
	assert.Equal(t, 0, code)
	assert.Equal(t, 1, strings.Count(errOut, "level=ERROR"))
	assert.NoDirExists(t, dst)

	code, _, _ = runCLI(t, "--strict", filepath.Join(parent, "missing"), dst)
	assert.Equal(t, 2, code)
}

func TestSortStrictFailure(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, src, "ok.txt", "ok")
	writeFile(t, src, "locked.txt", "x")
	locked := filepath.Join(src, "locked.txt")
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o644) })

	code, _, _ := runCLI(t, src, dst)
	assert.Equal(t, 0, code)

	code, _, errOut := runCLI(t, "--strict", src, t.TempDir())
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "copy failed")
}

func TestSortStrictBlockedBucket(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "a.txt", "a")
	writeFile(t, src, "b.go", "b")

	dst := t.TempDir()
	writeFile(t, dst, "txt", "in the way")
	code, _, errOut := runCLI(t, src, dst)
	assert.Equal(t, 0, code, errOut)
	assert.Contains(t, errOut, "failed 1")

	dst = t.TempDir()
	writeFile(t, dst, "txt", "in the way")
	code, _, errOut = runCLI(t, "--strict", src, dst)
	assert.Equal(t, 1, code)
	assert.Equal(t, 1, strings.Count(errOut, "copy failed"))
	assert.FileExists(t, filepath.Join(dst, "go", "b.go"))
}

func TestSortSameRoot(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "a.txt", "a")

	code, _, errOut := runCLI(t, src, src)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "destination is the source root")
	assert.NoDirExists(t, filepath.Join(src, "txt"))
}

func TestSortBadFlags(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()

	code, _, errOut := runCLI(t, "--collision", "rename", src, dst)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "unknown collision policy")

	code, _, errOut = runCLI(t, "--bwlimit", "fast", src, dst)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "invalid --bwlimit")

	code, _, _ = runCLI(t, "-n", "0", src, dst)
	assert.Equal(t, 2, code)
}

func TestSortConfigDefaults(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, src, "a/x.txt", "x")

	cfgHome := t.TempDir()
	writeFile(t, cfgHome, "extsort/config.toml", "[defaults]\nmirror = true\n")

	var stdout, stderr bytes.Buffer
	t.Setenv("XDG_CONFIG_HOME", cfgHome)
	code := run([]string{src, dst}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.FileExists(t, filepath.Join(dst, "txt", "a", "x.txt"))

	// An explicit flag wins over the config file.
	dst2 := t.TempDir()
	code = run([]string{"--mirror=false", src, dst2}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.FileExists(t, filepath.Join(dst2, "txt", "x.txt"))
}

func TestSortLogFile(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, src, "a.txt", "a")
	logPath := filepath.Join(t.TempDir(), "extsort.log")

	code, _, errOut := runCLI(t, "--log", logPath, src, dst)
	require.Equal(t, 0, code, errOut)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"copied"`)
}

func TestSortDryRun(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")
	writeFile(t, src, "a.txt", "a")

	code, _, errOut := runCLI(t, "--dry-run", src, dst)
	require.Equal(t, 0, code, errOut)
	assert.NoDirExists(t, dst)
	assert.Contains(t, errOut, "would copy")
	assert.Contains(t, errOut, "dry run")
}

func TestSortBucketTable(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, src, "a.txt", "a")
	writeFile(t, src, "b.png", "b")

	code, _, errOut := runCLI(t, "--buckets", src, dst)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, errOut, "png")
	assert.Contains(t, strings.ToLower(errOut), "2 buckets")
}
