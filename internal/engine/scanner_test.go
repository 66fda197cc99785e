package engine

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/extsort/internal/filter"
)

func relPaths(files []SourceFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = filepath.ToSlash(f.RelPath)
	}
	return out
}

func TestDiscoverSortedAllFiles(t *testing.T) {
	src := t.TempDir()
	createTestTree(t, src)

	files, errs := Discover(context.Background(), ScannerConfig{SrcRoot: src, Logger: discardLogger()})
	require.Empty(t, errs)

	assert.Equal(t, []string{
		".bashrc",
		"README",
		"a/report.txt",
		"archive.tar.gz",
		"b/report.txt",
		"deep/x/y/z.go",
		"img/photo.JPG",
		"report.txt",
	}, relPaths(files))

	for _, f := range files {
		assert.True(t, filepath.IsAbs(f.Path), f.Path)
		assert.True(t, f.Mode.IsRegular())
	}
}

func TestDiscoverEmptyTree(t *testing.T) {
	files, errs := Discover(context.Background(), ScannerConfig{SrcRoot: t.TempDir(), Logger: discardLogger()})
	assert.Empty(t, files)
	assert.Empty(t, errs)
}

func TestDiscoverSymlinks(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "real.txt", "data")
	writeFile(t, src, "dir/inner.txt", "inner")
	require.NoError(t, os.Symlink("real.txt", filepath.Join(src, "link.txt")))
	require.NoError(t, os.Symlink("dir", filepath.Join(src, "dirlink")))
	require.NoError(t, os.Symlink("missing", filepath.Join(src, "broken.txt")))
	require.NoError(t, os.Symlink("self", filepath.Join(src, "self")))
	require.NoError(t, os.Symlink(".", filepath.Join(src, "dir", "loop")))

	done := make(chan []SourceFile)
	go func() {
		files, _ := Discover(context.Background(), ScannerConfig{SrcRoot: src, Logger: discardLogger()})
		done <- files
	}()

	select {
	case files := <-done:
		assert.Equal(t, []string{"dir/inner.txt", "link.txt", "real.txt"}, relPaths(files))
	case <-time.After(10 * time.Second):
		t.Fatal("discovery did not finish")
	}
}

func TestDiscoverSkipsSpecialFiles(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "a.txt", "a")
	require.NoError(t, syscall.Mkfifo(filepath.Join(src, "pipe"), 0o644))

	files, errs := Discover(context.Background(), ScannerConfig{SrcRoot: src, Logger: discardLogger()})
	require.Empty(t, errs)
	assert.Equal(t, []string{"a.txt"}, relPaths(files))
}

func TestDiscoverUnreadableDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	src := t.TempDir()
	writeFile(t, src, "ok.txt", "ok")
	writeFile(t, src, "locked/hidden.txt", "x")
	locked := filepath.Join(src, "locked")
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	files, errs := Discover(context.Background(), ScannerConfig{SrcRoot: src, Logger: discardLogger()})
	assert.Equal(t, []string{"ok.txt"}, relPaths(files))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "locked")
}

func TestDiscoverPrune(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "a.txt", "a")
	writeFile(t, src, "out/txt/a.txt", "a")

	files, errs := Discover(context.Background(), ScannerConfig{
		SrcRoot: src,
		Prune:   []string{filepath.Join(src, "out")},
		Logger:  discardLogger(),
	})
	require.Empty(t, errs)
	assert.Equal(t, []string{"a.txt"}, relPaths(files))
}

func TestDiscoverFilter(t *testing.T) {
	src := t.TempDir()
	createTestTree(t, src)

	chain := filter.NewChain()
	require.NoError(t, chain.AddExclude("*.txt"))
	require.NoError(t, chain.AddExclude("deep/"))

	files, errs := Discover(context.Background(), ScannerConfig{SrcRoot: src, Filter: chain, Logger: discardLogger()})
	require.Empty(t, errs)
	assert.Equal(t, []string{".bashrc", "README", "archive.tar.gz", "img/photo.JPG"}, relPaths(files))
}

func TestDiscoverManyDirs(t *testing.T) {
	src := t.TempDir()
	for i := range 200 {
		writeFile(t, src, filepath.Join("d", string(rune('a'+i%26)), "n", "f"+strconv.Itoa(i)+".dat"), "x")
	}

	files, errs := Discover(context.Background(), ScannerConfig{SrcRoot: src, Workers: 2, Logger: discardLogger()})
	require.Empty(t, errs)
	assert.Len(t, files, 200)
}
