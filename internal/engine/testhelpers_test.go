package engine

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeFile creates root/rel with content, making parent directories.
func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// createTestTree populates root with:
//
//	report.txt
//	a/report.txt
//	b/report.txt
//	img/photo.JPG
//	archive.tar.gz
//	README
//	.bashrc
//	deep/x/y/z.go
func createTestTree(t *testing.T, root string) {
	t.Helper()
	writeFile(t, root, "report.txt", "top report")
	writeFile(t, root, "a/report.txt", "report from a")
	writeFile(t, root, "b/report.txt", "report from b")
	writeFile(t, root, "img/photo.JPG", "jpeg bytes")
	writeFile(t, root, "archive.tar.gz", "gzip bytes")
	writeFile(t, root, "README", "readme")
	writeFile(t, root, ".bashrc", "export X=1")
	writeFile(t, root, "deep/x/y/z.go", "package z")
}

// listTree returns every regular file below root as slash-separated
// relative path mapped to its content.
func listTree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return out
}

// logBuffer is a goroutine-safe sink for a text slog handler.
type logBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger(level slog.Level) (*slog.Logger, *logBuffer) {
	buf := &logBuffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level})), buf
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
