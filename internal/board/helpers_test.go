package board_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"kb/internal/board"
)

// newBoardDir creates a board root with the given name and column
// directories under a temp dir.
func newBoardDir(t *testing.T, name string, columns ...string) string {
	t.Helper()

	root := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.Mkdir(root, 0o755))

	for _, col := range columns {
		require.NoError(t, os.Mkdir(filepath.Join(root, col), 0o755))
	}

	return root
}

// writeFile writes content, creating parent directories as needed.
func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// openFolder opens a board folder with warnings discarded. Extra
// options apply after and win.
func openFolder(t *testing.T, root string, opts ...board.Option) *board.Folder {
	t.Helper()

	opts = append([]board.Option{board.WithLogger(discardLogger())}, opts...)

	f, err := board.Open(root, opts...)
	require.NoError(t, err)

	return f
}

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

// itemTitles lists a column's item titles in order.
func itemTitles(col *board.Column) []string {
	titles := make([]string, 0, len(col.Items))
	for _, it := range col.Items {
		titles = append(titles, it.Title)
	}

	return titles
}

// columnTitles lists the board's column titles in order.
func columnTitles(b *board.Board) []string {
	titles := make([]string, 0, len(b.Columns))
	for _, col := range b.Columns {
		titles = append(titles, col.Title)
	}

	return titles
}

// readFile returns a file's content as a string.
func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	return string(data)
}

// listMarkdown lists the markdown file names directly in dir, sorted.
func listMarkdown(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string

	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".md" {
			names = append(names, entry.Name())
		}
	}

	return names
}
