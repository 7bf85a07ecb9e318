package fs

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Real_Exists(t *testing.T) {
	t.Parallel()

	fsys := NewReal()
	dir := t.TempDir()

	exists, err := fsys.Exists(filepath.Join(dir, "does-not-exist.txt"))
	require.NoError(t, err)
	assert.False(t, exists)

	path := filepath.Join(dir, "exists.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	exists, err = fsys.Exists(path)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = fsys.Exists(dir)
	require.NoError(t, err)
	assert.True(t, exists)
}

func Test_Real_WriteFileAtomic_CreatesAndOverwrites(t *testing.T) {
	t.Parallel()

	fsys := NewReal()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")

	require.NoError(t, fsys.WriteFileAtomic(path, []byte("first"), 0o644))
	require.NoError(t, fsys.WriteFileAtomic(path, []byte("second"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	// No temp files left behind.
	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func Test_Real_WriteFileAtomic_ConcurrentWritesStayWhole(t *testing.T) {
	t.Parallel()

	fsys := NewReal()
	path := filepath.Join(t.TempDir(), "test.txt")

	var wg sync.WaitGroup

	for i := range 10 {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			for range 20 {
				content := []byte("writer-" + string(rune('A'+id)) + "-write")
				_ = fsys.WriteFileAtomic(path, content, 0o644)
			}
		}(i)
	}

	wg.Wait()

	// Final content must be one writer's full payload, never interleaved.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(data), 7)
	assert.Equal(t, "writer-", string(data[:7]))
}
