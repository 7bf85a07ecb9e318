package cli_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"kb/internal/cli"
)

func TestConcurrentItemCreation(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.InitColumns("Todo")

	const numGoroutines = 5

	paths, failures := addItemsConcurrently(t, c, numGoroutines)

	if len(failures) > 0 {
		for _, failure := range failures {
			t.Errorf("goroutine failed with exit code %d: stderr=%s", failure.code, failure.stderr)
		}
	}

	if got, want := len(paths), numGoroutines; got != want {
		t.Fatalf("itemCount=%d, want=%d", got, want)
	}

	verifyUniquePaths(t, paths)
	verifyFilesOnDisk(t, c, paths)
	verifyListedCount(t, c, "Concurrent item", numGoroutines)
}

// TestConcurrentChecks_AllStick marks distinct items done from
// concurrent invocations. Every save rewrites the whole board, so a
// save working from a stale load would revert the other invocations'
// marks.
func TestConcurrentChecks_AllStick(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	const numItems = 5

	for i := range numItems {
		c.WriteItem("Todo", fmt.Sprintf("task_%d", i), "# Task\n")
	}

	var wg sync.WaitGroup

	for i := range numItems {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, stderr, exitCode := c.Run("check", fmt.Sprintf("Todo/task_%d", i))
			if exitCode != 0 {
				t.Errorf("check task_%d failed: %s", i, stderr)
			}
		}()
	}

	wg.Wait()

	for i := range numItems {
		content := c.ReadItem("Todo", fmt.Sprintf("task_%d", i))
		cli.AssertContains(t, content, "completed: true")
	}
}

type addResult struct {
	stderr string
	code   int
}

func addItemsConcurrently(t *testing.T, c *cli.CLI, count int) ([]string, []addResult) {
	t.Helper()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		paths    = make([]string, 0, count)
		failures = make([]addResult, 0)
	)

	wg.Add(count)

	for range count {
		go func() {
			defer wg.Done()

			stdout, stderr, exitCode := c.Run("add", "Todo", "Concurrent item")

			mu.Lock()
			defer mu.Unlock()

			if exitCode == 0 {
				paths = append(paths, strings.TrimSpace(stdout))
			} else {
				failures = append(failures, addResult{stderr, exitCode})
			}
		}()
	}

	wg.Wait()

	return paths, failures
}

func verifyUniquePaths(t *testing.T, paths []string) {
	t.Helper()

	seen := make(map[string]bool)
	for _, path := range paths {
		if seen[path] {
			t.Errorf("duplicate path: %s", path)
		}

		seen[path] = true
	}
}

func verifyFilesOnDisk(t *testing.T, c *cli.CLI, paths []string) {
	t.Helper()

	for _, path := range paths {
		if _, err := os.Stat(filepath.Join(c.Dir, path)); err != nil {
			t.Errorf("item file missing after concurrent adds: %v", err)
		}
	}
}

func verifyListedCount(t *testing.T, c *cli.CLI, title string, want int) {
	t.Helper()

	stdout := c.MustRun("ls", "Todo")

	got := 0

	for _, line := range strings.Split(stdout, "\n") {
		if strings.Contains(line, title) {
			got++
		}
	}

	if got != want {
		t.Errorf("listed %d items titled %q, want %d\noutput:\n%s", got, title, want, stdout)
	}
}
