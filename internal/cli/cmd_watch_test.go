package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"kb/internal/cli"
)

// syncBuf is a goroutine-safe buffer for output written by the watch
// loop while the test reads it.
type syncBuf struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuf) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuf) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

// startWatch runs "kb watch" in the background and returns its output
// buffers, the interrupt channel and the exit code channel.
func startWatch(t *testing.T, c *cli.CLI, extraArgs ...string) (*syncBuf, *syncBuf, chan os.Signal, chan int) {
	t.Helper()

	cfg := []byte(`{"watch_debounce_ms": 25}`)
	if err := os.WriteFile(filepath.Join(c.Dir, ".kb.json"), cfg, 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	out, errOut := &syncBuf{}, &syncBuf{}
	sig := make(chan os.Signal, 1)
	done := make(chan int, 1)

	args := append([]string{"kb", "--cwd", c.Dir, "watch"}, extraArgs...)

	go func() {
		done <- cli.Run(nil, out, errOut, args, c.Env, sig)
	}()

	return out, errOut, sig, done
}

func stopWatch(t *testing.T, sig chan os.Signal, done chan int) {
	t.Helper()

	sig <- os.Interrupt

	select {
	case code := <-done:
		if got, want := code, 0; got != want {
			t.Errorf("exitCode=%d, want=%d", got, want)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not exit after interrupt")
	}
}

func Test_Watch_Rebuilds_On_File_Changes(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.InitColumns("Todo")

	out, _, sig, done := startWatch(t, c)

	// Initial build happens without any file event. The provisional
	// line shows zero columns; the hydrated one shows Todo.
	eventually(t, 3*time.Second, func() bool {
		return strings.Contains(out.String(), "1 columns, 0 items (0 open)")
	}, "initial summary line")

	c.WriteItem("Todo", "task", "# New Task\n")

	eventually(t, 3*time.Second, func() bool {
		return strings.Contains(out.String(), "1 items (1 open)")
	}, "summary after adding a file")

	stopWatch(t, sig, done)
}

func Test_Watch_Full_Renders_Board(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteItem("Todo", "task", "# First Task\n")

	out, _, sig, done := startWatch(t, c, "--full")

	eventually(t, 3*time.Second, func() bool {
		s := out.String()

		return strings.Contains(s, "Todo (1)") && strings.Contains(s, "[ ] First Task")
	}, "full board render")

	stopWatch(t, sig, done)
}

func Test_HiddenPath_Detection(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		path string
		want bool
	}{
		{path: "Todo/task.md", want: false},
		{path: ".locks/board.lock", want: true},
		{path: "/abs/board/.git/index", want: true},
		{path: "Todo/.draft.md", want: true},
		{path: ".", want: false},
		{path: "./Todo/task.md", want: false},
	} {
		if got := cli.HiddenPath(tt.path); got != tt.want {
			t.Errorf("HiddenPath(%q)=%v, want=%v", tt.path, got, tt.want)
		}
	}
}
