package cli_test

import (
	"os"
	"path/filepath"
	"testing"

	"kb/internal/cli"
)

func Test_PrintConfig_Defaults(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("print-config")

	cli.AssertContains(t, stdout, "effective_cwd="+c.Dir)
	cli.AssertContains(t, stdout, "board_dir="+c.Dir)
	cli.AssertContains(t, stdout, "watch_debounce_ms=250")
	cli.AssertContains(t, stdout, "(defaults only)")
	cli.AssertNotContains(t, stdout, "descriptor=")
}

func Test_PrintConfig_Shows_Project_Source(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	cfgPath := filepath.Join(c.Dir, ".kb.json")
	cfg := []byte(`{"board_dir": "board", "descriptor": "index.md", "watch_debounce_ms": 100}`)

	if err := os.WriteFile(cfgPath, cfg, 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	stdout := c.MustRun("print-config")

	cli.AssertContains(t, stdout, "board_dir="+filepath.Join(c.Dir, "board"))
	cli.AssertContains(t, stdout, "descriptor=index.md")
	cli.AssertContains(t, stdout, "watch_debounce_ms=100")
	cli.AssertContains(t, stdout, "project_config="+cfgPath)
	cli.AssertNotContains(t, stdout, "(defaults only)")
}

func Test_PrintConfig_Shows_Global_Source(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	xdg := filepath.Join(c.Dir, "xdg")
	globalPath := filepath.Join(xdg, "kb", "config.json")

	if err := os.MkdirAll(filepath.Dir(globalPath), 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	if err := os.WriteFile(globalPath, []byte(`{"watch_debounce_ms": 500}`), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	c.Env["XDG_CONFIG_HOME"] = xdg

	stdout := c.MustRun("print-config")

	cli.AssertContains(t, stdout, "watch_debounce_ms=500")
	cli.AssertContains(t, stdout, "global_config="+globalPath)
}
