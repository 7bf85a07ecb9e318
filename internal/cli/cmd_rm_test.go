package cli_test

import (
	"os"
	"testing"

	"kb/internal/cli"
)

func Test_Rm_Deletes_Item_File(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteItem("Todo", "task", "# My Task\n")
	c.WriteItem("Todo", "keep", "# Keep Me\n")

	stdout := c.MustRun("rm", "Todo/task")

	if got, want := stdout, ""; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	if _, err := os.Stat(c.ItemPath("Todo", "task")); !os.IsNotExist(err) {
		t.Errorf("file still present, stat err=%v", err)
	}

	if _, err := os.Stat(c.ItemPath("Todo", "keep")); err != nil {
		t.Errorf("unrelated file removed: %v", err)
	}
}

func Test_Rm_Fails_When_Item_Missing(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteItem("Todo", "task", "# My Task\n")

	stderr := c.MustFail("rm", "Todo/nope")

	cli.AssertContains(t, stderr, "item not found: Todo/nope")
}
