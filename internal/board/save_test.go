package board_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kb/internal/board"
	"kb/internal/frontmatter"
	kbfs "kb/internal/fs"
)

func Test_Save_CreatesFile_For_NewItem(t *testing.T) {
	t.Parallel()

	root := newBoardDir(t, "Tasks", "Todo")
	f := openFolder(t, root)

	b, err := f.Load()
	require.NoError(t, err)

	it := board.NewItem("My Task!!")
	b.Column("Todo").Add(it)

	require.NoError(t, f.Save(b))

	assert.Equal(t, filepath.Join("Todo", "My Task.md"), it.File)

	content := readFile(t, filepath.Join(root, "Todo", "My Task.md"))
	assert.Equal(t, "---\nid: My Task\naliases: []\nparent_id: null\ntags: []\n---\n\n", content)

	// The lock directory the save created never becomes a column.
	b2, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"Todo"}, columnTitles(b2))
}

func Test_Save_WritesCompleted_Only_When_Checked(t *testing.T) {
	t.Parallel()

	root := newBoardDir(t, "Tasks", "Todo")
	f := openFolder(t, root)

	b, err := f.Load()
	require.NoError(t, err)

	checked := board.NewItem("Checked")
	checked.SetChecked(true)
	unchecked := board.NewItem("Unchecked")
	b.Column("Todo").Add(checked)
	b.Column("Todo").Add(unchecked)

	require.NoError(t, f.Save(b))

	assert.Equal(t,
		"---\nid: Checked\naliases: []\ncompleted: true\nparent_id: null\ntags: []\n---\n\n",
		readFile(t, filepath.Join(root, "Todo", "Checked.md")))
	assert.Equal(t,
		"---\nid: Unchecked\naliases: []\nparent_id: null\ntags: []\n---\n\n",
		readFile(t, filepath.Join(root, "Todo", "Unchecked.md")))
}

func Test_Save_AllocatesUniqueNames_When_TitlesCollide(t *testing.T) {
	t.Parallel()

	root := newBoardDir(t, "Tasks", "Todo")
	writeFile(t, filepath.Join(root, "Todo", "Task.md"), "---\n---\n")

	f := openFolder(t, root)

	b, err := f.Load()
	require.NoError(t, err)

	b.Column("Todo").Add(board.NewItem("Task"))
	b.Column("Todo").Add(board.NewItem("Task"))

	require.NoError(t, f.Save(b))

	assert.Equal(t, []string{"Task.md", "Task_1.md", "Task_2.md"},
		listMarkdown(t, filepath.Join(root, "Todo")))
}

func Test_Save_NamesFile_Untitled_When_TitleSanitizesToNothing(t *testing.T) {
	t.Parallel()

	root := newBoardDir(t, "Tasks", "Todo")
	f := openFolder(t, root)

	b, err := f.Load()
	require.NoError(t, err)

	b.Column("Todo").Add(board.NewItem("!!!"))

	require.NoError(t, f.Save(b))

	assert.Equal(t, []string{"untitled.md"}, listMarkdown(t, filepath.Join(root, "Todo")))
}

func Test_Save_RewritesInPlace_When_ItemStaysInColumn(t *testing.T) {
	t.Parallel()

	root := newBoardDir(t, "Tasks", "Todo")
	writeFile(t, filepath.Join(root, "Todo", "t.md"),
		"---\ntitle: My Title\npriority: 5\n---\n\nOld body text.\n")

	f := openFolder(t, root)

	b, err := f.Load()
	require.NoError(t, err)

	it := b.Column("Todo").Item("t")
	require.NotNil(t, it)
	it.SetChecked(true)

	require.NoError(t, f.Save(b))

	assert.Equal(t, []string{"t.md"}, listMarkdown(t, filepath.Join(root, "Todo")))

	content := readFile(t, filepath.Join(root, "Todo", "t.md"))
	assert.Equal(t,
		"---\nid: t\naliases: []\ncompleted: true\nparent_id: null\npriority: 5\ntags: []\ntitle: My Title\n---\n\n",
		content)
	assert.NotContains(t, content, "Old body text")
}

func Test_Save_MovesFile_When_ItemChangesColumn(t *testing.T) {
	t.Parallel()

	root := newBoardDir(t, "Tasks", "A", "B")
	writeFile(t, filepath.Join(root, "A", "t.md"), "---\ntitle: Move me\n---\n")

	f := openFolder(t, root)

	b, err := f.Load()
	require.NoError(t, err)

	it := b.Column("A").Item("t")
	require.NotNil(t, it)
	require.True(t, b.Move(it, "B"))

	require.NoError(t, f.Save(b))

	assert.Empty(t, listMarkdown(t, filepath.Join(root, "A")))
	assert.Equal(t, []string{"t.md"}, listMarkdown(t, filepath.Join(root, "B")))
	assert.Equal(t, filepath.Join("B", "t.md"), it.File)

	fm, _, err := frontmatter.Parse([]byte(readFile(t, filepath.Join(root, "B", "t.md"))))
	require.NoError(t, err)
	assert.Equal(t, "t", fm["id"])
	assert.Equal(t, "Move me", fm["title"])
}

func Test_Save_AllocatesFreshName_When_MoveCollides(t *testing.T) {
	t.Parallel()

	root := newBoardDir(t, "Tasks", "A", "B")
	writeFile(t, filepath.Join(root, "A", "t.md"), "---\nowner: moving\n---\n")
	writeFile(t, filepath.Join(root, "B", "t.md"), "---\nowner: staying\n---\n")

	f := openFolder(t, root)

	b, err := f.Load()
	require.NoError(t, err)

	moving := b.Column("A").Item("t")
	require.NotNil(t, moving)
	require.True(t, b.Move(moving, "B"))

	require.NoError(t, f.Save(b))

	assert.Empty(t, listMarkdown(t, filepath.Join(root, "A")))
	assert.Equal(t, []string{"t.md", "t_1.md"}, listMarkdown(t, filepath.Join(root, "B")))
	assert.Equal(t, filepath.Join("B", "t_1.md"), moving.File)

	stayed, _, err := frontmatter.Parse([]byte(readFile(t, filepath.Join(root, "B", "t.md"))))
	require.NoError(t, err)
	assert.Equal(t, "t", stayed["id"])
	assert.Equal(t, "staying", stayed["owner"])

	moved, _, err := frontmatter.Parse([]byte(readFile(t, filepath.Join(root, "B", "t_1.md"))))
	require.NoError(t, err)
	assert.Equal(t, "t_1", moved["id"])
	assert.Equal(t, "moving", moved["owner"])
}

func Test_Save_CreatesDirectory_For_NewColumn(t *testing.T) {
	t.Parallel()

	root := newBoardDir(t, "Tasks", "Todo")
	writeFile(t, filepath.Join(root, "Todo", "t.md"), "---\n---\n")

	f := openFolder(t, root)

	b, err := f.Load()
	require.NoError(t, err)

	b.AddColumn("Later")

	it := b.Column("Todo").Item("t")
	require.NotNil(t, it)
	require.True(t, b.Move(it, "Done"))

	require.NoError(t, f.Save(b))

	// The empty column's directory exists, so it survives a reload.
	info, err := os.Stat(filepath.Join(root, "Later"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.Equal(t, []string{"t.md"}, listMarkdown(t, filepath.Join(root, "Done")))

	b2, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"Done", "Later", "Todo"}, columnTitles(b2))
}

func Test_Save_SkipsColumn_When_TitleIsNotADirectoryName(t *testing.T) {
	t.Parallel()

	root := newBoardDir(t, "Tasks", "Todo")
	confined := kbfs.NewConfined(t, kbfs.NewReal(), root)

	f := openFolder(t, root, board.WithFS(confined))

	b, err := f.Load()
	require.NoError(t, err)

	good := board.NewItem("Fine")
	b.Column("Todo").Add(good)

	stray := board.NewItem("Stray")
	b.AddColumn("../escape").Add(stray)

	require.NoError(t, f.Save(b))

	assert.Equal(t, filepath.Join("Todo", "Fine.md"), good.File)
	assert.Empty(t, stray.File)

	_, err = os.Stat(filepath.Join(filepath.Dir(root), "escape"))
	assert.True(t, os.IsNotExist(err))
}

func Test_Save_RemovesOrphanedFiles_When_ItemsDropped(t *testing.T) {
	t.Parallel()

	root := newBoardDir(t, "Tasks", "Todo")
	writeFile(t, filepath.Join(root, "Todo", "keep.md"), "---\n---\n")
	writeFile(t, filepath.Join(root, "Todo", "drop.md"), "---\n---\n")

	f := openFolder(t, root)

	b, err := f.Load()
	require.NoError(t, err)

	drop := b.Column("Todo").Item("drop")
	require.NotNil(t, drop)
	require.True(t, b.Column("Todo").Remove(drop))

	require.NoError(t, f.Save(b))

	assert.Equal(t, []string{"keep.md"}, listMarkdown(t, filepath.Join(root, "Todo")))
}

func Test_Save_KeepsFile_When_MoveFails(t *testing.T) {
	t.Parallel()

	root := newBoardDir(t, "Tasks", "A", "B")
	writeFile(t, filepath.Join(root, "A", "t.md"), "---\ntitle: Survivor\n---\n")

	injected := errors.New("injected rename failure")
	flaky := kbfs.NewFlaky(kbfs.NewReal())
	flaky.FailOn(kbfs.OpRename, filepath.Join("A", "t.md"), injected)

	f := openFolder(t, root, board.WithFS(flaky))

	b, err := f.Load()
	require.NoError(t, err)

	it := b.Column("A").Item("t")
	require.NotNil(t, it)
	require.True(t, b.Move(it, "B"))

	require.NoError(t, f.Save(b))

	// The move failed, the back-reference still points at the old
	// path, and cleanup left the file alone.
	assert.Equal(t, filepath.Join("A", "t.md"), it.File)
	assert.Equal(t, []string{"t.md"}, listMarkdown(t, filepath.Join(root, "A")))
	assert.Empty(t, listMarkdown(t, filepath.Join(root, "B")))

	// A reload shows the durable state: the item never left.
	b2, err := openFolder(t, root).Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"Survivor"}, itemTitles(b2.Column("A")))
	assert.Empty(t, b2.Column("B").Items)
}

func Test_Save_ContinuesBatch_When_SingleItemFails(t *testing.T) {
	t.Parallel()

	root := newBoardDir(t, "Tasks", "Todo")

	injected := errors.New("injected write failure")
	flaky := kbfs.NewFlaky(kbfs.NewReal())
	flaky.FailOn(kbfs.OpWriteFile, "Beta.md", injected)

	f := openFolder(t, root, board.WithFS(flaky))

	b, err := f.Load()
	require.NoError(t, err)

	alpha := board.NewItem("Alpha")
	beta := board.NewItem("Beta")
	gamma := board.NewItem("Gamma")
	b.Column("Todo").Add(alpha)
	b.Column("Todo").Add(beta)
	b.Column("Todo").Add(gamma)

	require.NoError(t, f.Save(b))

	assert.Equal(t, []string{"Alpha.md", "Gamma.md"}, listMarkdown(t, filepath.Join(root, "Todo")))
	assert.NotEmpty(t, alpha.File)
	assert.Empty(t, beta.File)

	// The failed item has no back-reference, so the next save over a
	// healthy filesystem retries the create.
	require.NoError(t, openFolder(t, root).Save(b))
	assert.Equal(t, []string{"Alpha.md", "Beta.md", "Gamma.md"},
		listMarkdown(t, filepath.Join(root, "Todo")))
}

func Test_Save_IsIdempotent_For_UnchangedBoard(t *testing.T) {
	t.Parallel()

	root := newBoardDir(t, "Tasks", "Todo", "Done")
	writeFile(t, filepath.Join(root, "Todo", "Keep.md"),
		"---\ntitle: Keep me\npriority: 3\ntags:\n  - x\n  - y\nparent_id: epic-9\n---\n\n# Keep me\n")
	writeFile(t, filepath.Join(root, "Done", "Shipped.md"),
		"---\nstatus: completed\n---\n")

	f := openFolder(t, root)

	b, err := f.Load()
	require.NoError(t, err)
	require.NoError(t, f.Save(b))

	// Paths unchanged, field values preserved, id rewritten.
	assert.Equal(t, []string{"Keep.md"}, listMarkdown(t, filepath.Join(root, "Todo")))
	assert.Equal(t, []string{"Shipped.md"}, listMarkdown(t, filepath.Join(root, "Done")))

	keep, _, err := frontmatter.Parse([]byte(readFile(t, filepath.Join(root, "Todo", "Keep.md"))))
	require.NoError(t, err)
	assert.Equal(t, "Keep", keep["id"])
	assert.Equal(t, "Keep me", keep["title"])
	assert.Equal(t, 3, keep["priority"])
	assert.Equal(t, []any{"x", "y"}, keep["tags"])
	assert.Equal(t, "epic-9", keep["parent_id"])

	shipped, _, err := frontmatter.Parse([]byte(readFile(t, filepath.Join(root, "Done", "Shipped.md"))))
	require.NoError(t, err)
	assert.Equal(t, "completed", shipped["status"])
	assert.Equal(t, true, shipped["completed"])

	firstKeep := readFile(t, filepath.Join(root, "Todo", "Keep.md"))
	firstShipped := readFile(t, filepath.Join(root, "Done", "Shipped.md"))

	// A second load/save cycle is a fixpoint.
	b2, err := f.Load()
	require.NoError(t, err)
	require.NoError(t, f.Save(b2))

	assert.Equal(t, firstKeep, readFile(t, filepath.Join(root, "Todo", "Keep.md")))
	assert.Equal(t, firstShipped, readFile(t, filepath.Join(root, "Done", "Shipped.md")))
}

func Test_Save_Errors_When_RootGone(t *testing.T) {
	t.Parallel()

	root := newBoardDir(t, "Tasks", "Todo")
	writeFile(t, filepath.Join(root, "Todo", "t.md"), "---\n---\n")

	f := openFolder(t, root)

	b, err := f.Load()
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(root))

	require.ErrorIs(t, f.Save(b), board.ErrRootNotFound)

	// The save never recreated the root.
	_, statErr := os.Stat(root)
	assert.True(t, os.IsNotExist(statErr))
}

func Test_Save_Errors_When_AnotherProcessHoldsTheLock(t *testing.T) {
	t.Parallel()

	root := newBoardDir(t, "Tasks", "Todo")
	writeFile(t, filepath.Join(root, "Todo", "t.md"), "---\n---\n")

	locker := kbfs.NewLocker(kbfs.NewReal())

	held, err := locker.LockWithTimeout(filepath.Join(root, ".locks", "board.lock"), time.Second)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, held.Close())
	}()

	f := openFolder(t, root, board.WithLockTimeout(50*time.Millisecond))

	b, err := f.Load()
	require.NoError(t, err)

	require.ErrorIs(t, f.Save(b), board.ErrLocked)
}
