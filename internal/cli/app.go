package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"kb/internal/board"
)

// Command-level errors.
var (
	errItemRefInvalid  = errors.New("item reference must be <column>/<name>")
	errItemRefRequired = errors.New("item reference is required")
	errColumnInvalid   = errors.New("column name must not contain path separators or start with a dot")
	errColumnNotFound  = errors.New("column not found")
	errItemNotFound    = errors.New("item not found")
	errColumnRequired  = errors.New("column is required")
	errTitleRequired   = errors.New("title is required")
	errTargetRequired  = errors.New("target column is required")
)

// App carries the per-invocation dependencies commands need.
type App struct {
	cfg board.Config
	log *logrus.Logger
	in  io.Reader
	env map[string]string
}

// openFolder opens the configured board root.
func (a *App) openFolder() (*board.Folder, error) {
	opts := []board.Option{board.WithLogger(a.log)}

	if a.cfg.Descriptor != "" {
		opts = append(opts, board.WithDescriptor(a.cfg.Descriptor))
	}

	return board.Open(a.cfg.BoardDirAbs, opts...)
}

// loadBoard opens and hydrates the board. Files that could not be
// hydrated surface as warnings, not failures.
func (a *App) loadBoard(o *IO) (*board.Folder, *board.Board, error) {
	folder, err := a.openFolder()
	if err != nil {
		return nil, nil, err
	}

	b, err := folder.Load()
	if err != nil {
		return nil, nil, err
	}

	warnFileErrors(o, b)

	return folder, b, nil
}

// updateBoard runs fn in one locked load-modify-save cycle. Load
// warnings print even when fn fails.
func (a *App) updateBoard(o *IO, fn func(b *board.Board) error) error {
	folder, err := a.openFolder()
	if err != nil {
		return err
	}

	b, err := folder.Update(fn)
	if b != nil {
		warnFileErrors(o, b)
	}

	return err
}

func warnFileErrors(o *IO, b *board.Board) {
	for _, fe := range b.Errors {
		o.Warn("skipped "+fe.Path+" ("+fe.Err.Error()+")", "fix or remove the file and rerun")
	}
}

// splitRef splits an item reference of the form <column>/<name>.
func splitRef(ref string) (column, name string, err error) {
	column, name, ok := strings.Cut(ref, "/")
	if !ok || column == "" || name == "" {
		return "", "", fmt.Errorf("%w: %q", errItemRefInvalid, ref)
	}

	return column, name, nil
}

// findItem resolves an item reference against a loaded board. The name
// part matches the item's file name first, then its title.
func findItem(b *board.Board, ref string) (*board.Column, *board.Item, error) {
	column, name, err := splitRef(ref)
	if err != nil {
		return nil, nil, err
	}

	col := b.Column(column)
	if col == nil {
		return nil, nil, fmt.Errorf("%w: %s", errColumnNotFound, column)
	}

	it := col.Item(name)
	if it == nil {
		return nil, nil, fmt.Errorf("%w: %s", errItemNotFound, ref)
	}

	return col, it, nil
}

// renderBoard prints the whole board: title line, then each column
// with its items.
func renderBoard(o *IO, b *board.Board) {
	o.Printf("%s (%d items)\n", b.Title, b.ItemCount)

	for _, col := range b.Columns {
		o.Println()
		o.Printf("%s (%d)\n", col.Title, len(col.Items))

		for _, it := range col.Items {
			o.Printf("  [%c] %s\n", it.Marker, it.Title)
		}
	}
}

// itemLine formats one list line: marker, path, title.
func itemLine(col *board.Column, it *board.Item) string {
	return fmt.Sprintf("[%c] %s/%s  %s", it.Marker, col.Title, it.FileName(), it.Title)
}
