package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	"kb/internal/board"
)

var errItemNotSaved = errors.New("item could not be saved")

func newAddCmd(app *App) *Command {
	flags := flag.NewFlagSet("add", flag.ContinueOnError)
	checked := flags.Bool("checked", false, "Create the item already checked")

	return &Command{
		Flags: flags,
		Usage: "add <column> <title>",
		Short: "Add an item to a column",
		Long: "Add an item to a column and save the board. The column directory is " +
			"created if it does not exist yet. Extra arguments are joined into the " +
			"title. Prints the created file's path relative to the board root.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) < 1 {
				return errColumnRequired
			}

			if len(args) < 2 {
				return errTitleRequired
			}

			column := args[0]
			if !board.ValidColumnName(column) {
				return fmt.Errorf("%w: %q", errColumnInvalid, column)
			}

			title := strings.TrimSpace(strings.Join(args[1:], " "))
			if title == "" {
				return errTitleRequired
			}

			it := board.NewItem(title)
			it.Meta["title"] = title
			it.SetChecked(*checked)

			err := app.updateBoard(o, func(b *board.Board) error {
				b.AddColumn(column).Add(it)

				return nil
			})
			if err != nil {
				return err
			}

			// Save reports per-item failures as log warnings only, so
			// check the back-reference to catch a failed create here.
			if it.File == "" {
				return errItemNotSaved
			}

			o.Println(it.File)

			return nil
		},
	}
}
