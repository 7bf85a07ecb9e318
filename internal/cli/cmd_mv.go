package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"kb/internal/board"
)

func newMvCmd(app *App) *Command {
	flags := flag.NewFlagSet("mv", flag.ContinueOnError)

	return &Command{
		Flags: flags,
		Usage: "mv <column>/<name> <column>",
		Short: "Move an item to another column",
		Long: "Move an item to the target column and save the board. The file keeps " +
			"its name unless the target column already has one by that name. Prints " +
			"the item's path after the move.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) < 1 {
				return errItemRefRequired
			}

			if len(args) < 2 {
				return errTargetRequired
			}

			if !board.ValidColumnName(args[1]) {
				return fmt.Errorf("%w: %q", errColumnInvalid, args[1])
			}

			var moved *board.Item

			err := app.updateBoard(o, func(b *board.Board) error {
				_, it, err := findItem(b, args[0])
				if err != nil {
					return err
				}

				b.Move(it, args[1])
				moved = it

				return nil
			})
			if err != nil {
				return err
			}

			o.Println(moved.File)

			return nil
		},
	}
}
