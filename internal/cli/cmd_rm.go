package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"kb/internal/board"
)

func newRmCmd(app *App) *Command {
	flags := flag.NewFlagSet("rm", flag.ContinueOnError)

	return &Command{
		Flags: flags,
		Usage: "rm <column>/<name>",
		Short: "Remove an item and its file",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) < 1 {
				return errItemRefRequired
			}

			return app.updateBoard(o, func(b *board.Board) error {
				col, it, err := findItem(b, args[0])
				if err != nil {
					return err
				}

				col.Remove(it)

				return nil
			})
		},
	}
}
