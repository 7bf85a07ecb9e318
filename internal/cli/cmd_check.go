package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"kb/internal/board"
)

func newCheckCmd(app *App) *Command {
	return newMarkCmd(app, true)
}

func newUncheckCmd(app *App) *Command {
	return newMarkCmd(app, false)
}

// newMarkCmd builds check and uncheck, which differ only in the state
// they write.
func newMarkCmd(app *App, checked bool) *Command {
	name, short := "check", "Mark an item done"
	if !checked {
		name, short = "uncheck", "Mark an item not done"
	}

	flags := flag.NewFlagSet(name, flag.ContinueOnError)

	return &Command{
		Flags: flags,
		Usage: name + " <column>/<name>",
		Short: short,
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) < 1 {
				return errItemRefRequired
			}

			return app.updateBoard(o, func(b *board.Board) error {
				_, it, err := findItem(b, args[0])
				if err != nil {
					return err
				}

				it.SetChecked(checked)

				return nil
			})
		},
	}
}
