package cli

import (
	"context"

	flag "github.com/spf13/pflag"
)

func newShowCmd(app *App) *Command {
	flags := flag.NewFlagSet("show", flag.ContinueOnError)

	return &Command{
		Flags: flags,
		Usage: "show",
		Short: "Print the board",
		Long:  "Print the full board: every column in order with its items, checked items marked with [x].",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			_, b, err := app.loadBoard(o)
			if err != nil {
				return err
			}

			renderBoard(o, b)

			return nil
		},
	}
}
