package cli

import (
	"context"
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"

	"kb/internal/board"
)

var errFilterConflict = errors.New("--checked and --unchecked are mutually exclusive")

func newLsCmd(app *App) *Command {
	flags := flag.NewFlagSet("ls", flag.ContinueOnError)
	checked := flags.Bool("checked", false, "Only checked items")
	unchecked := flags.Bool("unchecked", false, "Only unchecked items")

	return &Command{
		Flags: flags,
		Usage: "ls [column] [flags]",
		Short: "List items, one per line",
		Long:  "List items as '[marker] column/name  title' lines, in board order. An optional column argument restricts the listing to that column.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if *checked && *unchecked {
				return errFilterConflict
			}

			_, b, err := app.loadBoard(o)
			if err != nil {
				return err
			}

			cols := b.Columns

			if len(args) > 0 {
				col := b.Column(args[0])
				if col == nil {
					return fmt.Errorf("%w: %s", errColumnNotFound, args[0])
				}

				cols = []*board.Column{col}
			}

			for _, col := range cols {
				for _, it := range col.Items {
					if *checked && !it.Checked {
						continue
					}

					if *unchecked && it.Checked {
						continue
					}

					o.Println(itemLine(col, it))
				}
			}

			return nil
		},
	}
}
