package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	flag "github.com/spf13/pflag"

	"kb/internal/board"
	"kb/internal/state"
)

func newWatchCmd(app *App) *Command {
	flags := flag.NewFlagSet("watch", flag.ContinueOnError)
	full := flags.Bool("full", false, "Reprint the whole board on every change")

	return &Command{
		Flags: flags,
		Usage: "watch [flags]",
		Short: "Watch the folder, reprint on changes",
		Long: "Watch the board directory and rebuild the board whenever files " +
			"change, coalescing bursts of events into one rebuild. Prints a " +
			"summary line per rebuild, or the whole board with --full. Runs " +
			"until interrupted.",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			return runWatch(ctx, app, o, *full)
		},
	}
}

func runWatch(ctx context.Context, app *App, o *IO, full bool) error {
	folder, err := app.openFolder()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(folder.Root()); err != nil {
		return fmt.Errorf("watch %s: %w", folder.Root(), err)
	}

	store := state.NewStore(folder)

	snaps, unsubscribe := store.Subscribe()
	defer unsubscribe()

	// The timer starts stopped; events arm it, expiry reloads.
	debounce := time.NewTimer(time.Hour)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	store.Reload()

	published := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if hiddenPath(event.Name) {
				continue
			}

			debounce.Reset(app.cfg.WatchDebounce())

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			app.log.WithError(err).Warn("watcher error")

		case <-debounce.C:
			store.Reload()

		case snap := <-snaps:
			switch snap.Phase {
			case state.PhaseReady:
				published = true

				watchColumns(app, watcher, snap.Board)
				printSnapshot(o, snap.Board, full)
			case state.PhaseFailed:
				published = true

				app.log.WithError(snap.Err).Error("board rebuild failed")
			case state.PhaseLoading:
				// The provisional board shows only until the first
				// hydration lands.
				if !published {
					printSnapshot(o, snap.Board, full)
				}
			}
		}
	}
}

// watchColumns keeps every current column directory on the watch list.
// Adding a path twice is harmless and removed directories drop out on
// their own.
func watchColumns(app *App, watcher *fsnotify.Watcher, b *board.Board) {
	for _, col := range b.Columns {
		dir := filepath.Join(app.cfg.BoardDirAbs, col.Title)

		if err := watcher.Add(dir); err != nil {
			app.log.WithField("column", col.Title).WithError(err).Warn("column not watched")
		}
	}
}

func printSnapshot(o *IO, b *board.Board, full bool) {
	if full {
		renderBoard(o, b)
		o.Println()

		return
	}

	open := 0

	for _, col := range b.Columns {
		for _, it := range col.Items {
			if !it.Checked {
				open++
			}
		}
	}

	o.Printf("%s: %d columns, %d items (%d open)\n", b.Title, len(b.Columns), b.ItemCount, open)
}

// hiddenPath reports whether any segment of path is hidden. Lock and
// editor swap files live under dot-directories and must not trigger
// rebuilds.
func hiddenPath(path string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg != "." && seg != ".." && strings.HasPrefix(seg, ".") {
			return true
		}
	}

	return false
}
