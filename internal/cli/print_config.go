package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"kb/internal/board"
)

func newPrintConfigCmd(app *App) *Command {
	flags := flag.NewFlagSet("print-config", flag.ContinueOnError)

	return &Command{
		Flags: flags,
		Usage: "print-config",
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration and which files it was loaded from.",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			return execPrintConfig(o, app.cfg)
		},
	}
}

func execPrintConfig(o *IO, cfg board.Config) error {
	o.Println("effective_cwd=" + cfg.EffectiveCwd)
	o.Println("board_dir=" + cfg.BoardDirAbs)

	if cfg.Descriptor != "" {
		o.Println("descriptor=" + cfg.Descriptor)
	}

	o.Printf("watch_debounce_ms=%d\n", cfg.WatchDebounceMS)

	o.Println("")
	o.Println("# sources")

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" {
		o.Println("(defaults only)")
	} else {
		if cfg.Sources.Global != "" {
			o.Println("global_config=" + cfg.Sources.Global)
		}

		if cfg.Sources.Project != "" {
			o.Println("project_config=" + cfg.Sources.Project)
		}
	}

	return nil
}
