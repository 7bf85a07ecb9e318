package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"kb/internal/board"
)

const (
	minArgs      = 2
	consumedOne  = 1
	consumedTwo  = 2
	consumedNone = 0
	helpFlag     = "--help"
)

// Run is the main entry point. Returns exit code.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sig <-chan os.Signal) int {
	if len(args) < minArgs {
		printUsage(out)

		return 0
	}

	// Parse global flags
	flags, err := parseGlobalFlags(args[1:])
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	// Load and validate config
	cfg, err := board.LoadConfig(board.LoadConfigInput{
		WorkDirOverride:  flags.workDir,
		ConfigPath:       flags.configPath,
		BoardDirOverride: flags.boardDir,
		Env:              env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)
		printUsage(errOut)

		return 1
	}

	if len(flags.remaining) == 0 {
		printUsage(out)

		return 0
	}

	name := flags.remaining[0]

	// Handle help flags
	if name == "-h" || name == helpFlag {
		printUsage(out)

		return 0
	}

	log := logrus.New()
	log.SetOutput(errOut)
	log.SetLevel(logrus.WarnLevel)

	if flags.verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	app := &App{cfg: cfg, log: log, in: in, env: env}

	// Cancel command context on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sig != nil {
		go func() {
			select {
			case <-sig:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	// Create IO for command
	ioCtx := NewIO(out, errOut)

	cmd := findCommand(app, name)
	if cmd == nil {
		fprintln(errOut, "error: unknown command:", name)
		printUsage(errOut)

		return 1
	}

	if code := cmd.Run(ctx, ioCtx, flags.remaining[1:]); code != 0 {
		return code
	}

	// Finish handles warnings and exit code
	return ioCtx.Finish()
}

// commands builds the full command set wired to one app.
func commands(app *App) []*Command {
	return []*Command{
		newShowCmd(app),
		newLsCmd(app),
		newAddCmd(app),
		newCheckCmd(app),
		newUncheckCmd(app),
		newMvCmd(app),
		newRmCmd(app),
		newWatchCmd(app),
		newShellCmd(app),
		newPrintConfigCmd(app),
	}
}

func findCommand(app *App, name string) *Command {
	for _, cmd := range commands(app) {
		if cmd.Name() == name {
			return cmd
		}
	}

	return nil
}

type globalFlags struct {
	workDir    string
	configPath string
	boardDir   string
	verbose    bool
	remaining  []string
}

func parseGlobalFlags(args []string) (globalFlags, error) {
	var flags globalFlags

	idx := 0
	for idx < len(args) {
		consumed, err := parseFlag(args, idx, &flags)
		if err != nil {
			return globalFlags{}, err
		}

		if consumed == 0 {
			// Not a flag, this is the command
			flags.remaining = args[idx:]

			break
		}

		idx += consumed
	}

	return flags, nil
}

// parseFlag tries to parse a flag at args[idx]. Returns number of args consumed (0 if not a flag).
func parseFlag(args []string, idx int, flags *globalFlags) (int, error) {
	arg := args[idx]

	// -C/--cwd flag (work directory)
	if (arg == "-C" || arg == "--cwd") && idx+1 < len(args) {
		flags.workDir = args[idx+1]

		return consumedTwo, nil
	}

	if after, ok := strings.CutPrefix(arg, "-C"); ok {
		flags.workDir = after

		return consumedOne, nil
	}

	if after, ok := strings.CutPrefix(arg, "--cwd="); ok {
		flags.workDir = after

		return consumedOne, nil
	}

	// -c/--config flag
	if arg == "-c" || arg == "--config" {
		if idx+1 >= len(args) {
			return consumedNone, fmt.Errorf("%w: %s", board.ErrFlagRequiresArg, arg)
		}

		flags.configPath = args[idx+1]

		return consumedTwo, nil
	}

	if after, ok := strings.CutPrefix(arg, "--config="); ok {
		flags.configPath = after

		return consumedOne, nil
	}

	// --board-dir flag
	if arg == "--board-dir" {
		if idx+1 >= len(args) {
			return consumedNone, fmt.Errorf("%w: %s", board.ErrFlagRequiresArg, arg)
		}

		flags.boardDir = args[idx+1]

		return consumedTwo, nil
	}

	if after, ok := strings.CutPrefix(arg, "--board-dir="); ok {
		flags.boardDir = after

		return consumedOne, nil
	}

	// -v/--verbose flag
	if arg == "-v" || arg == "--verbose" {
		flags.verbose = true

		return consumedOne, nil
	}

	// -h/--help flags
	if arg == "-h" || arg == helpFlag {
		flags.remaining = []string{helpFlag}

		return len(args) - idx, nil
	}

	// Unknown flag
	if strings.HasPrefix(arg, "-") && arg != "-" {
		return consumedNone, fmt.Errorf("%w: %s", board.ErrUnknownFlag, arg)
	}

	// Not a flag
	return consumedNone, nil
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

// printUsage prints the global help. The command list comes from the
// registry so the two never drift apart.
func printUsage(writer io.Writer) {
	fprintln(writer, `kb - folder kanban board

Usage: kb [options] <command> [args]

Options:
  -C, --cwd <dir>      Run as if started in <dir>
  -c, --config <file>  Use specified config file
  --board-dir <dir>    Board root directory
  -v, --verbose        Enable debug logging

Commands:`)

	for _, cmd := range commands(&App{}) {
		fprintln(writer, cmd.HelpLine())
	}
}
