package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"kb/internal/board"
)

const shellPrompt = "kb> "

func newShellCmd(app *App) *Command {
	flags := flag.NewFlagSet("shell", flag.ContinueOnError)

	return &Command{
		Flags: flags,
		Usage: "shell",
		Short: "Interactive prompt",
		Long: "Edit one in-memory board from an interactive prompt with history " +
			"and completion. Changes stay in memory until 'save'; 'reload' " +
			"discards them. Type 'help' for commands, 'quit' to leave.",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			return runShell(ctx, app, o)
		},
	}
}

// session is one interactive shell over a loaded board. Mutations act
// on the in-memory board only; save writes them back in one batch.
type session struct {
	app    *App
	folder *board.Folder
	board  *board.Board
	dirty  bool
}

func newSession(app *App, o *IO) (*session, error) {
	folder, b, err := app.loadBoard(o)
	if err != nil {
		return nil, err
	}

	return &session{app: app, folder: folder, board: b}, nil
}

func runShell(ctx context.Context, app *App, o *IO) error {
	s, err := newSession(app, o)
	if err != nil {
		return err
	}

	if f, ok := app.in.(*os.File); ok && f == os.Stdin && liner.TerminalSupported() {
		return s.runLiner(ctx, o)
	}

	return s.runPiped(ctx, o)
}

// runLiner is the interactive path: line editing, history and tab
// completion, and a confirm prompt before discarding unsaved changes.
func (s *session) runLiner(ctx context.Context, o *IO) error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(s.complete)

	loadHistory(s.app, line)

	o.Println("kb - folder kanban board. Type 'help' for commands, 'quit' to leave.")

	for {
		if ctx.Err() != nil {
			saveHistory(s.app, line)

			return nil
		}

		input, err := line.Prompt(shellPrompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				if !s.confirmDiscard(line) {
					continue
				}

				saveHistory(s.app, line)

				return nil
			}

			return fmt.Errorf("read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		line.AppendHistory(input)

		if done := s.dispatch(o, input); done {
			if !s.confirmDiscard(line) {
				continue
			}

			saveHistory(s.app, line)

			return nil
		}
	}
}

// runPiped reads plain lines when stdin is not a terminal. Unsaved
// changes are discarded at end of input with a notice.
func (s *session) runPiped(ctx context.Context, o *IO) error {
	in := s.app.in
	if in == nil {
		in = strings.NewReader("")
	}

	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if done := s.dispatch(o, input); done {
			break
		}
	}

	if s.dirty {
		o.ErrPrintln("unsaved changes discarded")
	}

	return scanner.Err()
}

// confirmDiscard asks before leaving with unsaved changes. Returns true
// when quitting may proceed.
func (s *session) confirmDiscard(line *liner.State) bool {
	if !s.dirty {
		return true
	}

	answer, err := line.Prompt("discard unsaved changes? [y/N] ")
	if err != nil {
		return true
	}

	return strings.EqualFold(strings.TrimSpace(answer), "y")
}

// dispatch runs one shell line against the session. Reports whether the
// shell should exit. Command failures print an error and keep the
// session alive.
func (s *session) dispatch(o *IO, input string) bool {
	args := splitShellLine(input)
	if len(args) == 0 {
		return false
	}

	name, rest := args[0], args[1:]

	var err error

	switch name {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		printShellHelp(o)
	case "board", "show":
		renderBoard(o, s.board)
	case "ls":
		err = s.list(o, rest)
	case "add":
		err = s.add(o, rest)
	case "check":
		err = s.mark(rest, true)
	case "uncheck":
		err = s.mark(rest, false)
	case "mv":
		err = s.move(rest)
	case "rm":
		err = s.remove(rest)
	case "save":
		err = s.save(o)
	case "reload":
		err = s.reload(o)
	default:
		o.ErrPrintln("unknown command:", name, "(type 'help' for commands)")
	}

	if err != nil {
		o.ErrPrintln("error:", err)
	}

	return false
}

// splitShellLine splits one input line into arguments. Double and
// single quotes group words, a quoted empty string survives as an
// empty argument, and an unterminated quote runs to end of line.
func splitShellLine(input string) []string {
	var (
		args   []string
		cur    strings.Builder
		quote  rune
		quoted bool
	)

	flush := func() {
		if cur.Len() > 0 || quoted {
			args = append(args, cur.String())
		}

		cur.Reset()

		quoted = false
	}

	for _, r := range input {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			quoted = true
		case r == ' ' || r == '\t':
			flush()
		default:
			cur.WriteRune(r)
		}
	}

	flush()

	return args
}

func (s *session) list(o *IO, args []string) error {
	cols := s.board.Columns

	if len(args) > 0 {
		col := s.board.Column(args[0])
		if col == nil {
			return fmt.Errorf("%w: %s", errColumnNotFound, args[0])
		}

		cols = []*board.Column{col}
	}

	for _, col := range cols {
		for _, it := range col.Items {
			o.Println(itemLine(col, it))
		}
	}

	return nil
}

func (s *session) add(o *IO, args []string) error {
	if len(args) < 1 {
		return errColumnRequired
	}

	if len(args) < 2 {
		return errTitleRequired
	}

	if !board.ValidColumnName(args[0]) {
		return fmt.Errorf("%w: %q", errColumnInvalid, args[0])
	}

	title := strings.TrimSpace(strings.Join(args[1:], " "))
	if title == "" {
		return errTitleRequired
	}

	it := board.NewItem(title)
	it.Meta["title"] = title

	s.board.AddColumn(args[0]).Add(it)
	s.dirty = true

	o.Println("added:", title)

	return nil
}

func (s *session) mark(args []string, checked bool) error {
	if len(args) < 1 {
		return errItemRefRequired
	}

	_, it, err := findItem(s.board, args[0])
	if err != nil {
		return err
	}

	it.SetChecked(checked)
	s.dirty = true

	return nil
}

func (s *session) move(args []string) error {
	if len(args) < 1 {
		return errItemRefRequired
	}

	if len(args) < 2 {
		return errTargetRequired
	}

	if !board.ValidColumnName(args[1]) {
		return fmt.Errorf("%w: %q", errColumnInvalid, args[1])
	}

	_, it, err := findItem(s.board, args[0])
	if err != nil {
		return err
	}

	s.board.Move(it, args[1])
	s.dirty = true

	return nil
}

func (s *session) remove(args []string) error {
	if len(args) < 1 {
		return errItemRefRequired
	}

	col, it, err := findItem(s.board, args[0])
	if err != nil {
		return err
	}

	col.Remove(it)
	s.dirty = true

	return nil
}

func (s *session) save(o *IO) error {
	if err := s.folder.Save(s.board); err != nil {
		return err
	}

	s.dirty = false

	o.Println("saved")

	return nil
}

// reload discards the in-memory board and rehydrates from disk.
func (s *session) reload(o *IO) error {
	b, err := s.folder.Load()
	if err != nil {
		return err
	}

	warnFileErrors(o, b)

	s.board = b
	s.dirty = false

	o.Println("reloaded")

	return nil
}

var shellCommands = []string{
	"board", "ls", "add", "check", "uncheck", "mv", "rm", "save", "reload",
	"help", "quit",
}

// complete completes command names at the start of the line and column
// names after it, from the in-memory board.
func (s *session) complete(prefix string) []string {
	if !strings.Contains(prefix, " ") {
		var out []string

		for _, name := range shellCommands {
			if strings.HasPrefix(name, strings.ToLower(prefix)) {
				out = append(out, name)
			}
		}

		return out
	}

	cut := strings.LastIndex(prefix, " ") + 1
	head, word := prefix[:cut], prefix[cut:]

	var out []string

	for _, col := range s.board.Columns {
		if strings.HasPrefix(col.Title, word) {
			out = append(out, head+col.Title)
		}
	}

	return out
}

func printShellHelp(o *IO) {
	o.Println("Commands:")
	o.Println("  board                      Print the in-memory board")
	o.Println("  ls [column]                List items")
	o.Println("  add <column> <title>       Add an item (in memory)")
	o.Println("  check <column>/<name>      Mark an item done")
	o.Println("  uncheck <column>/<name>    Mark an item not done")
	o.Println("  mv <column>/<name> <col>   Move an item")
	o.Println("  rm <column>/<name>         Remove an item")
	o.Println("  save                       Write changes to disk")
	o.Println("  reload                     Discard changes, rehydrate from disk")
	o.Println("  help                       Show this help")
	o.Println("  quit                       Leave the shell")
}

func historyFile(env map[string]string) string {
	home := env["HOME"]
	if home == "" {
		return ""
	}

	return filepath.Join(home, ".kb_history")
}

func loadHistory(app *App, line *liner.State) {
	path := historyFile(app.env)
	if path == "" {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	_, _ = line.ReadHistory(f)
}

func saveHistory(app *App, line *liner.State) {
	path := historyFile(app.env)
	if path == "" {
		return
	}

	f, err := os.Create(path)
	if err != nil {
		app.log.WithError(err).Debug("history not saved")

		return
	}
	defer f.Close()

	_, _ = line.WriteHistory(f)
}
