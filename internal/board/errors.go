package board

import (
	"errors"
	"fmt"
)

// Structural errors abort an operation outright. Per-file errors never
// do; they are logged, collected into [Board.Errors] and the file is
// skipped.
var (
	// ErrRootNotFound means the board root directory does not exist or
	// is not a directory.
	ErrRootNotFound = errors.New("board root not found")

	// ErrNoFolderLayout means the root exists but has no column
	// directories, so it is not a folder board.
	ErrNoFolderLayout = errors.New("no folder layout: board root has no column directories")

	// ErrLocked means another process holds the board's save lock.
	ErrLocked = errors.New("board is locked by another process")

	// ErrConfigFileNotFound means an explicitly requested config file
	// does not exist.
	ErrConfigFileNotFound = errors.New("config file not found")

	// ErrConfigFileRead means an explicitly requested config file
	// exists but cannot be read.
	ErrConfigFileRead = errors.New("config file not readable")

	// ErrConfigInvalid means a config file exists but cannot be parsed.
	ErrConfigInvalid = errors.New("config file invalid")

	// ErrBoardDirEmpty means a config source sets board_dir to an
	// empty string, which is never valid.
	ErrBoardDirEmpty = errors.New("board_dir must not be empty")

	// ErrFlagRequiresArg means a flag was given without its value.
	ErrFlagRequiresArg = errors.New("flag requires an argument")

	// ErrUnknownFlag means an unrecognized global flag was given.
	ErrUnknownFlag = errors.New("unknown flag")
)

// FileError records one tolerated per-file failure during hydration or
// persistence.
type FileError struct {
	// Path of the offending file, relative to the board root.
	Path string

	// Err is the underlying failure.
	Err error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
