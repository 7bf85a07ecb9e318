package board

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	kbfs "kb/internal/fs"
)

// DefaultLockTimeout bounds how long a save waits for another process
// to release the board.
const DefaultLockTimeout = 5 * time.Second

// lockDirName holds the save lock file inside the board root. Hidden,
// so it never counts as a column.
const lockDirName = ".locks"

// Folder is a handle on a board's root directory. It performs no I/O
// beyond validating the root until Load or Save is called.
type Folder struct {
	root        string
	descriptor  string
	fsys        kbfs.FS
	log         logrus.FieldLogger
	locker      *kbfs.Locker
	lockTimeout time.Duration
}

// Option configures a Folder.
type Option func(*Folder)

// WithFS substitutes the filesystem, for tests.
func WithFS(fsys kbfs.FS) Option {
	return func(f *Folder) {
		f.fsys = fsys
	}
}

// WithLogger routes per-file warnings somewhere other than the
// process-wide logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(f *Folder) {
		f.log = log
	}
}

// WithDescriptor forces the descriptor file (a name relative to the
// root) instead of resolving it by convention.
func WithDescriptor(name string) Option {
	return func(f *Folder) {
		f.descriptor = name
	}
}

// WithLockTimeout overrides DefaultLockTimeout for saves.
func WithLockTimeout(d time.Duration) Option {
	return func(f *Folder) {
		f.lockTimeout = d
	}
}

// Open validates that root exists and is a directory and returns a
// handle on it.
func Open(root string, opts ...Option) (*Folder, error) {
	f := &Folder{
		root:        root,
		fsys:        kbfs.NewReal(),
		log:         logrus.StandardLogger(),
		lockTimeout: DefaultLockTimeout,
	}

	for _, opt := range opts {
		opt(f)
	}

	f.locker = kbfs.NewLocker(f.fsys)

	info, err := f.fsys.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRootNotFound, root, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrRootNotFound, root)
	}

	return f, nil
}

// Root returns the board root directory as given to Open.
func (f *Folder) Root() string {
	return f.root
}

// Title returns the board title, the root's base name.
func (f *Folder) Title() string {
	return filepath.Base(f.root)
}

// IsFolderBoard reports whether the root contains at least one column
// directory. A bare root with only files is not a folder board.
func (f *Folder) IsFolderBoard() (bool, error) {
	dirs, _, err := f.listRoot()
	if err != nil {
		return false, err
	}

	return len(dirs) > 0, nil
}

// listRoot splits the root's direct children into column directory
// names and markdown file names. Hidden entries are skipped, which
// keeps the lock directory out of the column set. Both slices come
// back in lexical order.
func (f *Folder) listRoot() (dirs, files []string, err error) {
	entries, err := f.fsys.ReadDir(f.root)
	if err != nil {
		return nil, nil, fmt.Errorf("reading board root %s: %w", f.root, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		if entry.IsDir() {
			dirs = append(dirs, name)

			continue
		}

		if entry.Type().IsRegular() && strings.HasSuffix(name, markdownExt) {
			files = append(files, name)
		}
	}

	return dirs, files, nil
}

// descriptorName resolves the board descriptor among the root-level
// markdown files: a forced name wins, then a file named after the root
// directory, then the lexically first file. "" means no descriptor.
func (f *Folder) descriptorName(files []string) string {
	if f.descriptor != "" {
		return f.descriptor
	}

	want := f.Title() + markdownExt
	for _, name := range files {
		if name == want {
			return name
		}
	}

	if len(files) > 0 {
		return files[0]
	}

	return ""
}

// lockPath is the save lock file for this board.
func (f *Folder) lockPath() string {
	return filepath.Join(f.root, lockDirName, "board.lock")
}

// columnDir returns the absolute directory backing a column title.
func (f *Folder) columnDir(title string) string {
	return filepath.Join(f.root, title)
}

// itemPath returns the absolute path of an item's back-reference.
func (f *Folder) itemPath(rel string) string {
	return filepath.Join(f.root, rel)
}

// isMarkdown reports whether a directory entry is an item file:
// a regular, visible markdown file.
func isMarkdown(entry fs.DirEntry) bool {
	name := entry.Name()

	return entry.Type().IsRegular() &&
		!strings.HasPrefix(name, ".") &&
		strings.HasSuffix(name, markdownExt)
}
