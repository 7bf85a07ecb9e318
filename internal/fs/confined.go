package fs

import (
	"os"
	"path/filepath"
	"strings"
)

// TB is the subset of [testing.T] that [Confined] needs. Declared here
// so test code in other packages can use Confined without this package
// importing testing.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// Confined wraps an [FS] for tests and fails the test on any operation
// whose path falls outside a root directory. The board engine composes
// every path it touches from the board root; an escape means a path
// derivation bug, not an environment problem.
//
// Only the paths handed to the wrapper are checked. Whatever the
// underlying implementation does internally (temp files for atomic
// writes, for example) is its own business.
type Confined struct {
	tb   TB
	base FS
	root string
}

// NewConfined wraps base, confining all operations to root.
func NewConfined(tb TB, base FS, root string) *Confined {
	return &Confined{tb: tb, base: base, root: filepath.Clean(root)}
}

// check fails the test when path lies outside the root.
func (c *Confined) check(op Op, path string) {
	c.tb.Helper()

	clean := filepath.Clean(path)
	if clean == c.root || strings.HasPrefix(clean, c.root+string(filepath.Separator)) {
		return
	}

	c.tb.Fatalf("fs: %s escaped board root %s: %s", op, c.root, path)
}

func (c *Confined) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	c.check(OpOpenFile, path)

	return c.base.OpenFile(path, flag, perm)
}

func (c *Confined) ReadFile(path string) ([]byte, error) {
	c.check(OpReadFile, path)

	return c.base.ReadFile(path)
}

func (c *Confined) WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	c.check(OpWriteFile, path)

	return c.base.WriteFileAtomic(path, data, perm)
}

func (c *Confined) ReadDir(path string) ([]os.DirEntry, error) {
	c.check(OpReadDir, path)

	return c.base.ReadDir(path)
}

func (c *Confined) MkdirAll(path string, perm os.FileMode) error {
	c.check(OpMkdirAll, path)

	return c.base.MkdirAll(path, perm)
}

func (c *Confined) Stat(path string) (os.FileInfo, error) {
	c.check(OpStat, path)

	return c.base.Stat(path)
}

func (c *Confined) Exists(path string) (bool, error) {
	c.check(OpExists, path)

	return c.base.Exists(path)
}

func (c *Confined) Remove(path string) error {
	c.check(OpRemove, path)

	return c.base.Remove(path)
}

func (c *Confined) Rename(oldpath, newpath string) error {
	c.check(OpRename, oldpath)
	c.check(OpRename, newpath)

	return c.base.Rename(oldpath, newpath)
}

// Compile-time interface check.
var _ FS = (*Confined)(nil)
