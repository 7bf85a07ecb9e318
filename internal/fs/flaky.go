package fs

import (
	"os"
	"strings"
	"sync"
)

// Op identifies an [FS] operation for fault injection.
type Op string

// Operations that [Flaky] can fail.
const (
	OpOpenFile  Op = "openfile"
	OpReadFile  Op = "readfile"
	OpWriteFile Op = "writefile"
	OpReadDir   Op = "readdir"
	OpMkdirAll  Op = "mkdirall"
	OpStat      Op = "stat"
	OpExists    Op = "exists"
	OpRemove    Op = "remove"
	OpRename    Op = "rename"
)

// Flaky wraps an [FS] and fails scripted operations.
//
// Tests register failures with [Flaky.FailOn]; any call whose operation
// matches and whose path ends with the registered suffix returns the
// registered error instead of reaching the underlying filesystem.
// Suffix matching keeps scripts independent of t.TempDir prefixes.
//
// Safe for concurrent use.
type Flaky struct {
	base FS

	mu       sync.Mutex
	failures []failure
	calls    map[Op]int
}

type failure struct {
	op     Op
	suffix string
	err    error
}

// NewFlaky wraps base with no failures scripted.
func NewFlaky(base FS) *Flaky {
	return &Flaky{base: base, calls: make(map[Op]int)}
}

// FailOn registers err for every op call whose path ends with suffix.
// For [OpRename] the suffix is matched against the old path.
func (f *Flaky) FailOn(op Op, suffix string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failures = append(f.failures, failure{op: op, suffix: suffix, err: err})
}

// Calls returns how many times op was invoked, failed or not.
func (f *Flaky) Calls(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[op]
}

// check records the call and returns a scripted error, if any.
func (f *Flaky) check(op Op, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[op]++

	for _, fail := range f.failures {
		if fail.op == op && strings.HasSuffix(path, fail.suffix) {
			return fail.err
		}
	}

	return nil
}

func (f *Flaky) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	if err := f.check(OpOpenFile, path); err != nil {
		return nil, err
	}

	return f.base.OpenFile(path, flag, perm)
}

func (f *Flaky) ReadFile(path string) ([]byte, error) {
	if err := f.check(OpReadFile, path); err != nil {
		return nil, err
	}

	return f.base.ReadFile(path)
}

func (f *Flaky) WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := f.check(OpWriteFile, path); err != nil {
		return err
	}

	return f.base.WriteFileAtomic(path, data, perm)
}

func (f *Flaky) ReadDir(path string) ([]os.DirEntry, error) {
	if err := f.check(OpReadDir, path); err != nil {
		return nil, err
	}

	return f.base.ReadDir(path)
}

func (f *Flaky) MkdirAll(path string, perm os.FileMode) error {
	if err := f.check(OpMkdirAll, path); err != nil {
		return err
	}

	return f.base.MkdirAll(path, perm)
}

func (f *Flaky) Stat(path string) (os.FileInfo, error) {
	if err := f.check(OpStat, path); err != nil {
		return nil, err
	}

	return f.base.Stat(path)
}

func (f *Flaky) Exists(path string) (bool, error) {
	if err := f.check(OpExists, path); err != nil {
		return false, err
	}

	return f.base.Exists(path)
}

func (f *Flaky) Remove(path string) error {
	if err := f.check(OpRemove, path); err != nil {
		return err
	}

	return f.base.Remove(path)
}

func (f *Flaky) Rename(oldpath, newpath string) error {
	if err := f.check(OpRename, oldpath); err != nil {
		return err
	}

	return f.base.Rename(oldpath, newpath)
}

// Compile-time interface check.
var _ FS = (*Flaky)(nil)
