package fs

import (
	"errors"
	iofs "io/fs"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
)

// ChaosConfig holds per-operation fault probabilities, each a float64
// from 0.0 (never) to 1.0 (always).
type ChaosConfig struct {
	OpenFailRate    float64 // OpenFile
	ReadFailRate    float64 // ReadFile
	WriteFailRate   float64 // WriteFileAtomic
	ListFailRate    float64 // ReadDir failing entirely
	PartialListRate float64 // ReadDir returning a truncated listing
	MkdirFailRate   float64 // MkdirAll
	StatFailRate    float64 // Stat and Exists
	RemoveFailRate  float64 // Remove
	RenameFailRate  float64 // Rename
}

// DefaultChaosConfig returns moderate rates: frequent enough that a
// few hundred operations are certain to hit faults, rare enough that
// most of each batch still goes through.
func DefaultChaosConfig() ChaosConfig {
	return ChaosConfig{
		OpenFailRate:    0.03,
		ReadFailRate:    0.05,
		WriteFailRate:   0.05,
		ListFailRate:    0.03,
		PartialListRate: 0.05,
		MkdirFailRate:   0.03,
		StatFailRate:    0.03,
		RemoveFailRate:  0.05,
		RenameFailRate:  0.05,
	}
}

// Chaos wraps an [FS] and randomly fails operations, for robustness
// tests that [Flaky]'s scripted failures cannot cover.
//
// Faults are all-or-nothing: a failed write leaves the target exactly
// as it was, matching the atomic contract of [FS.WriteFileAtomic]. The
// one partial behavior is ReadDir truncation, which simulates a
// directory changing while it is listed.
//
// Injected errors are [iofs.PathError] values carrying plausible
// errnos (EIO, EACCES, ENOSPC and the like, never ENOENT), wrapped so
// [IsInjected] can tell them from real filesystem errors. Files
// returned by OpenFile are not wrapped; open faults hit the open call
// itself.
//
// Safe for concurrent use. The seed makes the fault sequence
// reproducible for a fixed operation order.
type Chaos struct {
	base      FS
	config    ChaosConfig
	injecting atomic.Bool

	mu     sync.Mutex
	rng    *rand.Rand
	faults map[Op]int64
}

// NewChaos wraps base. Injection starts disarmed; call
// [Chaos.SetInjecting] to arm it.
func NewChaos(base FS, seed int64, config ChaosConfig) *Chaos {
	return &Chaos{
		base:   base,
		config: config,
		rng:    rand.New(rand.NewSource(seed)),
		faults: make(map[Op]int64),
	}
}

// SetInjecting arms or disarms fault injection. While disarmed, Chaos
// is a transparent passthrough. Safe to call concurrently with
// filesystem operations.
func (c *Chaos) SetInjecting(on bool) { c.injecting.Store(on) }

// Faults returns the total number of injected faults.
func (c *Chaos) Faults() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total int64
	for _, n := range c.faults {
		total += n
	}

	return total
}

// FaultCount returns how many faults were injected for one operation.
func (c *Chaos) FaultCount(op Op) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.faults[op]
}

// InjectedError marks an error as injected by [Chaos]. It unwraps to
// the underlying [iofs.PathError], so errors.Is against errnos and
// os.IsPermission keep working.
type InjectedError struct {
	Err error
}

func (e *InjectedError) Error() string { return e.Err.Error() }

func (e *InjectedError) Unwrap() error { return e.Err }

// IsInjected reports whether err, or any error it wraps, was injected
// by [Chaos].
func IsInjected(err error) bool {
	var injected *InjectedError

	return errors.As(err, &injected)
}

// roll decides one fault, records it, and builds the injected error.
// Returns nil when the operation should go through.
func (c *Chaos) roll(op Op, path string, rate float64, errnos ...syscall.Errno) error {
	if !c.injecting.Load() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rng.Float64() >= rate {
		return nil
	}

	c.faults[op]++
	errno := errnos[c.rng.Intn(len(errnos))]

	return &InjectedError{Err: &iofs.PathError{Op: string(op), Path: path, Err: errno}}
}

// cut returns a truncation length in [1, n) when the partial-listing
// fault fires, or 0 to leave the listing whole.
func (c *Chaos) cut(n int) int {
	if !c.injecting.Load() || n < 2 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rng.Float64() >= c.config.PartialListRate {
		return 0
	}

	c.faults[OpReadDir]++

	return c.rng.Intn(n-1) + 1
}

func (c *Chaos) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	if err := c.roll(OpOpenFile, path, c.config.OpenFailRate, syscall.EIO, syscall.EACCES, syscall.EMFILE); err != nil {
		return nil, err
	}

	return c.base.OpenFile(path, flag, perm)
}

func (c *Chaos) ReadFile(path string) ([]byte, error) {
	if err := c.roll(OpReadFile, path, c.config.ReadFailRate, syscall.EIO, syscall.EACCES); err != nil {
		return nil, err
	}

	return c.base.ReadFile(path)
}

func (c *Chaos) WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := c.roll(OpWriteFile, path, c.config.WriteFailRate, syscall.EIO, syscall.ENOSPC, syscall.EACCES); err != nil {
		return err
	}

	return c.base.WriteFileAtomic(path, data, perm)
}

func (c *Chaos) ReadDir(path string) ([]os.DirEntry, error) {
	if err := c.roll(OpReadDir, path, c.config.ListFailRate, syscall.EIO, syscall.EACCES); err != nil {
		return nil, err
	}

	entries, err := c.base.ReadDir(path)
	if err != nil {
		return nil, err
	}

	if n := c.cut(len(entries)); n > 0 {
		return entries[:n], nil
	}

	return entries, nil
}

func (c *Chaos) MkdirAll(path string, perm os.FileMode) error {
	if err := c.roll(OpMkdirAll, path, c.config.MkdirFailRate, syscall.EIO, syscall.EACCES, syscall.ENOSPC); err != nil {
		return err
	}

	return c.base.MkdirAll(path, perm)
}

func (c *Chaos) Stat(path string) (os.FileInfo, error) {
	if err := c.roll(OpStat, path, c.config.StatFailRate, syscall.EIO, syscall.EACCES); err != nil {
		return nil, err
	}

	return c.base.Stat(path)
}

func (c *Chaos) Exists(path string) (bool, error) {
	if err := c.roll(OpExists, path, c.config.StatFailRate, syscall.EIO, syscall.EACCES); err != nil {
		return false, err
	}

	return c.base.Exists(path)
}

func (c *Chaos) Remove(path string) error {
	if err := c.roll(OpRemove, path, c.config.RemoveFailRate, syscall.EIO, syscall.EACCES, syscall.EBUSY); err != nil {
		return err
	}

	return c.base.Remove(path)
}

func (c *Chaos) Rename(oldpath, newpath string) error {
	if err := c.roll(OpRename, oldpath, c.config.RenameFailRate, syscall.EIO, syscall.EACCES, syscall.EXDEV); err != nil {
		return err
	}

	return c.base.Rename(oldpath, newpath)
}

// Compile-time interface check.
var _ FS = (*Chaos)(nil)
