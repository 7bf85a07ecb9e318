package board

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"kb/internal/frontmatter"
	kbfs "kb/internal/fs"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Save reconciles the board's in-memory state onto disk.
//
// Per item the action follows from its back-reference: no file means
// create, a file in the item's own column means rewrite in place, a
// file in another column means move. Item saves run concurrently and
// independently; a single failed item is logged and skipped, never
// failing the batch. Files no item claims are deleted, strictly after
// every item write has settled.
//
// Structural failures return an error before any file is touched: the
// root is gone, or another process holds the save lock.
func (f *Folder) Save(b *Board) error {
	lock, err := f.lockBoard()
	if err != nil {
		return err
	}
	defer lock.Close()

	return f.saveLocked(b)
}

// Update runs one load-modify-save cycle without releasing the board
// lock in between. A bare Load-then-Save hydrates from state another
// process may still be writing, and its reconcile would delete that
// process's new files as orphans. fn mutates the hydrated board; when
// it returns an error nothing is written. The hydrated board comes
// back whenever the load succeeded, so callers can still surface its
// per-file failures.
func (f *Folder) Update(fn func(*Board) error) (*Board, error) {
	lock, err := f.lockBoard()
	if err != nil {
		return nil, err
	}
	defer lock.Close()

	b, err := f.Load()
	if err != nil {
		return nil, err
	}

	if err := fn(b); err != nil {
		return b, err
	}

	return b, f.saveLocked(b)
}

// lockBoard takes the save lock. The root is checked first: the lock
// file lives under it, and taking the lock would resurrect a deleted
// board.
func (f *Folder) lockBoard() (*kbfs.Lock, error) {
	info, err := f.fsys.Stat(f.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRootNotFound, f.root, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrRootNotFound, f.root)
	}

	lock, err := f.locker.LockWithTimeout(f.lockPath(), f.lockTimeout)
	if err != nil {
		if errors.Is(err, kbfs.ErrWouldBlock) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, f.root)
		}

		return nil, fmt.Errorf("locking board: %w", err)
	}

	return lock, nil
}

func (f *Folder) saveLocked(b *Board) error {
	// Columns whose title cannot be a directory name are skipped
	// wholesale. Their items keep any existing back-references, so
	// orphan cleanup leaves the files alone.
	cols := make([]*Column, 0, len(b.Columns))

	for _, col := range b.Columns {
		if !ValidColumnName(col.Title) {
			f.log.WithField("column", col.Title).Warn("column skipped, title is not a valid directory name")

			continue
		}

		cols = append(cols, col)
	}

	// Column directories exist before any item write targets them.
	// A failed mkdir is logged here; the column's items still get
	// their attempt and fail individually.
	for _, col := range cols {
		if err := f.fsys.MkdirAll(f.columnDir(col.Title), dirPerm); err != nil {
			f.log.WithField("column", col.Title).WithError(err).Warn("column directory not created")
		}
	}

	cl := newClaims()

	var wg sync.WaitGroup
	for _, col := range cols {
		for _, it := range col.Items {
			wg.Add(1)

			go func() {
				defer wg.Done()

				if err := f.saveItem(cl, col.Title, it); err != nil {
					f.log.WithFields(logrus.Fields{
						"column": col.Title,
						"item":   it.Title,
					}).WithError(err).Warn("item not saved")
				}
			}()
		}
	}

	wg.Wait()

	f.removeOrphans(b, cols)

	return nil
}

// saveItem routes one item through the persistence state machine.
func (f *Folder) saveItem(cl *claims, column string, it *Item) error {
	switch {
	case it.File == "":
		return f.createItem(cl, column, it)
	case filepath.Dir(it.File) == column:
		return f.updateItem(it)
	default:
		return f.moveItem(cl, column, it)
	}
}

// createItem writes a new item's file under a name derived from its
// title, probing for a free one. The back-reference is set only after
// the write lands, so a failed create leaves the item fileless and the
// next save retries.
func (f *Folder) createItem(cl *claims, column string, it *Item) error {
	name, err := allocate(f.fsys, cl, f.columnDir(column), sanitizeName(it.Title))
	if err != nil {
		return err
	}

	rel := filepath.Join(column, name)

	content, err := itemContent(it, strings.TrimSuffix(name, markdownExt))
	if err != nil {
		return err
	}

	if err := f.fsys.WriteFileAtomic(f.itemPath(rel), content, filePerm); err != nil {
		return fmt.Errorf("writing item file: %w", err)
	}

	it.File = rel

	return nil
}

// updateItem rewrites an item's file in place.
func (f *Folder) updateItem(it *Item) error {
	content, err := itemContent(it, it.FileName())
	if err != nil {
		return err
	}

	if err := f.fsys.WriteFileAtomic(f.itemPath(it.File), content, filePerm); err != nil {
		return fmt.Errorf("rewriting item file: %w", err)
	}

	return nil
}

// moveItem relocates an item's file into its current column. The file
// keeps its name when that name is free in the target directory;
// otherwise a fresh one is allocated. Rename first, then rewrite, so
// the id inside the file matches its final name. The back-reference
// flips as soon as the rename lands; a failed rewrite leaves stale
// content at the right path and the next save repairs it.
func (f *Folder) moveItem(cl *claims, column string, it *Item) error {
	name, err := allocate(f.fsys, cl, f.columnDir(column), it.FileName())
	if err != nil {
		return err
	}

	newRel := filepath.Join(column, name)

	if err := f.fsys.Rename(f.itemPath(it.File), f.itemPath(newRel)); err != nil {
		return fmt.Errorf("moving item file: %w", err)
	}

	it.File = newRel

	content, err := itemContent(it, strings.TrimSuffix(name, markdownExt))
	if err != nil {
		return err
	}

	if err := f.fsys.WriteFileAtomic(f.itemPath(newRel), content, filePerm); err != nil {
		return fmt.Errorf("rewriting moved item file: %w", err)
	}

	return nil
}

// itemContent renders an item's full file: the front-matter block and
// one blank line. The block is the item's metadata with the
// denormalized fields applied on top. completed appears only when the
// item is checked. parent_id, aliases and tags always appear, with
// null or empty defaults. id is always the file's base name; anything
// else in it is overwritten.
func itemContent(it *Item, baseName string) ([]byte, error) {
	fm := it.Meta.Clone()

	if it.Checked {
		fm[keyCompleted] = true
	} else {
		delete(fm, keyCompleted)
	}

	if !fm.Has(keyParentID) {
		fm[keyParentID] = nil
	}

	if !fm.Has(keyAliases) {
		fm[keyAliases] = []any{}
	}

	if !fm.Has(keyTags) {
		fm[keyTags] = []any{}
	}

	fm[keyID] = baseName

	block, err := frontmatter.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("encoding front matter: %w", err)
	}

	return append(block, '\n'), nil
}

// removeOrphans deletes the markdown files in the board's column
// directories that no item claims. Claims come from back-references,
// so an item whose move failed still claims its old path and its file
// survives. Deletion failures are logged and skipped.
func (f *Folder) removeOrphans(b *Board, cols []*Column) {
	claimed := make(map[string]struct{}, b.ItemCount)

	for _, col := range b.Columns {
		for _, it := range col.Items {
			if it.File != "" {
				claimed[it.File] = struct{}{}
			}
		}
	}

	for _, col := range cols {
		entries, err := f.fsys.ReadDir(f.columnDir(col.Title))
		if err != nil {
			f.log.WithField("column", col.Title).WithError(err).Warn("orphan cleanup skipped for column")

			continue
		}

		for _, entry := range entries {
			if !isMarkdown(entry) {
				continue
			}

			rel := filepath.Join(col.Title, entry.Name())
			if _, ok := claimed[rel]; ok {
				continue
			}

			if err := f.fsys.Remove(f.itemPath(rel)); err != nil {
				f.log.WithField("path", rel).WithError(err).Warn("orphan file not removed")

				continue
			}

			f.log.WithField("path", rel).Debug("removed orphan file")
		}
	}
}
