package board

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"kb/internal/frontmatter"
)

// settingsKey is the descriptor front-matter key holding board
// settings.
const settingsKey = "kanban"

// Front-matter keys the hydrator and persister interpret. Everything
// else passes through saves untouched.
const (
	keyID        = "id"
	keyTitle     = "title"
	keyCompleted = "completed"
	keyStatus    = "status"
	keyDone      = "done"
	keyParentID  = "parent_id"
	keyAliases   = "aliases"
	keyTags      = "tags"
)

const statusCompleted = "completed"

// Load hydrates the full board from disk.
//
// Structural failures (unreadable root, no column directories) return
// an error. A single unreadable or malformed file never fails the load:
// it is logged, recorded in [Board.Errors] and skipped. Column
// directories are read concurrently, item files within a column too.
func (f *Folder) Load() (*Board, error) {
	dirs, files, err := f.listRoot()
	if err != nil {
		return nil, err
	}

	if len(dirs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFolderLayout, f.root)
	}

	b := &Board{
		ID:       uuid.NewString(),
		Title:    f.Title(),
		Meta:     frontmatter.Frontmatter{},
		Settings: frontmatter.Frontmatter{},
	}

	var errMu sync.Mutex

	record := func(path string, err error) {
		f.log.WithField("path", path).WithError(err).Warn("skipping board file")

		errMu.Lock()
		b.Errors = append(b.Errors, FileError{Path: path, Err: err})
		errMu.Unlock()
	}

	if name := f.descriptorName(files); name != "" {
		meta, settings, err := f.readDescriptor(name)
		if err != nil {
			record(name, err)
		} else {
			b.Meta = meta
			b.Settings = settings
		}
	}

	cols := make([]*Column, len(dirs))

	var wg sync.WaitGroup
	for i, dir := range dirs {
		wg.Add(1)

		go func() {
			defer wg.Done()

			cols[i] = f.loadColumn(dir, record)
		}()
	}

	wg.Wait()

	b.Columns = cols
	sortColumns(b.Columns)
	enrich(b)

	return b, nil
}

// readDescriptor parses the descriptor file into board metadata and
// the settings sub-mapping.
func (f *Folder) readDescriptor(name string) (meta, settings frontmatter.Frontmatter, err error) {
	src, err := f.fsys.ReadFile(f.itemPath(name))
	if err != nil {
		return nil, nil, fmt.Errorf("reading descriptor: %w", err)
	}

	meta, _, err = frontmatter.Parse(src)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing descriptor: %w", err)
	}

	settings = frontmatter.Frontmatter{}
	if sub, ok := meta[settingsKey].(map[string]any); ok {
		settings = frontmatter.Frontmatter(sub)
	}

	return meta, settings, nil
}

// loadColumn hydrates one column directory. A directory that cannot be
// read yields the column with no items so the board keeps its shape.
func (f *Folder) loadColumn(dir string, record func(path string, err error)) *Column {
	col := NewColumn(dir)

	entries, err := f.fsys.ReadDir(f.columnDir(dir))
	if err != nil {
		record(dir, fmt.Errorf("reading column directory: %w", err))

		return col
	}

	var names []string

	for _, entry := range entries {
		if isMarkdown(entry) {
			names = append(names, entry.Name())
		}
	}

	items := make([]*Item, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)

		go func() {
			defer wg.Done()

			it, err := f.loadItem(dir, name)
			if err != nil {
				record(filepath.Join(dir, name), err)

				return
			}

			items[i] = it
		}()
	}

	wg.Wait()

	for _, it := range items {
		if it != nil {
			col.Items = append(col.Items, it)
		}
	}

	sortItems(col.Items)

	return col
}

// loadItem hydrates one item file.
func (f *Folder) loadItem(column, name string) (*Item, error) {
	rel := filepath.Join(column, name)

	src, err := f.fsys.ReadFile(f.itemPath(rel))
	if err != nil {
		return nil, fmt.Errorf("reading item file: %w", err)
	}

	fm, body, err := frontmatter.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parsing front matter: %w", err)
	}

	title := deriveTitle(fm, body, name)

	it := &Item{
		ID:          uuid.NewString(),
		Title:       title,
		SearchTitle: strings.ToLower(title),
		Meta:        fm,
		File:        rel,
		Body:        string(body),
	}

	it.SetChecked(deriveChecked(fm))

	if v, ok := fm[keyParentID]; ok {
		it.ParentID = v
	}

	return it, nil
}

// deriveChecked evaluates the checked state once, at hydration:
// completed set to boolean true, or status equal to "completed"
// exactly, or done set to boolean true. String "true", non-boolean
// values and differently cased statuses all leave the item unchecked.
func deriveChecked(fm frontmatter.Frontmatter) bool {
	if v, ok := fm.Bool(keyCompleted); ok && v {
		return true
	}

	if s, ok := fm.String(keyStatus); ok && s == statusCompleted {
		return true
	}

	if v, ok := fm.Bool(keyDone); ok && v {
		return true
	}

	return false
}

// deriveTitle picks the item title: an explicit string title field
// wins, then the first markdown heading in the body, then the file's
// base name.
func deriveTitle(fm frontmatter.Frontmatter, body []byte, fileName string) string {
	if t, ok := fm.String(keyTitle); ok {
		return t
	}

	if h, ok := firstHeading(body); ok {
		return h
	}

	return strings.TrimSuffix(fileName, markdownExt)
}

// firstHeading scans the body for the first ATX heading line and
// returns its text.
func firstHeading(body []byte) (string, bool) {
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if text, ok := headingText(line); ok {
			return text, true
		}
	}

	return "", false
}

// headingText extracts the text of one ATX heading line: one to six #
// marks, a space, then the text, with an optional closing run of #
// marks.
func headingText(line string) (string, bool) {
	hashes := 0
	for hashes < len(line) && line[hashes] == '#' {
		hashes++
	}

	if hashes == 0 || hashes > 6 {
		return "", false
	}

	if hashes == len(line) || line[hashes] != ' ' {
		return "", false
	}

	text := strings.TrimSpace(line[hashes:])

	// A closing sequence like "# Title ##" is trimmed, but "# C#"
	// keeps its hash.
	stripped := strings.TrimRight(text, "#")
	if stripped != text && (stripped == "" || strings.HasSuffix(stripped, " ")) {
		text = strings.TrimRight(stripped, " ")
	}

	if text == "" {
		return "", false
	}

	return text, true
}
