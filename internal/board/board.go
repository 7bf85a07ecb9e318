// Package board maps a folder/file tree to an in-memory kanban board and
// keeps the two representations synchronized in both directions.
//
// A board folder contains one directory per column and one markdown file
// per item; item metadata lives in YAML front matter:
//
//	<root>/
//	  <root name>.md        descriptor: board settings and metadata
//	  Todo/                 one directory per column, name = column title
//	    Ship release.md     one file per item
//	  Doing/
//	  Done/
//
// Loading hydrates the tree into a [Board]; saving reconciles the board
// against the current on-disk state: creating files for new items,
// rewriting changed ones, moving files between column directories
// without name collisions, and deleting files no in-memory item claims.
//
// Board, column and item IDs are regenerated on every hydration and are
// never used to match items across saves. The durable identity of an
// item is its file path, recorded in [Item.File]; the durable identity
// of a column is its title.
package board

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"kb/internal/frontmatter"
)

// Check markers rendered next to an item title.
const (
	CheckedMarker   = 'x'
	UncheckedMarker = ' '
)

// Board is one kanban view's full state.
type Board struct {
	// ID is ephemeral and regenerated on every hydration.
	ID string

	// Title is the board root directory's base name.
	Title string

	// Columns in alphabetical title order.
	Columns []*Column

	// Meta is the descriptor file's front matter.
	Meta frontmatter.Frontmatter

	// Settings is the mapping under the descriptor's "kanban" key.
	Settings frontmatter.Frontmatter

	// Errors collects per-file failures tolerated during hydration.
	Errors []FileError

	// ItemCount is the total number of items, computed on hydration.
	ItemCount int
}

// Column is a named group of items backed one-to-one by a directory
// directly under the board root.
type Column struct {
	// ID is ephemeral and regenerated on every hydration.
	ID string

	// Title is the directory's base name, always.
	Title string

	// Index is the column's position after sorting, computed on
	// hydration.
	Index int

	// Items in title order after hydration; in-memory edits append.
	Items []*Item
}

// Item is a single task backed by at most one file.
type Item struct {
	// ID is ephemeral and regenerated on every hydration.
	ID string

	// Title per the derivation precedence: front-matter title, first
	// body heading, file base name.
	Title string

	// SearchTitle is the lower-cased title for filtering. Advisory.
	SearchTitle string

	// Checked is derived once at hydration and is the single source of
	// truth afterwards; metadata changes do not re-derive it.
	Checked bool

	// Marker is CheckedMarker or UncheckedMarker, kept in sync with
	// Checked.
	Marker byte

	// Index is the item's position in its column, computed on
	// hydration.
	Index int

	// Meta is the full front matter of the backing file. Opaque keys
	// pass through saves untouched.
	Meta frontmatter.Frontmatter

	// ParentID mirrors the front-matter parent_id value; nil when the
	// field is absent.
	ParentID any

	// File is the back-reference to the backing file, relative to the
	// board root ("Todo/Ship release.md"). Empty for items created in
	// memory that have not been saved yet. Never written to front
	// matter.
	File string

	// Body is the text after the front-matter block as loaded. Kept in
	// memory only; the save path does not re-emit it.
	Body string
}

// NewItem creates an unchecked in-memory item with no backing file.
// The next save assigns one.
func NewItem(title string) *Item {
	return &Item{
		ID:          uuid.NewString(),
		Title:       title,
		SearchTitle: strings.ToLower(title),
		Marker:      UncheckedMarker,
		Meta:        frontmatter.Frontmatter{},
	}
}

// NewColumn creates an empty in-memory column. Saving creates its
// directory.
func NewColumn(title string) *Column {
	return &Column{
		ID:    uuid.NewString(),
		Title: title,
	}
}

// NewPlaceholder creates an empty board shell carrying only the title.
// It stands in while a full hydration runs in the background.
func NewPlaceholder(title string) *Board {
	return &Board{
		ID:       uuid.NewString(),
		Title:    title,
		Meta:     frontmatter.Frontmatter{},
		Settings: frontmatter.Frontmatter{},
	}
}

// SetChecked updates the checked state and marker together.
func (it *Item) SetChecked(checked bool) {
	it.Checked = checked

	if checked {
		it.Marker = CheckedMarker
	} else {
		it.Marker = UncheckedMarker
	}
}

// FileName returns the base name (without extension) of the item's
// backing file, or "" for unsaved items.
func (it *Item) FileName() string {
	if it.File == "" {
		return ""
	}

	return strings.TrimSuffix(filepath.Base(it.File), markdownExt)
}

// Column returns the column with the given title, or nil.
func (b *Board) Column(title string) *Column {
	for _, col := range b.Columns {
		if col.Title == title {
			return col
		}
	}

	return nil
}

// AddColumn returns the column with the given title, creating it in
// memory if absent. The directory appears on the next save.
func (b *Board) AddColumn(title string) *Column {
	if col := b.Column(title); col != nil {
		return col
	}

	col := NewColumn(title)
	b.Columns = append(b.Columns, col)
	sortColumns(b.Columns)

	return col
}

// Item returns the item in the column whose file base name matches, or
// whose title matches if no file name does. Nil if not found.
func (c *Column) Item(name string) *Item {
	for _, it := range c.Items {
		if it.FileName() == name {
			return it
		}
	}

	for _, it := range c.Items {
		if it.Title == name {
			return it
		}
	}

	return nil
}

// Add appends an item to the column.
func (c *Column) Add(it *Item) {
	c.Items = append(c.Items, it)
}

// Remove drops the item from the column. Reports whether it was
// present. The backing file, if any, becomes an orphan deleted on the
// next save.
func (c *Column) Remove(it *Item) bool {
	for i, have := range c.Items {
		if have == it {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)

			return true
		}
	}

	return false
}

// Move transfers an item from its current column to the column titled
// target, creating that column in memory if needed. Reports whether the
// item was found.
func (b *Board) Move(it *Item, target string) bool {
	for _, col := range b.Columns {
		if col.Title == target {
			continue
		}

		if col.Remove(it) {
			b.AddColumn(target).Add(it)

			return true
		}
	}

	// Already in the target column.
	if col := b.Column(target); col != nil {
		for _, have := range col.Items {
			if have == it {
				return true
			}
		}
	}

	return false
}

// lessTitle orders titles the way the hydrator sorts columns and items:
// case-folded comparison first, byte order as the tiebreak.
func lessTitle(a, b string) bool {
	af, bf := strings.ToLower(a), strings.ToLower(b)
	if af != bf {
		return af < bf
	}

	return a < b
}

func sortColumns(cols []*Column) {
	sort.SliceStable(cols, func(i, j int) bool {
		return lessTitle(cols[i].Title, cols[j].Title)
	})
}

func sortItems(items []*Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return lessTitle(items[i].Title, items[j].Title)
	})
}

// enrich fills the computed fields (indices and counts) after the
// columns and items are assembled and sorted. Runs on every hydration
// before the board becomes authoritative.
func enrich(b *Board) {
	total := 0

	for ci, col := range b.Columns {
		col.Index = ci

		for ii, it := range col.Items {
			it.Index = ii
		}

		total += len(col.Items)
	}

	b.ItemCount = total
}
