package board

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"kb/internal/fs"
)

const markdownExt = ".md"

// maxNameProbes bounds the collision probe loop.
const maxNameProbes = 10_000

var errNameSpaceExhausted = errors.New("no free file name after 10000 probes")

// ValidColumnName reports whether a column title can serve as a
// directory name directly under the board root. Path separators would
// land the directory outside the root, and a leading dot makes it a
// hidden entry that Load skips.
func ValidColumnName(title string) bool {
	if title == "" || strings.HasPrefix(title, ".") {
		return false
	}

	return !strings.ContainsAny(title, "/\\\x00")
}

// sanitizeName reduces a title to a safe file base name: letters,
// digits, spaces, underscores and hyphens survive, everything else is
// dropped. An empty result becomes "untitled".
func sanitizeName(title string) string {
	var b strings.Builder

	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == ' ', r == '_', r == '-':
			b.WriteRune(r)
		}
	}

	name := strings.TrimSpace(b.String())
	if name == "" {
		return "untitled"
	}

	return name
}

// claims tracks file names handed out during one save cycle. Item saves
// run concurrently; without the registry two new items with the same
// title could probe the same free name and overwrite each other.
type claims struct {
	mu    sync.Mutex
	taken map[string]map[string]struct{}
}

func newClaims() *claims {
	return &claims{taken: make(map[string]map[string]struct{})}
}

func (c *claims) has(dir, name string) bool {
	_, ok := c.taken[dir][name]

	return ok
}

func (c *claims) reserve(dir, name string) {
	if c.taken[dir] == nil {
		c.taken[dir] = make(map[string]struct{})
	}

	c.taken[dir][name] = struct{}{}
}

// allocate picks the first file name in dir that is neither on disk nor
// already reserved this cycle, probing <base>.md, <base>_1.md,
// <base>_2.md and so on. The winning name is reserved before returning.
// base must already be sanitized (or be an existing file's base name).
func allocate(fsys fs.FS, cl *claims, dir, base string) (string, error) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	for n := 0; n < maxNameProbes; n++ {
		name := base + markdownExt
		if n > 0 {
			name = fmt.Sprintf("%s_%d%s", base, n, markdownExt)
		}

		if cl.has(dir, name) {
			continue
		}

		exists, err := fsys.Exists(filepath.Join(dir, name))
		if err != nil {
			return "", fmt.Errorf("probing %s: %w", filepath.Join(dir, name), err)
		}

		if exists {
			continue
		}

		cl.reserve(dir, name)

		return name, nil
	}

	return "", errNameSpaceExhausted
}
