package board

import (
	kbfs "kb/internal/fs"
)

// Exported for tests.
var (
	SanitizeName = sanitizeName
	LessTitle    = lessTitle
	HeadingText  = headingText
)

// AllocateNames runs the file-name allocator for a sequence of base
// names sharing one claims registry, the way a single save cycle does.
func AllocateNames(fsys kbfs.FS, dir string, bases ...string) ([]string, error) {
	cl := newClaims()
	names := make([]string, 0, len(bases))

	for _, base := range bases {
		name, err := allocate(fsys, cl, dir, base)
		if err != nil {
			return nil, err
		}

		names = append(names, name)
	}

	return names, nil
}
