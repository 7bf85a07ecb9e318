// Package frontmatter splits markdown documents into a YAML front matter
// mapping and a body, and serializes a mapping back into a front matter
// block.
//
// A front matter block is delimited by lines containing exactly "---":
//
//	---
//	title: Example
//	tags: [a, b]
//	---
//	Body text here.
//
// Parsing is full YAML via gopkg.in/yaml.v3 so arbitrary user metadata
// (nested mappings, sequences, multiline strings) survives a read/write
// round trip. Serialization is deterministic: the "id" key first, all
// remaining keys in alphabetical order.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Delimiter is the line that opens and closes a front matter block.
const Delimiter = "---"

var (
	// ErrUnterminated is returned when an opening delimiter has no
	// matching closing delimiter before end of input.
	ErrUnterminated = errors.New("unterminated front matter block")

	// ErrNotMapping is returned when the block's YAML is valid but is
	// not a key/value mapping at the top level.
	ErrNotMapping = errors.New("front matter is not a mapping")
)

// Frontmatter is a parsed front matter mapping.
//
// Values are the types yaml.v3 produces for untyped decoding: string,
// bool, int, float64, []any, map[string]any, time.Time, or nil.
type Frontmatter map[string]any

// String returns the value for key if it is a string.
func (fm Frontmatter) String(key string) (string, bool) {
	s, ok := fm[key].(string)

	return s, ok
}

// Bool returns the value for key if it is a bool.
func (fm Frontmatter) Bool(key string) (bool, bool) {
	b, ok := fm[key].(bool)

	return b, ok
}

// Has reports whether key is present, including keys with null values.
func (fm Frontmatter) Has(key string) bool {
	_, ok := fm[key]

	return ok
}

// Clone returns a copy of the mapping with its own top-level key set.
// Nested values are shared; callers add and remove top-level keys only.
func (fm Frontmatter) Clone() Frontmatter {
	out := make(Frontmatter, len(fm))
	for k, v := range fm {
		out[k] = v
	}

	return out
}

// Parse splits src into front matter and body.
//
// Input without an opening delimiter on the first line has no front
// matter: Parse returns an empty mapping and src unchanged. An opening
// delimiter without a closing one is ErrUnterminated. Invalid YAML or a
// non-mapping block is an error. The returned body is the raw bytes
// following the closing delimiter line.
func Parse(src []byte) (Frontmatter, []byte, error) {
	rest, ok := openingDelimiter(src)
	if !ok {
		return Frontmatter{}, src, nil
	}

	block, body, found := closingDelimiter(rest)
	if !found {
		return nil, nil, ErrUnterminated
	}

	if len(bytes.TrimSpace(block)) == 0 {
		return Frontmatter{}, body, nil
	}

	var raw any

	if err := yaml.Unmarshal(block, &raw); err != nil {
		return nil, nil, fmt.Errorf("parsing front matter: %w", err)
	}

	switch m := raw.(type) {
	case nil:
		return Frontmatter{}, body, nil
	case map[string]any:
		return Frontmatter(m), body, nil
	default:
		return nil, nil, ErrNotMapping
	}
}

// Marshal serializes fm into a front matter block, delimiters included,
// ending with a trailing newline after the closing delimiter.
//
// Key order is deterministic: "id" first when present, then all other
// keys alphabetically. An empty mapping still produces a block.
func Marshal(fm Frontmatter) ([]byte, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}

	for _, key := range orderedKeys(fm) {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}

		valNode, err := encodeValue(fm[key])
		if err != nil {
			return nil, fmt.Errorf("encoding front matter key %q: %w", key, err)
		}

		node.Content = append(node.Content, keyNode, valNode)
	}

	var buf bytes.Buffer

	buf.WriteString(Delimiter)
	buf.WriteByte('\n')

	if len(node.Content) > 0 {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)

		if err := enc.Encode(node); err != nil {
			return nil, fmt.Errorf("encoding front matter: %w", err)
		}

		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encoding front matter: %w", err)
		}
	}

	buf.WriteString(Delimiter)
	buf.WriteByte('\n')

	return buf.Bytes(), nil
}

// encodeValue converts a Go value into a YAML node. Explicit nulls are
// preserved so keys like parent_id serialize as "parent_id: null".
func encodeValue(v any) (*yaml.Node, error) {
	if v == nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	}

	node := &yaml.Node{}
	if err := node.Encode(v); err != nil {
		return nil, err
	}

	return node, nil
}

// orderedKeys returns fm's keys with "id" hoisted to the front and the
// remainder sorted alphabetically.
func orderedKeys(fm Frontmatter) []string {
	keys := make([]string, 0, len(fm))

	for k := range fm {
		if k == "id" {
			continue
		}

		keys = append(keys, k)
	}

	sort.Strings(keys)

	if fm.Has("id") {
		keys = append([]string{"id"}, keys...)
	}

	return keys
}

// openingDelimiter reports whether src starts with a delimiter line and
// returns the bytes after it.
func openingDelimiter(src []byte) ([]byte, bool) {
	line, rest, found := bytes.Cut(src, []byte("\n"))
	if !found {
		return nil, false
	}

	if strings.TrimRight(string(line), "\r") != Delimiter {
		return nil, false
	}

	return rest, true
}

// closingDelimiter scans for the closing delimiter line and splits the
// input into the YAML block and the remaining body.
func closingDelimiter(src []byte) (block, body []byte, found bool) {
	offset := 0

	for offset <= len(src) {
		lineEnd := bytes.IndexByte(src[offset:], '\n')

		var line []byte

		next := len(src)
		if lineEnd >= 0 {
			line = src[offset : offset+lineEnd]
			next = offset + lineEnd + 1
		} else {
			line = src[offset:]
		}

		if strings.TrimRight(string(line), "\r") == Delimiter {
			return src[:offset], src[next:], true
		}

		if lineEnd < 0 {
			break
		}

		offset = next
	}

	return nil, nil, false
}
