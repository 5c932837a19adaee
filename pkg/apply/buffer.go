// Package apply locates the hunks of a validated plan inside file
// contents and mutates a store to carry out each directive.
package apply

import (
	"strings"
	"unicode/utf8"

	"github.com/odvcencio/stitch/pkg/patch"
)

// buffer is the working representation of one file: its lines without
// terminators, plus whether the encoded form ends in a newline. A buffer
// lives for the duration of one directive.
type buffer struct {
	lines              []string
	hasTrailingNewline bool
}

// loadBuffer decodes raw file contents. Contents must be UTF-8; a file
// that is non-empty and lacks a final newline keeps its last partial
// line, recorded in hasTrailingNewline.
func loadBuffer(path string, data []byte) (*buffer, error) {
	if !utf8.Valid(data) {
		return nil, patch.IOf("file %q is not valid UTF-8", path)
	}
	s := string(data)
	if s == "" {
		return &buffer{hasTrailingNewline: true}, nil
	}
	b := &buffer{hasTrailingNewline: strings.HasSuffix(s, "\n")}
	if b.hasTrailingNewline {
		s = s[:len(s)-1]
	}
	b.lines = strings.Split(s, "\n")
	return b, nil
}

// encode is the inverse of loadBuffer.
func (b *buffer) encode() []byte {
	if len(b.lines) == 0 {
		return []byte{}
	}
	out := strings.Join(b.lines, "\n")
	if b.hasTrailingNewline {
		out += "\n"
	}
	return []byte(out)
}

// splice deletes count lines at index and inserts repl in their place.
func (b *buffer) splice(index, count int, repl []string) {
	out := make([]string, 0, len(b.lines)-count+len(repl))
	out = append(out, b.lines[:index]...)
	out = append(out, repl...)
	out = append(out, b.lines[index+count:]...)
	b.lines = out
}
