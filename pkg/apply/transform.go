package apply

import (
	"strings"
	"unicode"

	"github.com/odvcencio/stitch/pkg/patch"
)

// taggedLine is one entry of a transform sequence, remembering whether it
// came from a context line (so trimming knows what it may drop).
type taggedLine struct {
	text    string
	context bool
}

// hunkTransform is the matchable form of one hunk: the lines the buffer
// must contain (context + deletions), the lines that replace them
// (context + additions), and the trailing-newline facts the hunk states
// about either side. False pointers mean "that side ends without a
// newline"; nil means the hunk says nothing.
type hunkTransform struct {
	expected    []taggedLine
	replacement []taggedLine

	expectedTrailingNewline    *bool
	replacementTrailingNewline *bool

	oldRange *patch.Range
	newRange *patch.Range

	leadingContext  int
	trailingContext int
}

func newHunkTransform(h *patch.Hunk) *hunkTransform {
	t := &hunkTransform{oldRange: h.OldRange, newRange: h.NewRange}

	f := false
	var lastSignificant patch.LineKind
	seen := false
	for _, l := range h.Lines {
		switch l.Kind {
		case patch.LineContext:
			t.expected = append(t.expected, taggedLine{text: l.Text, context: true})
			t.replacement = append(t.replacement, taggedLine{text: l.Text, context: true})
		case patch.LineDeletion:
			t.expected = append(t.expected, taggedLine{text: l.Text})
		case patch.LineAddition:
			t.replacement = append(t.replacement, taggedLine{text: l.Text})
		case patch.LineNoNewline:
			// The marker talks about the old side when it follows a
			// deletion, the new side otherwise.
			if seen && lastSignificant == patch.LineDeletion {
				t.expectedTrailingNewline = &f
			} else {
				t.replacementTrailingNewline = &f
			}
			continue
		}
		lastSignificant = l.Kind
		seen = true
	}

	for i := 0; i < len(h.Lines) && h.Lines[i].Kind == patch.LineContext; i++ {
		t.leadingContext++
	}
	for i := len(h.Lines) - 1; i >= 0; i-- {
		k := h.Lines[i].Kind
		if k == patch.LineNoNewline {
			continue
		}
		if k != patch.LineContext {
			break
		}
		t.trailingContext++
	}
	// A hunk of pure context would double-count every line.
	if t.leadingContext+t.trailingContext > len(t.expected) {
		t.trailingContext = len(t.expected) - t.leadingContext
	}
	return t
}

// trimVariant removes leading and trailing pure-context entries from both
// sequences, loosening the anchor under a context tolerance.
type trimVariant struct {
	leading  int
	trailing int
}

// variants enumerates the trim variants permitted by tolerance, ordered
// by ascending total trim, ties broken by smaller leading trim. The
// ordering governs observable matching behavior and must not change.
func (t *hunkTransform) variants(tolerance int) []trimVariant {
	var out []trimVariant
	for total := 0; total <= tolerance; total++ {
		for leading := 0; leading <= total; leading++ {
			trailing := total - leading
			if leading > t.leadingContext || trailing > t.trailingContext {
				continue
			}
			out = append(out, trimVariant{leading: leading, trailing: trailing})
		}
	}
	return out
}

func trim(seq []taggedLine, v trimVariant) []taggedLine {
	return seq[v.leading : len(seq)-v.trailing]
}

// lineEqual returns the equality predicate for a whitespace mode. The
// predicate is symmetric in its arguments.
func lineEqual(mode Whitespace) func(a, b string) bool {
	switch mode {
	case WhitespaceIgnoreAll:
		return func(a, b string) bool {
			return stripSpace(a) == stripSpace(b)
		}
	default:
		return func(a, b string) bool { return a == b }
	}
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func matchesAt(lines []string, expected []taggedLine, at int, eq func(a, b string) bool) bool {
	for i, e := range expected {
		if !eq(lines[at+i], e.text) {
			return false
		}
	}
	return true
}

// locate finds the buffer index a variant's expected sequence anchors at.
//
//  1. An empty expected sequence is a pure insertion: the index comes
//     from the new range when present, clamped into the buffer.
//  2. With an old range, the header's line number is tried first and, on
//     a match, accepted immediately. This is the disambiguator between
//     otherwise-identical runs and must pre-empt the scan.
//  3. Otherwise every position is scanned: exactly one match anchors the
//     hunk, several are an ambiguity error, none falls through to the
//     next variant.
//
// The bool result distinguishes "no match here, try the next variant"
// from a hard error.
func (t *hunkTransform) locate(lines []string, v trimVariant, eq func(a, b string) bool) (int, bool, error) {
	expected := trim(t.expected, v)
	n := len(lines)

	if len(expected) == 0 {
		if t.newRange != nil {
			return clamp(t.newRange.Start-1, 0, n), true, nil
		}
		return n, true, nil
	}

	if len(expected) > n {
		return 0, false, nil
	}

	if t.oldRange != nil {
		candidate := clamp(t.oldRange.Start-1, 0, n-len(expected))
		if matchesAt(lines, expected, candidate, eq) {
			return candidate, true, nil
		}
	}

	found := -1
	for i := 0; i+len(expected) <= n; i++ {
		if !matchesAt(lines, expected, i, eq) {
			continue
		}
		if found >= 0 {
			return 0, false, patch.Validationf("ambiguous hunk match")
		}
		found = i
	}
	if found < 0 {
		return 0, false, nil
	}
	return found, true, nil
}

// applyTo anchors the hunk in b and performs the edit. Variants are tried
// in their fixed order; exhausting them is a context mismatch.
func (t *hunkTransform) applyTo(b *buffer, tolerance int, eq func(a, b string) bool) error {
	for _, v := range t.variants(tolerance) {
		index, ok, err := t.locate(b.lines, v, eq)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		expected := trim(t.expected, v)
		replacement := trim(t.replacement, v)

		origLen := len(b.lines)
		matchTouchedEnd := index+len(expected) == origLen

		repl := make([]string, len(replacement))
		for i, r := range replacement {
			repl[i] = r.text
		}
		b.splice(index, len(expected), repl)

		replacementTouchesEnd := index+len(repl) == len(b.lines)
		switch {
		case replacementTouchesEnd && t.replacementTrailingNewline != nil:
			b.hasTrailingNewline = *t.replacementTrailingNewline
		case t.expectedTrailingNewline != nil && matchTouchedEnd:
			// The old file ended without a newline at the matched lines;
			// once they are replaced the file ends in one again.
			b.hasTrailingNewline = true
		}
		return nil
	}
	return patch.Validationf("context mismatch")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
