package apply

import (
	"reflect"
	"testing"

	"github.com/odvcencio/stitch/pkg/patch"
)

// Test 1: Loading and re-encoding common shapes round-trips exactly.
func TestBuffer_RoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		lines    []string
		trailing bool
	}{
		{name: "empty", raw: "", lines: nil, trailing: true},
		{name: "one line", raw: "a\n", lines: []string{"a"}, trailing: true},
		{name: "no trailing newline", raw: "a", lines: []string{"a"}, trailing: false},
		{name: "two lines", raw: "a\nb\n", lines: []string{"a", "b"}, trailing: true},
		{name: "partial last line", raw: "a\nb", lines: []string{"a", "b"}, trailing: false},
		{name: "blank middle line", raw: "a\n\nb\n", lines: []string{"a", "", "b"}, trailing: true},
		{name: "trailing blank line", raw: "a\n\n", lines: []string{"a", ""}, trailing: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, err := loadBuffer("f.txt", []byte(tc.raw))
			if err != nil {
				t.Fatalf("loadBuffer failed: %v", err)
			}
			if !reflect.DeepEqual(b.lines, tc.lines) {
				t.Errorf("lines = %q, want %q", b.lines, tc.lines)
			}
			if b.hasTrailingNewline != tc.trailing {
				t.Errorf("hasTrailingNewline = %v, want %v", b.hasTrailingNewline, tc.trailing)
			}
			if got := string(b.encode()); got != tc.raw {
				t.Errorf("encode = %q, want %q", got, tc.raw)
			}
		})
	}
}

// Test 2: Non-UTF-8 contents are refused as an IO failure.
func TestBuffer_InvalidUTF8(t *testing.T) {
	_, err := loadBuffer("f.bin", []byte{0xff, 0xfe, 0x00})
	if err == nil {
		t.Fatal("expected error for invalid UTF-8")
	}
	if !patch.IsIO(err) {
		t.Errorf("expected io error, got %v", err)
	}
}

// Test 3: splice removes and inserts at the same index.
func TestBuffer_Splice(t *testing.T) {
	b := &buffer{lines: []string{"a", "b", "c", "d"}}
	b.splice(1, 2, []string{"X"})
	want := []string{"a", "X", "d"}
	if !reflect.DeepEqual(b.lines, want) {
		t.Errorf("lines = %q, want %q", b.lines, want)
	}

	b.splice(3, 0, []string{"tail"})
	want = []string{"a", "X", "d", "tail"}
	if !reflect.DeepEqual(b.lines, want) {
		t.Errorf("lines = %q, want %q", b.lines, want)
	}
}
