package apply

import "testing"

// Test 1: Octal mode strings parse down to their low 12 bits.
func TestParseFileMode(t *testing.T) {
	tests := []struct {
		in   string
		want uint32
		ok   bool
	}{
		{"100644", 0o644, true},
		{"100755", 0o755, true},
		{"0644", 0o644, true},
		{"  755  ", 0o755, true},
		{"10 0755", 0o755, true}, // embedded spaces removed
		{"4755", 0o4755, true},
		{"", 0, false},
		{"not-a-mode", 0, false},
		{"8888", 0, false}, // not octal
	}

	for _, tc := range tests {
		got, ok := parseFileMode(tc.in)
		if ok != tc.ok {
			t.Errorf("parseFileMode(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("parseFileMode(%q) = %o, want %o", tc.in, got, tc.want)
		}
	}
}
