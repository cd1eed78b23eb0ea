// internal/util/util_test.go
package util

import "testing"

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"shorter than max", "short", 10, "short"},
		{"exactly max", "abcd", 4, "abcd"},
		{"truncated", "abcdefghij", 4, "abcd…"},
		{"multibyte runes", "héllo wörld", 5, "héllo…"},
		{"zero max", "anything", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateRunes(tt.in, tt.max); got != tt.want {
				t.Fatalf("TruncateRunes(%q,%d)=%q want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}
