package main

import "testing"

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"a very long title that needs cutting", 20, "a very long title..."},
	}

	for _, tt := range tests {
		if got := truncateString(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}

func TestFormatAuthorsShort(t *testing.T) {
	tests := []struct {
		name    string
		authors []string
		want    string
	}{
		{"none", nil, ""},
		{"one", []string{"Ada Lovelace"}, "Ada Lovelace"},
		{"at limit", []string{"A", "B", "C"}, "A, B, C"},
		{"over limit", []string{"A", "B", "C", "D"}, "A, B, C, et al."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatAuthorsShort(tt.authors, 3); got != tt.want {
				t.Errorf("formatAuthorsShort = %q, want %q", got, tt.want)
			}
		})
	}
}
