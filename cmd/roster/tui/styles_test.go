package tui

import (
	"strings"
	"testing"
)

func TestRepeatChar(t *testing.T) {
	tests := []struct {
		char     rune
		n        int
		expected string
	}{
		{'a', 0, ""},
		{'a', -1, ""},
		{'a', 1, "a"},
		{'a', 5, "aaaaa"},
		{'─', 3, "───"},
		{' ', 4, "    "},
	}

	for _, tt := range tests {
		result := repeatChar(tt.char, tt.n)
		if result != tt.expected {
			t.Errorf("repeatChar(%q, %d) = %q, want %q", tt.char, tt.n, result, tt.expected)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s        string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"exact_len", 9, "exact_len"},
		{"a fairly long description", 10, "a fairl..."},
		{"abc", 3, "abc"},
		{"abcd", 3, "abc"},
		{"abcdef", 5, "ab..."},
	}

	for _, tt := range tests {
		result := truncate(tt.s, tt.maxLen)
		if result != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.s, tt.maxLen, result, tt.expected)
		}
		if len(result) > tt.maxLen {
			t.Errorf("truncate(%q, %d) result length %d exceeds maxLen", tt.s, tt.maxLen, len(result))
		}
	}
}

func TestPadRight(t *testing.T) {
	tests := []struct {
		s        string
		width    int
		expected string
	}{
		{"abc", 5, "abc  "},
		{"abc", 3, "abc"},
		{"abcdef", 3, "abcdef"},
		{"", 2, "  "},
	}

	for _, tt := range tests {
		result := padRight(tt.s, tt.width)
		if result != tt.expected {
			t.Errorf("padRight(%q, %d) = %q, want %q", tt.s, tt.width, result, tt.expected)
		}
	}
}

func TestCenter(t *testing.T) {
	tests := []struct {
		s     string
		width int
	}{
		{"abc", 9},
		{"abc", 10},
		{"abc", 3},
		{"abcdef", 3},
	}

	for _, tt := range tests {
		result := center(tt.s, tt.width)
		if !strings.Contains(result, tt.s) {
			t.Errorf("center(%q, %d) = %q, does not contain input", tt.s, tt.width, result)
		}
		if len(tt.s) < tt.width && len(result) != tt.width {
			t.Errorf("center(%q, %d) length = %d, want %d", tt.s, tt.width, len(result), tt.width)
		}
	}
}

func TestWordWrap(t *testing.T) {
	tests := []struct {
		s     string
		width int
	}{
		{"a quick brown fox jumps over the lazy dog", 15},
		{"single", 20},
		{"", 10},
	}

	for _, tt := range tests {
		result := wordWrap(tt.s, tt.width)
		for _, line := range strings.Split(result, "\n") {
			if len(line) > tt.width {
				t.Errorf("wordWrap(%q, %d) produced line %q longer than width", tt.s, tt.width, line)
			}
		}
	}
}
