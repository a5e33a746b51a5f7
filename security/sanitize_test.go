package security

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain", "Near the market", "Near the market"},
		{"tags", "<b>Kubwa</b> <script>x</script>", "Kubwa x"},
		{"trim", "  2 days ago \n", "2 days ago"},
		{"keeps newline and tab", "line one\nline\ttwo", "line one\nline\ttwo"},
		{"control chars", "a\x00b\x07c\x1b", "abc"},
		{"no escaping", "Tom & Jerry's \"place\"", "Tom & Jerry's \"place\""},
		{"lone bracket", "age < 18", "age < 18"},
		{"non latin", "Ọjà Ọba", "Ọjà Ọba"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeText(tt.in); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeTextCapsLength(t *testing.T) {
	got := SanitizeText(strings.Repeat("ẹ", MaxTextLength+50))
	if n := utf8.RuneCountInString(got); n != MaxTextLength {
		t.Errorf("length = %d, want %d", n, MaxTextLength)
	}
}
