// Package security cleans untrusted text before it reaches the dialogue.
package security

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxTextLength caps a single inbound text body, in runes.
const MaxTextLength = 4096

var tagPattern = regexp.MustCompile(`<[^<>]*>`)

// SanitizeText strips HTML tags and control characters other than
// newline and tab, trims surrounding space and caps the length.
// Text is not escaped: it is stored as data and sent back as plain
// WhatsApp text.
func SanitizeText(input string) string {
	cleaned := tagPattern.ReplaceAllString(input, "")

	cleaned = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, cleaned)

	cleaned = strings.TrimSpace(cleaned)

	if r := []rune(cleaned); len(r) > MaxTextLength {
		cleaned = strings.TrimSpace(string(r[:MaxTextLength]))
	}
	return cleaned
}
