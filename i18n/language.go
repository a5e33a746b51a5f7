package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

// Language is a conversation language. Its value doubles as the menu
// option id the user picks during language selection.
type Language string

const (
	English Language = "english"
	Yoruba  Language = "yoruba"
	Igbo    Language = "igbo"
	Hausa   Language = "hausa"
)

// Default is used for every prompt sent before a language is chosen.
const Default = English

var supported = []Language{English, Yoruba, Igbo, Hausa}

var tags = map[Language]language.Tag{
	English: language.English,
	Yoruba:  language.MustParse("yo"),
	Igbo:    language.MustParse("ig"),
	Hausa:   language.MustParse("ha"),
}

var displayNames = map[Language]string{
	English: "English",
	Yoruba:  "Yoruba",
	Igbo:    "Igbo",
	Hausa:   "Hausa",
}

var matcher = language.NewMatcher([]language.Tag{
	tags[English], tags[Yoruba], tags[Igbo], tags[Hausa],
})

// Languages returns the supported languages in menu order.
func Languages() []Language {
	out := make([]Language, len(supported))
	copy(out, supported)
	return out
}

// DisplayName is the language's own menu label.
func (l Language) DisplayName() string {
	if name, ok := displayNames[l]; ok {
		return name
	}
	return string(l)
}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	_, ok := tags[l]
	return ok
}

// OrDefault returns l, or Default when l is empty or unsupported.
func (l Language) OrDefault() Language {
	if l.Valid() {
		return l
	}
	return Default
}

// ParseLanguage resolves a menu id ("yoruba"), display name ("Yoruba")
// or BCP 47 tag ("yo-NG") to a supported language.
func ParseLanguage(s string) (Language, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return "", false
	}
	for _, l := range supported {
		if v == string(l) || v == strings.ToLower(displayNames[l]) {
			return l, true
		}
	}

	tag, err := language.Parse(v)
	if err != nil {
		return "", false
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return "", false
	}
	return supported[idx], true
}
