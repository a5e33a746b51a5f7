package i18n

import (
	"testing"
	"testing/fstest"
)

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want Language
		ok   bool
	}{
		{"english", English, true},
		{"Yoruba", Yoruba, true},
		{"  IGBO ", Igbo, true},
		{"ha", Hausa, true},
		{"yo-NG", Yoruba, true},
		{"en-GB", English, true},
		{"fr", "", false},
		{"", "", false},
		{"klingon", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseLanguage(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLanguage(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestOrDefault(t *testing.T) {
	if got := Language("").OrDefault(); got != English {
		t.Errorf("empty language = %q, want english", got)
	}
	if got := Hausa.OrDefault(); got != Hausa {
		t.Errorf("hausa = %q", got)
	}
}

func TestTranslate(t *testing.T) {
	tr := DefaultTranslator()

	if got := tr.T("option_yes", Yoruba); got != "Bẹ́ẹ̀ ni" {
		t.Errorf("yoruba option_yes = %q", got)
	}
	if got := tr.T("message_report_submitted", English, "GBV-1-ABC"); got != "Thank you. Your report has been submitted. Your Reference ID is: GBV-1-ABC." {
		t.Errorf("placeholder substitution = %q", got)
	}
	// Not translated in Hausa, falls back to English.
	if got := tr.T("message_media_received", Hausa); got != tr.T("message_media_received", English) {
		t.Errorf("fallback = %q", got)
	}
	if got := tr.T("prompt_name", ""); got != tr.T("prompt_name", English) {
		t.Errorf("unset language = %q", got)
	}
	if got := tr.T("no_such_key", Igbo); got != "Untranslated: no_such_key" {
		t.Errorf("missing key = %q", got)
	}
}

func TestEveryCatalogKeyExistsInEnglish(t *testing.T) {
	tr := DefaultTranslator()
	for _, lang := range Languages() {
		for key := range tr.messages[lang] {
			if !tr.Has(key, English) {
				t.Errorf("%s key %q has no English source", lang, key)
			}
		}
	}
}

func TestLoadFSRequiresDefault(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/yo.yaml": {Data: []byte("locale: yo\nmessages:\n  option_yes: \"Bẹ́ẹ̀ ni\"\n")},
	}
	if _, err := LoadFS(fsys); err == nil {
		t.Fatal("LoadFS() accepted catalogs without English")
	}
}

func TestLoadFSRejectsUnknownLocale(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en.yaml": {Data: []byte("locale: en\nmessages:\n  option_yes: \"Yes\"\n")},
		"locales/fr.yaml": {Data: []byte("locale: fr\nmessages:\n  option_yes: \"Oui\"\n")},
	}
	if _, err := LoadFS(fsys); err == nil {
		t.Fatal("LoadFS() accepted an unsupported locale")
	}
}
