package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var embeddedLocales embed.FS

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Translator looks up localized strings with English fallback.
type Translator struct {
	messages map[Language]map[string]string
}

var defaultTranslator = mustLoadEmbedded()

// DefaultTranslator returns the translator built from the embedded catalogs.
func DefaultTranslator() *Translator {
	return defaultTranslator
}

// LoadEmbedded loads the catalogs compiled into the binary.
func LoadEmbedded() (*Translator, error) {
	return LoadFS(embeddedLocales)
}

// LoadFS loads every locales/*.yaml file from fsys.
func LoadFS(fsys fs.FS) (*Translator, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	t := &Translator{messages: map[Language]map[string]string{}}
	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
		lang, ok := ParseLanguage(file.Locale)
		if !ok {
			return nil, fmt.Errorf("catalog %s: unsupported locale %q", path, file.Locale)
		}
		if _, exists := t.messages[lang]; exists {
			return nil, fmt.Errorf("catalog %s: locale %q defined twice", path, file.Locale)
		}
		if len(file.Messages) == 0 {
			return nil, fmt.Errorf("catalog %s: messages map is required", path)
		}
		t.messages[lang] = file.Messages
	}

	if _, ok := t.messages[Default]; !ok {
		return nil, fmt.Errorf("default language %s has no catalog", Default)
	}
	return t, nil
}

// T returns the message for key in lang, falling back to the default
// language and finally to a visibly marked placeholder. Positional
// placeholders {0}, {1}, ... are replaced by args.
func (t *Translator) T(key string, lang Language, args ...string) string {
	msg, ok := t.lookup(key, lang.OrDefault())
	if !ok {
		return "Untranslated: " + key
	}
	for i, arg := range args {
		msg = strings.ReplaceAll(msg, "{"+strconv.Itoa(i)+"}", arg)
	}
	return msg
}

// Has reports whether key is translated in lang without fallback.
func (t *Translator) Has(key string, lang Language) bool {
	_, ok := t.messages[lang][key]
	return ok
}

func (t *Translator) lookup(key string, lang Language) (string, bool) {
	if t == nil {
		return "", false
	}
	if msg, ok := t.messages[lang][key]; ok {
		return msg, true
	}
	if lang != Default {
		msg, ok := t.messages[Default][key]
		return msg, ok
	}
	return "", false
}

func mustLoadEmbedded() *Translator {
	t, err := LoadEmbedded()
	if err != nil {
		panic(err)
	}
	return t
}
