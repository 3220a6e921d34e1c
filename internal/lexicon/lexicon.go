// Package lexicon holds the user-facing texts of the bot, one YAML table per
// language.
package lexicon

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Kerhoff/WishboT/internal/models"
)

//go:embed locales/*.yaml
var locales embed.FS

// Params fill the {name} placeholders of a text.
type Params map[string]string

// Lexicon resolves text keys per language. Keys missing in a language fall
// back to English, and unknown keys render as the key itself.
type Lexicon struct {
	fallback string
	tables   map[string]map[string]string
}

// Load reads the embedded tables.
func Load() (*Lexicon, error) {
	entries, err := locales.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("failed to list lexicon files: %w", err)
	}

	lex := &Lexicon{fallback: models.LanguageEnglish, tables: make(map[string]map[string]string)}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".yaml" {
			continue
		}
		raw, err := locales.ReadFile("locales/" + name)
		if err != nil {
			return nil, fmt.Errorf("failed to read lexicon %s: %w", name, err)
		}
		table := make(map[string]string)
		if err := yaml.Unmarshal(raw, &table); err != nil {
			return nil, fmt.Errorf("failed to parse lexicon %s: %w", name, err)
		}
		lex.tables[strings.TrimSuffix(name, ".yaml")] = table
	}

	if _, ok := lex.tables[lex.fallback]; !ok {
		return nil, fmt.Errorf("lexicon %q is missing", lex.fallback)
	}
	return lex, nil
}

// MustLoad is Load for program start-up.
func MustLoad() *Lexicon {
	lex, err := Load()
	if err != nil {
		panic(err)
	}
	return lex
}

func (l *Lexicon) lookup(lang, key string) (string, bool) {
	if text, ok := l.tables[lang][key]; ok {
		return text, true
	}
	text, ok := l.tables[l.fallback][key]
	return text, ok
}

// Has reports whether key resolves in lang or the fallback language.
func (l *Lexicon) Has(lang, key string) bool {
	_, ok := l.lookup(lang, key)
	return ok
}

// T returns the text for key in lang with placeholders filled from params.
func (l *Lexicon) T(lang, key string, params ...Params) string {
	text, ok := l.lookup(lang, key)
	if !ok {
		return key
	}
	if len(params) == 0 {
		return text
	}

	var pairs []string
	for _, p := range params {
		for name, value := range p {
			pairs = append(pairs, "{"+name+"}", value)
		}
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// Keys lists the keys defined for lang, sorted.
func (l *Lexicon) Keys(lang string) []string {
	keys := make([]string, 0, len(l.tables[lang]))
	for key := range l.tables[lang] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Languages lists the loaded languages, sorted.
func (l *Lexicon) Languages() []string {
	langs := make([]string, 0, len(l.tables))
	for lang := range l.tables {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}
