// internal/atlas/types.go
//
// Core value types for the country/language dataset.
// Defines:
//   - Language: a named language with a rarity score used by the scoring rules.
//   - Country: a named country with its frozen set of official languages.
//
// Identity for both types is case-insensitive on the name: the lowercase
// name is the canonical key used in every map and set. Both types are
// immutable after construction and live for the whole process.

package atlas

import (
	"sort"
	"strings"
)

// Language is a language together with its rarity score.
// Rarity is fixed at ingestion time (rarer languages score higher).
type Language struct {
	Name        string `json:"name"`
	RarityScore int    `json:"rarityScore"`
}

// Key returns the canonical (lowercase) identity key for the language.
func (l *Language) Key() string { return strings.ToLower(l.Name) }

// Country is a country with the set of languages it speaks.
// The language set is frozen at construction.
type Country struct {
	Name      string
	languages map[string]*Language // keyed by Language.Key()
}

// NewCountry constructs a Country speaking the given languages.
func NewCountry(name string, langs []*Language) *Country {
	c := &Country{Name: name, languages: make(map[string]*Language, len(langs))}
	for _, l := range langs {
		c.languages[l.Key()] = l
	}
	return c
}

// Key returns the canonical (lowercase) identity key for the country.
func (c *Country) Key() string { return strings.ToLower(c.Name) }

// HasLanguage reports whether the country speaks the given language.
func (c *Country) HasLanguage(l *Language) bool {
	if l == nil {
		return false
	}
	_, ok := c.languages[l.Key()]
	return ok
}

// Languages returns the country's languages sorted by name.
// The slice is a fresh copy; the underlying set never changes.
func (c *Country) Languages() []*Language {
	out := make([]*Language, 0, len(c.languages))
	for _, l := range c.languages {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SharedLanguages returns the languages spoken by both countries,
// sorted by name.
func (c *Country) SharedLanguages(other *Country) []*Language {
	var out []*Language
	for k, l := range c.languages {
		if _, ok := other.languages[k]; ok {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
