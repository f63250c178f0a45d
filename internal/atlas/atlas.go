// internal/atlas/atlas.go
//
// Repository over the country/language dataset used by the game engine.
//
// Responsibilities:
//   - Ingest tabular (country, language-list) data from CSV.
//   - Derive rarity scores from language frequency across countries.
//   - Provide case-insensitive lookups for countries and languages,
//     plus a punctuation-tolerant country lookup used by the move command.
//
// Ingestion rules:
//   - The header row must contain "Country" and "Language" columns
//     (matched case-insensitively); missing either is a fatal error.
//   - A language cell may hold several languages separated by comma,
//     semicolon, or pipe. Languages are trimmed, lowercased, and deduped
//     per country before counting.
//   - Rarity score: max(1, ceil(10 / (frequency + 1))). A language spoken
//     by a single country scores 5; very common languages bottom out at 1.
//
// The repository is read-only once built and safe for concurrent readers.

package atlas

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/lingotrail/go-server/assets"
)

// ErrMissingColumns is returned when the CSV header lacks the required
// "Country" or "Language" column.
var ErrMissingColumns = errors.New(`atlas: data must contain "Country" and "Language" columns`)

var langSeparators = regexp.MustCompile(`[,;|]`)

// Repository holds the full universe of countries and languages.
// Built once from ingested data; read-only afterwards.
type Repository struct {
	countries map[string]*Country  // keyed by Country.Key()
	languages map[string]*Language // keyed by Language.Key()
	flexIndex map[string]*Country  // keyed by flexKey(name)
}

// Load builds a Repository from CSV data.
func Load(r io.Reader) (*Repository, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("atlas: read header: %w", err)
	}

	countryIdx, langIdx := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "country":
			countryIdx = i
		case "language":
			langIdx = i
		}
	}
	if countryIdx < 0 || langIdx < 0 {
		return nil, ErrMissingColumns
	}

	// First pass over rows: language frequency plus per-country language keys.
	langFrequency := make(map[string]int)
	countryLangs := make(map[string][]string) // country name -> deduped language keys
	var countryNames []string                 // preserves input order for deterministic iteration

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("atlas: read row: %w", err)
		}
		if countryIdx >= len(row) || langIdx >= len(row) {
			continue
		}
		name := strings.TrimSpace(row[countryIdx])
		if name == "" {
			continue
		}

		seen := make(map[string]struct{})
		var langs []string
		for _, raw := range langSeparators.Split(row[langIdx], -1) {
			lang := strings.ToLower(strings.TrimSpace(raw))
			if lang == "" {
				continue
			}
			if _, dup := seen[lang]; dup {
				continue
			}
			seen[lang] = struct{}{}
			langs = append(langs, lang)
			langFrequency[lang]++
		}
		if _, dup := countryLangs[name]; !dup {
			countryNames = append(countryNames, name)
		}
		countryLangs[name] = langs
	}

	repo := &Repository{
		countries: make(map[string]*Country, len(countryLangs)),
		languages: make(map[string]*Language, len(langFrequency)),
		flexIndex: make(map[string]*Country, len(countryLangs)),
	}

	for lang, freq := range langFrequency {
		repo.languages[lang] = &Language{Name: lang, RarityScore: rarityScore(freq)}
	}

	for _, name := range countryNames {
		var langs []*Language
		for _, key := range countryLangs[name] {
			if l, ok := repo.languages[key]; ok {
				langs = append(langs, l)
			}
		}
		c := NewCountry(name, langs)
		repo.countries[c.Key()] = c
		repo.flexIndex[flexKey(name)] = c
	}

	return repo, nil
}

// LoadFile builds a Repository from a CSV file on disk.
func LoadFile(path string) (*Repository, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("atlas: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Default builds a Repository from the embedded dataset, unless the
// ATLAS_FILE environment variable points at a CSV file to use instead.
func Default() (*Repository, error) {
	if path := os.Getenv("ATLAS_FILE"); path != "" {
		return LoadFile(path)
	}
	r, err := assets.CountriesCSV()
	if err != nil {
		return nil, err
	}
	return Load(r)
}

// rarityScore maps a language's country frequency to its score.
// Integer form of max(1, ceil(10 / (freq + 1))).
func rarityScore(freq int) int {
	score := (10 + freq) / (freq + 1)
	if score < 1 {
		score = 1
	}
	return score
}

// flexKey normalizes a country name for tolerant matching:
// lowercase, punctuation stripped, whitespace collapsed to single spaces.
func flexKey(name string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		case r == ' ' || r == '\t' || r == '-' || r == '_':
			// hyphens count as word breaks
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		default:
			// other punctuation is dropped
		}
	}
	return strings.TrimSpace(b.String())
}

// Language looks up a language by name, case-insensitively.
// Returns nil if not found.
func (r *Repository) Language(name string) *Language {
	return r.languages[strings.ToLower(strings.TrimSpace(name))]
}

// Country looks up a country by name, case-insensitively.
// Returns nil if not found.
func (r *Repository) Country(name string) *Country {
	return r.countries[strings.ToLower(strings.TrimSpace(name))]
}

// CountryFlexible looks up a country tolerating minor input variation
// (stray punctuation, extra spaces, mixed case). Exact match wins first.
func (r *Repository) CountryFlexible(name string) *Country {
	if c := r.Country(name); c != nil {
		return c
	}
	return r.flexIndex[flexKey(name)]
}

// Countries returns all countries sorted by name.
func (r *Repository) Countries() []*Country {
	out := make([]*Country, 0, len(r.countries))
	for _, c := range r.countries {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Languages returns all languages sorted by name.
func (r *Repository) Languages() []*Language {
	out := make([]*Language, 0, len(r.languages))
	for _, l := range r.languages {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Stats returns counts of loaded entities: (countries, languages).
func (r *Repository) Stats() (countryCount, languageCount int) {
	return len(r.countries), len(r.languages)
}
