package assets

import (
	"bytes"
	"embed"
	"io"
)

//go:embed countries.csv
var FS embed.FS

// CountriesCSV returns a reader over the embedded default dataset.
// The file is a two-column CSV (Country, Language); the language column
// lists one or more languages separated by commas inside quotes.
func CountriesCSV() (io.Reader, error) {
	b, err := FS.ReadFile("countries.csv")
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}
