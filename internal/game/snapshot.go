// internal/game/snapshot.go
//
// Read-only, JSON-friendly copies of the session state, used by the HTTP
// layer so callers never touch the live State.

package game

// MoveRecord is one history entry in a snapshot.
type MoveRecord struct {
	Country  string `json:"country"`
	Language string `json:"language,omitempty"` // empty for the starting placement
	Points   int    `json:"points"`
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	ID               string       `json:"id"`
	CurrentCountry   string       `json:"currentCountry"`
	CountryLanguages []string     `json:"countryLanguages"` // languages of the current country
	CurrentLanguage  string       `json:"currentLanguage,omitempty"`
	CurrentStreak    int          `json:"currentStreak"`
	TotalScore       int          `json:"totalScore"`
	MovesRemaining   int          `json:"movesRemaining"`
	MaxMoves         int          `json:"maxMoves"`
	HardMode         bool         `json:"hardMode"`
	Moves            []MoveRecord `json:"moves"`
}

// Snapshot copies the current session state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.state
	snap := Snapshot{
		ID:             e.id,
		CurrentCountry: s.CurrentCountry().Name,
		CurrentStreak:  s.CurrentStreak(),
		TotalScore:     s.TotalScore(),
		MovesRemaining: s.MovesRemaining(),
		MaxMoves:       s.MaxMoves(),
		HardMode:       e.hardMode,
	}
	for _, l := range s.CurrentCountry().Languages() {
		snap.CountryLanguages = append(snap.CountryLanguages, l.Name)
	}
	if l := s.CurrentLanguage(); l != nil {
		snap.CurrentLanguage = l.Name
	}
	for _, m := range s.moves {
		rec := MoveRecord{Country: m.Country.Name, Points: m.Points}
		if m.Language != nil {
			rec.Language = m.Language.Name
		}
		snap.Moves = append(snap.Moves, rec)
	}
	return snap
}
