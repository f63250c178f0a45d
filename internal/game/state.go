// internal/game/state.go
//
// Mutable per-session game state. A pure data holder with controlled
// mutators: validation lives entirely in the engine, which is the only
// caller. Keys into the used-country set and the language-usage map are
// the canonical lowercase names from the atlas types.

package game

import "github.com/lingotrail/go-server/internal/atlas"

// DefaultMaxMoves is the scored-move budget for a session.
const DefaultMaxMoves = 30

// State tracks one game session: current position, selected language,
// streak, score, history, and per-language usage.
type State struct {
	currentCountry  *atlas.Country
	currentLanguage *atlas.Language // nil until a language is selected
	currentStreak   int
	totalScore      int
	moves           []GameMove
	usedCountries   map[string]struct{} // keyed by Country.Key()
	languageUsage   map[string]int      // keyed by Language.Key()
	maxMoves        int
}

// NewState starts a session at the given country. The starting country is
// recorded as a synthetic zero-point move and counted as used.
func NewState(start *atlas.Country) *State {
	s := &State{
		currentCountry: start,
		usedCountries:  make(map[string]struct{}),
		languageUsage:  make(map[string]int),
		maxMoves:       DefaultMaxMoves,
	}
	s.usedCountries[start.Key()] = struct{}{}
	s.moves = append(s.moves, GameMove{Country: start})
	return s
}

// CurrentCountry returns the player's current country. Never nil.
func (s *State) CurrentCountry() *atlas.Country { return s.currentCountry }

// CurrentLanguage returns the selected language, or nil if none is chosen.
func (s *State) CurrentLanguage() *atlas.Language { return s.currentLanguage }

// SetCurrentLanguage sets the language used to evaluate subsequent moves.
func (s *State) SetCurrentLanguage(l *atlas.Language) { s.currentLanguage = l }

// SetCurrentCountry moves the player and marks the country as used.
func (s *State) SetCurrentCountry(c *atlas.Country) {
	s.currentCountry = c
	s.usedCountries[c.Key()] = struct{}{}
}

// CurrentStreak returns the length of the active same-language streak.
func (s *State) CurrentStreak() int { return s.currentStreak }

// SetCurrentStreak sets the streak length.
func (s *State) SetCurrentStreak(n int) { s.currentStreak = n }

// TotalScore returns the points earned so far.
func (s *State) TotalScore() int { return s.totalScore }

// AddPoints adds points to the total score.
func (s *State) AddPoints(n int) { s.totalScore += n }

// Moves returns the move history, starting with the synthetic placement.
// The returned slice is a copy.
func (s *State) Moves() []GameMove {
	out := make([]GameMove, len(s.moves))
	copy(out, s.moves)
	return out
}

// AddMove appends a move to the session history.
func (s *State) AddMove(m GameMove) { s.moves = append(s.moves, m) }

// IsCountryUsed reports whether the country was already visited.
func (s *State) IsCountryUsed(c *atlas.Country) bool {
	_, ok := s.usedCountries[c.Key()]
	return ok
}

// LanguageUsage returns how many committed moves used the language.
func (s *State) LanguageUsage(l *atlas.Language) int {
	return s.languageUsage[l.Key()]
}

// IncrementLanguageUsage bumps the usage counter for the language.
func (s *State) IncrementLanguageUsage(l *atlas.Language) {
	s.languageUsage[l.Key()]++
}

// MaxMoves returns the scored-move budget.
func (s *State) MaxMoves() int { return s.maxMoves }

// SetMaxMoves overrides the move budget. Test harness use only.
func (s *State) SetMaxMoves(n int) { s.maxMoves = n }

// MovesRemaining returns the budget left. The synthetic starting move
// does not count against it.
func (s *State) MovesRemaining() int {
	return s.maxMoves - (len(s.moves) - 1)
}

// HasMovesRemaining reports whether any scored moves are left.
func (s *State) HasMovesRemaining() bool { return s.MovesRemaining() > 0 }
