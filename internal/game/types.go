// internal/game/types.go
//
// Core type definitions for the LingoTrail game engine.
// Defines:
//   - GameMove: one resolved step in the session history.
//   - Advisory: post-move bookkeeping tags attached to a result.
//   - MoveResult: outcome of a move or language selection attempt.
//   - Observer: callback notified after every committed state mutation.

package game

import "github.com/lingotrail/go-server/internal/atlas"

// Advisory tags extra, non-error information onto a successful move.
// Possible values:
//   - "game_complete":      the move budget is used up.
//   - "language_exhausted": no unused country speaks the current language.
//   - "country_refreshed":  the engine moved the player to a fresh country.
//   - "no_countries_left":  no unused country with a viable language remains.
type Advisory string

const (
	AdvisoryGameComplete      Advisory = "game_complete"
	AdvisoryLanguageExhausted Advisory = "language_exhausted"
	AdvisoryCountryRefreshed  Advisory = "country_refreshed"
	AdvisoryNoCountriesLeft   Advisory = "no_countries_left"
)

// GameMove is an immutable record of one resolved move.
// The synthetic starting placement has a nil Language and zero Points.
type GameMove struct {
	Country  *atlas.Country  // Destination of the move.
	Language *atlas.Language // Language used; nil for the starting placement.
	Points   int             // Points awarded (rarity * streak length).
}

// MoveResult is the outcome of an attempted move.
// A nil Move signals that no state change occurred.
type MoveResult struct {
	Success          bool       // Whether the move was committed.
	Message          string     // User-facing description of the outcome.
	Move             *GameMove  // The committed move, if any.
	LanguageOverused bool       // True when a move failed on the usage cap.
	Advisories       []Advisory // Post-success bookkeeping tags, in order.
}

// HasAdvisory reports whether the result carries the given tag.
func (r MoveResult) HasAdvisory(a Advisory) bool {
	for _, x := range r.Advisories {
		if x == a {
			return true
		}
	}
	return false
}

// Observer receives the game state after every committed mutation
// (language selection, move, refresh, reset). Notification is synchronous
// and in registration order; the state must be treated as read-only.
type Observer interface {
	OnGameStateChanged(s *State)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(s *State)

func (f ObserverFunc) OnGameStateChanged(s *State) { f(s) }
