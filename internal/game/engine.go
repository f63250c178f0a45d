// internal/game/engine.go
//
// Core move-resolution engine for a single LingoTrail session.
// Responsibilities:
//   - Validate and resolve moves against the atlas and the session state.
//   - Enforce per-language usage caps (7 normal, 4 hard mode).
//   - Score moves: language rarity multiplied by streak length.
//   - Refresh to a fresh country when no viable move remains.
//   - Notify registered observers after every committed mutation.
//
// Notes:
//   - Engines are constructed explicitly and injected; one engine owns one
//     State for its whole life.
//   - All operations take the engine mutex, so a shared engine is safe for
//     concurrent callers; validation and mutation never interleave.
//   - Illegal moves are MoveResult values, never errors, and leave the
//     state untouched.

package game

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	mrand "math/rand"
	"sync"
	"time"

	"github.com/lingotrail/go-server/internal/atlas"
)

// Language usage caps per difficulty mode.
const (
	normalModeLimit = 7
	hardModeLimit   = 4
)

// Engine is the move-resolution state machine for one game session.
type Engine struct {
	mu        sync.Mutex
	id        string
	repo      *atlas.Repository
	rng       *mrand.Rand
	observers []Observer
	hardMode  bool
	state     *State
}

// New constructs an engine over the given repository and starts a fresh
// game at a random country. A nil rng falls back to a time-seeded source.
func New(repo *atlas.Repository, rng *mrand.Rand) *Engine {
	if rng == nil {
		rng = mrand.New(mrand.NewSource(time.Now().UnixNano()))
	}
	e := &Engine{id: randomID(), repo: repo, rng: rng}
	e.Reset()
	return e
}

// ID returns the session identifier (random hex string).
func (e *Engine) ID() string { return e.id }

// Reset discards the session state and starts over at a random country.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	countries := e.repo.Countries()
	e.state = NewState(countries[e.rng.Intn(len(countries))])
	e.notifyObservers()
}

// ResetWithCountry starts over at a specific country.
// Used by the daily challenge and by tests that need a fixed opening.
func (e *Engine) ResetWithCountry(c *atlas.Country) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = NewState(c)
	e.notifyObservers()
}

// SetHardMode switches the per-language usage cap (7 normal, 4 hard).
func (e *Engine) SetHardMode(hard bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hardMode = hard
}

// HardMode reports whether hard mode is active.
func (e *Engine) HardMode() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hardMode
}

// SetMaxMoves overrides the move budget. Test harness use only.
func (e *Engine) SetMaxMoves(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.SetMaxMoves(n)
}

// AddObserver registers an observer for state-change notifications.
func (e *Engine) AddObserver(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, o)
}

// State returns the live session state. Callers must treat it as
// read-only; use Snapshot for a serializable copy.
func (e *Engine) State() *State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// SelectLanguage sets the language for subsequent moves.
// Returns false, leaving the state untouched, if the language has already
// hit its usage cap. Picking a different language resets the streak.
func (e *Engine) SelectLanguage(l *atlas.Language) bool {
	if l == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.limitReached(l) {
		return false
	}
	if cur := e.state.CurrentLanguage(); cur == nil || cur.Key() != l.Key() {
		e.state.SetCurrentStreak(0)
	}
	e.state.SetCurrentLanguage(l)
	e.notifyObservers()
	return true
}

// MoveTo attempts a move to the named country using the selected language.
// Validations run in a fixed order and short-circuit on the first failure;
// only a fully validated move mutates state. After a successful move the
// result is annotated with advisory tags (budget exhausted, language
// exhausted, country refreshed).
func (e *Engine) MoveTo(countryName string) MoveResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.HasMovesRemaining() {
		return MoveResult{Message: fmt.Sprintf(
			"Game over! You've used all %d moves. Final score: %d",
			e.state.MaxMoves(), e.state.TotalScore())}
	}

	country := e.repo.CountryFlexible(countryName)
	if country == nil {
		return MoveResult{Message: "Country not found: " + countryName}
	}

	if e.state.IsCountryUsed(country) {
		return MoveResult{Message: "Country already used: " + country.Name}
	}

	lang := e.state.CurrentLanguage()
	if lang == nil {
		return MoveResult{Message: "No language selected. Please choose a language first."}
	}

	if !country.HasLanguage(lang) {
		return MoveResult{Message: fmt.Sprintf("%s does not speak %s", country.Name, lang.Name)}
	}

	if e.limitReached(lang) {
		return MoveResult{
			Message: fmt.Sprintf("You've already used %s %d times. Please pick another language.",
				lang.Name, e.limit()),
			LanguageOverused: true,
		}
	}

	result := e.continueStreak(country, lang)

	remaining := e.state.MovesRemaining()
	result.Message += fmt.Sprintf("\nMoves remaining: %d of %d", remaining, e.state.MaxMoves())
	if remaining == 0 {
		result.Advisories = append(result.Advisories, AdvisoryGameComplete)
		result.Message += fmt.Sprintf(
			"\nGame complete! You've used all your moves. Final score: %d",
			e.state.TotalScore())
		return result
	}

	if !e.isViableLanguage(lang) {
		result.Advisories = append(result.Advisories, AdvisoryLanguageExhausted)
		result.Message += fmt.Sprintf("\nNo more countries available with %s.", lang.Name)

		if !e.hasViableLanguages(e.state.CurrentCountry()) {
			result.Message += fmt.Sprintf(
				"\nNo viable languages left for %s. Refreshing to a new country.",
				e.state.CurrentCountry().Name)
			if e.refreshCountry() {
				result.Advisories = append(result.Advisories, AdvisoryCountryRefreshed)
			} else {
				result.Advisories = append(result.Advisories, AdvisoryNoCountriesLeft)
			}
		}
	}
	return result
}

// continueStreak commits a validated move: bumps the streak, awards
// rarity * streak points, and records the move. Always succeeds.
func (e *Engine) continueStreak(country *atlas.Country, lang *atlas.Language) MoveResult {
	newStreak := e.state.CurrentStreak() + 1
	points := lang.RarityScore * newStreak
	move := GameMove{Country: country, Language: lang, Points: points}

	e.state.IncrementLanguageUsage(lang)
	e.state.SetCurrentCountry(country)
	e.state.SetCurrentStreak(newStreak)
	e.state.AddPoints(points)
	e.state.AddMove(move)

	e.notifyObservers()
	return MoveResult{
		Success: true,
		Message: fmt.Sprintf("Streak continued with %s. +%d points", lang.Name, points),
		Move:    &move,
	}
}

// refreshCountry moves the player to a random unused country that still
// has a viable language, clearing the language and streak. Returns false
// when no such country exists (the game is effectively complete).
func (e *Engine) refreshCountry() bool {
	var available []*atlas.Country
	for _, c := range e.repo.Countries() {
		if !e.state.IsCountryUsed(c) && e.hasViableLanguages(c) {
			available = append(available, c)
		}
	}
	if len(available) == 0 {
		return false
	}
	e.state.SetCurrentCountry(available[e.rng.Intn(len(available))])
	e.state.SetCurrentLanguage(nil)
	e.state.SetCurrentStreak(0)
	e.notifyObservers()
	return true
}

// hasViableLanguages reports whether the country speaks at least one
// language that is both viable and under its usage cap.
func (e *Engine) hasViableLanguages(country *atlas.Country) bool {
	for _, l := range country.Languages() {
		if e.isViableLanguage(l) && !e.limitReached(l) {
			return true
		}
	}
	return false
}

// isViableLanguage reports whether any unused country speaks the language.
func (e *Engine) isViableLanguage(lang *atlas.Language) bool {
	for _, c := range e.repo.Countries() {
		if !e.state.IsCountryUsed(c) && c.HasLanguage(lang) {
			return true
		}
	}
	return false
}

// limit returns the active per-language usage cap.
func (e *Engine) limit() int {
	if e.hardMode {
		return hardModeLimit
	}
	return normalModeLimit
}

// limitReached reports whether the language hit the active usage cap.
func (e *Engine) limitReached(lang *atlas.Language) bool {
	return e.state.LanguageUsage(lang) >= e.limit()
}

// notifyObservers invokes observers in registration order.
// Callers must hold the engine mutex.
func (e *Engine) notifyObservers() {
	for _, o := range e.observers {
		o.OnGameStateChanged(e.state)
	}
}

// randomID returns a compact 16-hex-char session identifier.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
