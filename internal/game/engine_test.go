package game

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/lingotrail/go-server/internal/atlas"
)

// Rarity in this fixture: french 1 (9 speakers), english 3 (3 speakers),
// spanish 4 (2 speakers), dutch/german/japanese 5 (1 speaker each).
const engineCSV = `Country,Language
France,"french"
Belgium,"french, dutch"
Canada,"english, french"
Senegal,"french"
Haiti,"french"
Monaco,"french"
Luxembourg,"french"
Switzerland,"french, german"
Ivory Coast,"french"
United Kingdom,"english"
Australia,"english"
Spain,"spanish"
Mexico,"spanish"
Japan,"japanese"
`

func testRepo(t *testing.T, csv string) *atlas.Repository {
	t.Helper()
	repo, err := atlas.Load(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	return repo
}

// testEngine starts a deterministic engine at the named country.
func testEngine(t *testing.T, repo *atlas.Repository, start string) *Engine {
	t.Helper()
	e := New(repo, rand.New(rand.NewSource(42)))
	c := repo.Country(start)
	if c == nil {
		t.Fatalf("fixture country %q not found", start)
	}
	e.ResetWithCountry(c)
	return e
}

func mustSelect(t *testing.T, e *Engine, repo *atlas.Repository, lang string) {
	t.Helper()
	l := repo.Language(lang)
	if l == nil {
		t.Fatalf("fixture language %q not found", lang)
	}
	if !e.SelectLanguage(l) {
		t.Fatalf("SelectLanguage(%s) rejected", lang)
	}
}

func mustMove(t *testing.T, e *Engine, country string) MoveResult {
	t.Helper()
	res := e.MoveTo(country)
	if !res.Success {
		t.Fatalf("MoveTo(%s) failed: %s", country, res.Message)
	}
	return res
}

func TestStreakScoring(t *testing.T) {
	repo := testRepo(t, engineCSV)
	e := testEngine(t, repo, "France")
	mustSelect(t, e, repo, "french")

	res := mustMove(t, e, "Belgium")
	if res.Move == nil || res.Move.Points != 1 {
		t.Fatalf("first move points = %+v, want 1", res.Move)
	}
	res = mustMove(t, e, "Canada")
	if res.Move.Points != 2 {
		t.Errorf("second move points = %d, want 2 (rarity 1 * streak 2)", res.Move.Points)
	}
	res = mustMove(t, e, "Senegal")
	if res.Move.Points != 3 {
		t.Errorf("third move points = %d, want 3", res.Move.Points)
	}

	st := e.State()
	if st.TotalScore() != 6 {
		t.Errorf("total score = %d, want 6", st.TotalScore())
	}
	// Total equals the sum of recorded move points.
	sum := 0
	for _, m := range st.Moves() {
		sum += m.Points
	}
	if sum != st.TotalScore() {
		t.Errorf("sum of move points %d != total score %d", sum, st.TotalScore())
	}
	// History = successful moves + synthetic start.
	if len(st.Moves()) != 4 {
		t.Errorf("moves length = %d, want 4", len(st.Moves()))
	}
}

func TestCountryReuseFails(t *testing.T) {
	repo := testRepo(t, engineCSV)
	e := testEngine(t, repo, "France")
	mustSelect(t, e, repo, "french")
	mustMove(t, e, "Belgium")

	before := e.Snapshot()
	res := e.MoveTo("Belgium")
	if res.Success {
		t.Fatal("moving to an already-used country should fail")
	}
	if !strings.Contains(res.Message, "already used") {
		t.Errorf("message = %q, want mention of already used", res.Message)
	}
	// The starting country is used from construction as well.
	if res := e.MoveTo("France"); res.Success {
		t.Error("moving back to the starting country should fail")
	}
	after := e.Snapshot()
	if after.TotalScore != before.TotalScore || after.MovesRemaining != before.MovesRemaining {
		t.Errorf("failed move mutated state: before=%+v after=%+v", before, after)
	}
}

func TestValidationOrder(t *testing.T) {
	repo := testRepo(t, engineCSV)
	e := testEngine(t, repo, "France")

	// No language selected yet: unknown country is reported first.
	if res := e.MoveTo("Atlantis"); res.Success || !strings.Contains(res.Message, "not found") {
		t.Errorf("unknown country: %+v", res)
	}
	// Known, unused country without a language: "no language selected".
	if res := e.MoveTo("Belgium"); res.Success || !strings.Contains(res.Message, "No language selected") {
		t.Errorf("no language: %+v", res)
	}

	mustSelect(t, e, repo, "spanish")
	if res := e.MoveTo("Belgium"); res.Success || !strings.Contains(res.Message, "does not speak") {
		t.Errorf("language mismatch: %+v", res)
	}
}

func TestSwitchLanguageResetsStreak(t *testing.T) {
	repo := testRepo(t, engineCSV)
	e := testEngine(t, repo, "France")
	mustSelect(t, e, repo, "french")
	mustMove(t, e, "Belgium")
	mustMove(t, e, "Canada")
	if got := e.State().CurrentStreak(); got != 2 {
		t.Fatalf("streak = %d, want 2", got)
	}

	// Re-selecting the same language keeps the streak.
	mustSelect(t, e, repo, "french")
	if got := e.State().CurrentStreak(); got != 2 {
		t.Errorf("streak after re-select = %d, want 2", got)
	}

	// Switching resets it.
	mustSelect(t, e, repo, "english")
	if got := e.State().CurrentStreak(); got != 0 {
		t.Errorf("streak after switch = %d, want 0", got)
	}
	res := mustMove(t, e, "United Kingdom")
	if res.Move.Points != 3 {
		t.Errorf("points after switch = %d, want 3 (english rarity, streak 1)", res.Move.Points)
	}
}

func TestHardModeCap(t *testing.T) {
	repo := testRepo(t, engineCSV)
	e := testEngine(t, repo, "France")
	e.SetHardMode(true)
	mustSelect(t, e, repo, "french")

	for _, c := range []string{"Belgium", "Canada", "Senegal", "Haiti"} {
		mustMove(t, e, c)
	}

	// Usage is now 4: re-selecting french is rejected without mutation.
	streak := e.State().CurrentStreak()
	if e.SelectLanguage(repo.Language("french")) {
		t.Error("SelectLanguage should reject french at the hard-mode cap")
	}
	if got := e.State().CurrentStreak(); got != streak {
		t.Errorf("rejected selection mutated streak: %d -> %d", streak, got)
	}

	// Moving with the capped language fails too.
	res := e.MoveTo("Monaco")
	if res.Success || !res.LanguageOverused {
		t.Errorf("capped move = %+v, want failure with LanguageOverused", res)
	}
	if got := e.State().LanguageUsage(repo.Language("french")); got != 4 {
		t.Errorf("usage = %d, want 4", got)
	}

	// Another language still works.
	mustSelect(t, e, repo, "english")
	mustMove(t, e, "United Kingdom")
}

func TestNormalModeCap(t *testing.T) {
	repo := testRepo(t, engineCSV)
	e := testEngine(t, repo, "France")
	mustSelect(t, e, repo, "french")

	for _, c := range []string{"Belgium", "Canada", "Senegal", "Haiti", "Monaco", "Luxembourg", "Switzerland"} {
		mustMove(t, e, c)
	}
	if e.SelectLanguage(repo.Language("french")) {
		t.Error("SelectLanguage should reject french after 7 uses in normal mode")
	}
	res := e.MoveTo("Ivory Coast")
	if res.Success || !res.LanguageOverused {
		t.Errorf("8th french move = %+v, want cap failure", res)
	}
}

func TestMoveBudget(t *testing.T) {
	repo := testRepo(t, engineCSV)
	e := testEngine(t, repo, "France")
	e.SetMaxMoves(1)
	mustSelect(t, e, repo, "french")

	res := mustMove(t, e, "Belgium")
	if !res.HasAdvisory(AdvisoryGameComplete) {
		t.Errorf("advisories = %v, want game_complete", res.Advisories)
	}
	if got := e.State().MovesRemaining(); got != 0 {
		t.Errorf("moves remaining = %d, want 0", got)
	}

	// Any further move fails terminally with the final score.
	res = e.MoveTo("Canada")
	if res.Success || !strings.Contains(res.Message, "Game over") {
		t.Errorf("post-budget move = %+v", res)
	}
	if !strings.Contains(res.Message, "Final score: 1") {
		t.Errorf("message = %q, want final score 1", res.Message)
	}
	if len(e.State().Moves()) != 2 {
		t.Errorf("history grew after game over: %d entries", len(e.State().Moves()))
	}
}

func TestFailedMovesDoNotConsumeBudget(t *testing.T) {
	repo := testRepo(t, engineCSV)
	e := testEngine(t, repo, "France")
	mustSelect(t, e, repo, "french")

	before := e.State().MovesRemaining()
	e.MoveTo("Atlantis")
	e.MoveTo("France")
	e.MoveTo("Japan") // does not speak french
	if got := e.State().MovesRemaining(); got != before {
		t.Errorf("failed moves changed budget: %d -> %d", before, got)
	}
	mustMove(t, e, "Belgium")
	if got := e.State().MovesRemaining(); got != before-1 {
		t.Errorf("successful move should cost exactly 1: %d -> %d", before, got)
	}
}

const refreshCSV = `Country,Language
Aland,"norn"
Bora,"norn"
Cusco,"quechua"
Dili,"quechua"
`

func TestAutoRefresh(t *testing.T) {
	repo := testRepo(t, refreshCSV)
	e := testEngine(t, repo, "Aland")
	mustSelect(t, e, repo, "norn")

	res := mustMove(t, e, "Bora")
	if !res.HasAdvisory(AdvisoryLanguageExhausted) {
		t.Errorf("advisories = %v, want language_exhausted", res.Advisories)
	}
	if !res.HasAdvisory(AdvisoryCountryRefreshed) {
		t.Errorf("advisories = %v, want country_refreshed", res.Advisories)
	}

	st := e.State()
	if st.CurrentLanguage() != nil {
		t.Error("refresh should clear the selected language")
	}
	if st.CurrentStreak() != 0 {
		t.Errorf("streak after refresh = %d, want 0", st.CurrentStreak())
	}
	name := st.CurrentCountry().Name
	if name != "Cusco" && name != "Dili" {
		t.Errorf("refreshed to %q, want Cusco or Dili", name)
	}
	// The refreshed country counts as used.
	if res := e.MoveTo(name); res.Success {
		t.Error("moving to the refreshed country should fail as already used")
	}
}

const deadEndCSV = `Country,Language
Aland,"norn"
Bora,"norn"
`

func TestAutoRefreshNoCountriesLeft(t *testing.T) {
	repo := testRepo(t, deadEndCSV)
	e := testEngine(t, repo, "Aland")
	mustSelect(t, e, repo, "norn")

	res := mustMove(t, e, "Bora")
	if !res.HasAdvisory(AdvisoryLanguageExhausted) {
		t.Errorf("advisories = %v, want language_exhausted", res.Advisories)
	}
	if !res.HasAdvisory(AdvisoryNoCountriesLeft) {
		t.Errorf("advisories = %v, want no_countries_left", res.Advisories)
	}
	if res.HasAdvisory(AdvisoryCountryRefreshed) {
		t.Error("nothing to refresh to, country_refreshed should be absent")
	}
	// Position is unchanged when no refresh target exists.
	if got := e.State().CurrentCountry().Name; got != "Bora" {
		t.Errorf("current country = %q, want Bora", got)
	}
}

func TestObserversNotifiedInOrder(t *testing.T) {
	repo := testRepo(t, engineCSV)
	e := testEngine(t, repo, "France")

	var calls []string
	e.AddObserver(ObserverFunc(func(s *State) { calls = append(calls, "first") }))
	e.AddObserver(ObserverFunc(func(s *State) { calls = append(calls, "second") }))

	mustSelect(t, e, repo, "french")
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("calls after select = %v", calls)
	}

	calls = nil
	mustMove(t, e, "Belgium")
	if len(calls) != 2 {
		t.Errorf("calls after move = %v, want one notification pair", calls)
	}

	// Failed attempts do not notify.
	calls = nil
	e.MoveTo("Atlantis")
	if len(calls) != 0 {
		t.Errorf("failed move notified observers: %v", calls)
	}
}

func TestMoveAcceptsFlexibleNames(t *testing.T) {
	repo := testRepo(t, engineCSV)
	e := testEngine(t, repo, "France")
	mustSelect(t, e, repo, "french")

	res := e.MoveTo("  ivory-coast ")
	if !res.Success {
		t.Fatalf("flexible move failed: %s", res.Message)
	}
	if res.Move.Country.Name != "Ivory Coast" {
		t.Errorf("resolved %q, want Ivory Coast", res.Move.Country.Name)
	}
}

func TestSnapshot(t *testing.T) {
	repo := testRepo(t, engineCSV)
	e := testEngine(t, repo, "France")
	mustSelect(t, e, repo, "french")
	mustMove(t, e, "Belgium")

	snap := e.Snapshot()
	if snap.CurrentCountry != "Belgium" {
		t.Errorf("snapshot country = %q", snap.CurrentCountry)
	}
	if snap.CurrentLanguage != "french" {
		t.Errorf("snapshot language = %q", snap.CurrentLanguage)
	}
	if snap.TotalScore != 1 || snap.CurrentStreak != 1 {
		t.Errorf("snapshot score/streak = %d/%d", snap.TotalScore, snap.CurrentStreak)
	}
	if snap.MovesRemaining != DefaultMaxMoves-1 {
		t.Errorf("snapshot remaining = %d", snap.MovesRemaining)
	}
	if len(snap.Moves) != 2 || snap.Moves[0].Language != "" {
		t.Errorf("snapshot moves = %+v", snap.Moves)
	}
}

func TestResetStartsFresh(t *testing.T) {
	repo := testRepo(t, engineCSV)
	e := testEngine(t, repo, "France")
	mustSelect(t, e, repo, "french")
	mustMove(t, e, "Belgium")

	e.Reset()
	st := e.State()
	if st.TotalScore() != 0 || st.CurrentStreak() != 0 || st.CurrentLanguage() != nil {
		t.Errorf("reset state: score=%d streak=%d lang=%v",
			st.TotalScore(), st.CurrentStreak(), st.CurrentLanguage())
	}
	if len(st.Moves()) != 1 {
		t.Errorf("reset history = %d entries, want 1", len(st.Moves()))
	}
	if st.MovesRemaining() != DefaultMaxMoves {
		t.Errorf("reset budget = %d, want %d", st.MovesRemaining(), DefaultMaxMoves)
	}
}
