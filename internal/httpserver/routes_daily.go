// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Challenge" mode.
// Exposes three endpoints under /daily:
//   - POST /daily/new         → start today's game (creates or reuses session)
//   - POST /daily/move        → submit a move for today's daily game
//   - GET  /daily/leaderboard → fetch top 20 results for today (or a given date)
//
// Every player opens the daily challenge at the same starting country,
// chosen deterministically from date + salt. Each player gets one run per
// day (enforced by DB + in-memory session); the result row is written once
// the run finishes.

package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/lingotrail/go-server/internal/daily"
	"github.com/lingotrail/go-server/internal/game"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv      *Server
	store    *daily.Store
	salt     string
	sessions map[string]*dailySession // active sessions keyed by playerID|date
	mu       sync.Mutex               // guards sessions
}

// dailySession holds transient in-memory state for an in-progress daily run.
type dailySession struct {
	GameID     string
	PlayerID   string
	Date       string
	StartIndex int
	Finished   bool
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	dd := &dailyServer{
		srv:      s,
		store:    daily.NewStore(s.db),
		salt:     getEnv("DAILY_SALT", "local_dev_salt"),
		sessions: make(map[string]*dailySession),
	}
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", dd.handleNew)
		r.Post("/move", dd.handleMove)
		r.Get("/leaderboard", dd.handleLeaderboard)
	})
}

// playerID identifies the caller: user ID when logged in, anon cookie otherwise.
func (dd *dailyServer) playerID(w http.ResponseWriter, r *http.Request) string {
	if me, _ := currentUser(r); me != nil {
		return me.ID
	}
	return dd.srv.ensureAnonID(w, r)
}

// handleNew starts (or resumes) today's daily run for the caller.
func (dd *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	player := dd.playerID(w, r)
	date := daily.DateKey(time.Now())

	played, err := dd.store.AlreadyPlayed(r.Context(), player, date)
	if err != nil {
		log.Warn().Err(err).Msg("daily already-played check")
	}
	if played {
		http.Error(w, `{"error":"already_played"}`, http.StatusConflict)
		return
	}

	dd.mu.Lock()
	defer dd.mu.Unlock()

	key := player + "|" + date
	if sess, ok := dd.sessions[key]; ok && !sess.Finished {
		// Resume the in-progress run.
		if e, err := dd.srv.store.Get(r.Context(), sess.GameID); err == nil {
			_ = json.NewEncoder(w).Encode(newGameRes{GameID: sess.GameID, State: e.Snapshot()})
			return
		}
	}

	countries := dd.srv.repo.Countries()
	idx := daily.StartIndex(time.Now(), dd.salt, len(countries))

	e := dd.srv.newEngine()
	e.ResetWithCountry(countries[idx])
	if err := dd.srv.store.Save(r.Context(), e); err != nil {
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	dd.sessions[key] = &dailySession{
		GameID:     e.ID(),
		PlayerID:   player,
		Date:       date,
		StartIndex: idx,
	}
	_ = json.NewEncoder(w).Encode(newGameRes{GameID: e.ID(), State: e.Snapshot()})
}

// dailyMoveReq is the payload for POST /daily/move.
// An empty Country with a non-empty Language selects the streak language.
type dailyMoveReq struct {
	Country  string `json:"country"`
	Language string `json:"language"`
}

// handleMove applies a language selection or a move to today's run and
// persists the result row once the run finishes.
func (dd *dailyServer) handleMove(w http.ResponseWriter, r *http.Request) {
	player := dd.playerID(w, r)
	date := daily.DateKey(time.Now())

	dd.mu.Lock()
	sess, ok := dd.sessions[player+"|"+date]
	dd.mu.Unlock()
	if !ok || sess.Finished {
		http.Error(w, `{"error":"no_active_daily"}`, http.StatusNotFound)
		return
	}
	e, err := dd.srv.store.Get(r.Context(), sess.GameID)
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}

	var req dailyMoveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Country) == "" && req.Language != "" {
		lang := dd.srv.repo.Language(req.Language)
		if lang == nil {
			http.Error(w, `{"error":"unknown_language"}`, http.StatusNotFound)
			return
		}
		accepted := e.SelectLanguage(lang)
		res := moveRes{Success: accepted, State: e.Snapshot()}
		if !accepted {
			res.LanguageOverused = true
			res.Message = "Language usage limit reached: " + lang.Name
		}
		_ = json.NewEncoder(w).Encode(res)
		return
	}

	result := e.MoveTo(req.Country)
	snap := e.Snapshot()

	if result.HasAdvisory(game.AdvisoryGameComplete) || result.HasAdvisory(game.AdvisoryNoCountriesLeft) {
		dd.mu.Lock()
		sess.Finished = true
		dd.mu.Unlock()
		if err := dd.store.InsertResult(r.Context(), daily.Result{
			UserID:     player,
			Date:       date,
			StartIndex: sess.StartIndex,
			Score:      snap.TotalScore,
			MovesUsed:  snap.MaxMoves - snap.MovesRemaining,
		}); err != nil {
			log.Warn().Err(err).Str("player", player).Msg("insert daily result")
		}
	}

	res := moveRes{
		Success:    result.Success,
		Message:    result.Message,
		Advisories: result.Advisories,
		State:      snap,
	}
	if result.Move != nil {
		rec := game.MoveRecord{Country: result.Move.Country.Name, Points: result.Move.Points}
		if result.Move.Language != nil {
			rec.Language = result.Move.Language.Name
		}
		res.Move = &rec
	}
	_ = json.NewEncoder(w).Encode(res)
}

// handleLeaderboard returns the top daily results for a date (default today).
func (dd *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(time.Now())
	}
	rows, err := dd.store.Leaderboard(r.Context(), date, 20)
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"date": date, "rows": rows})
}
