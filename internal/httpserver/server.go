// internal/httpserver/server.go
//
// HTTP server wiring for the LingoTrail backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/debug/atlas".
//   - Game endpoints (optional auth): /game/new, /game/{id}/...
//   - Daily Challenge endpoints (optional auth): mounted under /daily.
//   - Auth + profile/stat endpoints (require auth): /auth/*, /stats/me, /games/mine.
//   - JWT + cookie handling, anonymous session cookie, user CRUD helpers.
//   - Database persistence for finished games and user stats.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Optional auth decorates requests with user context when a valid token
//     is present; routes can still run for guests.
//   - Game state lives in the in-memory session store; only outcomes are
//     written to the database.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/lingotrail/go-server/internal/atlas"
	"github.com/lingotrail/go-server/internal/game"
	"github.com/lingotrail/go-server/internal/store"
)

// Server bundles router, atlas, in-memory session store, and DB handle.
type Server struct {
	r     *chi.Mux
	repo  *atlas.Repository
	store store.Store
	db    *sql.DB
}

// New constructs a Server, installs middleware, and registers routes.
func New(repo *atlas.Repository, st store.Store, db *sql.DB) *Server {
	s := &Server{r: chi.NewRouter(), repo: repo, store: st, db: db}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(corsFromEnv)                     // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"lingotrail-go","endpoints":["/health","POST /game/new","POST /game/{id}/move","/auth/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	// Game endpoints — OPTIONAL AUTH (guests can play)
	s.r.With(s.withOptionalAuth()).Route("/game", func(r chi.Router) {
		r.Post("/new", s.handleNewGame)
		r.Get("/{id}", s.handleGameState)
		r.Post("/{id}/language", s.handleSelectLanguage)
		r.Post("/{id}/move", s.handleMove)
		r.Post("/{id}/reset", s.handleReset)
		r.Post("/{id}/hardmode", s.handleHardMode)
	})

	// Daily Challenge — OPTIONAL AUTH (guests can play; result persisted on finish)
	s.mountDaily(s.r.With(s.withOptionalAuth()))

	// Auth + profile/stats (require auth)
	s.mountAuthRoutes()

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	// Debug: dataset counts
	s.r.Get("/debug/atlas", func(w http.ResponseWriter, r *http.Request) {
		c, l := repo.Stats()
		_ = json.NewEncoder(w).Encode(map[string]int{"countries": c, "languages": l})
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ------------------------------ GAME ---------------------------------------

// newGameReq/Res payloads for POST /game/new.
type newGameReq struct {
	HardMode bool `json:"hardMode"`
}
type newGameRes struct {
	GameID string        `json:"gameId"`
	State  game.Snapshot `json:"state"`
}

// moveRes is the shared response shape for language/move/reset calls.
type moveRes struct {
	Success          bool            `json:"success"`
	Message          string          `json:"message,omitempty"`
	LanguageOverused bool            `json:"languageOverused,omitempty"`
	Advisories       []game.Advisory `json:"advisories,omitempty"`
	Move             *game.MoveRecord `json:"move,omitempty"`
	State            game.Snapshot   `json:"state"`
}

// newEngine builds an engine with the standard logging observer attached.
func (s *Server) newEngine() *game.Engine {
	e := game.New(s.repo, nil)
	e.AddObserver(game.ObserverFunc(func(st *game.State) {
		log.Debug().
			Str("country", st.CurrentCountry().Name).
			Int("score", st.TotalScore()).
			Int("streak", st.CurrentStreak()).
			Msg("game state changed")
	}))
	return e
}

// handleNewGame creates a new in-memory session and persists a DB "owner"
// row (either user_id or anonymous_id) for history/stats.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	e := s.newEngine()
	e.SetHardMode(req.HardMode)
	if err := s.store.Save(r.Context(), e); err != nil {
		log.Error().Err(err).Msg("save session")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}

	now := time.Now().UTC().Format(time.RFC3339)
	hard := 0
	if req.HardMode {
		hard = 1
	}
	if me, _ := currentUser(r); me != nil {
		_, err := s.db.Exec(`INSERT INTO games (id, user_id, started_at, status, score, moves, hard_mode)
		                     VALUES (?,?,?,?,0,0,?)`, e.ID(), me.ID, now, "playing", hard)
		if err != nil {
			log.Warn().Err(err).Str("gameId", e.ID()).Msg("insert user game row")
		}
	} else {
		anon := s.ensureAnonID(w, r)
		_, err := s.db.Exec(`INSERT INTO games (id, anonymous_id, started_at, status, score, moves, hard_mode)
		                     VALUES (?,?,?,?,0,0,?)`, e.ID(), anon, now, "playing", hard)
		if err != nil {
			log.Warn().Err(err).Str("gameId", e.ID()).Msg("insert anon game row")
		}
	}

	_ = json.NewEncoder(w).Encode(newGameRes{GameID: e.ID(), State: e.Snapshot()})
}

// session fetches the engine for the {id} route param, writing a JSON 404
// when the session is unknown.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *game.Engine {
	id := chi.URLParam(r, "id")
	e, err := s.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		} else {
			http.Error(w, `{"error":"store_error"}`, http.StatusInternalServerError)
		}
		return nil
	}
	return e
}

// handleGameState returns a snapshot of the session.
func (s *Server) handleGameState(w http.ResponseWriter, r *http.Request) {
	e := s.session(w, r)
	if e == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(e.Snapshot())
}

// languageReq is the payload for POST /game/{id}/language.
type languageReq struct {
	Language string `json:"language"`
}

// handleSelectLanguage selects the streak language for a session.
// Rejections (unknown language, usage cap reached) leave the session untouched.
func (s *Server) handleSelectLanguage(w http.ResponseWriter, r *http.Request) {
	e := s.session(w, r)
	if e == nil {
		return
	}
	var req languageReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	lang := s.repo.Language(req.Language)
	if lang == nil {
		http.Error(w, `{"error":"unknown_language"}`, http.StatusNotFound)
		return
	}
	accepted := e.SelectLanguage(lang)
	res := moveRes{Success: accepted, State: e.Snapshot()}
	if !accepted {
		// The only rejection for a known language is the usage cap.
		res.LanguageOverused = true
		res.Message = "Language usage limit reached: " + lang.Name
	}
	_ = json.NewEncoder(w).Encode(res)
}

// moveReq is the payload for POST /game/{id}/move.
type moveReq struct {
	Country string `json:"country"`
}

// handleMove applies a move to a session and persists progress;
// if the game completed, it finalizes the DB row and bumps user stats.
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	e := s.session(w, r)
	if e == nil {
		return
	}
	var req moveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}

	result := e.MoveTo(req.Country)
	snap := e.Snapshot()

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

	if result.Success {
		s.persistProgress(r, w, e, result)
	}
	_ = json.NewEncoder(w).Encode(res)
}

// persistProgress updates the games row after a committed move
// (best effort, non-fatal if it fails).
func (s *Server) persistProgress(r *http.Request, w http.ResponseWriter, e *game.Engine, result game.MoveResult) {
	snap := e.Snapshot()
	me, _ := currentUser(r)
	ownerClause := `anonymous_id=?`
	ownerArg := any(s.ensureAnonID(w, r))
	if me != nil {
		ownerClause = `user_id=?`
		ownerArg = any(me.ID)
	}

	tx, err := s.db.Begin()
	if err != nil {
		log.Warn().Err(err).Msg("begin tx")
		return
	}
	defer func() { _ = tx.Rollback() }()

	movesMade := snap.MaxMoves - snap.MovesRemaining
	if _, err := tx.Exec(`UPDATE games SET moves=?, score=? WHERE id=? AND `+ownerClause,
		movesMade, snap.TotalScore, e.ID(), ownerArg); err != nil {
		log.Warn().Err(err).Msg("update progress")
	}

	if result.HasAdvisory(game.AdvisoryGameComplete) || result.HasAdvisory(game.AdvisoryNoCountriesLeft) {
		if _, err := tx.Exec(`UPDATE games SET status='finished', finished_at=? WHERE id=? AND `+ownerClause,
			time.Now().UTC().Format(time.RFC3339), e.ID(), ownerArg); err != nil {
			log.Warn().Err(err).Msg("finish game")
		}
		if me != nil {
			if err := s.bumpStats(tx, me.ID, snap.TotalScore); err != nil {
				log.Warn().Err(err).Str("user", me.ID).Msg("bump stats")
			}
		}
	}
	_ = tx.Commit()
}

// bumpStats updates a user's aggregate counters after a finished game.
func (s *Server) bumpStats(tx *sql.Tx, userID string, score int) error {
	_, err := tx.Exec(`UPDATE users
	                   SET games_played = games_played + 1,
	                       total_score  = total_score + ?,
	                       best_score   = MAX(best_score, ?)
	                   WHERE id=?`, score, score, userID)
	return err
}

// hardModeReq is the payload for POST /game/{id}/hardmode.
type hardModeReq struct {
	Hard bool `json:"hard"`
}

// handleHardMode toggles the per-language usage cap for a session.
func (s *Server) handleHardMode(w http.ResponseWriter, r *http.Request) {
	e := s.session(w, r)
	if e == nil {
		return
	}
	var req hardModeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	e.SetHardMode(req.Hard)
	_ = json.NewEncoder(w).Encode(e.Snapshot())
}

// handleReset restarts a session at a fresh random country.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	e := s.session(w, r)
	if e == nil {
		return
	}
	e.Reset()
	_ = json.NewEncoder(w).Encode(e.Snapshot())
}

// --------------------------- profile routes --------------------------------

// mountAuthRoutes registers authentication + gated routes
// (/auth/*, /stats/me, /games/mine).
func (s *Server) mountAuthRoutes() {
	s.r.Post("/auth/signup", s.handleSignup)
	s.r.Post("/auth/login", s.handleLogin)
	s.r.Post("/auth/logout", s.handleLogout)

	// Current user (gated)
	s.r.With(s.requireAuth()).Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		me, err := currentUser(r)
		if err != nil {
			http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(me)
	})

	s.r.With(s.requireAuth()).Get("/stats/me", func(w http.ResponseWriter, r *http.Request) {
		me, err := currentUser(r)
		if err != nil {
			http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
			return
		}
		var played, best, total int
		if err := s.db.QueryRow(`SELECT games_played, best_score, total_score FROM users WHERE id=?`,
			me.ID).Scan(&played, &best, &total); err != nil {
			http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]int{
			"gamesPlayed": played, "bestScore": best, "totalScore": total,
		})
	})

	s.r.With(s.requireAuth()).Get("/games/mine", func(w http.ResponseWriter, r *http.Request) {
		me, err := currentUser(r)
		if err != nil {
			http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
			return
		}
		rows, err := s.db.Query(`SELECT id, status, score, moves, started_at, COALESCE(finished_at,'')
		                         FROM games WHERE user_id=? ORDER BY started_at DESC LIMIT 50`, me.ID)
		if err != nil {
			http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
			return
		}
		defer rows.Close()

		type gameRow struct {
			ID         string `json:"id"`
			Status     string `json:"status"`
			Score      int    `json:"score"`
			Moves      int    `json:"moves"`
			StartedAt  string `json:"startedAt"`
			FinishedAt string `json:"finishedAt,omitempty"`
		}
		out := []gameRow{}
		for rows.Next() {
			var gr gameRow
			if err := rows.Scan(&gr.ID, &gr.Status, &gr.Score, &gr.Moves, &gr.StartedAt, &gr.FinishedAt); err == nil {
				out = append(out, gr)
			}
		}
		_ = json.NewEncoder(w).Encode(out)
	})
}

// ctxUserKey keys the authenticated user in the request context.
type ctxUserKey struct{}

// currentUser returns the authenticated user from the request context,
// or an error when the request is anonymous.
func currentUser(r *http.Request) (*authUser, error) {
	u, _ := r.Context().Value(ctxUserKey{}).(*authUser)
	if u == nil {
		return nil, errors.New("no user")
	}
	return u, nil
}

// withUser returns a request context carrying the authenticated user.
func withUser(ctx context.Context, u *authUser) context.Context {
	return context.WithValue(ctx, ctxUserKey{}, u)
}
