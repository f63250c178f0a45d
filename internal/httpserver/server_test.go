package httpserver

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lingotrail/go-server/internal/atlas"
	"github.com/lingotrail/go-server/internal/game"
	"github.com/lingotrail/go-server/internal/store"
)

// Every country speaks the same language so a move is always available
// regardless of the random starting country.
const serverCSV = `Country,Language
Aland,"norn"
Bora,"norn"
Cusco,"norn"
`

func testServer(t *testing.T) *Server {
	t.Helper()
	repo, err := atlas.Load(strings.NewReader(serverCSV))
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	schema := `
	CREATE TABLE users (id TEXT PRIMARY KEY, username TEXT, password_hash TEXT,
		created_at TEXT, games_played INTEGER DEFAULT 0, best_score INTEGER DEFAULT 0,
		total_score INTEGER DEFAULT 0);
	CREATE TABLE games (id TEXT PRIMARY KEY, user_id TEXT, anonymous_id TEXT,
		started_at TEXT, finished_at TEXT, status TEXT, score INTEGER DEFAULT 0,
		moves INTEGER DEFAULT 0, hard_mode INTEGER DEFAULT 0);
	CREATE TABLE daily_results (user_id TEXT, date TEXT, start_index INTEGER,
		score INTEGER, moves_used INTEGER, created_at TEXT DEFAULT (datetime('now')),
		UNIQUE(user_id, date));`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return New(repo, store.NewMemoryStore(), db)
}

func postJSON(t *testing.T, srv *Server, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s response: %v", path, err)
		}
	}
	return rec
}

func TestGameFlow(t *testing.T) {
	srv := testServer(t)

	var created newGameRes
	if rec := postJSON(t, srv, "/game/new", newGameReq{}, &created); rec.Code != http.StatusOK {
		t.Fatalf("/game/new = %d: %s", rec.Code, rec.Body.String())
	}
	if created.GameID == "" || created.State.CurrentCountry == "" {
		t.Fatalf("new game response = %+v", created)
	}

	var sel moveRes
	postJSON(t, srv, "/game/"+created.GameID+"/language", languageReq{Language: "norn"}, &sel)
	if !sel.Success {
		t.Fatalf("language selection rejected: %+v", sel)
	}

	// Move to any fixture country other than the starting one.
	target := ""
	for _, c := range []string{"Aland", "Bora", "Cusco"} {
		if c != created.State.CurrentCountry {
			target = c
			break
		}
	}
	var moved moveRes
	postJSON(t, srv, "/game/"+created.GameID+"/move", moveReq{Country: target}, &moved)
	if !moved.Success {
		t.Fatalf("move to %s failed: %+v", target, moved)
	}
	if moved.State.TotalScore == 0 || moved.Move == nil {
		t.Errorf("move response = %+v, want points and move record", moved)
	}

	// State endpoint reflects the move.
	req := httptest.NewRequest(http.MethodGet, "/game/"+created.GameID, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	var snap game.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.CurrentCountry != target {
		t.Errorf("snapshot country = %q, want %q", snap.CurrentCountry, target)
	}
}

func TestUnknownSessionIs404(t *testing.T) {
	srv := testServer(t)
	rec := postJSON(t, srv, "/game/nope/move", moveReq{Country: "Aland"}, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestUnknownLanguageIs404(t *testing.T) {
	srv := testServer(t)
	var created newGameRes
	postJSON(t, srv, "/game/new", newGameReq{}, &created)
	rec := postJSON(t, srv, "/game/"+created.GameID+"/language", languageReq{Language: "klingon"}, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
