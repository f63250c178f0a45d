package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lingotrail/go-server/internal/atlas"
	"github.com/lingotrail/go-server/internal/game"
)

const storeCSV = `Country,Language
France,"french"
Belgium,"french"
`

func TestSaveAndGet(t *testing.T) {
	repo, err := atlas.Load(strings.NewReader(storeCSV))
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	st := NewMemoryStore()
	ctx := context.Background()

	e := game.New(repo, nil)
	if err := st.Save(ctx, e); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := st.Get(ctx, e.ID())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != e {
		t.Error("get returned a different engine")
	}
}

func TestGetMissing(t *testing.T) {
	st := NewMemoryStore()
	_, err := st.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
