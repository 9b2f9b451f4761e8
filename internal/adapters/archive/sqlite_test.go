package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aledesanfer/mysteryforge/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testRecord(id string, created time.Time) RunRecord {
	return RunRecord{
		GameID:     id,
		CreatedAt:  created,
		Status:     "success",
		Theme:      "grand estate gala",
		Epoch:      "1920s",
		Language:   "en",
		Players:    6,
		Difficulty: "medium",
		OutputDir:  "games/game-" + id,
		Duration:   90 * time.Second,
	}
}

func TestStoreSaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created := time.Now().UTC().Truncate(time.Millisecond)
	rec := testRecord("game-1", created)
	rec.WorldRetries = 1
	rec.LogicRetries = 2

	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Get(ctx, "game-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil {
		t.Fatal("Get() returned nil for a saved record")
	}
	if got.Theme != rec.Theme || got.Players != rec.Players || got.Difficulty != rec.Difficulty {
		t.Errorf("Get() = %+v, want %+v", got, rec)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, created)
	}
	if got.Duration != 90*time.Second {
		t.Errorf("duration = %v, want 90s", got.Duration)
	}
	if got.WorldRetries != 1 || got.LogicRetries != 2 {
		t.Errorf("retries = %d/%d, want 1/2", got.WorldRetries, got.LogicRetries)
	}
}

func TestStoreGetMissing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Errorf("Get() = %+v for a missing record, want nil", got)
	}
}

func TestStoreUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := testRecord("game-1", time.Now().UTC())
	rec.Status = "aborted"
	rec.Reason = "retry budget exhausted at world_validation"
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	rec.Status = "success"
	rec.Reason = ""
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save() second time error = %v", err)
	}

	got, err := store.Get(ctx, "game-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != "success" || got.Reason != "" {
		t.Errorf("upsert kept status=%q reason=%q", got.Status, got.Reason)
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 1 {
		t.Errorf("List() has %d records after upsert, want 1", len(records))
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, id := range []string{"game-a", "game-b", "game-c"} {
		if err := store.Save(ctx, testRecord(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Save(%s) error = %v", id, err)
		}
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("List() has %d records, want 3", len(records))
	}
	want := []string{"game-c", "game-b", "game-a"}
	for i, rec := range records {
		if rec.GameID != want[i] {
			t.Errorf("records[%d] = %s, want %s", i, rec.GameID, want[i])
		}
	}
}

func TestStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, testRecord("game-1", time.Now().UTC())); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Delete(ctx, "game-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	got, err := store.Get(ctx, "game-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Error("record survived Delete()")
	}
}

func TestStoreReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.db")
	ctx := context.Background()

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if err := store.Save(ctx, testRecord("game-1", time.Now().UTC())); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, "game-1")
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if got == nil {
		t.Error("record lost across reopen")
	}
}

func TestNewRecord(t *testing.T) {
	state := core.NewGameState(core.GameConfig{
		Language:        "en",
		Epoch:           "1920s",
		Theme:           "grand estate gala",
		Players:         core.PlayerConfig{Total: 6, Male: 3, Female: 3},
		DurationMinutes: 120,
		Difficulty:      core.DifficultyMedium,
	})
	state.IncrementRetry("world_validation")
	state.IncrementRetry("game_logic_validation")
	state.IncrementRetry("game_logic_validation")
	state.Packaging = &core.PackagingInfo{OutputDir: "games/game-x"}

	rec := NewRecord(state, "success", "", 3*time.Minute)
	if rec.GameID != string(state.Meta.ID) {
		t.Errorf("game id = %s, want %s", rec.GameID, state.Meta.ID)
	}
	if rec.WorldRetries != 1 || rec.LogicRetries != 2 {
		t.Errorf("retries = %d/%d, want 1/2", rec.WorldRetries, rec.LogicRetries)
	}
	if rec.OutputDir != "games/game-x" {
		t.Errorf("output dir = %s", rec.OutputDir)
	}
	if rec.Duration != 3*time.Minute {
		t.Errorf("duration = %v", rec.Duration)
	}
}
