package core

import (
	"strings"
	"testing"
)

func validConfig() GameConfig {
	return GameConfig{
		Language:        "en",
		Country:         "US",
		Epoch:           "1920s",
		Theme:           "jazz age mansion",
		Players:         PlayerConfig{Total: 6, Male: 3, Female: 3},
		HostGender:      "female",
		DurationMinutes: 120,
		Difficulty:      DifficultyMedium,
	}
}

func TestGameConfigValidate(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tooFew := validConfig()
	tooFew.Players.Total = 3
	if err := tooFew.Validate(); err == nil {
		t.Error("expected error for 3 players")
	}

	tooLong := validConfig()
	tooLong.DurationMinutes = 300
	if err := tooLong.Validate(); err == nil {
		t.Error("expected error for 300 minute duration")
	}

	badDifficulty := validConfig()
	badDifficulty.Difficulty = "brutal"
	if err := badDifficulty.Validate(); err == nil {
		t.Error("expected error for unknown difficulty")
	}
}

func TestNewGameState(t *testing.T) {
	s := NewGameState(validConfig())

	if s.Meta.ID == "" {
		t.Error("expected a generated run id")
	}
	if s.Meta.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
	if s.RetryCounts == nil {
		t.Error("expected RetryCounts map to be initialized")
	}
	if s.World != nil || s.Crime != nil {
		t.Error("fresh state should have no stage output")
	}
}

func TestNewEntityID(t *testing.T) {
	id := NewEntityID("char")
	if !strings.HasPrefix(id, "char-") {
		t.Errorf("id %q should carry the prefix", id)
	}
	if len(id) != len("char-")+8 {
		t.Errorf("id %q should have an 8 char suffix", id)
	}
	if id == NewEntityID("char") {
		t.Error("ids should be unique")
	}
}

func TestCharacterLookups(t *testing.T) {
	s := NewGameState(validConfig())
	s.Characters = []CharacterSpec{
		{ID: "char-1", Name: "Vera"},
		{ID: "char-2", Name: "Marcus", ImagePath: "portraits/marcus.png"},
		{ID: "char-3", Name: "Ingrid"},
	}

	c, ok := s.CharacterByID("char-2")
	if !ok || c.Name != "Marcus" {
		t.Fatalf("CharacterByID(char-2) = %v, %v", c, ok)
	}
	if _, ok := s.CharacterByID("char-9"); ok {
		t.Error("unknown id should not resolve")
	}

	ids := s.SuspectIDs()
	if len(ids) != 3 || ids[0] != "char-1" || ids[2] != "char-3" {
		t.Errorf("SuspectIDs() = %v, want declaration order", ids)
	}

	if got := s.PortraitCount(); got != 1 {
		t.Errorf("PortraitCount() = %d, want 1", got)
	}
}

func TestKiller(t *testing.T) {
	s := NewGameState(validConfig())
	s.Characters = []CharacterSpec{{ID: "char-1", Name: "Vera"}}

	if _, ok := s.Killer(); ok {
		t.Error("no killer before selection")
	}

	s.KillerSelection = &KillerSelection{KillerID: "char-1"}
	k, ok := s.Killer()
	if !ok || k.Name != "Vera" {
		t.Fatalf("Killer() = %v, %v", k, ok)
	}
}

func TestRetryCounters(t *testing.T) {
	s := NewGameState(validConfig())

	if got := s.RetryCount("game_logic_validation"); got != 0 {
		t.Errorf("initial count = %d, want 0", got)
	}
	if got := s.IncrementRetry("game_logic_validation"); got != 1 {
		t.Errorf("first increment = %d, want 1", got)
	}
	if got := s.IncrementRetry("game_logic_validation"); got != 2 {
		t.Errorf("second increment = %d, want 2", got)
	}
	if got := s.RetryCount("world_validation"); got != 0 {
		t.Errorf("other gate count = %d, want 0", got)
	}

	// Counters survive a nil map, e.g. after JSON round-trips that
	// drop the empty field.
	s.RetryCounts = nil
	if got := s.IncrementRetry("world_validation"); got != 1 {
		t.Errorf("increment on nil map = %d, want 1", got)
	}
}
