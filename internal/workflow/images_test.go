package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aledesanfer/mysteryforge/internal/adapters/genai"
	"github.com/aledesanfer/mysteryforge/internal/core"
)

func portraitTestState(t *testing.T, suspects int) *core.GameState {
	t.Helper()

	cfg := testGameConfig()
	cfg.GenerateImages = true
	cfg.Players.Total = suspects

	state := core.NewGameState(cfg)
	state.VisualStyle = &core.VisualStyle{
		StyleDescription: "painterly portrait",
		Lighting:         "candlelight",
	}
	state.Characters = make([]core.CharacterSpec, suspects)
	for i := range state.Characters {
		state.Characters[i] = core.CharacterSpec{
			ID:     fmt.Sprintf("char-%d", i+1),
			Name:   fmt.Sprintf("Suspect %d", i+1),
			Gender: "female",
		}
	}
	return state
}

func fastPortraitSettings(dir string, concurrency int) PortraitSettings {
	return PortraitSettings{
		OutputDir:   dir,
		Concurrency: concurrency,
		Policy: NewRetryPolicy(
			WithMaxAttempts(3),
			WithBaseDelay(time.Millisecond),
			WithJitter(0),
		),
	}
}

func TestCharacterPortraitsAllSucceed(t *testing.T) {
	dir := t.TempDir()
	img := genai.NewMockImageGenerator()
	stage := NewCharacterPortraitsStage(img, fastPortraitSettings(dir, 4), nil)

	state := portraitTestState(t, 6)
	if err := stage.Run(context.Background(), state); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := state.PortraitCount(); got != 6 {
		t.Errorf("portrait count = %d, want 6", got)
	}
	for _, ch := range state.Characters {
		if ch.ImagePath == "" {
			t.Errorf("suspect %s has no portrait path", ch.ID)
			continue
		}
		if _, err := os.Stat(ch.ImagePath); err != nil {
			t.Errorf("portrait file for %s missing: %v", ch.ID, err)
		}
	}
}

func TestCharacterPortraitsOneSuspectExhaustsRetries(t *testing.T) {
	// Eight portraits, five workers, and the fourth suspect's portrait
	// failing on every attempt. The other seven land and the run keeps
	// going.
	dir := t.TempDir()
	img := genai.NewMockImageGenerator().FailPathsContaining("char-4.png", -1)
	stage := NewCharacterPortraitsStage(img, fastPortraitSettings(dir, 5), nil)

	state := portraitTestState(t, 8)
	if err := stage.Run(context.Background(), state); err != nil {
		t.Fatalf("Run() error = %v, partial portrait failure must not abort", err)
	}

	if got := state.PortraitCount(); got != 7 {
		t.Errorf("portrait count = %d, want 7", got)
	}
	for i, ch := range state.Characters {
		if i == 3 {
			if ch.ImagePath != "" {
				t.Errorf("failing suspect got portrait path %q", ch.ImagePath)
			}
			continue
		}
		if ch.ImagePath == "" {
			t.Errorf("suspect %s lost its portrait to a sibling failure", ch.ID)
		}
	}
	// 7 successes plus 3 attempts on the failing portrait.
	if got := img.Calls(); got != 10 {
		t.Errorf("image generator saw %d calls, want 10", got)
	}
}

func TestCharacterPortraitsZeroSuccessesStillSucceeds(t *testing.T) {
	dir := t.TempDir()
	img := genai.NewMockImageGenerator().FailPathsContaining(".png", -1)
	stage := NewCharacterPortraitsStage(img, fastPortraitSettings(dir, 3), nil)

	state := portraitTestState(t, 4)
	if err := stage.Run(context.Background(), state); err != nil {
		t.Fatalf("Run() error = %v, portraits are best-effort", err)
	}
	if got := state.PortraitCount(); got != 0 {
		t.Errorf("portrait count = %d, want 0", got)
	}
}

func TestCharacterPortraitsSkippedWhenDisabled(t *testing.T) {
	img := genai.NewMockImageGenerator()
	stage := NewCharacterPortraitsStage(img, fastPortraitSettings(t.TempDir(), 3), nil)

	state := portraitTestState(t, 4)
	state.Config.GenerateImages = false

	if err := stage.Run(context.Background(), state); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if img.Calls() != 0 {
		t.Errorf("image generator called %d times with images disabled", img.Calls())
	}
}

func TestCharacterPortraitsCancelled(t *testing.T) {
	img := genai.NewMockImageGenerator()
	stage := NewCharacterPortraitsStage(img, fastPortraitSettings(t.TempDir(), 2), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state := portraitTestState(t, 4)
	if err := stage.Run(ctx, state); err == nil {
		t.Fatal("Run() succeeded under a cancelled context")
	}
}

func TestHostPortraits(t *testing.T) {
	dir := t.TempDir()
	img := genai.NewMockImageGenerator()
	stage := NewHostPortraitsStage(img, fastPortraitSettings(dir, 2), nil)

	state := portraitTestState(t, 4)
	state.Crime = &core.CrimeSpec{
		Victim: core.VictimSpec{ID: "victim-1", Name: "Edmund Blackwood"},
	}
	state.HostGuide = &core.HostGuide{
		DetectiveRole: &core.DetectiveRole{CharacterName: "Inspector Hale"},
	}

	if err := stage.Run(context.Background(), state); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantVictim := filepath.Join(dir, "game-"+string(state.Meta.ID), "portraits", "victim.png")
	if state.Crime.Victim.ImagePath != wantVictim {
		t.Errorf("victim portrait path = %q, want %q", state.Crime.Victim.ImagePath, wantVictim)
	}
	if state.HostGuide.DetectiveRole.ImagePath == "" {
		t.Error("detective portrait path not set")
	}
	for _, path := range []string{state.Crime.Victim.ImagePath, state.HostGuide.DetectiveRole.ImagePath} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("portrait file missing: %v", err)
		}
	}
}

func TestHostPortraitsVictimFailureDegrades(t *testing.T) {
	dir := t.TempDir()
	img := genai.NewMockImageGenerator().FailPathsContaining("victim.png", -1)
	stage := NewHostPortraitsStage(img, fastPortraitSettings(dir, 2), nil)

	state := portraitTestState(t, 4)
	state.Crime = &core.CrimeSpec{
		Victim: core.VictimSpec{ID: "victim-1", Name: "Edmund Blackwood"},
	}
	state.HostGuide = &core.HostGuide{
		DetectiveRole: &core.DetectiveRole{CharacterName: "Inspector Hale"},
	}

	if err := stage.Run(context.Background(), state); err != nil {
		t.Fatalf("Run() error = %v, host portraits are best-effort", err)
	}
	if state.Crime.Victim.ImagePath != "" {
		t.Error("failed victim portrait recorded a path")
	}
	if state.HostGuide.DetectiveRole.ImagePath == "" {
		t.Error("detective portrait lost to the victim failure")
	}
}
