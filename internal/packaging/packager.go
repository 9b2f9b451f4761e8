package packaging

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/aledesanfer/mysteryforge/internal/core"
	"github.com/aledesanfer/mysteryforge/internal/logging"
)

// FilePackager lays the finished game out on disk: the canonical
// game.json, a manifest, the host guide and one sheet per suspect.
// Every file is written atomically so an interrupted run never leaves a
// half-written package behind.
type FilePackager struct {
	outputDir string
	log       *logging.Logger
}

// NewFilePackager creates a packager rooted at outputDir.
func NewFilePackager(outputDir string, log *logging.Logger) *FilePackager {
	if log == nil {
		log = logging.NewNop()
	}
	return &FilePackager{outputDir: outputDir, log: log}
}

// manifest is the human-scannable index written next to game.json.
type manifest struct {
	GameID     string    `yaml:"game_id"`
	CreatedAt  time.Time `yaml:"created_at"`
	Version    string    `yaml:"version"`
	Theme      string    `yaml:"theme"`
	Epoch      string    `yaml:"epoch"`
	Language   string    `yaml:"language"`
	Players    int       `yaml:"players"`
	Difficulty string    `yaml:"difficulty"`
	Location   string    `yaml:"location,omitempty"`
	Files      []string  `yaml:"files"`
}

// Package writes the complete game package and returns where it
// landed. Paths in the returned info are relative to the package
// directory, except OutputDir itself.
func (p *FilePackager) Package(ctx context.Context, state *core.GameState) (*core.PackagingInfo, error) {
	if state.HostGuide == nil {
		return nil, core.ErrValidation(core.CodeInvalidState,
			"packaging reached without a host guide")
	}
	if state.Crime == nil || state.KillerSelection == nil {
		return nil, core.ErrValidation(core.CodeInvalidState,
			"packaging reached without a designed crime")
	}

	dir := filepath.Join(p.outputDir, fmt.Sprintf("game-%s", state.Meta.ID))
	if err := os.MkdirAll(filepath.Join(dir, "players"), 0o750); err != nil {
		return nil, fmt.Errorf("creating package directory: %w", err)
	}

	var files []string
	write := func(rel string, data []byte) error {
		if err := ctx.Err(); err != nil {
			return core.ErrCancelled("packaging cancelled").WithCause(err)
		}
		if err := renameio.WriteFile(filepath.Join(dir, rel), data, 0o640); err != nil {
			return fmt.Errorf("writing %s: %w", rel, err)
		}
		files = append(files, rel)
		return nil
	}

	gameJSON, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding game state: %w", err)
	}
	if err := write("game.json", gameJSON); err != nil {
		return nil, err
	}

	if err := write("host-guide.md", []byte(renderHostGuide(state))); err != nil {
		return nil, err
	}
	if err := write("clues.md", []byte(renderClues(state))); err != nil {
		return nil, err
	}

	for _, ch := range state.Characters {
		rel := filepath.Join("players", fmt.Sprintf("%s-%s.md", ch.ID, sanitizeFilename(ch.Name)))
		timeline := state.PersonalTimelines[ch.ID]
		if err := write(rel, []byte(renderPlayerSheet(state, ch, timeline))); err != nil {
			return nil, err
		}
	}

	// The manifest goes last so it only ever lists files that exist.
	m := manifest{
		GameID:     string(state.Meta.ID),
		CreatedAt:  state.Meta.CreatedAt,
		Version:    state.Meta.Version,
		Theme:      state.Config.Theme,
		Epoch:      state.Config.Epoch,
		Language:   state.Config.Language,
		Players:    state.Config.Players.Total,
		Difficulty: string(state.Config.Difficulty),
		Files:      append([]string(nil), files...),
	}
	if state.World != nil {
		m.Location = state.World.LocationName
	}
	manifestYAML, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	if err := write("manifest.yaml", manifestYAML); err != nil {
		return nil, err
	}

	p.log.Info("game package written",
		"dir", dir,
		"files", len(files))

	return &core.PackagingInfo{
		OutputDir: dir,
		Files:     files,
	}, nil
}

// sanitizeFilename keeps characters safe for cross-platform filenames.
func sanitizeFilename(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		case r == ' ' || r == '/' || r == ':':
			b.WriteRune('-')
		}
	}
	return b.String()
}
