package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aledesanfer/mysteryforge/internal/core"
	"github.com/aledesanfer/mysteryforge/internal/logging"
)

// generateInto issues one structured-content call and decodes the
// payload. Decode failures surface as invalid-response errors, which
// are fatal to the enclosing stage.
func generateInto[T any](ctx context.Context, gen core.ContentGenerator, stage StageID, prompt string, out *T) error {
	res, err := gen.Generate(ctx, core.ContentRequest{
		Stage:  string(stage),
		Prompt: prompt,
		Schema: schemaFor[T](),
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(res.Raw, out); err != nil {
		return core.ErrInvalidResponse(
			fmt.Sprintf("%s returned a malformed payload", stage)).WithCause(err)
	}
	return nil
}

// WorldStage generates the setting of the mystery.
type WorldStage struct {
	gen core.ContentGenerator
}

func NewWorldStage(gen core.ContentGenerator) *WorldStage {
	return &WorldStage{gen: gen}
}

func (s *WorldStage) ID() StageID { return StageWorldGeneration }

func (s *WorldStage) Run(ctx context.Context, state *core.GameState) error {
	var world core.WorldBible
	if err := generateInto(ctx, s.gen, s.ID(), worldPrompt(state), &world); err != nil {
		return err
	}
	state.World = &world
	return nil
}

// VisualStyleStage pins down the portrait look for the whole run.
type VisualStyleStage struct {
	gen core.ContentGenerator
}

func NewVisualStyleStage(gen core.ContentGenerator) *VisualStyleStage {
	return &VisualStyleStage{gen: gen}
}

func (s *VisualStyleStage) ID() StageID { return StageVisualStyle }

func (s *VisualStyleStage) Run(ctx context.Context, state *core.GameState) error {
	var style core.VisualStyle
	if err := generateInto(ctx, s.gen, s.ID(), visualStylePrompt(state), &style); err != nil {
		return err
	}
	state.VisualStyle = &style
	return nil
}

// CharactersStage generates the suspect roster.
type CharactersStage struct {
	gen core.ContentGenerator
}

func NewCharactersStage(gen core.ContentGenerator) *CharactersStage {
	return &CharactersStage{gen: gen}
}

func (s *CharactersStage) ID() StageID { return StageCharacters }

type charactersPayload struct {
	Characters []core.CharacterSpec `json:"characters"`
}

func (s *CharactersStage) Run(ctx context.Context, state *core.GameState) error {
	var payload charactersPayload
	if err := generateInto(ctx, s.gen, s.ID(), charactersPrompt(state), &payload); err != nil {
		return err
	}

	want := state.Config.Players.Total
	if len(payload.Characters) != want {
		return core.ErrInvalidResponse(fmt.Sprintf(
			"character generation produced %d suspects, need %d", len(payload.Characters), want))
	}

	for i := range payload.Characters {
		if payload.Characters[i].ID == "" {
			payload.Characters[i].ID = core.NewEntityID("char")
		}
	}
	state.Characters = payload.Characters
	return nil
}

// RelationshipsStage connects the suspects.
type RelationshipsStage struct {
	gen core.ContentGenerator
}

func NewRelationshipsStage(gen core.ContentGenerator) *RelationshipsStage {
	return &RelationshipsStage{gen: gen}
}

func (s *RelationshipsStage) ID() StageID { return StageRelationships }

type relationshipsPayload struct {
	Relationships []core.RelationshipSpec `json:"relationships"`
}

func (s *RelationshipsStage) Run(ctx context.Context, state *core.GameState) error {
	var payload relationshipsPayload
	if err := generateInto(ctx, s.gen, s.ID(), relationshipsPrompt(state), &payload); err != nil {
		return err
	}

	for i := range payload.Relationships {
		rel := &payload.Relationships[i]
		if _, ok := state.CharacterByID(rel.FromCharacterID); !ok {
			return core.ErrInvalidResponse(fmt.Sprintf(
				"relationship references unknown suspect %q", rel.FromCharacterID))
		}
		if _, ok := state.CharacterByID(rel.ToCharacterID); !ok {
			return core.ErrInvalidResponse(fmt.Sprintf(
				"relationship references unknown suspect %q", rel.ToCharacterID))
		}
		if rel.ID == "" {
			rel.ID = core.NewEntityID("rel")
		}
	}
	state.Relationships = payload.Relationships
	return nil
}

// CrimeDesignStage defines victim, method, scene and opportunities.
type CrimeDesignStage struct {
	gen core.ContentGenerator
}

func NewCrimeDesignStage(gen core.ContentGenerator) *CrimeDesignStage {
	return &CrimeDesignStage{gen: gen}
}

func (s *CrimeDesignStage) ID() StageID { return StageCrimeDesign }

func (s *CrimeDesignStage) Run(ctx context.Context, state *core.GameState) error {
	var crime core.CrimeSpec
	if err := generateInto(ctx, s.gen, s.ID(), crimePrompt(state), &crime); err != nil {
		return err
	}
	if crime.Victim.ID == "" {
		crime.Victim.ID = core.NewEntityID("victim")
	}
	state.Crime = &crime
	return nil
}

// TimelineStage builds the shared timeline. It owns its field
// entirely: a logic-gate retry re-enters here and the fresh write
// replaces the rejected timeline.
type TimelineStage struct {
	gen core.ContentGenerator
}

func NewTimelineStage(gen core.ContentGenerator) *TimelineStage {
	return &TimelineStage{gen: gen}
}

func (s *TimelineStage) ID() StageID { return StageTimeline }

func (s *TimelineStage) Run(ctx context.Context, state *core.GameState) error {
	var timeline core.GlobalTimeline
	if err := generateInto(ctx, s.gen, s.ID(), timelinePrompt(state), &timeline); err != nil {
		return err
	}
	if len(timeline.TimeBlocks) == 0 {
		return core.ErrInvalidResponse("timeline generation produced no time blocks")
	}
	for i := range timeline.TimeBlocks {
		block := &timeline.TimeBlocks[i]
		if block.ID == "" {
			block.ID = core.NewEntityID("block")
		}
		for j := range block.Events {
			if block.Events[j].ID == "" {
				block.Events[j].ID = core.NewEntityID("event")
			}
		}
	}
	state.Timeline = &timeline
	return nil
}

// KillerSelectionStage picks the killer and registers the name as a
// spoiler term so it never reaches the console.
type KillerSelectionStage struct {
	gen core.ContentGenerator
	log *logging.Logger
}

func NewKillerSelectionStage(gen core.ContentGenerator, log *logging.Logger) *KillerSelectionStage {
	if log == nil {
		log = logging.NewNop()
	}
	return &KillerSelectionStage{gen: gen, log: log}
}

func (s *KillerSelectionStage) ID() StageID { return StageKillerSelection }

func (s *KillerSelectionStage) Run(ctx context.Context, state *core.GameState) error {
	var selection core.KillerSelection
	if err := generateInto(ctx, s.gen, s.ID(), killerPrompt(state), &selection); err != nil {
		return err
	}

	killer, ok := state.CharacterByID(selection.KillerID)
	if !ok {
		return core.ErrInvalidResponse(fmt.Sprintf(
			"killer selection named unknown suspect %q", selection.KillerID))
	}

	state.KillerSelection = &selection
	s.log.Redactor().AddTerm(killer.Name)
	return nil
}

// ContentStage writes the playable materials: personal timelines,
// clues and the host guide.
type ContentStage struct {
	gen core.ContentGenerator
}

func NewContentStage(gen core.ContentGenerator) *ContentStage {
	return &ContentStage{gen: gen}
}

func (s *ContentStage) ID() StageID { return StageContent }

type contentPayload struct {
	PersonalTimelines []core.PersonalTimeline `json:"personal_timelines"`
	Clues             []core.ClueSpec         `json:"clues"`
	HostGuide         core.HostGuide          `json:"host_guide"`
}

func (s *ContentStage) Run(ctx context.Context, state *core.GameState) error {
	var payload contentPayload
	if err := generateInto(ctx, s.gen, s.ID(), contentPrompt(state), &payload); err != nil {
		return err
	}

	timelines := make(map[string]core.PersonalTimeline, len(payload.PersonalTimelines))
	for _, pt := range payload.PersonalTimelines {
		if _, ok := state.CharacterByID(pt.CharacterID); !ok {
			return core.ErrInvalidResponse(fmt.Sprintf(
				"personal timeline references unknown suspect %q", pt.CharacterID))
		}
		timelines[pt.CharacterID] = pt
	}
	for _, id := range state.SuspectIDs() {
		if _, ok := timelines[id]; !ok {
			return core.ErrInvalidResponse(fmt.Sprintf(
				"no personal timeline produced for suspect %q", id))
		}
	}

	for i := range payload.Clues {
		if payload.Clues[i].ID == "" {
			payload.Clues[i].ID = core.NewEntityID("clue")
		}
	}

	state.PersonalTimelines = timelines
	state.Clues = payload.Clues
	state.HostGuide = &payload.HostGuide
	return nil
}

// Packager hands the finished run off to rendering and disk layout.
type Packager interface {
	Package(ctx context.Context, state *core.GameState) (*core.PackagingInfo, error)
}

// PackagingStage writes the final game package.
type PackagingStage struct {
	packager Packager
}

func NewPackagingStage(packager Packager) *PackagingStage {
	return &PackagingStage{packager: packager}
}

func (s *PackagingStage) ID() StageID { return StagePackaging }

func (s *PackagingStage) Run(ctx context.Context, state *core.GameState) error {
	info, err := s.packager.Package(ctx, state)
	if err != nil {
		return core.ErrExecution(core.CodePackagingFailed,
			"packaging the finished game failed").WithCause(err)
	}
	state.Packaging = info
	return nil
}
