package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GameID uniquely identifies a generation run.
type GameID string

// NewGameID generates a fresh run identifier.
func NewGameID() GameID {
	return GameID(uuid.NewString())
}

// NewEntityID generates a prefixed short identifier for a state entity
// (e.g. "char-1a2b3c4d").
func NewEntityID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}

// MetaInfo holds metadata about a run.
type MetaInfo struct {
	ID        GameID    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Version   string    `json:"version"`
}

// DifficultyLevel controls how hard the mystery is to solve.
type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

// PlayerConfig describes the player distribution.
type PlayerConfig struct {
	Total  int `json:"total" mapstructure:"total"`
	Male   int `json:"male" mapstructure:"male"`
	Female int `json:"female" mapstructure:"female"`
}

// GameConfig holds the run preferences. It is fully formed before the
// pipeline starts; there is no interactive collection step.
type GameConfig struct {
	Language        string          `json:"language" mapstructure:"language"`
	Country         string          `json:"country" mapstructure:"country"`
	Epoch           string          `json:"epoch" mapstructure:"epoch"`
	Theme           string          `json:"theme" mapstructure:"theme"`
	Players         PlayerConfig    `json:"players" mapstructure:"players"`
	HostGender      string          `json:"host_gender" mapstructure:"host_gender"`
	DurationMinutes int             `json:"duration_minutes" mapstructure:"duration_minutes"`
	Difficulty      DifficultyLevel `json:"difficulty" mapstructure:"difficulty"`
	GenerateImages  bool            `json:"generate_images" mapstructure:"generate_images"`
	DryRun          bool            `json:"dry_run" mapstructure:"dry_run"`
}

// Validate checks config invariants.
func (c *GameConfig) Validate() error {
	if c.Players.Total < 4 || c.Players.Total > 10 {
		return ErrValidation(CodeInvalidConfig,
			fmt.Sprintf("players.total must be between 4 and 10, got %d", c.Players.Total))
	}
	if c.DurationMinutes < 60 || c.DurationMinutes > 180 {
		return ErrValidation(CodeInvalidConfig,
			fmt.Sprintf("duration_minutes must be between 60 and 180, got %d", c.DurationMinutes))
	}
	switch c.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
	default:
		return ErrValidation(CodeInvalidConfig,
			fmt.Sprintf("unknown difficulty %q", c.Difficulty))
	}
	return nil
}

// WorldBible defines the setting of the mystery.
type WorldBible struct {
	Epoch           string   `json:"epoch"`
	LocationType    string   `json:"location_type"`
	LocationName    string   `json:"location_name"`
	Summary         string   `json:"summary"`
	GatheringReason string   `json:"gathering_reason"`
	VisualKeywords  []string `json:"visual_keywords,omitempty"`
	Constraints     []string `json:"constraints,omitempty"`
}

// VisualStyle pins down a consistent look for all generated portraits.
type VisualStyle struct {
	StyleDescription string   `json:"style_description"`
	ArtDirection     string   `json:"art_direction"`
	ColorPalette     []string `json:"color_palette,omitempty"`
	Lighting         string   `json:"lighting"`
	Background       string   `json:"background"`
	NegativePrompts  []string `json:"negative_prompts,omitempty"`
}

// CharacterSpec describes one suspect.
type CharacterSpec struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Gender            string   `json:"gender"`
	AgeRange          string   `json:"age_range"`
	Role              string   `json:"role"`
	PublicDescription string   `json:"public_description"`
	PersonalityTraits []string `json:"personality_traits,omitempty"`
	RelationToVictim  string   `json:"relation_to_victim"`
	PersonalSecrets   []string `json:"personal_secrets,omitempty"`
	PersonalGoals     []string `json:"personal_goals,omitempty"`
	MotiveForCrime    string   `json:"motive_for_crime,omitempty"`
	CostumeSuggestion string   `json:"costume_suggestion,omitempty"`
	ImagePath         string   `json:"image_path,omitempty"`
}

// RelationshipSpec links two suspects.
type RelationshipSpec struct {
	ID              string `json:"id"`
	FromCharacterID string `json:"from_character_id"`
	ToCharacterID   string `json:"to_character_id"`
	Type            string `json:"type"`
	Description     string `json:"description"`
	TensionLevel    int    `json:"tension_level"`
}

// TimeWindow is a start/end pair in HH:MM form.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// VictimSpec describes the victim, roleplayed by the host in act one.
type VictimSpec struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Age               int      `json:"age"`
	Gender            string   `json:"gender"`
	RoleInSetting     string   `json:"role_in_setting"`
	PublicPersona     string   `json:"public_persona"`
	Secrets           []string `json:"secrets,omitempty"`
	CostumeSuggestion string   `json:"costume_suggestion,omitempty"`
	ImagePath         string   `json:"image_path,omitempty"`
}

// MurderMethod describes how the crime was committed.
type MurderMethod struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	WeaponUsed  string `json:"weapon_used"`
}

// CrimeScene describes where the crime was committed.
type CrimeScene struct {
	RoomID      string `json:"room_id"`
	Description string `json:"description"`
}

// OpportunitySpec is a suspect's window to commit the crime.
type OpportunitySpec struct {
	CharacterID          string     `json:"character_id"`
	CanBeAloneWithVictim bool       `json:"can_be_alone_with_victim"`
	Window               TimeWindow `json:"time_window"`
	Notes                string     `json:"notes,omitempty"`
}

// CrimeSpec is the complete crime definition.
type CrimeSpec struct {
	Victim             VictimSpec        `json:"victim"`
	Method             MurderMethod      `json:"murder_method"`
	Scene              CrimeScene        `json:"crime_scene"`
	TimeOfDeathApprox  string            `json:"time_of_death_approx"`
	PossibleWeapons    []string          `json:"possible_weapons,omitempty"`
	Opportunities      []OpportunitySpec `json:"possible_opportunities,omitempty"`
}

// GlobalEvent is one event in the shared timeline.
type GlobalEvent struct {
	ID           string   `json:"id"`
	TimeApprox   string   `json:"time_approx"`
	Description  string   `json:"description"`
	CharacterIDs []string `json:"character_ids_involved,omitempty"`
	RoomID       string   `json:"room_id,omitempty"`
}

// TimeBlock groups events inside a start/end window.
type TimeBlock struct {
	ID     string        `json:"id"`
	Start  string        `json:"start"`
	End    string        `json:"end"`
	Events []GlobalEvent `json:"events,omitempty"`
}

// GlobalTimeline is the shared sequence of party events.
type GlobalTimeline struct {
	TimeBlocks  []TimeBlock  `json:"time_blocks"`
	MurderEvent *GlobalEvent `json:"murder_event,omitempty"`
}

// KillerSelection records who did it and why.
type KillerSelection struct {
	KillerID       string   `json:"killer_id"`
	Rationale      string   `json:"rationale"`
	ModifiedEvents []string `json:"modified_events,omitempty"`
	TruthNarrative string   `json:"truth_narrative"`
}

// PersonalEvent is one timeline entry from a character's perspective.
type PersonalEvent struct {
	ID                  string   `json:"id"`
	GlobalTimeBlockID   string   `json:"global_time_block_id"`
	WhatTheyReallyDid   string   `json:"what_they_really_did"`
	WhatTheyTellOthers  string   `json:"what_they_will_tell_others"`
	ObservedInfo        []string `json:"info_they_observed,omitempty"`
	HiddenActions       string   `json:"hidden_actions,omitempty"`
}

// PersonalTimeline is a character's private account of the evening.
type PersonalTimeline struct {
	CharacterID         string          `json:"character_id"`
	Events              []PersonalEvent `json:"events,omitempty"`
	SubjectiveNarrative string          `json:"subjective_narrative"`
}

// ClueSpec is one piece of evidence revealed in act two.
type ClueSpec struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Incriminates []string `json:"incriminates,omitempty"`
	Exonerates   []string `json:"exonerates,omitempty"`
	IsRedHerring bool     `json:"is_red_herring"`
}

// DetectiveRole is the host's act-two persona.
type DetectiveRole struct {
	CharacterName       string   `json:"character_name"`
	PublicDescription   string   `json:"public_description"`
	GuidingQuestions    []string `json:"guiding_questions,omitempty"`
	FinalSolutionScript string   `json:"final_solution_script"`
	CostumeSuggestion   string   `json:"costume_suggestion,omitempty"`
	ImagePath           string   `json:"image_path,omitempty"`
}

// HostGuide bundles everything the host needs to run the party.
type HostGuide struct {
	SpoilerFreeIntro  string         `json:"spoiler_free_intro"`
	SetupInstructions []string       `json:"setup_instructions,omitempty"`
	RuntimeTips       []string       `json:"runtime_tips,omitempty"`
	Act2IntroScript   string         `json:"act_2_intro_script,omitempty"`
	DetectiveRole     *DetectiveRole `json:"detective_role,omitempty"`
}

// PackagingInfo records where the finished game package was written.
type PackagingInfo struct {
	OutputDir string   `json:"output_dir"`
	Files     []string `json:"files,omitempty"`
}

// ValidationIssue is one problem found by the logic validator.
type ValidationIssue struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Severity    string   `json:"severity"`
	Description string   `json:"description"`
	RelatedIDs  []string `json:"related_ids,omitempty"`
}

// ValidationReport is the game-logic validator's judgment. Gates are
// read-only over run state, so reports surface only through verdict
// reasons and logs, never through state fields.
type ValidationReport struct {
	IsConsistent   bool              `json:"is_consistent"`
	Issues         []ValidationIssue `json:"issues,omitempty"`
	SuggestedFixes []string          `json:"suggested_fixes,omitempty"`
}

// WorldValidation is the world-coherence validator's judgment.
type WorldValidation struct {
	IsCoherent  bool     `json:"is_coherent"`
	Issues      []string `json:"issues,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// GameState is the single record threaded through the whole pipeline.
// Each stage writes only the fields it owns; prior fields are read-only
// to later stages by convention.
type GameState struct {
	Meta   MetaInfo   `json:"meta"`
	Config GameConfig `json:"config"`

	World       *WorldBible  `json:"world,omitempty"`
	VisualStyle *VisualStyle `json:"visual_style,omitempty"`

	Characters    []CharacterSpec    `json:"characters,omitempty"`
	Relationships []RelationshipSpec `json:"relationships,omitempty"`

	Crime           *CrimeSpec       `json:"crime,omitempty"`
	Timeline        *GlobalTimeline  `json:"timeline_global,omitempty"`
	KillerSelection *KillerSelection `json:"killer_selection,omitempty"`

	PersonalTimelines map[string]PersonalTimeline `json:"personal_timelines,omitempty"`
	Clues             []ClueSpec                  `json:"clues,omitempty"`
	HostGuide         *HostGuide                  `json:"host_guide,omitempty"`
	Packaging         *PackagingInfo              `json:"packaging,omitempty"`

	// Per-gate retry counters. The owning gate (through the engine) is
	// the only writer; counters never decrease within a run.
	RetryCounts map[string]int `json:"retry_counts,omitempty"`
}

// NewGameState creates the initial state for a run.
func NewGameState(cfg GameConfig) *GameState {
	return &GameState{
		Meta: MetaInfo{
			ID:        NewGameID(),
			CreatedAt: time.Now().UTC(),
			Version:   "v1",
		},
		Config:      cfg,
		RetryCounts: make(map[string]int),
	}
}

// CharacterByID returns the suspect with the given id.
func (s *GameState) CharacterByID(id string) (*CharacterSpec, bool) {
	for i := range s.Characters {
		if s.Characters[i].ID == id {
			return &s.Characters[i], true
		}
	}
	return nil, false
}

// SuspectIDs returns the ids of all suspects in declaration order.
func (s *GameState) SuspectIDs() []string {
	ids := make([]string, 0, len(s.Characters))
	for i := range s.Characters {
		ids = append(ids, s.Characters[i].ID)
	}
	return ids
}

// Killer returns the selected killer, if one has been chosen.
func (s *GameState) Killer() (*CharacterSpec, bool) {
	if s.KillerSelection == nil {
		return nil, false
	}
	return s.CharacterByID(s.KillerSelection.KillerID)
}

// PortraitCount returns how many suspects have a generated portrait.
func (s *GameState) PortraitCount() int {
	n := 0
	for i := range s.Characters {
		if s.Characters[i].ImagePath != "" {
			n++
		}
	}
	return n
}

// RetryCount returns the retry counter for a gate.
func (s *GameState) RetryCount(gate string) int {
	return s.RetryCounts[gate]
}

// IncrementRetry bumps the retry counter for a gate and returns the new
// value. Called by the engine on behalf of the owning gate.
func (s *GameState) IncrementRetry(gate string) int {
	if s.RetryCounts == nil {
		s.RetryCounts = make(map[string]int)
	}
	s.RetryCounts[gate]++
	return s.RetryCounts[gate]
}
