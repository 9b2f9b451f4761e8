package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aledesanfer/mysteryforge/internal/core"
)

// MockContentGenerator is a deterministic, offline core.ContentGenerator.
// With no scripting it produces canned, internally consistent content
// for every pipeline stage, sized to the game configuration. Tests and
// dry runs can script per-stage replies and injected failures.
type MockContentGenerator struct {
	mu      sync.Mutex
	cfg     core.GameConfig
	scripts map[string][]mockReply
	calls   map[string]int
}

type mockReply struct {
	payload json.RawMessage
	err     error
}

// NewMockContentGenerator creates a mock sized to cfg.
func NewMockContentGenerator(cfg core.GameConfig) *MockContentGenerator {
	return &MockContentGenerator{
		cfg:     cfg,
		scripts: make(map[string][]mockReply),
		calls:   make(map[string]int),
	}
}

// Name returns the generator name.
func (m *MockContentGenerator) Name() string { return "mock" }

// IsAvailable always reports true; the mock needs no tooling.
func (m *MockContentGenerator) IsAvailable(_ context.Context) bool { return true }

// Script queues a reply for a stage. Queued replies are consumed in
// FIFO order before the canned fallback.
func (m *MockContentGenerator) Script(stage string, payload any) *MockContentGenerator {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[stage] = append(m.scripts[stage], mockReply{payload: raw})
	return m
}

// ScriptError queues an injected failure for a stage.
func (m *MockContentGenerator) ScriptError(stage string, err error) *MockContentGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[stage] = append(m.scripts[stage], mockReply{err: err})
	return m
}

// CallCount reports how many times a stage has asked for content.
func (m *MockContentGenerator) CallCount(stage string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[stage]
}

// Generate returns the next scripted reply for the stage, or the
// canned payload. Identical sequences of calls produce identical
// results.
func (m *MockContentGenerator) Generate(ctx context.Context, req core.ContentRequest) (*core.ContentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.ErrCancelled("mock generation cancelled").WithCause(err)
	}

	m.mu.Lock()
	m.calls[req.Stage]++
	var reply *mockReply
	if queue := m.scripts[req.Stage]; len(queue) > 0 {
		r := queue[0]
		m.scripts[req.Stage] = queue[1:]
		reply = &r
	}
	m.mu.Unlock()

	if reply != nil {
		if reply.err != nil {
			return nil, reply.err
		}
		return &core.ContentResult{Raw: reply.payload, Model: "mock"}, nil
	}

	payload, err := m.cannedPayload(req.Stage)
	if err != nil {
		return nil, err
	}
	return &core.ContentResult{Raw: payload, Model: "mock"}, nil
}

func (m *MockContentGenerator) cannedPayload(stage string) (json.RawMessage, error) {
	var v any
	switch stage {
	case "world_generation":
		v = core.WorldBible{
			Epoch:           m.cfg.Epoch,
			LocationType:    "manor",
			LocationName:    "Blackwood Hall",
			Summary:         "An isolated manor on the moors, hosting its first gathering in a decade.",
			GatheringReason: "The reading of a will that everyone present has reason to fear.",
			VisualKeywords:  []string{"candlelight", "oak paneling", "storm outside"},
		}
	case "world_validation":
		v = core.WorldValidation{IsCoherent: true}
	case "visual_style":
		v = core.VisualStyle{
			StyleDescription: "painterly character portrait",
			ArtDirection:     "dramatic chiaroscuro, period-accurate dress",
			ColorPalette:     []string{"#2b1d0e", "#c9a227", "#6b0f1a"},
			Lighting:         "single candle key light",
			Background:       "dark neutral",
			NegativePrompts:  []string{"text", "watermarks"},
		}
	case "character_generation":
		v = m.cannedCharacters()
	case "relationship_generation":
		v = m.cannedRelationships()
	case "crime_design":
		v = m.cannedCrime()
	case "timeline_generation":
		v = m.cannedTimeline()
	case "killer_selection":
		v = core.KillerSelection{
			KillerID:       "char-1",
			Rationale:      "Motive, opportunity, and no alibi for the fatal half hour.",
			TruthNarrative: "The deed was done in the study during the toast, with the letter opener.",
		}
	case "game_logic_validation":
		v = core.ValidationReport{IsConsistent: true}
	case "content_generation":
		v = m.cannedContent()
	default:
		return nil, core.ErrExecution(core.CodeStageNotFound,
			fmt.Sprintf("mock has no canned payload for stage %q", stage))
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, core.ErrInvalidResponse("mock payload marshaling failed").WithCause(err)
	}
	return raw, nil
}

func (m *MockContentGenerator) cannedCharacters() map[string]any {
	total := m.cfg.Players.Total
	if total == 0 {
		total = 6
	}
	male := m.cfg.Players.Male
	chars := make([]core.CharacterSpec, total)
	for i := range chars {
		gender := "female"
		if i < male {
			gender = "male"
		}
		chars[i] = core.CharacterSpec{
			ID:                fmt.Sprintf("char-%d", i+1),
			Name:              fmt.Sprintf("Suspect %d", i+1),
			Gender:            gender,
			AgeRange:          "30-40",
			Role:              fmt.Sprintf("guest %d", i+1),
			PublicDescription: "A guest with more history in this house than they admit.",
			RelationToVictim:  "longtime acquaintance",
			MotiveForCrime:    fmt.Sprintf("stood to lose inheritance share %d", i+1),
			CostumeSuggestion: "evening wear of the period",
		}
	}
	return map[string]any{"characters": chars}
}

func (m *MockContentGenerator) cannedRelationships() map[string]any {
	total := m.cfg.Players.Total
	if total == 0 {
		total = 6
	}
	rels := make([]core.RelationshipSpec, 0, total)
	for i := 0; i < total; i++ {
		rels = append(rels, core.RelationshipSpec{
			ID:              fmt.Sprintf("rel-%d", i+1),
			FromCharacterID: fmt.Sprintf("char-%d", i+1),
			ToCharacterID:   fmt.Sprintf("char-%d", (i+1)%total+1),
			Type:            "old rivalry",
			Description:     "Their families have feuded over the estate for a generation.",
			TensionLevel:    3,
		})
	}
	return map[string]any{"relationships": rels}
}

func (m *MockContentGenerator) cannedCrime() core.CrimeSpec {
	return core.CrimeSpec{
		Victim: core.VictimSpec{
			ID:            "victim-1",
			Name:          "Edmund Blackwood",
			Age:           68,
			Gender:        m.cfg.HostGender,
			RoleInSetting: "master of the house",
			PublicPersona: "A patriarch whose generosity always carried a price.",
		},
		Method: core.MurderMethod{
			Type:        "stabbing",
			Description: "A single wound from a slender blade",
			WeaponUsed:  "letter opener",
		},
		Scene:             core.CrimeScene{RoomID: "study", Description: "The locked study, window ajar"},
		TimeOfDeathApprox: "21:30",
		PossibleWeapons:   []string{"letter opener", "carving knife"},
		Opportunities: []core.OpportunitySpec{
			{CharacterID: "char-1", CanBeAloneWithVictim: true,
				Window: core.TimeWindow{Start: "21:15", End: "21:45"}},
			{CharacterID: "char-2", CanBeAloneWithVictim: true,
				Window: core.TimeWindow{Start: "21:00", End: "21:20"}},
		},
	}
}

func (m *MockContentGenerator) cannedTimeline() core.GlobalTimeline {
	return core.GlobalTimeline{
		TimeBlocks: []core.TimeBlock{
			{
				ID: "block-1", Start: "20:00", End: "21:00",
				Events: []core.GlobalEvent{
					{ID: "event-1", TimeApprox: "20:15",
						Description:  "Guests arrive and gather in the hall",
						CharacterIDs: []string{"char-1", "char-2"}},
				},
			},
			{
				ID: "block-2", Start: "21:00", End: "22:00",
				Events: []core.GlobalEvent{
					{ID: "event-2", TimeApprox: "21:30",
						Description: "A cry is heard from the study", RoomID: "study"},
				},
			},
		},
		MurderEvent: &core.GlobalEvent{
			ID: "event-murder", TimeApprox: "21:30",
			Description: "The victim is found in the study", RoomID: "study",
		},
	}
}

func (m *MockContentGenerator) cannedContent() map[string]any {
	total := m.cfg.Players.Total
	if total == 0 {
		total = 6
	}
	timelines := make([]core.PersonalTimeline, total)
	for i := range timelines {
		id := fmt.Sprintf("char-%d", i+1)
		timelines[i] = core.PersonalTimeline{
			CharacterID: id,
			Events: []core.PersonalEvent{
				{
					ID:                 fmt.Sprintf("pe-%d", i+1),
					GlobalTimeBlockID:  "block-1",
					WhatTheyReallyDid:  "Mingled in the hall, watching the others",
					WhatTheyTellOthers: "I never left the hall all evening",
				},
			},
			SubjectiveNarrative: "The evening that changed everything, as they remember it.",
		}
	}
	return map[string]any{
		"personal_timelines": timelines,
		"clues": []core.ClueSpec{
			{ID: "clue-1", Type: "physical", Title: "Monogrammed handkerchief",
				Description:  "Found beneath the study window",
				Incriminates: []string{"char-1"}},
			{ID: "clue-2", Type: "testimony", Title: "The butler's account",
				Description:  "Swears the study door was locked from inside",
				IsRedHerring: true},
		},
		"host_guide": core.HostGuide{
			SpoilerFreeIntro:  "Welcome your guests to Blackwood Hall.",
			SetupInstructions: []string{"Print each suspect packet", "Hide the act two clues"},
			Act2IntroScript:   "The inspector has arrived, and nobody leaves.",
			DetectiveRole: &core.DetectiveRole{
				CharacterName:       "Inspector Hale",
				PublicDescription:   "A weathered inspector with no patience for theatrics",
				GuidingQuestions:    []string{"Who gained from the will?"},
				FinalSolutionScript: "It could only have been one of you...",
				CostumeSuggestion:   "overcoat and notebook",
			},
		},
	}
}

// MockImageGenerator is a deterministic, offline core.ImageGenerator.
// It writes a small deterministic payload to the requested path.
// Failures can be injected by output-path substring.
type MockImageGenerator struct {
	mu       sync.Mutex
	failures map[string]int
	calls    int
}

// NewMockImageGenerator creates a mock image generator.
func NewMockImageGenerator() *MockImageGenerator {
	return &MockImageGenerator{failures: make(map[string]int)}
}

// FailPathsContaining injects failures: the next `times` requests
// whose output path contains substr fail with a retryable rate-limit
// error. Pass times < 0 to fail such requests forever.
func (m *MockImageGenerator) FailPathsContaining(substr string, times int) *MockImageGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[substr] = times
	return m
}

// Calls reports the total number of generation attempts observed.
func (m *MockImageGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Name returns the generator name.
func (m *MockImageGenerator) Name() string { return "mock-images" }

// IsAvailable always reports true.
func (m *MockImageGenerator) IsAvailable(_ context.Context) bool { return true }

// Generate writes a deterministic payload, honoring injected failures
// and context cancellation.
func (m *MockImageGenerator) Generate(ctx context.Context, req core.ImageRequest) error {
	if err := ctx.Err(); err != nil {
		return core.ErrCancelled("mock image generation cancelled").WithCause(err)
	}

	m.mu.Lock()
	m.calls++
	for substr, remaining := range m.failures {
		if remaining != 0 && strings.Contains(req.OutputPath, substr) {
			if remaining > 0 {
				m.failures[substr] = remaining - 1
			}
			m.mu.Unlock()
			return core.ErrRateLimit(
				fmt.Sprintf("injected failure for %s", req.Subject))
		}
	}
	m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return core.ErrExecution(core.CodeGeneratorFailed,
			"creating image output directory failed").WithCause(err)
	}
	payload := fmt.Sprintf("MOCKIMG:%s\n", req.Subject)
	if err := os.WriteFile(req.OutputPath, []byte(payload), 0o644); err != nil {
		return core.ErrExecution(core.CodeGeneratorFailed,
			"writing mock image failed").WithCause(err)
	}
	return nil
}
