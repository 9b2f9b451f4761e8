package packaging

import (
	"fmt"
	"strings"

	"github.com/aledesanfer/mysteryforge/internal/core"
)

// renderHostGuide produces the host's full briefing. Everything past
// the spoiler marker assumes the host has finished act one.
func renderHostGuide(state *core.GameState) string {
	var sb strings.Builder
	guide := state.HostGuide

	sb.WriteString("# Host Guide\n\n")
	if state.World != nil {
		sb.WriteString(fmt.Sprintf("**Setting**: %s, %s\n\n", state.World.LocationName, state.World.Epoch))
	}
	sb.WriteString(guide.SpoilerFreeIntro + "\n\n")

	if len(guide.SetupInstructions) > 0 {
		sb.WriteString("## Setup\n\n")
		for i, step := range guide.SetupInstructions {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, step))
		}
		sb.WriteString("\n")
	}

	if len(guide.RuntimeTips) > 0 {
		sb.WriteString("## Running the Evening\n\n")
		for _, tip := range guide.RuntimeTips {
			sb.WriteString(fmt.Sprintf("- %s\n", tip))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## The Victim\n\n")
	victim := state.Crime.Victim
	sb.WriteString(fmt.Sprintf("You play **%s** (%d, %s) through act one.\n\n",
		victim.Name, victim.Age, victim.RoleInSetting))
	sb.WriteString(victim.PublicPersona + "\n\n")
	if victim.CostumeSuggestion != "" {
		sb.WriteString(fmt.Sprintf("**Costume**: %s\n\n", victim.CostumeSuggestion))
	}

	if guide.Act2IntroScript != "" {
		sb.WriteString("## Act Two Opening\n\n")
		sb.WriteString(guide.Act2IntroScript + "\n\n")
	}

	if det := guide.DetectiveRole; det != nil {
		sb.WriteString("## Your Detective\n\n")
		sb.WriteString(fmt.Sprintf("**%s** - %s\n\n", det.CharacterName, det.PublicDescription))
		if len(det.GuidingQuestions) > 0 {
			sb.WriteString("Questions to steer a stuck table:\n\n")
			for _, q := range det.GuidingQuestions {
				sb.WriteString(fmt.Sprintf("- %s\n", q))
			}
			sb.WriteString("\n")
		}
		if det.CostumeSuggestion != "" {
			sb.WriteString(fmt.Sprintf("**Costume**: %s\n\n", det.CostumeSuggestion))
		}
	}

	sb.WriteString("---\n\n")
	sb.WriteString("## ⚠️ SPOILERS: The Solution\n\n")
	if killer, ok := state.Killer(); ok {
		sb.WriteString(fmt.Sprintf("**The killer is %s** (%s).\n\n", killer.Name, killer.ID))
	}
	sb.WriteString(fmt.Sprintf("**Why**: %s\n\n", state.KillerSelection.Rationale))
	sb.WriteString("### What Really Happened\n\n")
	sb.WriteString(state.KillerSelection.TruthNarrative + "\n\n")
	sb.WriteString(fmt.Sprintf("**Method**: %s, using %s. Time of death around %s in %s.\n",
		state.Crime.Method.Description,
		state.Crime.Method.WeaponUsed,
		state.Crime.TimeOfDeathApprox,
		state.Crime.Scene.Description))

	if det := guide.DetectiveRole; det != nil && det.FinalSolutionScript != "" {
		sb.WriteString("\n### Final Reveal Script\n\n")
		sb.WriteString(det.FinalSolutionScript + "\n")
	}

	return sb.String()
}

// renderClues produces the host's evidence pack for act two.
func renderClues(state *core.GameState) string {
	var sb strings.Builder

	sb.WriteString("# Clues\n\n")
	sb.WriteString("Reveal these during act two, in whatever order keeps the table guessing.\n\n")

	for i, clue := range state.Clues {
		sb.WriteString(fmt.Sprintf("## %d. %s\n\n", i+1, clue.Title))
		sb.WriteString(fmt.Sprintf("*%s*", clue.Type))
		if clue.IsRedHerring {
			sb.WriteString(" (red herring)")
		}
		sb.WriteString("\n\n")
		sb.WriteString(clue.Description + "\n\n")
		if len(clue.Incriminates) > 0 {
			sb.WriteString(fmt.Sprintf("Points at: %s\n\n", strings.Join(suspectNames(state, clue.Incriminates), ", ")))
		}
		if len(clue.Exonerates) > 0 {
			sb.WriteString(fmt.Sprintf("Clears: %s\n\n", strings.Join(suspectNames(state, clue.Exonerates), ", ")))
		}
	}

	return sb.String()
}

// renderPlayerSheet produces one suspect's private packet. It contains
// that player's own secrets but never names the killer.
func renderPlayerSheet(state *core.GameState, ch core.CharacterSpec, timeline core.PersonalTimeline) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", ch.Name))
	sb.WriteString(fmt.Sprintf("*%s, %s*\n\n", ch.Role, ch.AgeRange))
	sb.WriteString(ch.PublicDescription + "\n\n")

	if ch.CostumeSuggestion != "" {
		sb.WriteString(fmt.Sprintf("**Costume**: %s\n\n", ch.CostumeSuggestion))
	}
	if ch.RelationToVictim != "" {
		sb.WriteString(fmt.Sprintf("**Your connection to the victim**: %s\n\n", ch.RelationToVictim))
	}

	if len(ch.PersonalityTraits) > 0 {
		sb.WriteString("## How You Carry Yourself\n\n")
		for _, trait := range ch.PersonalityTraits {
			sb.WriteString(fmt.Sprintf("- %s\n", trait))
		}
		sb.WriteString("\n")
	}

	if len(ch.PersonalSecrets) > 0 || len(ch.PersonalGoals) > 0 {
		sb.WriteString("## For Your Eyes Only\n\n")
		for _, secret := range ch.PersonalSecrets {
			sb.WriteString(fmt.Sprintf("- %s\n", secret))
		}
		for _, goal := range ch.PersonalGoals {
			sb.WriteString(fmt.Sprintf("- Goal: %s\n", goal))
		}
		sb.WriteString("\n")
	}

	if len(state.Relationships) > 0 {
		if lines := relationshipLines(state, ch.ID); len(lines) > 0 {
			sb.WriteString("## The Other Guests\n\n")
			for _, line := range lines {
				sb.WriteString(fmt.Sprintf("- %s\n", line))
			}
			sb.WriteString("\n")
		}
	}

	if len(timeline.Events) > 0 {
		sb.WriteString("## Your Evening\n\n")
		if timeline.SubjectiveNarrative != "" {
			sb.WriteString(timeline.SubjectiveNarrative + "\n\n")
		}
		for _, ev := range timeline.Events {
			if window, ok := blockWindow(state, ev.GlobalTimeBlockID); ok {
				sb.WriteString(fmt.Sprintf("### %s\n\n", window))
			}
			sb.WriteString(fmt.Sprintf("**What you actually did**: %s\n\n", ev.WhatTheyReallyDid))
			sb.WriteString(fmt.Sprintf("**What you tell the others**: %s\n\n", ev.WhatTheyTellOthers))
			for _, seen := range ev.ObservedInfo {
				sb.WriteString(fmt.Sprintf("- You noticed: %s\n", seen))
			}
			if len(ev.ObservedInfo) > 0 {
				sb.WriteString("\n")
			}
		}
	}

	return sb.String()
}

func suspectNames(state *core.GameState, ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if ch, ok := state.CharacterByID(id); ok {
			names = append(names, ch.Name)
		} else {
			names = append(names, id)
		}
	}
	return names
}

func relationshipLines(state *core.GameState, characterID string) []string {
	var lines []string
	for _, rel := range state.Relationships {
		var otherID string
		switch characterID {
		case rel.FromCharacterID:
			otherID = rel.ToCharacterID
		case rel.ToCharacterID:
			otherID = rel.FromCharacterID
		default:
			continue
		}
		other, ok := state.CharacterByID(otherID)
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("**%s** (%s): %s", other.Name, rel.Type, rel.Description))
	}
	return lines
}

func blockWindow(state *core.GameState, blockID string) (string, bool) {
	if state.Timeline == nil {
		return "", false
	}
	for _, block := range state.Timeline.TimeBlocks {
		if block.ID == blockID {
			return fmt.Sprintf("%s – %s", block.Start, block.End), true
		}
	}
	return "", false
}
