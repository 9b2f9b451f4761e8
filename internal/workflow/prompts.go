package workflow

import (
	"fmt"
	"strings"

	"github.com/aledesanfer/mysteryforge/internal/core"
)

func worldPrompt(state *core.GameState) string {
	cfg := state.Config
	var b strings.Builder
	fmt.Fprintf(&b, "Design the setting for a murder mystery party game.\n\n")
	fmt.Fprintf(&b, "Constraints:\n")
	fmt.Fprintf(&b, "- Language of all text: %s\n", cfg.Language)
	fmt.Fprintf(&b, "- Country/cultural context: %s\n", cfg.Country)
	fmt.Fprintf(&b, "- Epoch: %s\n", cfg.Epoch)
	fmt.Fprintf(&b, "- Theme: %s\n", cfg.Theme)
	fmt.Fprintf(&b, "- The setting must plausibly gather %d guests plus a host in one location for %d minutes.\n",
		cfg.Players.Total, cfg.DurationMinutes)
	b.WriteString("\nProduce an evocative, internally consistent setting: a named location, ")
	b.WriteString("why everyone is gathered there tonight, and visual keywords for portrait generation. ")
	b.WriteString("Avoid anachronisms for the epoch.")
	return b.String()
}

func worldValidationPrompt(state *core.GameState) string {
	var b strings.Builder
	b.WriteString("You are reviewing the setting of a murder mystery party game for internal coherence.\n\n")
	fmt.Fprintf(&b, "Requested epoch: %s\nRequested theme: %s\n\n", state.Config.Epoch, state.Config.Theme)
	fmt.Fprintf(&b, "Setting under review:\n%s\n\n", describeWorld(state.World))
	b.WriteString("Judge strictly: does the setting match the requested epoch and theme, ")
	b.WriteString("is the gathering reason plausible, and is it free of anachronisms? ")
	b.WriteString("List every blocking issue you find.")
	return b.String()
}

func visualStylePrompt(state *core.GameState) string {
	var b strings.Builder
	b.WriteString("Define one consistent visual style for all character portraits in a murder mystery game.\n\n")
	fmt.Fprintf(&b, "Setting:\n%s\n\n", describeWorld(state.World))
	b.WriteString("Specify art direction, color palette, lighting and background treatment ")
	b.WriteString("so that portraits generated independently still look like one set. ")
	b.WriteString("Include negative prompts for elements that must never appear.")
	return b.String()
}

func charactersPrompt(state *core.GameState) string {
	cfg := state.Config
	var b strings.Builder
	fmt.Fprintf(&b, "Create %d suspects for a murder mystery party game: %d male, %d female.\n\n",
		cfg.Players.Total, cfg.Players.Male, cfg.Players.Female)
	fmt.Fprintf(&b, "Setting:\n%s\n\n", describeWorld(state.World))
	fmt.Fprintf(&b, "Difficulty: %s\n\n", cfg.Difficulty)
	b.WriteString("Each suspect needs a distinct role in the setting, a public persona, ")
	b.WriteString("private secrets, personal goals for the evening, and a credible motive ")
	b.WriteString("against the soon-to-be victim. No two suspects may share a role or a motive. ")
	b.WriteString("Include a period-appropriate costume suggestion per suspect.")
	return b.String()
}

func portraitPrompt(style *core.VisualStyle, ch core.CharacterSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Portrait of %s, %s, age %s. %s. Costume: %s.",
		ch.Name, ch.Role, ch.AgeRange, ch.PublicDescription, ch.CostumeSuggestion)
	if style != nil {
		fmt.Fprintf(&b, " Style: %s. Art direction: %s. Lighting: %s. Background: %s.",
			style.StyleDescription, style.ArtDirection, style.Lighting, style.Background)
		if len(style.NegativePrompts) > 0 {
			fmt.Fprintf(&b, " Never include: %s.", strings.Join(style.NegativePrompts, ", "))
		}
	}
	return b.String()
}

func relationshipsPrompt(state *core.GameState) string {
	var b strings.Builder
	b.WriteString("Weave a web of relationships between the suspects of a murder mystery game.\n\n")
	b.WriteString(describeCharacters(state.Characters))
	b.WriteString("\nEvery suspect must be connected to at least two others. Mix alliances, ")
	b.WriteString("rivalries, debts, romances and old wounds, each with a tension level from 1 to 5. ")
	b.WriteString("Reference suspects by their listed ids.")
	return b.String()
}

func crimePrompt(state *core.GameState) string {
	cfg := state.Config
	var b strings.Builder
	b.WriteString("Design the crime at the heart of a murder mystery party game.\n\n")
	fmt.Fprintf(&b, "Setting:\n%s\n\n", describeWorld(state.World))
	b.WriteString(describeCharacters(state.Characters))
	fmt.Fprintf(&b, "\nThe victim is played by the host (%s) and dies before the party begins. ",
		cfg.HostGender)
	b.WriteString("Define the victim, the murder method and weapon, the crime scene, ")
	b.WriteString("the approximate time of death, and which suspects had windows of ")
	b.WriteString("opportunity to be alone with the victim. Do not pick the killer yet.")
	return b.String()
}

func timelinePrompt(state *core.GameState) string {
	var b strings.Builder
	b.WriteString("Build the shared timeline of the evening for a murder mystery game.\n\n")
	fmt.Fprintf(&b, "Setting:\n%s\n\n", describeWorld(state.World))
	b.WriteString(describeCharacters(state.Characters))
	if state.Crime != nil {
		fmt.Fprintf(&b, "\nVictim: %s. Method: %s. Time of death: approximately %s.\n",
			state.Crime.Victim.Name, state.Crime.Method.Description, state.Crime.TimeOfDeathApprox)
	}
	b.WriteString("\nDivide the evening into time blocks. Place every suspect somewhere in each ")
	b.WriteString("block, create encounters that exercise the relationships, and include the ")
	b.WriteString("murder as an event consistent with the established opportunities.")
	return b.String()
}

func killerPrompt(state *core.GameState) string {
	var b strings.Builder
	b.WriteString("Select the killer for a murder mystery party game.\n\n")
	b.WriteString(describeCharacters(state.Characters))
	if state.Crime != nil {
		fmt.Fprintf(&b, "\nMethod: %s. Scene: %s. Time of death: %s.\n",
			state.Crime.Method.Description, state.Crime.Scene.Description,
			state.Crime.TimeOfDeathApprox)
		for _, opp := range state.Crime.Opportunities {
			fmt.Fprintf(&b, "- Opportunity: %s alone with victim %s-%s\n",
				opp.CharacterID, opp.Window.Start, opp.Window.End)
		}
	}
	b.WriteString("\nPick exactly one suspect with both motive and opportunity. Explain the ")
	b.WriteString("choice, write the full truth narrative of how the murder happened, and list ")
	b.WriteString("any timeline event ids that must be read differently in light of the truth.")
	return b.String()
}

func logicValidationPrompt(state *core.GameState) string {
	var b strings.Builder
	b.WriteString("You are auditing a murder mystery game for logical consistency before it ships.\n\n")
	b.WriteString(describeCharacters(state.Characters))
	if ks := state.KillerSelection; ks != nil {
		fmt.Fprintf(&b, "\nChosen killer: %s\nTruth: %s\n", ks.KillerID, ks.TruthNarrative)
	}
	if tl := state.Timeline; tl != nil {
		fmt.Fprintf(&b, "\nTimeline has %d blocks.\n", len(tl.TimeBlocks))
		for _, block := range tl.TimeBlocks {
			for _, ev := range block.Events {
				fmt.Fprintf(&b, "- [%s] %s: %s\n", block.ID, ev.TimeApprox, ev.Description)
			}
		}
	}
	b.WriteString("\nCheck: the killer had opportunity at the time of death; no suspect has a ")
	b.WriteString("perfect alibi that contradicts the truth narrative; the timeline never places ")
	b.WriteString("one person in two places at once; the mystery is solvable from information ")
	b.WriteString("players can obtain. Report every inconsistency with its severity; use ")
	b.WriteString("severity \"fatal\" only when regeneration cannot plausibly fix the flaw.")
	return b.String()
}

func contentPrompt(state *core.GameState) string {
	var b strings.Builder
	b.WriteString("Write the playable materials for a murder mystery party game.\n\n")
	b.WriteString(describeCharacters(state.Characters))
	if ks := state.KillerSelection; ks != nil {
		fmt.Fprintf(&b, "\nKiller: %s. Truth: %s\n", ks.KillerID, ks.TruthNarrative)
	}
	fmt.Fprintf(&b, "\nLanguage: %s.\n\n", state.Config.Language)
	b.WriteString("Produce: a personal timeline per suspect (what they really did, what they ")
	b.WriteString("claim, what they observed, keyed to the global time blocks); the clues for ")
	b.WriteString("act two including red herrings; and a host guide with a spoiler-free ")
	b.WriteString("introduction, setup instructions, a detective persona for the host, and the ")
	b.WriteString("final solution script. The killer's own materials must let them deflect ")
	b.WriteString("without lying outright about verifiable facts.")
	return b.String()
}

func detectivePortraitPrompt(style *core.VisualStyle, role *core.DetectiveRole) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Portrait of %s, a detective. %s. Costume: %s.",
		role.CharacterName, role.PublicDescription, role.CostumeSuggestion)
	if style != nil {
		fmt.Fprintf(&b, " Style: %s. Art direction: %s. Lighting: %s. Background: %s.",
			style.StyleDescription, style.ArtDirection, style.Lighting, style.Background)
	}
	return b.String()
}

func victimPortraitPrompt(style *core.VisualStyle, victim *core.VictimSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Portrait of %s, age %d, %s. %s. Costume: %s.",
		victim.Name, victim.Age, victim.RoleInSetting, victim.PublicPersona,
		victim.CostumeSuggestion)
	if style != nil {
		fmt.Fprintf(&b, " Style: %s. Art direction: %s. Lighting: %s. Background: %s.",
			style.StyleDescription, style.ArtDirection, style.Lighting, style.Background)
	}
	return b.String()
}

func describeWorld(w *core.WorldBible) string {
	if w == nil {
		return "(no world generated)"
	}
	return fmt.Sprintf("%s - %s (%s)\n%s\nEveryone is gathered because: %s",
		w.LocationName, w.LocationType, w.Epoch, w.Summary, w.GatheringReason)
}

func describeCharacters(chars []core.CharacterSpec) string {
	var b strings.Builder
	b.WriteString("Suspects:\n")
	for _, ch := range chars {
		fmt.Fprintf(&b, "- %s: %s (%s, %s) - %s. Motive: %s\n",
			ch.ID, ch.Name, ch.Gender, ch.Role, ch.PublicDescription, ch.MotiveForCrime)
	}
	return b.String()
}
