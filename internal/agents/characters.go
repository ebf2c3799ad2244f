package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AFK4203/Book-generator-V3/internal/agent"
	"github.com/AFK4203/Book-generator-V3/internal/story"
)

// ErrNoCharacters is returned when the character phase starts with an
// empty cast. Downstream phases cannot work without one.
var ErrNoCharacters = errors.New("story input has no characters")

// CharacterAgent deepens each character sketch into a full
// psychological profile used by the writer and the validation passes.
type CharacterAgent struct {
	agent.Base
}

// NewCharacterAgent builds a character agent for one session.
func NewCharacterAgent(client agent.Completer, sink agent.StatusSink) *CharacterAgent {
	return &CharacterAgent{Base: agent.NewBase("character_agent", client, sink)}
}

// Develop generates one profile per character, in input order.
func (a *CharacterAgent) Develop(ctx context.Context, in *story.Input, world WorldResult) (CharacterResult, error) {
	if len(in.Characters) == 0 {
		return CharacterResult{}, ErrNoCharacters
	}

	system := `You are a character development specialist for fiction. Given a character sketch, produce a deep profile covering:

1. PSYCHOLOGY - core wound, fears, beliefs, coping mechanisms, and how they interlock
2. MOTIVATION - what drives the character, what they want versus what they need
3. ARC - where they start, what pressures them to change, where they plausibly end
4. VOICE - how they speak and act, with concrete behavioral tells
5. RELATIONSHIPS - how they relate to the other characters in the cast

Ground everything in the provided sketch. Do not contradict any stated trait.`

	result := CharacterResult{Profiles: make([]CharacterProfile, 0, len(in.Characters))}
	for i, c := range in.Characters {
		progress := float64(i) / float64(len(in.Characters))
		a.UpdateStatus(agent.StatusWorking, progress, fmt.Sprintf("Developing %s (%d/%d)", c.Name, i+1, len(in.Characters)))

		profile, err := a.Generate(ctx,
			[]agent.Message{
				agent.System(system),
				agent.User(a.profilePrompt(in, c, world)),
			},
			agent.WithMaxTokens(2000))
		if err != nil {
			return CharacterResult{}, fmt.Errorf("character profile for %s: %w", c.Name, err)
		}

		result.Profiles = append(result.Profiles, CharacterProfile{
			CharacterID: c.ID,
			Name:        c.Name,
			Profile:     profile,
		})
	}

	a.UpdateStatus(agent.StatusCompleted, 1.0, fmt.Sprintf("Developed %d character profiles", len(result.Profiles)))
	return result, nil
}

func (a *CharacterAgent) profilePrompt(in *story.Input, c story.Character, world WorldResult) string {
	var parts []string
	parts = append(parts, "STORY CONTEXT:\n"+in.Context())

	if !world.Skipped && world.Bible != "" {
		parts = append(parts, "WORLD:\n"+world.Excerpt(800))
	}

	sketch := []string{
		"Name: " + c.Name,
		"Archetype: " + c.Archetype,
		"Backstory: " + c.Backstory,
	}
	appendIf := func(label, value string) {
		if value != "" {
			sketch = append(sketch, label+": "+value)
		}
	}
	appendIf("Internal conflict", c.InternalConflict)
	appendIf("External conflict", c.ExternalConflict)
	appendIf("Relationships", c.RelationshipsMap)
	appendIf("Core belief", c.CoreBelief)
	appendIf("Emotional triggers", c.EmotionalTriggers)
	appendIf("Coping mechanism", c.CopingMechanism)
	appendIf("Biggest regret", c.BiggestRegret)
	appendIf("Core wound", c.CoreWound)
	appendIf("Fear", c.Fear)
	appendIf("Arc type", c.ArcType)
	appendIf("Arc in one word", c.ArcInOneWord)
	appendIf("Voice pattern", c.VoicePattern)
	appendIf("Plot role", c.PlotRole)
	appendIf("Secrets", c.Secrets)
	for k, v := range c.Attributes {
		appendIf(strings.ReplaceAll(k, "_", " "), v)
	}
	parts = append(parts, "CHARACTER SKETCH:\n"+strings.Join(sketch, "\n"))

	parts = append(parts, "Produce the full profile for this character.")
	return strings.Join(parts, "\n\n")
}
