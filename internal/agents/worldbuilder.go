package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/AFK4203/Book-generator-V3/internal/agent"
	"github.com/AFK4203/Book-generator-V3/internal/story"
)

// Worldbuilder expands the input's world parameters into a world
// bible. The phase is optional: with nothing to expand it reports a
// skipped result instead of burning a generation call.
type Worldbuilder struct {
	agent.Base
}

// NewWorldbuilder builds a worldbuilder for one session.
func NewWorldbuilder(client agent.Completer, sink agent.StatusSink) *Worldbuilder {
	return &Worldbuilder{Base: agent.NewBase("world_builder", client, sink)}
}

// HasWork reports whether the input carries any world material worth
// expanding. The planner uses this to skip the phase entirely.
func (w *Worldbuilder) HasWork(in *story.Input) bool {
	return in.HasWorldMaterial()
}

// Build generates the world bible.
func (w *Worldbuilder) Build(ctx context.Context, in *story.Input) (WorldResult, error) {
	if !w.HasWork(in) {
		w.Logger().Info("no world parameters, skipping worldbuilding")
		return WorldResult{Skipped: true}, nil
	}

	w.UpdateStatus(agent.StatusWorking, 0.1, "Analyzing world parameters")

	systemPrompt := `You are a master worldbuilder for fiction. Expand the provided world parameters into a cohesive world bible covering:

1. PHYSICAL WORLD - geography, climate, notable locations, sensory texture of daily life
2. SOCIETY AND CULTURE - governance, social structures, customs, beliefs, cultural influences
3. RULES OF THE WORLD - what is possible and impossible here, systems (magic, technology, economy) and their limits
4. HISTORY AND TENSIONS - the events and conflicts that shaped the present

Stay consistent with every provided detail. Where details are sparse, extrapolate conservatively in the same spirit. Write the bible as reference prose, not as story.`

	bible, err := w.Generate(ctx,
		[]agent.Message{
			agent.System(systemPrompt),
			agent.User(w.buildPrompt(in)),
		},
		agent.WithMaxTokens(3000))
	if err != nil {
		return WorldResult{}, fmt.Errorf("worldbuilding: %w", err)
	}

	w.UpdateStatus(agent.StatusCompleted, 1.0, "World bible complete")
	return WorldResult{Bible: bible, Completeness: completeness(in)}, nil
}

// completeness is the ratio of filled world fields, counting the named
// world parameters alongside the open-ended detail map.
func completeness(in *story.Input) float64 {
	fields := []string{in.WorldSummary, in.TimePeriodSetting, in.CulturalInfluences}
	for _, v := range in.WorldDetails {
		fields = append(fields, v)
	}
	filled := 0
	for _, v := range fields {
		if strings.TrimSpace(v) != "" {
			filled++
		}
	}
	if len(fields) == 0 {
		return 0
	}
	return float64(filled) / float64(len(fields))
}

func (w *Worldbuilder) buildPrompt(in *story.Input) string {
	var parts []string
	parts = append(parts, "STORY CONTEXT:\n"+in.Context())

	if in.TimePeriodSetting != "" {
		parts = append(parts, "TIME PERIOD / SETTING: "+in.TimePeriodSetting)
	}
	if in.CulturalInfluences != "" {
		parts = append(parts, "CULTURAL INFLUENCES: "+in.CulturalInfluences)
	}

	if len(in.WorldDetails) > 0 {
		keys := make([]string, 0, len(in.WorldDetails))
		for k := range in.WorldDetails {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("- %s: %s", strings.ReplaceAll(k, "_", " "), in.WorldDetails[k]))
		}
		parts = append(parts, "WORLD DETAILS:\n"+strings.Join(lines, "\n"))
	}

	parts = append(parts, "Produce the complete world bible for this story.")
	return strings.Join(parts, "\n\n")
}
