package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AFK4203/Book-generator-V3/internal/agent"
	"github.com/AFK4203/Book-generator-V3/internal/story"
)

// Priority ranks how a phase failure is handled. Only critical phases
// abort the pipeline.
type Priority string

const (
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Analysis is the orchestrator's coarse read of the project, used only
// to shape the plan and the time estimate.
type Analysis struct {
	ComplexityLevel       int      `json:"complexity_level"`
	WorldbuildingRequired bool     `json:"worldbuilding_required"`
	CharacterCount        int      `json:"character_count"`
	EstimatedDifficulty   string   `json:"estimated_difficulty"`
	SpecialRequirements   []string `json:"special_requirements"`

	// Heuristic marks an analysis computed locally after the
	// generated one failed to parse.
	Heuristic bool `json:"heuristic,omitempty"`
}

// PlannedPhase is one entry of the execution plan.
type PlannedPhase struct {
	Phase            story.Phase `json:"phase"`
	AgentName        string      `json:"agent"`
	EstimatedMinutes int         `json:"estimated_duration_minutes"`
	Priority         Priority    `json:"priority"`
}

// ExecutionPlan is the ordered phase list for one session. Phases run
// strictly in order; there is no parallel execution.
type ExecutionPlan struct {
	Phases []PlannedPhase `json:"phases"`
}

// Has reports whether the plan includes a phase.
func (p ExecutionPlan) Has(phase story.Phase) bool {
	for _, pp := range p.Phases {
		if pp.Phase == phase {
			return true
		}
	}
	return false
}

// Find returns the planned entry for a phase.
func (p ExecutionPlan) Find(phase story.Phase) (PlannedPhase, bool) {
	for _, pp := range p.Phases {
		if pp.Phase == phase {
			return pp, true
		}
	}
	return PlannedPhase{}, false
}

// Orchestrator decides the phase list, the per-phase time estimates,
// and how prior phase results feed later agents.
type Orchestrator struct {
	agent.Base
}

// NewOrchestrator builds an orchestrator for one session.
func NewOrchestrator(client agent.Completer, sink agent.StatusSink) *Orchestrator {
	return &Orchestrator{Base: agent.NewBase("master_orchestrator", client, sink)}
}

// Analyze derives the complexity signal from the input, preferring a
// generated structured assessment and falling back to a local
// heuristic when the response is not parseable JSON.
func (o *Orchestrator) Analyze(ctx context.Context, in *story.Input) Analysis {
	o.UpdateStatus(agent.StatusWorking, 0.1, "Analyzing story requirements")

	system := `You are the coordinator of a story generation system. Assess the provided story project:
1. Story complexity level (1-10)
2. Whether dedicated worldbuilding is required
3. Character development needs
4. Estimated difficulty (simple, moderate, complex)
5. Special requirements for the generation agents

Respond with a single JSON object using the keys: complexity_level, worldbuilding_required, character_count, estimated_difficulty, special_requirements.`

	user := fmt.Sprintf(`Analyze this story project:

%s

Additional details:
- Chapters: %d
- Words per chapter: %d
- Characters: %d

Respond with the JSON object only.`,
		in.Context(), in.TotalChapters, in.MinWordsPerChapter, len(in.Characters))

	resp, err := o.Generate(ctx,
		[]agent.Message{agent.System(system), agent.User(user)},
		agent.WithTemperature(0.3))
	if err == nil {
		if analysis, ok := parseAnalysis(resp); ok {
			analysis.CharacterCount = len(in.Characters)
			return analysis
		}
	}

	o.Logger().Warn("generated analysis unusable, using heuristic fallback", "error", err)
	return o.heuristicAnalysis(in)
}

// parseAnalysis extracts the JSON object from a response that may wrap
// it in prose or a code fence.
func parseAnalysis(resp string) (Analysis, bool) {
	start := strings.Index(resp, "{")
	end := strings.LastIndex(resp, "}")
	if start < 0 || end <= start {
		return Analysis{}, false
	}
	var a Analysis
	if err := json.Unmarshal([]byte(resp[start:end+1]), &a); err != nil {
		return Analysis{}, false
	}
	if a.ComplexityLevel < 1 || a.ComplexityLevel > 10 {
		return Analysis{}, false
	}
	return a, true
}

// heuristicAnalysis is the deterministic fallback computed purely from
// the input.
func (o *Orchestrator) heuristicAnalysis(in *story.Input) Analysis {
	return Analysis{
		ComplexityLevel:       7,
		WorldbuildingRequired: in.HasWorldMaterial(),
		CharacterCount:        len(in.Characters),
		EstimatedDifficulty:   "moderate",
		SpecialRequirements:   []string{"character_depth", "world_consistency"},
		Heuristic:             true,
	}
}

// Plan builds the ordered phase list. Worldbuilding is included only
// when the analysis asks for it; story generation is the sole
// critical phase.
func (o *Orchestrator) Plan(in *story.Input, analysis Analysis) ExecutionPlan {
	complexity := analysis.ComplexityLevel
	if complexity < 1 {
		complexity = 7
	}

	var phases []PlannedPhase

	if analysis.WorldbuildingRequired {
		priority := PriorityMedium
		if in.WorldSummary != "" {
			priority = PriorityHigh
		}
		phases = append(phases, PlannedPhase{
			Phase:            story.PhaseWorldbuilding,
			AgentName:        "world_builder",
			EstimatedMinutes: maxInt(5, complexity),
			Priority:         priority,
		})
	}

	phases = append(phases, PlannedPhase{
		Phase:            story.PhaseCharacters,
		AgentName:        "character_agent",
		EstimatedMinutes: maxInt(10, len(in.Characters)*2),
		Priority:         PriorityHigh,
	})

	phases = append(phases, PlannedPhase{
		Phase:            story.PhasePlotStructuring,
		AgentName:        "plot_agent",
		EstimatedMinutes: maxInt(8, complexity),
		Priority:         PriorityHigh,
	})

	phases = append(phases, PlannedPhase{
		Phase:            story.PhaseStoryGeneration,
		AgentName:        "story_generator",
		EstimatedMinutes: maxInt(20, in.TotalChapters*2),
		Priority:         PriorityCritical,
	})

	phases = append(phases, PlannedPhase{
		Phase:            story.PhaseValidation,
		AgentName:        "sequential_checker",
		EstimatedMinutes: maxInt(10, in.TotalChapters/2),
		Priority:         PriorityHigh,
	})

	phases = append(phases, PlannedPhase{
		Phase:            story.PhaseDocumentFormatting,
		AgentName:        "document_formatter",
		EstimatedMinutes: 5,
		Priority:         PriorityMedium,
	})

	return ExecutionPlan{Phases: phases}
}

// EstimateTotal sums the phase durations and adds a 20% buffer.
func (o *Orchestrator) EstimateTotal(plan ExecutionPlan) int {
	total := 0
	for _, p := range plan.Phases {
		total += p.EstimatedMinutes
	}
	return total + total/5
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
