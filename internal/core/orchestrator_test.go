package core

import (
	"context"
	"testing"

	"github.com/AFK4203/Book-generator-V3/internal/agent"
	"github.com/AFK4203/Book-generator-V3/internal/story"
)

func TestAnalyzeParsesGeneratedJSON(t *testing.T) {
	client := agent.NewMockClient().Respond("analyze this story project",
		`Here is my assessment:
{"complexity_level": 4, "worldbuilding_required": true, "estimated_difficulty": "simple", "special_requirements": ["tight timeline"]}`)
	o := NewOrchestrator(client, nil)

	in := &story.Input{
		CentralTheme:  "t",
		MainPremise:   "p",
		TotalChapters: 5,
		Characters:    []story.Character{{Name: "A", Archetype: "x", Backstory: "y"}},
	}
	analysis := o.Analyze(context.Background(), in)

	if analysis.Heuristic {
		t.Error("Heuristic = true, want parsed analysis")
	}
	if analysis.ComplexityLevel != 4 {
		t.Errorf("ComplexityLevel = %d, want 4", analysis.ComplexityLevel)
	}
	if !analysis.WorldbuildingRequired {
		t.Error("WorldbuildingRequired = false, want true")
	}
	if analysis.CharacterCount != 1 {
		t.Errorf("CharacterCount = %d, want 1 from the input", analysis.CharacterCount)
	}
}

func TestAnalyzeFallsBackOnUnparseableResponse(t *testing.T) {
	client := agent.NewMockClient().Respond("analyze this story project",
		"I think this story is moderately complex, around seven out of ten.")
	o := NewOrchestrator(client, nil)

	in := &story.Input{
		CentralTheme:  "t",
		MainPremise:   "p",
		TotalChapters: 5,
		WorldSummary:  "a drowned kingdom",
	}
	analysis := o.Analyze(context.Background(), in)

	if !analysis.Heuristic {
		t.Fatal("Heuristic = false, want fallback")
	}
	if analysis.ComplexityLevel != 7 {
		t.Errorf("ComplexityLevel = %d, want heuristic default 7", analysis.ComplexityLevel)
	}
	if !analysis.WorldbuildingRequired {
		t.Error("WorldbuildingRequired = false, want true with a world summary present")
	}
}

func TestHeuristicWorldbuildingMatchesWorldbuilder(t *testing.T) {
	o := NewOrchestrator(agent.NewMockClient(), nil)

	tests := []struct {
		name string
		in   story.Input
		want bool
	}{
		{"bare input", story.Input{CentralTheme: "t", MainPremise: "p", TotalChapters: 1}, false},
		{"world summary", story.Input{CentralTheme: "t", MainPremise: "p", TotalChapters: 1, WorldSummary: "a drowned kingdom"}, true},
		{"time period only", story.Input{CentralTheme: "t", MainPremise: "p", TotalChapters: 1, TimePeriodSetting: "late bronze age"}, true},
		{"cultural influences only", story.Input{CentralTheme: "t", MainPremise: "p", TotalChapters: 1, CulturalInfluences: "minoan"}, true},
		{"detail map only", story.Input{CentralTheme: "t", MainPremise: "p", TotalChapters: 1, WorldDetails: map[string]string{"climate": "arid"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := o.heuristicAnalysis(&tt.in)
			if analysis.WorldbuildingRequired != tt.want {
				t.Errorf("WorldbuildingRequired = %v, want %v", analysis.WorldbuildingRequired, tt.want)
			}
			if analysis.WorldbuildingRequired != tt.in.HasWorldMaterial() {
				t.Error("heuristic disagrees with the input's world predicate")
			}
		})
	}
}

func TestAnalyzeRejectsOutOfRangeComplexity(t *testing.T) {
	client := agent.NewMockClient().Respond("analyze this story project",
		`{"complexity_level": 42, "worldbuilding_required": false}`)
	o := NewOrchestrator(client, nil)

	analysis := o.Analyze(context.Background(), &story.Input{CentralTheme: "t", MainPremise: "p", TotalChapters: 1})
	if !analysis.Heuristic {
		t.Error("Heuristic = false, want fallback for out-of-range complexity")
	}
}

func TestPlanPhasesAndPriorities(t *testing.T) {
	o := NewOrchestrator(agent.NewMockClient(), nil)

	in := &story.Input{
		CentralTheme:  "t",
		MainPremise:   "p",
		WorldSummary:  "a city that rearranges itself",
		TotalChapters: 12,
		Characters: []story.Character{
			{Name: "A", Archetype: "x", Backstory: "y"},
			{Name: "B", Archetype: "x", Backstory: "y"},
		},
	}
	plan := o.Plan(in, Analysis{ComplexityLevel: 6, WorldbuildingRequired: true})

	wantOrder := []story.Phase{
		story.PhaseWorldbuilding,
		story.PhaseCharacters,
		story.PhasePlotStructuring,
		story.PhaseStoryGeneration,
		story.PhaseValidation,
		story.PhaseDocumentFormatting,
	}
	if len(plan.Phases) != len(wantOrder) {
		t.Fatalf("got %d phases, want %d", len(plan.Phases), len(wantOrder))
	}
	for i, want := range wantOrder {
		if plan.Phases[i].Phase != want {
			t.Errorf("phase %d = %s, want %s", i, plan.Phases[i].Phase, want)
		}
	}

	for _, p := range plan.Phases {
		wantCritical := p.Phase == story.PhaseStoryGeneration
		if (p.Priority == PriorityCritical) != wantCritical {
			t.Errorf("phase %s priority = %s", p.Phase, p.Priority)
		}
	}

	tests := []struct {
		phase story.Phase
		want  int
	}{
		{story.PhaseWorldbuilding, 6},       // max(5, complexity)
		{story.PhaseCharacters, 10},         // max(10, 2 characters * 2)
		{story.PhasePlotStructuring, 8},     // max(8, complexity)
		{story.PhaseStoryGeneration, 24},    // max(20, 12 chapters * 2)
		{story.PhaseValidation, 10},         // max(10, 12 / 2)
		{story.PhaseDocumentFormatting, 5},
	}
	for _, tt := range tests {
		p, ok := plan.Find(tt.phase)
		if !ok {
			t.Errorf("plan missing %s", tt.phase)
			continue
		}
		if p.EstimatedMinutes != tt.want {
			t.Errorf("%s estimate = %d, want %d", tt.phase, p.EstimatedMinutes, tt.want)
		}
	}
}

func TestPlanSkipsWorldbuilding(t *testing.T) {
	o := NewOrchestrator(agent.NewMockClient(), nil)

	in := &story.Input{CentralTheme: "t", MainPremise: "p", TotalChapters: 3}
	plan := o.Plan(in, Analysis{ComplexityLevel: 7, WorldbuildingRequired: false})

	if plan.Has(story.PhaseWorldbuilding) {
		t.Error("plan includes worldbuilding, want it skipped")
	}
	if plan.Phases[0].Phase != story.PhaseCharacters {
		t.Errorf("first phase = %s, want character_development", plan.Phases[0].Phase)
	}
}

func TestEstimateTotalAddsBuffer(t *testing.T) {
	o := NewOrchestrator(agent.NewMockClient(), nil)

	plan := ExecutionPlan{Phases: []PlannedPhase{
		{Phase: story.PhaseCharacters, EstimatedMinutes: 30},
		{Phase: story.PhaseStoryGeneration, EstimatedMinutes: 20},
	}}
	if got := o.EstimateTotal(plan); got != 60 {
		t.Errorf("EstimateTotal() = %d, want 50 + 20%% buffer = 60", got)
	}
}
