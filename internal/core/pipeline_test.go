package core

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/AFK4203/Book-generator-V3/internal/agent"
	"github.com/AFK4203/Book-generator-V3/internal/document"
	"github.com/AFK4203/Book-generator-V3/internal/events"
	"github.com/AFK4203/Book-generator-V3/internal/storage"
	"github.com/AFK4203/Book-generator-V3/internal/story"
)

func newTestPipeline(t *testing.T, client agent.Completer) (*Pipeline, *storage.SessionStore, *events.Bus) {
	t.Helper()
	fs := storage.NewFileSystem(t.TempDir())
	store := storage.NewSessionStore(fs)
	bus := events.NewBus()
	pipeline := NewPipeline(client, store, document.NewAssembler(fs), bus)
	return pipeline, store, bus
}

func fullRunClient() *agent.MockClient {
	return agent.NewMockClient().
		Respond("analyze this story project",
			`{"complexity_level": 5, "worldbuilding_required": true, "estimated_difficulty": "moderate"}`).
		Respond("master worldbuilder", "The drowned kingdom keeps its dead in glass towers.").
		Respond("character development specialist", "A diver who cannot forget the city below.").
		Respond("story structure specialist",
			"Overview of the arc.\n\nCHAPTER 1:\nThe dive.\n\nCHAPTER 2:\nThe discovery.").
		Respond("title book chapters", "Glass Towers")
}

func fullRunInput() story.Input {
	return story.Input{
		CentralTheme:  "memory",
		MainPremise:   "a diver maps a drowned kingdom",
		WorldSummary:  "a kingdom beneath a cold sea",
		TotalChapters: 2,
		Characters: []story.Character{
			{Name: "Iva", Archetype: "seeker", Backstory: "grew up on the shore above the ruins"},
		},
	}
}

func TestPipelineCompletesSession(t *testing.T) {
	client := fullRunClient()
	pipeline, store, bus := newTestPipeline(t, client)

	input := fullRunInput()
	if err := input.Validate(); err != nil {
		t.Fatal(err)
	}
	session := story.NewSession(input)

	result, err := pipeline.Run(context.Background(), session)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	snap := session.Snapshot()
	if snap.CurrentPhase != story.PhaseCompleted {
		t.Errorf("phase = %s, want completed", snap.CurrentPhase)
	}
	if snap.Progress != 100 {
		t.Errorf("progress = %.0f, want 100", snap.Progress)
	}
	if len(snap.Chapters) != 2 {
		t.Fatalf("got %d chapters, want 2", len(snap.Chapters))
	}
	for _, ch := range snap.Chapters {
		if ch.ValidationStatus != story.ValidationValidated {
			t.Errorf("chapter %d status = %q, want validated", ch.Number, ch.ValidationStatus)
		}
	}

	if len(result.Errors) != 0 {
		t.Errorf("degraded phases = %v, want none", result.Errors)
	}
	if !result.Plan.Has(story.PhaseWorldbuilding) {
		t.Error("plan missing worldbuilding despite the analysis requiring it")
	}
	if result.EstimatedMinutes != snap.EstimatedMinutes || result.EstimatedMinutes == 0 {
		t.Errorf("estimate = %d (session %d), want matching non-zero", result.EstimatedMinutes, snap.EstimatedMinutes)
	}

	if snap.DocumentPath == "" {
		t.Fatal("DocumentPath empty")
	}
	data, err := os.ReadFile(snap.DocumentPath)
	if err != nil {
		t.Fatalf("reading manuscript: %v", err)
	}
	if !strings.Contains(string(data), "CHAPTER 1: Glass Towers") {
		t.Error("manuscript missing formatted chapter heading")
	}

	// The store holds the terminal snapshot.
	stored, err := store.Get(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("stored session: %v", err)
	}
	if stored.CurrentPhase != story.PhaseCompleted {
		t.Errorf("stored phase = %s, want completed", stored.CurrentPhase)
	}

	latest, ok := bus.Latest(session.ID)
	if !ok || latest.Kind != events.KindCompleted {
		t.Errorf("latest event = %+v, want completed", latest)
	}
}

// errOn wraps a completer, failing any prompt containing the trigger.
type errOn struct {
	inner   agent.Completer
	trigger string
	err     error
}

func (e *errOn) Complete(ctx context.Context, messages []agent.Message, opts ...agent.CallOption) (string, error) {
	for _, m := range messages {
		if strings.Contains(strings.ToLower(m.Content), e.trigger) {
			return "", e.err
		}
	}
	return e.inner.Complete(ctx, messages, opts...)
}

func TestPipelineCriticalFailureAborts(t *testing.T) {
	writeErr := errors.New("backend down")
	client := &errOn{inner: fullRunClient(), trigger: "professional fiction writer", err: writeErr}
	pipeline, _, bus := newTestPipeline(t, client)

	session := story.NewSession(fullRunInput())
	result, err := pipeline.Run(context.Background(), session)
	if err == nil {
		t.Fatal("Run() succeeded, want critical failure")
	}
	if !errors.Is(err, writeErr) {
		t.Errorf("Run() error = %v, want wrapped backend failure", err)
	}

	var agentErr *AgentError
	if !errors.As(err, &agentErr) || agentErr.Phase != story.PhaseStoryGeneration {
		t.Errorf("error = %v, want AgentError for story_generation", err)
	}

	snap := session.Snapshot()
	if snap.CurrentPhase != story.PhaseError {
		t.Errorf("phase = %s, want error", snap.CurrentPhase)
	}
	if snap.ErrorMessage == "" {
		t.Error("ErrorMessage empty, want human-readable cause")
	}
	if _, ok := result.Errors[story.PhaseStoryGeneration]; !ok {
		t.Error("result missing story_generation error entry")
	}

	latest, ok := bus.Latest(session.ID)
	if !ok || latest.Kind != events.KindError {
		t.Errorf("latest event = %+v, want error", latest)
	}
}

func TestPipelineNonCriticalFailureDegrades(t *testing.T) {
	// No characters: the character phase fails its precondition, the
	// rest of the pipeline still delivers a manuscript.
	client := agent.NewMockClient().
		Respond("analyze this story project",
			`{"complexity_level": 5, "worldbuilding_required": false}`).
		Respond("story structure specialist", "CHAPTER 1:\nThe only chapter.").
		Respond("title book chapters", "Alone")
	pipeline, _, _ := newTestPipeline(t, client)

	input := story.Input{CentralTheme: "t", MainPremise: "p", TotalChapters: 1}
	session := story.NewSession(input)

	result, err := pipeline.Run(context.Background(), session)
	if err != nil {
		t.Fatalf("Run() error = %v, want degraded completion", err)
	}

	if _, ok := result.Errors[story.PhaseCharacters]; !ok {
		t.Error("result missing character_development error entry")
	}
	snap := session.Snapshot()
	if snap.CurrentPhase != story.PhaseCompleted {
		t.Errorf("phase = %s, want completed despite degraded phase", snap.CurrentPhase)
	}
	if snap.DocumentPath == "" {
		t.Error("DocumentPath empty, want manuscript from degraded run")
	}
}

func TestPipelineCancellation(t *testing.T) {
	pipeline, _, bus := newTestPipeline(t, fullRunClient())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	session := story.NewSession(fullRunInput())
	_, err := pipeline.Run(ctx, session)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}

	if phase := session.Phase(); phase != story.PhaseCancelled {
		t.Errorf("phase = %s, want cancelled", phase)
	}
	if latest, ok := bus.Latest(session.ID); !ok || latest.Kind != events.KindCancelled {
		t.Errorf("latest event = %+v, want cancelled", latest)
	}
}
