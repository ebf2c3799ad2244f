package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AFK4203/Book-generator-V3/internal/agent"
	"github.com/AFK4203/Book-generator-V3/internal/agents"
	"github.com/AFK4203/Book-generator-V3/internal/document"
	"github.com/AFK4203/Book-generator-V3/internal/events"
	"github.com/AFK4203/Book-generator-V3/internal/storage"
	"github.com/AFK4203/Book-generator-V3/internal/story"
)

// RunResult collects every phase's typed output for one session, plus
// the errors of phases that failed without aborting the run.
type RunResult struct {
	Analysis         Analysis
	Plan             ExecutionPlan
	EstimatedMinutes int

	World      agents.WorldResult
	Characters agents.CharacterResult
	Plot       agents.PlotResult
	Write      agents.WriteResult
	Check      agents.CheckResult
	Format     agents.FormatResult

	Errors map[story.Phase]error
}

// progress milestones reached when each phase finishes.
var phaseProgress = map[story.Phase]float64{
	story.PhaseOrchestration:      10,
	story.PhaseWorldbuilding:      25,
	story.PhaseCharacters:         40,
	story.PhasePlotStructuring:    50,
	story.PhaseStoryGeneration:    75,
	story.PhaseValidation:         90,
	story.PhaseDocumentFormatting: 98,
}

// Pipeline drives one session end to end: orchestration, the planned
// generation phases, validation, and document assembly. Agents are
// constructed per run and share the session's generation client.
type Pipeline struct {
	client    agent.Completer
	sessions  *storage.SessionStore
	assembler *document.Assembler
	bus       *events.Bus
	logger    *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineLogger sets the logger.
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = logger }
}

// NewPipeline wires the pipeline's collaborators.
func NewPipeline(client agent.Completer, sessions *storage.SessionStore, assembler *document.Assembler, bus *events.Bus, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		client:    client,
		sessions:  sessions,
		assembler: assembler,
		bus:       bus,
		logger:    slog.Default().With("component", "pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the whole pipeline for one session. Non-critical phase
// failures are recorded in the result and the run continues degraded;
// a story-generation failure or a context cancellation ends the run
// and moves the session to its terminal state. The returned error
// reflects why the run stopped early, nil on a completed session.
func (p *Pipeline) Run(ctx context.Context, session *story.Session) (*RunResult, error) {
	logger := p.logger.With("session_id", session.ID)
	result := &RunResult{Errors: make(map[story.Phase]error)}

	sink := agent.StatusSinkFunc(func(rec agent.StatusRecord) {
		p.bus.Publish(events.Event{
			SessionID: session.ID,
			Kind:      events.KindAgent,
			Phase:     session.Phase(),
			Progress:  session.Snapshot().Progress,
			AgentName: rec.AgentName,
			Message:   rec.Message,
		})
	})

	snap := session.Snapshot()
	in := &snap.Input

	// Orchestration: analyze, plan, estimate.
	if err := p.advance(ctx, session, story.PhaseOrchestration, 2); err != nil {
		return result, p.fail(ctx, session, err)
	}
	orchestrator := NewOrchestrator(p.client, sink)
	result.Analysis = orchestrator.Analyze(ctx, in)
	if err := ctx.Err(); err != nil {
		return result, p.fail(ctx, session, err)
	}
	result.Plan = orchestrator.Plan(in, result.Analysis)
	result.EstimatedMinutes = orchestrator.EstimateTotal(result.Plan)
	session.SetEstimate(result.EstimatedMinutes)
	p.persist(ctx, session)
	logger.Info("execution plan ready",
		"phases", len(result.Plan.Phases),
		"estimated_minutes", result.EstimatedMinutes,
		"heuristic_analysis", result.Analysis.Heuristic)

	// Worldbuilding, when planned.
	if result.Plan.Has(story.PhaseWorldbuilding) {
		if err := p.advance(ctx, session, story.PhaseWorldbuilding, phaseProgress[story.PhaseOrchestration]); err != nil {
			return result, p.fail(ctx, session, err)
		}
		world, err := agents.NewWorldbuilder(p.client, sink).Build(ctx, in)
		if stop := p.record(ctx, session, result, story.PhaseWorldbuilding, "world_builder", err); stop != nil {
			return result, stop
		}
		result.World = world
	}

	// Character development.
	if err := p.advance(ctx, session, story.PhaseCharacters, phaseProgress[story.PhaseWorldbuilding]); err != nil {
		return result, p.fail(ctx, session, err)
	}
	characters, err := agents.NewCharacterAgent(p.client, sink).Develop(ctx, in, result.World)
	if stop := p.record(ctx, session, result, story.PhaseCharacters, "character_agent", err); stop != nil {
		return result, stop
	}
	result.Characters = characters

	// Plot structuring.
	if err := p.advance(ctx, session, story.PhasePlotStructuring, phaseProgress[story.PhaseCharacters]); err != nil {
		return result, p.fail(ctx, session, err)
	}
	plot, err := agents.NewPlotAgent(p.client, sink).Structure(ctx, in, result.World, result.Characters)
	if stop := p.record(ctx, session, result, story.PhasePlotStructuring, "plot_agent", err); stop != nil {
		return result, stop
	}
	if err != nil {
		// A failed plot still leaves the writer something to work
		// from: placeholder outlines at the configured word target.
		plot = fallbackPlot(in)
	}
	result.Plot = plot

	// Story generation. The one critical phase: failure aborts.
	if err := p.advance(ctx, session, story.PhaseStoryGeneration, phaseProgress[story.PhasePlotStructuring]); err != nil {
		return result, p.fail(ctx, session, err)
	}
	write, err := agents.NewWriter(p.client, sink).WriteChapters(ctx, in, result.World, result.Characters, result.Plot)
	if err != nil {
		agentErr := &AgentError{Phase: story.PhaseStoryGeneration, Agent: "story_generator", Err: err}
		result.Errors[story.PhaseStoryGeneration] = agentErr
		return result, p.fail(ctx, session, agentErr)
	}
	result.Write = write
	session.UpdateChapters(write.Chapters)
	p.persist(ctx, session)

	// Sequential validation.
	if err := p.advance(ctx, session, story.PhaseValidation, phaseProgress[story.PhaseStoryGeneration]); err != nil {
		return result, p.fail(ctx, session, err)
	}
	check, err := agents.NewChecker(p.client, sink).Check(ctx, in, write.Chapters, result.World, result.Characters)
	if stop := p.record(ctx, session, result, story.PhaseValidation, "sequential_checker", err); stop != nil {
		return result, stop
	}
	chapters := write.Chapters
	if err == nil {
		result.Check = check
		chapters = check.Chapters
	}
	session.UpdateChapters(chapters)
	p.persist(ctx, session)

	// Document formatting.
	if err := p.advance(ctx, session, story.PhaseDocumentFormatting, phaseProgress[story.PhaseValidation]); err != nil {
		return result, p.fail(ctx, session, err)
	}
	format, err := agents.NewFormatter(p.assembler, sink).Format(ctx, session.ID, in, chapters)
	if stop := p.record(ctx, session, result, story.PhaseDocumentFormatting, "document_formatter", err); stop != nil {
		return result, stop
	}
	result.Format = format

	if err := session.Complete(chapters, format.Path); err != nil {
		return result, p.fail(ctx, session, err)
	}
	p.persist(ctx, session)
	p.bus.Publish(events.Event{
		SessionID: session.ID,
		Kind:      events.KindCompleted,
		Phase:     story.PhaseCompleted,
		Progress:  100,
		Message:   fmt.Sprintf("Story complete: %d chapters, %d words", len(chapters), result.Format.TotalWords),
	})
	logger.Info("session completed",
		"chapters", len(chapters),
		"total_words", result.Format.TotalWords,
		"degraded_phases", len(result.Errors))
	return result, nil
}

func fallbackPlot(in *story.Input) agents.PlotResult {
	outlines := make([]story.Outline, 0, in.TotalChapters)
	for n := 1; n <= in.TotalChapters; n++ {
		outlines = append(outlines, story.Outline{
			ChapterNumber: n,
			Content:       fmt.Sprintf("Chapter %d of %d: advance the premise toward its resolution.", n, in.TotalChapters),
			WordTarget:    in.MinWordsPerChapter,
		})
	}
	return agents.PlotResult{Outlines: outlines}
}

// advance moves the session into a phase, persists, and announces it.
func (p *Pipeline) advance(ctx context.Context, session *story.Session, phase story.Phase, progress float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := session.Advance(phase, progress); err != nil {
		return err
	}
	p.persist(ctx, session)
	snap := session.Snapshot()
	p.bus.Publish(events.Event{
		SessionID: session.ID,
		Kind:      events.KindPhase,
		Phase:     phase,
		Progress:  snap.Progress,
		Message:   fmt.Sprintf("Entering %s", phase),
	})
	return nil
}

// record handles a non-critical phase outcome: nil error passes
// through, a cancellation stops the run, anything else is logged into
// the result map and the run continues. The returned error is non-nil
// only when the run must stop.
func (p *Pipeline) record(ctx context.Context, session *story.Session, result *RunResult, phase story.Phase, agentName string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return p.fail(ctx, session, err)
	}
	agentErr := &AgentError{Phase: phase, Agent: agentName, Err: err}
	result.Errors[phase] = agentErr
	p.logger.Warn("non-critical phase failed, continuing degraded",
		"session_id", session.ID,
		"phase", phase,
		"error", err)
	p.bus.Publish(events.Event{
		SessionID: session.ID,
		Kind:      events.KindError,
		Phase:     phase,
		Progress:  session.Snapshot().Progress,
		Message:   agentErr.Error(),
	})
	return nil
}

// fail moves the session to its terminal failure state (cancelled for
// context cancellation, error otherwise), persists, announces, and
// returns the causing error.
func (p *Pipeline) fail(ctx context.Context, session *story.Session, err error) error {
	if errors.Is(err, context.Canceled) {
		if session.Cancel() {
			p.bus.Publish(events.Event{
				SessionID: session.ID,
				Kind:      events.KindCancelled,
				Phase:     story.PhaseCancelled,
				Progress:  session.Snapshot().Progress,
				Message:   "generation cancelled",
			})
		}
	} else {
		session.Fail(err.Error())
		p.bus.Publish(events.Event{
			SessionID: session.ID,
			Kind:      events.KindError,
			Phase:     story.PhaseError,
			Progress:  session.Snapshot().Progress,
			Message:   err.Error(),
		})
	}
	p.persist(ctx, session)
	return err
}

// persist writes the current snapshot; persistence trouble is logged,
// not fatal, so a disk hiccup cannot kill a generation mid-run.
func (p *Pipeline) persist(ctx context.Context, session *story.Session) {
	if err := p.sessions.Put(context.WithoutCancel(ctx), session.Snapshot()); err != nil {
		p.logger.Error("persisting session failed",
			"session_id", session.ID,
			"error", err)
	}
}
