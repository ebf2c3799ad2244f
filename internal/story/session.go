package story

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Phase is one stage of the sequential pipeline, or a terminal state.
type Phase string

const (
	PhaseInitialized        Phase = "initialized"
	PhaseOrchestration      Phase = "orchestration"
	PhaseWorldbuilding      Phase = "worldbuilding"
	PhaseCharacters         Phase = "character_development"
	PhasePlotStructuring    Phase = "plot_structuring"
	PhaseStoryGeneration    Phase = "story_generation"
	PhaseValidation         Phase = "sequential_validation"
	PhaseDocumentFormatting Phase = "document_formatting"
	PhaseCompleted          Phase = "completed"
	PhaseError              Phase = "error"
	PhaseCancelled          Phase = "cancelled"
)

// pipelineOrder is the forward path through the state machine.
// Worldbuilding is the only phase the plan may skip.
var pipelineOrder = []Phase{
	PhaseInitialized,
	PhaseOrchestration,
	PhaseWorldbuilding,
	PhaseCharacters,
	PhasePlotStructuring,
	PhaseStoryGeneration,
	PhaseValidation,
	PhaseDocumentFormatting,
	PhaseCompleted,
}

func phaseIndex(p Phase) int {
	for i, c := range pipelineOrder {
		if c == p {
			return i
		}
	}
	return -1
}

// Terminal reports whether p is a terminal state.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseError || p == PhaseCancelled
}

// CanTransition reports whether the state machine allows moving from p
// to next: one step forward (worldbuilding may be skipped as a single
// extra step), any non-terminal phase to error, and any phase before
// completion to cancelled.
func (p Phase) CanTransition(next Phase) bool {
	if p.Terminal() {
		return false
	}
	if next == PhaseError {
		return true
	}
	if next == PhaseCancelled {
		return true
	}
	from, to := phaseIndex(p), phaseIndex(next)
	if from < 0 || to < 0 {
		return false
	}
	if to == from+1 {
		return true
	}
	// Skipping exactly the conditional worldbuilding phase.
	return p == PhaseOrchestration && next == PhaseCharacters
}

// Session is the orchestration-level aggregate for one end-to-end run.
// All mutation goes through its methods; a mutex guards against the
// serving layer reading while the pipeline goroutine writes. Sessions
// are never copied: persistence and serving work on Snapshot values.
type Session struct {
	mu sync.RWMutex

	ID           string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Input        Input
	CurrentPhase Phase
	Progress     float64
	Chapters     []Chapter
	ErrorMessage string
	DocumentPath string

	EstimatedMinutes int
}

// Snapshot is a lock-free copy of a session's state, safe to
// serialize and pass by value across package boundaries.
type Snapshot struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Input        Input     `json:"story_input"`
	CurrentPhase Phase     `json:"current_phase"`
	Progress     float64   `json:"progress"`
	Chapters     []Chapter `json:"chapters"`
	ErrorMessage string    `json:"error_message,omitempty"`
	DocumentPath string    `json:"generated_document_path,omitempty"`

	EstimatedMinutes int `json:"estimated_time_minutes,omitempty"`
}

// NewSession creates a session in the initialized phase.
func NewSession(input Input) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:           uuid.New().String(),
		CreatedAt:    now,
		UpdatedAt:    now,
		Input:        input,
		CurrentPhase: PhaseInitialized,
	}
}

// Advance moves the session to the given phase, enforcing the state
// machine. Progress only ever increases.
func (s *Session) Advance(next Phase, progress float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.CurrentPhase.CanTransition(next) {
		return fmt.Errorf("invalid phase transition %s -> %s", s.CurrentPhase, next)
	}
	s.CurrentPhase = next
	if progress > s.Progress {
		s.Progress = progress
	}
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Fail moves the session to the error state with a human-readable
// message. Failing a terminal session is a no-op.
func (s *Session) Fail(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CurrentPhase.Terminal() {
		return
	}
	s.CurrentPhase = PhaseError
	s.ErrorMessage = msg
	s.UpdatedAt = time.Now().UTC()
}

// Cancel moves the session to the cancelled state. Returns false when
// the session already reached a terminal state.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CurrentPhase.Terminal() {
		return false
	}
	s.CurrentPhase = PhaseCancelled
	s.ErrorMessage = "generation cancelled by user"
	s.UpdatedAt = time.Now().UTC()
	return true
}

// SetEstimate records the orchestrator's completion estimate.
func (s *Session) SetEstimate(minutes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.EstimatedMinutes = minutes
	s.UpdatedAt = time.Now().UTC()
}

// UpdateChapters replaces the session's chapter list mid-run so
// progress readers see chapters as they are written and fixed.
func (s *Session) UpdateChapters(chapters []Chapter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Chapters = append([]Chapter(nil), chapters...)
	s.UpdatedAt = time.Now().UTC()
}

// Complete marks the session finished with its final chapter list and
// artifact path.
func (s *Session) Complete(chapters []Chapter, documentPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.CurrentPhase.CanTransition(PhaseCompleted) {
		return fmt.Errorf("invalid phase transition %s -> %s", s.CurrentPhase, PhaseCompleted)
	}
	s.CurrentPhase = PhaseCompleted
	s.Progress = 100
	s.Chapters = chapters
	s.DocumentPath = documentPath
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Snapshot returns a copy safe to serialize while the pipeline runs.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := Snapshot{
		ID:               s.ID,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
		Input:            s.Input,
		CurrentPhase:     s.CurrentPhase,
		Progress:         s.Progress,
		ErrorMessage:     s.ErrorMessage,
		DocumentPath:     s.DocumentPath,
		EstimatedMinutes: s.EstimatedMinutes,
	}
	cp.Chapters = append([]Chapter(nil), s.Chapters...)
	return cp
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.CurrentPhase
}
