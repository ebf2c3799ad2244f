package core

import (
	"fmt"

	"github.com/AFK4203/Book-generator-V3/internal/story"
)

// AgentError is a phase-level failure: which phase, which agent, and
// the underlying cause (a generation failure or a missing
// precondition).
type AgentError struct {
	Phase story.Phase
	Agent string
	Err   error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("phase %s (%s): %v", e.Phase, e.Agent, e.Err)
}

func (e *AgentError) Unwrap() error { return e.Err }
