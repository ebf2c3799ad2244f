package agent

import (
	"context"
	"fmt"
	"log/slog"
)

// Status is the lifecycle state of an agent.
type Status string

const (
	StatusReady     Status = "ready"
	StatusWorking   Status = "working"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// StatusRecord is the observable state of one agent: overwritten on
// every transition, no history kept.
type StatusRecord struct {
	AgentName string  `json:"agent_name"`
	Status    Status  `json:"status"`
	Progress  float64 `json:"progress"`
	Message   string  `json:"message"`
}

// StatusSink receives status transitions. The pipeline wires agents to
// a session-scoped sink that forwards to the progress bus; delivery is
// fire-and-forget.
type StatusSink interface {
	AgentStatus(rec StatusRecord)
}

// StatusSinkFunc adapts a function to StatusSink.
type StatusSinkFunc func(rec StatusRecord)

func (f StatusSinkFunc) AgentStatus(rec StatusRecord) { f(rec) }

// Base carries the shared state and helpers of every concrete agent.
// Agents are constructed per session, so status never bleeds across
// concurrent runs.
type Base struct {
	name   string
	client Completer
	sink   StatusSink
	logger *slog.Logger

	status StatusRecord
}

// NewBase builds agent state around a shared client. A nil sink
// discards transitions.
func NewBase(name string, client Completer, sink StatusSink) Base {
	return Base{
		name:   name,
		client: client,
		sink:   sink,
		logger: slog.Default().With("agent", name),
		status: StatusRecord{AgentName: name, Status: StatusReady},
	}
}

// Name returns the agent's display name.
func (b *Base) Name() string { return b.name }

// Logger returns the agent-scoped logger.
func (b *Base) Logger() *slog.Logger { return b.logger }

// Status returns the current status record.
func (b *Base) Status() StatusRecord { return b.status }

// UpdateStatus overwrites the status record and notifies the sink.
// Progress below the current value is kept as-is so progress stays
// monotonic within one process call.
func (b *Base) UpdateStatus(status Status, progress float64, message string) {
	b.status.Status = status
	if progress >= b.status.Progress || status == StatusReady {
		b.status.Progress = progress
	}
	b.status.Message = message
	b.logger.Info("agent status",
		"status", status,
		"progress", b.status.Progress,
		"message", message)
	if b.sink != nil {
		b.sink.AgentStatus(b.status)
	}
}

// Generate issues a generation call through the shared client,
// surfacing each attempt in the agent's status record.
func (b *Base) Generate(ctx context.Context, messages []Message, opts ...CallOption) (string, error) {
	progress := b.status.Progress
	opts = append(opts, WithAttemptNotify(func(attempt int) {
		b.UpdateStatus(StatusWorking, progress, fmt.Sprintf("Calling generation API (attempt %d)", attempt))
	}))
	text, err := b.client.Complete(ctx, messages, opts...)
	if err != nil {
		b.UpdateStatus(StatusError, progress, fmt.Sprintf("Generation failed: %v", err))
		return "", err
	}
	return text, nil
}
