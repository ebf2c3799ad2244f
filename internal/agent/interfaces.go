package agent

import "context"

// Role tags a prompt message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one role-tagged block of prompt text.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System is shorthand for a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User is shorthand for a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Completer is the generation capability every agent works against:
// an ordered sequence of role-tagged messages in, generated text out,
// fallibly. The production implementation is Client; tests use
// MockClient or hand-rolled stubs.
type Completer interface {
	Complete(ctx context.Context, messages []Message, opts ...CallOption) (string, error)
}

// Backend is the raw external generation call the Client retries
// around. One invocation, no retry.
type Backend interface {
	Chat(ctx context.Context, messages []Message, temperature float64, maxTokens int) (string, error)
}
