package agent

import (
	"context"
	"strings"
	"sync"
)

// MockClient serves canned responses keyed by prompt keywords, for
// tests and offline runs. Responses are matched against the
// concatenated message text, first match wins; unmatched prompts get
// the default response.
type MockClient struct {
	mu        sync.Mutex
	rules     []mockRule
	fallback  string
	callCount int
}

type mockRule struct {
	keyword  string
	response string
}

// NewMockClient creates a mock with a generic default response.
func NewMockClient() *MockClient {
	return &MockClient{
		fallback: "The chapter unfolds as planned, carrying the story forward with steady momentum.",
	}
}

// Respond registers a canned response for prompts containing keyword
// (case-insensitive).
func (m *MockClient) Respond(keyword, response string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{keyword: strings.ToLower(keyword), response: response})
	return m
}

// Default replaces the fallback response.
func (m *MockClient) Default(response string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = response
	return m
}

// Calls returns how many completions were served.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Complete implements Completer.
func (m *MockClient) Complete(ctx context.Context, messages []Message, opts ...CallOption) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cfg := callConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.onAttempt != nil {
		cfg.onAttempt(1)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++

	var sb strings.Builder
	for _, msg := range messages {
		sb.WriteString(strings.ToLower(msg.Content))
		sb.WriteByte('\n')
	}
	prompt := sb.String()

	for _, rule := range m.rules {
		if strings.Contains(prompt, rule.keyword) {
			return rule.response, nil
		}
	}
	return m.fallback, nil
}
