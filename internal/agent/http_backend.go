package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// HTTPBackend talks to an OpenAI-compatible chat-completions endpoint
// (Mistral's API speaks this shape). It performs exactly one request
// per Chat call; retry lives in Client.
type HTTPBackend struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// BackendOption configures an HTTPBackend.
type BackendOption func(*HTTPBackend)

// WithModel sets the model name sent with each request.
func WithModel(model string) BackendOption {
	return func(b *HTTPBackend) {
		b.model = model
	}
}

// WithBaseURL points the backend at a different API host.
func WithBaseURL(baseURL string) BackendOption {
	return func(b *HTTPBackend) {
		b.baseURL = baseURL
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) BackendOption {
	return func(b *HTTPBackend) {
		transport := b.httpClient.Transport
		b.httpClient = &http.Client{Timeout: timeout, Transport: transport}
	}
}

// WithBackendLogger sets the backend logger.
func WithBackendLogger(logger *slog.Logger) BackendOption {
	return func(b *HTTPBackend) {
		b.logger = logger
	}
}

// NewHTTPBackend builds a backend with pooled connections.
func NewHTTPBackend(apiKey string, opts ...BackendOption) *HTTPBackend {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	b := &HTTPBackend{
		apiKey:  apiKey,
		baseURL: "https://api.mistral.ai/v1",
		model:   "mistral-large-latest",
		httpClient: &http.Client{
			Timeout:   120 * time.Second,
			Transport: transport,
		},
		logger: slog.Default().With("component", "generation_backend"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Chat sends one chat-completions request.
func (b *HTTPBackend) Chat(ctx context.Context, messages []Message, temperature float64, maxTokens int) (string, error) {
	reqBody := chatRequest{
		Model:       b.model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	for _, m := range messages {
		reqBody.Messages = append(reqBody.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	httpStart := time.Now()
	b.logger.Debug("sending generation request",
		"model", b.model,
		"message_count", len(messages),
		"body_size_bytes", len(body))

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		b.logger.Error("generation API error",
			"status_code", resp.StatusCode,
			"duration_ms", time.Since(httpStart).Milliseconds())
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	b.logger.Info("generation request completed",
		"prompt_tokens", parsed.Usage.PromptTokens,
		"completion_tokens", parsed.Usage.CompletionTokens,
		"total_tokens", parsed.Usage.TotalTokens,
		"duration_ms", time.Since(httpStart).Milliseconds())

	return parsed.Choices[0].Message.Content, nil
}
