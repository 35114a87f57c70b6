package models

import (
	"context"

	"github.com/jgaeb/no-news/chat"
	"github.com/jgaeb/no-news/rate_limit"
)

// ModelContext is a caller's handle on one model: it carries the resolved
// backend, the shared rate limiters, and the registry's usage ledger.
// Handles are cheap; resolve one per model and share it across goroutines.
type ModelContext struct {
	Provider chat.Provider
	Alias    string

	// ID is the concrete vendor model id.
	ID string

	backend  chat.Backend
	requests *rate_limit.Limiter
	tokens   *rate_limit.Limiter
	registry *Registry
}

// ChatOption adjusts one Chat call.
type ChatOption func(*chatSettings)

type chatSettings struct {
	temperature     float64
	assistantPrefix string
}

// WithTemperature sets the sampling temperature. Defaults to 1.0.
func WithTemperature(temperature float64) ChatOption {
	return func(s *chatSettings) {
		s.temperature = temperature
	}
}

// WithAssistantPrefix seeds the assistant's reply with a fixed prefix,
// typically an opening JSON fragment the model must continue. Providers
// that cannot honor it log and drop it.
func WithAssistantPrefix(prefix string) ChatOption {
	return func(s *chatSettings) {
		s.assistantPrefix = prefix
	}
}

// Initialize warms up the backend: Bedrock pre-creates its client pool,
// the other providers need nothing. Always safe to call.
func (m *ModelContext) Initialize(ctx context.Context) error {
	return m.backend.Initialize(ctx)
}

// Close drains whatever Initialize created. Contexts sharing a backend
// share its lifecycle; closing one closes it for the group.
func (m *ModelContext) Close(ctx context.Context) error {
	return m.backend.Close(ctx)
}

// Chat runs one logical call: charge the request bucket, invoke with
// retries, then record usage on success. The request bucket is charged
// once no matter how many attempts the call takes.
func (m *ModelContext) Chat(ctx context.Context, system, prompt string, opts ...ChatOption) (string, error) {
	settings := chatSettings{temperature: 1.0}
	for _, opt := range opts {
		opt(&settings)
	}

	if err := m.requests.Acquire(ctx, 1); err != nil {
		return "", err
	}

	req := chat.Request{
		System:          system,
		Prompt:          prompt,
		Temperature:     settings.temperature,
		AssistantPrefix: settings.assistantPrefix,
	}

	result, err := invoke(ctx, m.ID, m.backend, m.tokens, req, m.registry.retryUnitValue(), m.registry.logger)
	if err != nil {
		return "", err
	}

	m.registry.usage.Record(m.Provider, result.PromptTokens, result.ResponseTokens)
	return result.Text, nil
}
