// Package chat defines the shared vocabulary of the model-invocation layer:
// the request/result shapes exchanged with provider backends, the Backend
// and Conn interfaces every provider adapter implements, and the classified
// error kinds the retry loop dispatches on.
package chat

import "context"

// Provider identifies one of the external LLM-serving services.
type Provider string

const (
	ProviderOpenAI    Provider = "OpenAI"
	ProviderAWS       Provider = "AWS"
	ProviderAnthropic Provider = "Anthropic"
)

// Request carries one logical chat invocation. A Request is created per
// call and never reused.
type Request struct {
	System          string
	Prompt          string
	Temperature     float64
	AssistantPrefix string

	// EstimatedTokens is the pre-call token estimate used to debit the
	// token-rate limiter before each attempt. Filled in by the invoker.
	EstimatedTokens int
}

// Result is the parsed outcome of a successful invocation.
type Result struct {
	Text           string
	PromptTokens   int
	ResponseTokens int
}

// Backend is a provider adapter. Connect is the concurrency admission
// point: it blocks until the provider's gate (or connection pool) admits
// the call and returns a Conn bound to the admitted slot.
type Backend interface {
	// EstimateTokens returns the pre-call token estimate for the request.
	EstimateTokens(req Request) int

	// Connect acquires the provider's concurrency resource. The returned
	// Conn is held across all retries of one logical call and must be
	// closed on every exit path.
	Connect(ctx context.Context) (Conn, error)

	// Initialize prepares provider resources (pool warmup). Safe to call
	// unconditionally; a no-op for providers without expensive handles.
	Initialize(ctx context.Context) error

	// Close releases provider resources (pool drain). Must be called once
	// after the last invocation; a no-op for cheap-handle providers.
	Close(ctx context.Context) error
}

// Conn is an admitted invocation slot: a gate permit for cheap-handle
// providers, or an exclusively-owned pooled client handle for AWS.
type Conn interface {
	// Invoke dispatches one attempt and parses the provider response.
	Invoke(ctx context.Context, req Request) (*Result, error)

	// Close releases the permit or returns the handle to its pool.
	Close() error
}
