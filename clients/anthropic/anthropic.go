// Package anthropic adapts generic chat invocations to the Anthropic
// Messages API. Like the OpenAI backend it gates concurrency with a plain
// permit; unlike Bedrock, direct API clients are cheap and need no pool.
package anthropic

import (
	"context"
	"errors"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/jgaeb/no-news/chat"
	"github.com/jgaeb/no-news/rate_limit"
	"github.com/jgaeb/no-news/utils/logger"
	"github.com/jgaeb/no-news/utils/token_counter"
)

// maxTokens caps the response length on every request.
const maxTokens = 1000

// NewClient creates the shared Anthropic API client from credentials.
func NewClient(apiKey string) anthropic.Client {
	return anthropic.NewClient(option.WithAPIKey(apiKey))
}

// Backend is the Anthropic chat backend for one concrete model. The API
// client and concurrency gate are shared across all models of the provider.
type Backend struct {
	model  string
	client anthropic.Client
	gate   *rate_limit.Gate
	logger logger.Logger
}

var _ chat.Backend = (*Backend)(nil)

// New creates a backend for the given concrete model id.
func New(client anthropic.Client, model string, gate *rate_limit.Gate, log logger.Logger) *Backend {
	return &Backend{
		model:  model,
		client: client,
		gate:   gate,
		logger: log,
	}
}

// EstimateTokens applies the five-characters-per-token heuristic to the
// system text and prompt. The assistant prefix is excluded from the
// estimate even though it is sent.
func (b *Backend) EstimateTokens(req chat.Request) int {
	return token_counter.HeuristicTokens(req.System, req.Prompt)
}

// Connect acquires a concurrency permit.
func (b *Backend) Connect(ctx context.Context) (chat.Conn, error) {
	if err := b.gate.Acquire(ctx); err != nil {
		return nil, err
	}
	return &conn{backend: b}, nil
}

// Initialize is a no-op; per-call handles need no warmup.
func (b *Backend) Initialize(ctx context.Context) error {
	return nil
}

// Close is a no-op; there is no pool to drain.
func (b *Backend) Close(ctx context.Context) error {
	return nil
}

// conn holds one admitted invocation slot.
type conn struct {
	backend *Backend
}

var _ chat.Conn = (*conn)(nil)

// Invoke dispatches one attempt to the messages endpoint.
func (c *conn) Invoke(ctx context.Context, req chat.Request) (*chat.Result, error) {
	b := c.backend

	msg, err := b.client.Messages.New(ctx, b.buildParams(req))
	if err != nil {
		var apierr *anthropic.Error
		if errors.As(err, &apierr) {
			return nil, &chat.TransientError{Provider: chat.ProviderAnthropic, Err: err}
		}
		return nil, &chat.UnclassifiedError{Model: b.model, Err: err}
	}

	return extractResult(b.model, msg, req.AssistantPrefix, b.logger)
}

// Close releases the concurrency permit.
func (c *conn) Close() error {
	c.backend.gate.Release()
	return nil
}

// buildParams formats the wire request. The system text travels as a
// system block; a non-empty assistant prefix is appended as an
// assistant-role message so the model continues it.
func (b *Backend) buildParams(req chat.Request) anthropic.MessageNewParams {
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
	}
	if req.AssistantPrefix != "" {
		messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(req.AssistantPrefix)))
	}

	return anthropic.MessageNewParams{
		Model:       anthropic.Model(b.model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(req.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: req.System},
		},
		Messages: messages,
	}
}

// extractResult takes the first text content block, prepends the assistant
// prefix, and reads the usage counters. Missing usage is a non-fatal
// protocol warning; a message with no text block fails the call.
func extractResult(model string, msg *anthropic.Message, prefix string, log logger.Logger) (*chat.Result, error) {
	if msg == nil {
		return nil, &chat.ProtocolError{Model: model, Message: "response contains no message"}
	}

	text := ""
	found := false
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			found = true
			break
		}
	}
	if !found {
		return nil, &chat.ProtocolError{Model: model, Message: "response contains no text content block"}
	}

	result := &chat.Result{Text: prefix + text}

	if msg.Usage.InputTokens == 0 && msg.Usage.OutputTokens == 0 {
		log.Printf("token usage not found in response from %s", model)
		return result, nil
	}
	result.PromptTokens = int(msg.Usage.InputTokens)
	result.ResponseTokens = int(msg.Usage.OutputTokens)
	return result, nil
}
