// Package openai adapts generic chat invocations to the OpenAI chat
// completions API. Requests are gated by a plain concurrency permit;
// per-call client handles are cheap, so no connection pool is used.
package openai

import (
	"context"
	"errors"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/jgaeb/no-news/chat"
	"github.com/jgaeb/no-news/rate_limit"
	"github.com/jgaeb/no-news/utils/logger"
	"github.com/jgaeb/no-news/utils/token_counter"
)

// maxTokens caps the response length on every request.
const maxTokens = 1000

// NewClient creates the shared OpenAI API client from credentials.
func NewClient(apiKey, organization string) openai.Client {
	return openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithOrganization(organization),
	)
}

// Backend is the OpenAI chat backend for one concrete model. The API
// client and concurrency gate are shared across all models of the
// provider; the token encoder is model-specific.
type Backend struct {
	model   string
	client  openai.Client
	gate    *rate_limit.Gate
	counter token_counter.TokenCounterInterface
	logger  logger.Logger
}

var _ chat.Backend = (*Backend)(nil)

// New creates a backend for the given concrete model id.
func New(client openai.Client, model string, gate *rate_limit.Gate, log logger.Logger) (*Backend, error) {
	counter, err := token_counter.NewTokenCounter(model)
	if err != nil {
		return nil, err
	}

	return &Backend{
		model:   model,
		client:  client,
		gate:    gate,
		counter: counter,
		logger:  log,
	}, nil
}

// EstimateTokens counts the exact tokenizer encoding of system and prompt.
// The assistant prefix is excluded: OpenAI drops it (see Invoke).
func (b *Backend) EstimateTokens(req chat.Request) int {
	return b.counter.CountTextTokens(req.System) + b.counter.CountTextTokens(req.Prompt)
}

// Connect acquires a concurrency permit; OpenAI needs no warm handles.
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
	backend      *Backend
	warnedPrefix bool
}

var _ chat.Conn = (*conn)(nil)

// dropPrefix warns that the assistant prefix cannot be honored. One
// warning per logical call, not per retry attempt.
func (c *conn) dropPrefix(req chat.Request) {
	if req.AssistantPrefix == "" || c.warnedPrefix {
		return
	}
	c.warnedPrefix = true
	c.backend.logger.Printf("assistant prefix not supported for OpenAI: %s", req.AssistantPrefix)
}

// Invoke dispatches one attempt to the chat completions endpoint.
func (c *conn) Invoke(ctx context.Context, req chat.Request) (*chat.Result, error) {
	b := c.backend

	c.dropPrefix(req)

	resp, err := b.client.Chat.Completions.New(ctx, b.buildParams(req))
	if err != nil {
		var apierr *openai.Error
		if errors.As(err, &apierr) {
			return nil, &chat.TransientError{Provider: chat.ProviderOpenAI, Err: err}
		}
		return nil, &chat.UnclassifiedError{Model: b.model, Err: err}
	}

	return parseResponse(b.model, resp, b.logger)
}

// Close releases the concurrency permit.
func (c *conn) Close() error {
	c.backend.gate.Release()
	return nil
}

// buildParams formats the wire request. Both the system text and the
// prompt are sent as system-role messages, and JSON output mode is always
// requested; both are part of the established wire contract.
func (b *Backend) buildParams(req chat.Request) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model: openai.ChatModel(b.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.SystemMessage(req.Prompt),
		},
		Temperature: openai.Float(req.Temperature),
		MaxTokens:   openai.Int(maxTokens),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	}
}

// parseResponse extracts the completion text and usage counters. Missing
// usage is a non-fatal protocol warning; a response with no choices fails.
func parseResponse(model string, resp *openai.ChatCompletion, log logger.Logger) (*chat.Result, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, &chat.ProtocolError{Model: model, Message: "response contains no choices"}
	}

	result := &chat.Result{Text: resp.Choices[0].Message.Content}

	if resp.Usage.PromptTokens == 0 && resp.Usage.CompletionTokens == 0 {
		log.Printf("token usage not found in response from %s", model)
		return result, nil
	}
	result.PromptTokens = int(resp.Usage.PromptTokens)
	result.ResponseTokens = int(resp.Usage.CompletionTokens)
	return result, nil
}
