// Package bedrock adapts generic chat invocations to Anthropic Claude
// models served through AWS Bedrock's InvokeModel API. Bedrock clients are
// expensive to establish, so in-flight calls draw exclusive handles from a
// fixed-size connection pool instead of a plain permit gate.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	"github.com/tidwall/gjson"

	"github.com/jgaeb/no-news/chat"
	"github.com/jgaeb/no-news/utils/connpool"
	"github.com/jgaeb/no-news/utils/logger"
	"github.com/jgaeb/no-news/utils/token_counter"
)

const (
	// anthropicVersion is the Bedrock-side Anthropic API version tag.
	anthropicVersion = "bedrock-2023-05-31"

	// maxTokens caps the response length on every request.
	maxTokens = 1000
)

// NewPool creates a pool of Bedrock runtime clients for the given region.
// The AWS config is resolved once, on first use; SDK-level retries are
// pinned to a single attempt because the invoker owns retry policy.
func NewPool(region string, maxsize int, log logger.Logger) *connpool.Pool[*bedrockruntime.Client] {
	var once sync.Once
	var cfg aws.Config
	var cfgErr error

	factory := func(ctx context.Context) (*bedrockruntime.Client, error) {
		once.Do(func() {
			cfg, cfgErr = awsconfig.LoadDefaultConfig(ctx,
				awsconfig.WithRegion(region),
				awsconfig.WithRetryMaxAttempts(1),
			)
		})
		if cfgErr != nil {
			return nil, cfgErr
		}
		return bedrockruntime.NewFromConfig(cfg), nil
	}

	// Bedrock clients hold no closable resources; drain is bookkeeping only.
	closer := func(client *bedrockruntime.Client) error {
		return nil
	}

	return connpool.New(maxsize, factory, closer).SetLogger(log)
}

// Backend is the Bedrock chat backend for one concrete model. The client
// pool is shared across all Bedrock models.
type Backend struct {
	model  string
	pool   *connpool.Pool[*bedrockruntime.Client]
	logger logger.Logger
}

var _ chat.Backend = (*Backend)(nil)

// New creates a backend for the given concrete model id.
func New(pool *connpool.Pool[*bedrockruntime.Client], model string, log logger.Logger) *Backend {
	return &Backend{
		model:  model,
		pool:   pool,
		logger: log,
	}
}

// EstimateTokens applies the five-characters-per-token heuristic to the
// full payload text, assistant prefix included; no exact tokenizer is
// available before the call.
func (b *Backend) EstimateTokens(req chat.Request) int {
	return token_counter.HeuristicTokens(req.System, req.Prompt, req.AssistantPrefix)
}

// Connect draws an exclusive client handle from the pool.
func (b *Backend) Connect(ctx context.Context) (chat.Conn, error) {
	client, err := b.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &conn{backend: b, client: client}, nil
}

// Initialize pre-warms the client pool. Must complete before the first
// Connect; calling it again is a no-op.
func (b *Backend) Initialize(ctx context.Context) error {
	return b.pool.Initialize(ctx)
}

// Close drains the shared pool. The pool is not reusable afterwards.
func (b *Backend) Close(ctx context.Context) error {
	return b.pool.Close()
}

// conn holds one pooled client for the duration of a logical call.
type conn struct {
	backend *Backend
	client  *bedrockruntime.Client
}

var _ chat.Conn = (*conn)(nil)

// prepare formats the wire payload and logs call metadata. The payload
// itself is never logged; request bodies carry caller content and the
// default logger writes to stdout.
func (b *Backend) prepare(req chat.Request) ([]byte, error) {
	body, err := formatPayload(req)
	if err != nil {
		return nil, &chat.UnclassifiedError{Model: b.model, Err: err}
	}
	b.logger.Printf("invoking %s with a %d byte request", b.model, len(body))
	return body, nil
}

// Invoke dispatches one attempt through the held client handle.
func (c *conn) Invoke(ctx context.Context, req chat.Request) (*chat.Result, error) {
	b := c.backend

	body, err := b.prepare(req)
	if err != nil {
		return nil, err
	}

	out, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		Body:        body,
		ModelId:     aws.String(b.model),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return nil, &chat.TransientError{Provider: chat.ProviderAWS, Err: err}
		}
		return nil, &chat.UnclassifiedError{Model: b.model, Err: err}
	}

	return parseResponse(b.model, out.Body, req.AssistantPrefix, b.logger)
}

// Close returns the client handle to the pool.
func (c *conn) Close() error {
	c.backend.pool.Release(c.client)
	return nil
}

// payload is the Bedrock-side Anthropic messages request body. Field names
// and shapes are the vendor wire contract and must not change.
type payload struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	System           string    `json:"system"`
	Messages         []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// formatPayload builds the request body. A non-empty assistant prefix is
// appended as an assistant-role message so the model continues it.
func formatPayload(req chat.Request) ([]byte, error) {
	p := payload{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxTokens,
		Temperature:      req.Temperature,
		System:           req.System,
		Messages: []message{
			{Role: "user", Content: []contentBlock{{Type: "text", Text: req.Prompt}}},
		},
	}

	if req.AssistantPrefix != "" {
		p.Messages = append(p.Messages, message{
			Role:    "assistant",
			Content: []contentBlock{{Type: "text", Text: req.AssistantPrefix}},
		})
	}

	return json.Marshal(p)
}

// parseResponse extracts the text blocks and usage counters from the raw
// response body. Text blocks are joined with single spaces and trimmed,
// then the assistant prefix is prepended. Missing usage is a non-fatal
// protocol warning; a body with no content blocks fails the call.
func parseResponse(model string, body []byte, prefix string, log logger.Logger) (*chat.Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, &chat.ProtocolError{Model: model, Message: "response body is not valid JSON"}
	}

	parsed := gjson.ParseBytes(body)

	content := parsed.Get("content")
	if !content.Exists() || len(content.Array()) == 0 {
		return nil, &chat.ProtocolError{Model: model, Message: "response contains no content blocks"}
	}

	texts := []string{}
	content.ForEach(func(_, block gjson.Result) bool {
		if block.Get("type").String() == "text" {
			texts = append(texts, block.Get("text").String())
		}
		return true
	})

	result := &chat.Result{
		Text: prefix + strings.TrimSpace(strings.Join(texts, " ")),
	}

	input := parsed.Get("usage.input_tokens")
	output := parsed.Get("usage.output_tokens")
	if !input.Exists() || !output.Exists() {
		log.Printf("token usage not found in response from %s", model)
		return result, nil
	}
	result.PromptTokens = int(input.Int())
	result.ResponseTokens = int(output.Int())
	return result, nil
}
