package anthropic

import (
	"context"
	"testing"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgaeb/no-news/chat"
	"github.com/jgaeb/no-news/rate_limit"
	"github.com/jgaeb/no-news/utils/logger"
)

// recordingLogger captures log lines for assertion.
type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Type() logger.LoggerType { return logger.LoggerTypeNoop }

func (l *recordingLogger) Printf(format string, args ...any) { l.lines = append(l.lines, format) }

func (l *recordingLogger) Println(message string) {}

func (l *recordingLogger) Close() error { return nil }

func newTestBackend() *Backend {
	return New(NewClient("test-key"), "claude-3-haiku-20240307", rate_limit.NewGate(2), logger.NewNoopLogger())
}

func TestEstimateTokensExcludesPrefix(t *testing.T) {
	backend := newTestBackend()

	// 10 + 6 chars of text, plus the 4-character pad, over 5 per token.
	// The 4-character prefix must not change the estimate.
	req := chat.Request{System: "aaaaaaaaaa", Prompt: "bbbbbb"}
	assert.Equal(t, 4, backend.EstimateTokens(req))

	req.AssistantPrefix = "cccc"
	assert.Equal(t, 4, backend.EstimateTokens(req))
}

func TestBuildParams(t *testing.T) {
	backend := newTestBackend()

	params := backend.buildParams(chat.Request{
		System:      "You are terse.",
		Prompt:      "Summarize the article.",
		Temperature: 0.7,
	})

	assert.Equal(t, anthropic.Model("claude-3-haiku-20240307"), params.Model)
	assert.Equal(t, int64(1000), params.MaxTokens)
	assert.Equal(t, 0.7, params.Temperature.Value)
	require.Len(t, params.System, 1)
	assert.Equal(t, "You are terse.", params.System[0].Text)
	require.Len(t, params.Messages, 1)
	assert.Equal(t, anthropic.MessageParamRole("user"), params.Messages[0].Role)
}

func TestBuildParamsAssistantPrefix(t *testing.T) {
	backend := newTestBackend()

	params := backend.buildParams(chat.Request{
		System:          "You are terse.",
		Prompt:          "Answer in JSON.",
		AssistantPrefix: `{"answer":`,
	})

	require.Len(t, params.Messages, 2)
	assert.Equal(t, anthropic.MessageParamRole("assistant"), params.Messages[1].Role)
}

func TestConnectReleasesGateOnClose(t *testing.T) {
	backend := newTestBackend()

	conn1, err := backend.Connect(context.Background())
	require.NoError(t, err)
	conn2, err := backend.Connect(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = backend.Connect(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, conn1.Close())
	conn3, err := backend.Connect(context.Background())
	require.NoError(t, err)

	require.NoError(t, conn2.Close())
	require.NoError(t, conn3.Close())
}

func TestExtractResult(t *testing.T) {
	msg := &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: `ok"}`},
		},
		Usage: anthropic.Usage{InputTokens: 11, OutputTokens: 7},
	}

	log := &recordingLogger{}
	result, err := extractResult("claude-3-haiku-20240307", msg, `{"a":`, log)
	require.NoError(t, err)

	assert.Equal(t, `{"a":ok"}`, result.Text)
	assert.Equal(t, 11, result.PromptTokens)
	assert.Equal(t, 7, result.ResponseTokens)
	assert.Empty(t, log.lines)
}

func TestExtractResultFirstTextBlockOnly(t *testing.T) {
	msg := &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "tool_use"},
			{Type: "text", Text: "first"},
			{Type: "text", Text: "second"},
		},
		Usage: anthropic.Usage{InputTokens: 1, OutputTokens: 1},
	}

	result, err := extractResult("claude-3-haiku-20240307", msg, "", &recordingLogger{})
	require.NoError(t, err)
	assert.Equal(t, "first", result.Text)
}

func TestExtractResultMissingUsage(t *testing.T) {
	msg := &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: "hello"},
		},
	}

	log := &recordingLogger{}
	result, err := extractResult("claude-3-haiku-20240307", msg, "", log)
	require.NoError(t, err)

	assert.Equal(t, "hello", result.Text)
	assert.Zero(t, result.PromptTokens)
	assert.Zero(t, result.ResponseTokens)
	require.Len(t, log.lines, 1)
	assert.Contains(t, log.lines[0], "token usage not found")
}

func TestExtractResultNoTextBlock(t *testing.T) {
	for _, msg := range []*anthropic.Message{
		nil,
		{},
		{Content: []anthropic.ContentBlockUnion{{Type: "tool_use"}}},
	} {
		_, err := extractResult("claude-3-haiku-20240307", msg, "", &recordingLogger{})
		var protoErr *chat.ProtocolError
		assert.ErrorAs(t, err, &protoErr)
	}
}
