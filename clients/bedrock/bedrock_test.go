package bedrock

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/jgaeb/no-news/chat"
	"github.com/jgaeb/no-news/utils/logger"
)

// recordingLogger captures log lines for assertion.
type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Type() logger.LoggerType { return logger.LoggerTypeNoop }

func (l *recordingLogger) Printf(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Println(message string) {}

func (l *recordingLogger) Close() error { return nil }

func TestFormatPayload(t *testing.T) {
	body, err := formatPayload(chat.Request{
		System:      "You are terse.",
		Prompt:      "Summarize the article.",
		Temperature: 0.3,
	})
	require.NoError(t, err)

	parsed := gjson.ParseBytes(body)
	assert.Equal(t, "bedrock-2023-05-31", parsed.Get("anthropic_version").String())
	assert.Equal(t, int64(1000), parsed.Get("max_tokens").Int())
	assert.Equal(t, 0.3, parsed.Get("temperature").Float())
	assert.Equal(t, "You are terse.", parsed.Get("system").String())

	messages := parsed.Get("messages").Array()
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0].Get("role").String())
	assert.Equal(t, "text", messages[0].Get("content.0.type").String())
	assert.Equal(t, "Summarize the article.", messages[0].Get("content.0.text").String())
}

func TestFormatPayloadAssistantPrefix(t *testing.T) {
	body, err := formatPayload(chat.Request{
		System:          "You are terse.",
		Prompt:          "Answer in JSON.",
		Temperature:     0.0,
		AssistantPrefix: `{"answer":`,
	})
	require.NoError(t, err)

	messages := gjson.ParseBytes(body).Get("messages").Array()
	require.Len(t, messages, 2)
	assert.Equal(t, "assistant", messages[1].Get("role").String())
	assert.Equal(t, `{"answer":`, messages[1].Get("content.0.text").String())
}

func TestPrepareKeepsPayloadOutOfLogs(t *testing.T) {
	log := &recordingLogger{}
	pool := NewPool("us-east-1", 1, logger.NewNoopLogger())
	backend := New(pool, "anthropic.claude-3-haiku-20240307-v1:0", log)

	body, err := backend.prepare(chat.Request{
		System: "You are terse.",
		Prompt: "the confidential article text",
	})
	require.NoError(t, err)
	require.NotEmpty(t, body)

	require.Len(t, log.lines, 1)
	assert.Contains(t, log.lines[0], "anthropic.claude-3-haiku-20240307-v1:0")
	assert.NotContains(t, log.lines[0], "confidential article text")
}

func TestParseResponse(t *testing.T) {
	body := []byte(`{
		"content": [
			{"type": "text", "text": "  first part"},
			{"type": "tool_use", "id": "x"},
			{"type": "text", "text": "second part  "}
		],
		"usage": {"input_tokens": 11, "output_tokens": 7}
	}`)

	log := &recordingLogger{}
	result, err := parseResponse("anthropic.claude-3-haiku-20240307-v1:0", body, "", log)
	require.NoError(t, err)

	assert.Equal(t, "first part second part", result.Text)
	assert.Equal(t, 11, result.PromptTokens)
	assert.Equal(t, 7, result.ResponseTokens)
	assert.Empty(t, log.lines)
}

func TestParseResponsePrefixPrepended(t *testing.T) {
	body := []byte(`{
		"content": [{"type": "text", "text": "ok\"}"}],
		"usage": {"input_tokens": 1, "output_tokens": 1}
	}`)

	result, err := parseResponse("anthropic.claude-3-sonnet-20240229-v1:0", body, `{"a":`, &recordingLogger{})
	require.NoError(t, err)
	assert.Equal(t, `{"a":ok"}`, result.Text)
}

func TestParseResponseMissingUsage(t *testing.T) {
	body := []byte(`{"content": [{"type": "text", "text": "hello"}]}`)

	log := &recordingLogger{}
	result, err := parseResponse("anthropic.claude-3-haiku-20240307-v1:0", body, "", log)
	require.NoError(t, err)

	assert.Equal(t, "hello", result.Text)
	assert.Zero(t, result.PromptTokens)
	assert.Zero(t, result.ResponseTokens)
	require.Len(t, log.lines, 1)
	assert.Contains(t, log.lines[0], "token usage not found")
}

func TestParseResponseNoContent(t *testing.T) {
	for _, body := range []string{`{}`, `{"content": []}`, `not json`} {
		_, err := parseResponse("anthropic.claude-3-haiku-20240307-v1:0", []byte(body), "", &recordingLogger{})
		var protoErr *chat.ProtocolError
		assert.ErrorAs(t, err, &protoErr, "body %q", body)
	}
}

func TestEstimateTokens(t *testing.T) {
	pool := NewPool("us-east-1", 1, logger.NewNoopLogger())
	backend := New(pool, "anthropic.claude-3-haiku-20240307-v1:0", logger.NewNoopLogger())

	// 10 + 6 + 4 chars of text, rounded up at 5 chars per token.
	estimate := backend.EstimateTokens(chat.Request{
		System:          "aaaaaaaaaa",
		Prompt:          "bbbbbb",
		AssistantPrefix: "cccc",
	})
	assert.Equal(t, 4, estimate)
}
