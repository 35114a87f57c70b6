package chat

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	inner := errors.New("429 too many requests")
	transient := &TransientError{Provider: ProviderOpenAI, Err: inner}

	assert.True(t, IsTransient(transient), "TransientError should be transient")
	assert.True(t, IsTransient(fmt.Errorf("attempt failed: %w", transient)), "wrapped TransientError should be transient")
	assert.False(t, IsTransient(inner), "raw vendor error should not be transient")
	assert.False(t, IsTransient(nil), "nil should not be transient")
	assert.False(t, IsTransient(&UnclassifiedError{Model: "m", Err: inner}), "unclassified error should not be transient")
}

func TestErrorUnwrapChains(t *testing.T) {
	inner := errors.New("connection reset")

	transient := &TransientError{Provider: ProviderAWS, Err: inner}
	assert.ErrorIs(t, transient, inner)

	exhausted := &ExhaustedRetriesError{Model: "claude-3-haiku-20240307", Attempts: 3, Err: transient}
	assert.ErrorIs(t, exhausted, inner, "exhausted error should unwrap to the last transient cause")
	assert.Contains(t, exhausted.Error(), "claude-3-haiku-20240307")
	assert.Contains(t, exhausted.Error(), "3 attempts")

	unclassified := &UnclassifiedError{Model: "gpt-4-turbo-2024-04-09", Err: inner}
	assert.ErrorIs(t, unclassified, inner)
}

func TestProtocolErrorMessage(t *testing.T) {
	err := &ProtocolError{Model: "claude-3-opus-20240229", Message: "no content blocks"}
	assert.Contains(t, err.Error(), "claude-3-opus-20240229")
	assert.Contains(t, err.Error(), "no content blocks")
}
