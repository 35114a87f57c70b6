// Package token_counter estimates pre-call token costs. OpenAI models get
// an exact sub-word tokenizer count; providers without a public tokenizer
// fall back to a cheap characters-per-token heuristic.
package token_counter

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounterInterface counts tokens in plain text.
type TokenCounterInterface interface {
	// CountTextTokens counts tokens in plain text
	CountTextTokens(text string) int
}

// tokenCounterImpl counts tokens with a tiktoken encoder.
type tokenCounterImpl struct {
	encoder *tiktoken.Tiktoken
}

var _ TokenCounterInterface = (*tokenCounterImpl)(nil)

var encodingBase = "cl100k_base"

// NewTokenCounter creates a counter using the exact encoding for the given
// model. Fine-tuned and otherwise unknown model ids fall back to
// cl100k_base (used by GPT-4 and GPT-3.5-turbo).
func NewTokenCounter(model string) (*tokenCounterImpl, error) {
	encoder, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoder, err = tiktoken.GetEncoding(encodingBase)
		if err != nil {
			return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
		}
	}

	return &tokenCounterImpl{
		encoder: encoder,
	}, nil
}

// CountTextTokens counts tokens in plain text using tiktoken
func (tc *tokenCounterImpl) CountTextTokens(text string) int {
	tokens := tc.encoder.Encode(text, nil, nil)
	return len(tokens)
}

// heuristicCharsPerToken is the assumed average token width for providers
// whose exact tokenizer is unavailable before the call.
const heuristicCharsPerToken = 5

// HeuristicTokens estimates the combined token count of the given text
// parts at roughly five characters per token, rounding up.
func HeuristicTokens(parts ...string) int {
	total := 0
	for _, part := range parts {
		total += len(part)
	}
	return (total + heuristicCharsPerToken - 1) / heuristicCharsPerToken
}
