// Package models is the top of the invocation layer: the model catalog,
// the Registry wiring backends to rate limiters, ModelContext handles for
// callers, and the usage ledger with cost reporting.
package models

import (
	"fmt"
	"time"

	"github.com/jgaeb/no-news/chat"
	"github.com/jgaeb/no-news/rate_limit"
)

// Spec describes one invocable model: its vendor id, rate limits, and
// per-million-token prices. Models with the same LimiterKey share a single
// request bucket and a single token bucket; the vendor enforces limits on
// the underlying base model, not on each fine-tune.
type Spec struct {
	ID         string
	LimiterKey string
	Requests   rate_limit.Rate
	Tokens     rate_limit.Rate

	// Dollars per million tokens.
	PromptPrice   float64
	ResponsePrice float64
}

// gpt-3.5 and its fine-tunes share the base model's buckets.
var gpt35 = Spec{
	ID:            "gpt-3.5-turbo-0125",
	LimiterKey:    "OpenAI/gpt-3.5",
	Requests:      rate_limit.Rate{Amount: 500, Period: 3 * time.Second},
	Tokens:        rate_limit.Rate{Amount: 500_000, Period: 15 * time.Second},
	PromptPrice:   0.5,
	ResponsePrice: 1.5,
}

// fineTune derives a fine-tuned variant of gpt-3.5 with its own id and
// price but the shared limiter key.
func fineTune(id string) Spec {
	spec := gpt35
	spec.ID = id
	spec.PromptPrice = 3
	spec.ResponsePrice = 6
	return spec
}

var catalog = map[chat.Provider]map[string]Spec{
	chat.ProviderOpenAI: {
		"gpt-4": {
			ID:            "gpt-4-turbo-2024-04-09",
			LimiterKey:    "OpenAI/gpt-4",
			Requests:      rate_limit.Rate{Amount: 250, Period: 3 * time.Second},
			Tokens:        rate_limit.Rate{Amount: 150_000, Period: 15 * time.Second},
			PromptPrice:   10,
			ResponsePrice: 30,
		},
		"gpt-3.5":       gpt35,
		"ft-events-1":   fineTune("ft:gpt-3.5-turbo-0125:computational-policy-lab:events:9A33J3DL"),
		"ft-events-2":   fineTune("ft:gpt-3.5-turbo-0125:computational-policy-lab:events2:9A6G5JOs"),
		"ft-events-3":   fineTune("ft:gpt-3.5-turbo-0125:computational-policy-lab:events3:9AAUeVtD"),
		"ft-classify-1": fineTune("ft:gpt-3.5-turbo-0125:computational-policy-lab:classify:9AWOhGqH"),
		"ft-classify-2": fineTune("ft:gpt-3.5-turbo-0125:computational-policy-lab:classify2:9Aazgks8"),
		"ft-classify-3": fineTune("ft:gpt-3.5-turbo-0125:computational-policy-lab:classify3:9AdamZ7x"),
	},
	chat.ProviderAWS: {
		"sonnet": {
			ID:            "anthropic.claude-3-sonnet-20240229-v1:0",
			LimiterKey:    "AWS/sonnet",
			Requests:      rate_limit.Rate{Amount: 50, Period: 6 * time.Second},
			Tokens:        rate_limit.Rate{Amount: 100_000, Period: 6 * time.Second},
			PromptPrice:   3,
			ResponsePrice: 15,
		},
		"haiku": {
			ID:            "anthropic.claude-3-haiku-20240307-v1:0",
			LimiterKey:    "AWS/haiku",
			Requests:      rate_limit.Rate{Amount: 100, Period: 6 * time.Second},
			Tokens:        rate_limit.Rate{Amount: 200_000, Period: 6 * time.Second},
			PromptPrice:   0.25,
			ResponsePrice: 1.25,
		},
	},
	chat.ProviderAnthropic: {
		"opus": {
			ID:            "claude-3-opus-20240229",
			LimiterKey:    "Anthropic/opus",
			Requests:      rate_limit.Rate{Amount: 200, Period: 6 * time.Second},
			Tokens:        rate_limit.Rate{Amount: 200_000, Period: time.Minute},
			PromptPrice:   15,
			ResponsePrice: 75,
		},
		"sonnet": {
			ID:            "claude-3-sonnet-20240229",
			LimiterKey:    "Anthropic/sonnet",
			Requests:      rate_limit.Rate{Amount: 200, Period: 6 * time.Second},
			Tokens:        rate_limit.Rate{Amount: 160_000, Period: time.Minute},
			PromptPrice:   3,
			ResponsePrice: 15,
		},
		"haiku": {
			ID:            "claude-3-haiku-20240307",
			LimiterKey:    "Anthropic/haiku",
			Requests:      rate_limit.Rate{Amount: 200, Period: 6 * time.Second},
			Tokens:        rate_limit.Rate{Amount: 80_000, Period: time.Minute},
			PromptPrice:   0.25,
			ResponsePrice: 1.25,
		},
	},
}

// Lookup resolves a provider and model alias to its catalog entry.
func Lookup(provider chat.Provider, alias string) (Spec, error) {
	aliases, ok := catalog[provider]
	if !ok {
		return Spec{}, &chat.ConfigurationError{
			Message: fmt.Sprintf("unknown provider: %s", provider),
		}
	}
	spec, ok := aliases[alias]
	if !ok {
		return Spec{}, &chat.ConfigurationError{
			Message: fmt.Sprintf("unknown model %s for provider %s", alias, provider),
		}
	}
	return spec, nil
}
