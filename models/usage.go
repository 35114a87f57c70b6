package models

import (
	"fmt"
	"sync"

	"github.com/jgaeb/no-news/chat"
)

// usageData holds the monotonic token totals for one provider.
type usageData struct {
	PromptTokens   int
	ResponseTokens int
}

// Usage accumulates token consumption per provider across every
// successful call. Counters only grow; many goroutines record at once.
type Usage struct {
	mu     sync.RWMutex
	totals map[chat.Provider]usageData
}

// NewUsage creates an empty accumulator.
func NewUsage() *Usage {
	return &Usage{
		totals: make(map[chat.Provider]usageData),
	}
}

// Record adds one successful call's token counts to the provider's totals.
func (u *Usage) Record(provider chat.Provider, promptTokens, responseTokens int) {
	u.mu.Lock()
	defer u.mu.Unlock()

	data := u.totals[provider]
	data.PromptTokens += promptTokens
	data.ResponseTokens += responseTokens
	u.totals[provider] = data
}

// Totals returns the accumulated prompt and response token counts for the
// provider.
func (u *Usage) Totals(provider chat.Provider) (int, int) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	data := u.totals[provider]
	return data.PromptTokens, data.ResponseTokens
}

// Report formats the provider's accumulated usage priced at the given
// model's rates. Reading never resets the counters.
func (u *Usage) Report(provider chat.Provider, alias string) (string, error) {
	spec, err := Lookup(provider, alias)
	if err != nil {
		return "", err
	}

	promptTokens, responseTokens := u.Totals(provider)
	cost := (spec.PromptPrice*float64(promptTokens) +
		spec.ResponsePrice*float64(responseTokens)) / 1_000_000

	return fmt.Sprintf(
		"prompt_tokens: %d\tresponse_tokens: %d\tcost: %.2f",
		promptTokens, responseTokens, cost,
	), nil
}
