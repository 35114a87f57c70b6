package models

import (
	"sync"
	"time"

	"github.com/jgaeb/no-news/chat"
	"github.com/jgaeb/no-news/clients/anthropic"
	"github.com/jgaeb/no-news/clients/bedrock"
	"github.com/jgaeb/no-news/clients/openai"
	"github.com/jgaeb/no-news/config"
	"github.com/jgaeb/no-news/rate_limit"
	"github.com/jgaeb/no-news/utils/logger"
)

// Registry owns the per-model backends, the rate limiter instances, and
// the usage ledger. Limiters are created once per limiter key, so the
// gpt-3.5 fine-tunes all drain the same buckets as their base model.
type Registry struct {
	usage  *Usage
	logger logger.Logger

	mu        sync.Mutex
	requests  map[string]*rate_limit.Limiter
	tokens    map[string]*rate_limit.Limiter
	backends  map[chat.Provider]map[string]chat.Backend
	overrides map[string]rate_limit.RateLimit
	retryUnit time.Duration
}

// NewRegistry builds a registry with real provider backends from loaded
// configuration. Credential validation already happened in config.Load;
// construction itself does no network I/O.
func NewRegistry(cfg *config.Config, log logger.Logger) (*Registry, error) {
	openaiClient := openai.NewClient(cfg.OpenAIKey, cfg.OpenAIOrg)
	openaiGate := rate_limit.NewGate(cfg.ConnectionLimit)

	anthropicClient := anthropic.NewClient(cfg.AnthropicKey)
	anthropicGate := rate_limit.NewGate(cfg.ConnectionLimit)

	pool := bedrock.NewPool(cfg.AWSRegion, cfg.PoolSize, log)

	backends := map[chat.Provider]map[string]chat.Backend{
		chat.ProviderOpenAI:    {},
		chat.ProviderAWS:       {},
		chat.ProviderAnthropic: {},
	}
	for alias, spec := range catalog[chat.ProviderOpenAI] {
		backend, err := openai.New(openaiClient, spec.ID, openaiGate, log)
		if err != nil {
			return nil, err
		}
		backends[chat.ProviderOpenAI][alias] = backend
	}
	for alias, spec := range catalog[chat.ProviderAWS] {
		backends[chat.ProviderAWS][alias] = bedrock.New(pool, spec.ID, log)
	}
	for alias, spec := range catalog[chat.ProviderAnthropic] {
		backends[chat.ProviderAnthropic][alias] = anthropic.New(anthropicClient, spec.ID, anthropicGate, log)
	}

	registry := NewRegistryWithBackends(backends, log)
	registry.applyOverrides(cfg.Overrides)
	return registry, nil
}

// NewRegistryWithBackends builds a registry around injected backends.
// Tests use it to substitute mocks for the vendor clients.
func NewRegistryWithBackends(backends map[chat.Provider]map[string]chat.Backend, log logger.Logger) *Registry {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &Registry{
		usage:     NewUsage(),
		logger:    log,
		requests:  make(map[string]*rate_limit.Limiter),
		tokens:    make(map[string]*rate_limit.Limiter),
		backends:  backends,
		overrides: make(map[string]rate_limit.RateLimit),
		retryUnit: time.Second,
	}
}

// applyOverrides replaces catalog rates for specific models before any
// limiter is constructed. Overrides apply to the model's whole limiter
// group.
func (r *Registry) applyOverrides(overrides []config.LimitOverride) {
	for _, o := range overrides {
		spec, err := Lookup(chat.Provider(o.Provider), o.Model)
		if err != nil {
			r.logger.Printf("ignoring rate override for unknown model %s/%s", o.Provider, o.Model)
			continue
		}

		limit := rate_limit.RateLimit{Requests: spec.Requests, Tokens: spec.Tokens}
		if prev, ok := r.overrides[spec.LimiterKey]; ok {
			limit = prev
		}
		if rate, ok := o.RequestRate(); ok {
			limit.Requests = rate
		}
		if rate, ok := o.TokenRate(); ok {
			limit.Tokens = rate
		}
		r.overrides[spec.LimiterKey] = limit
	}
}

// Resolve returns a ModelContext for the given provider and model alias.
// Contexts resolved for the same limiter group share bucket instances.
func (r *Registry) Resolve(provider chat.Provider, alias string) (*ModelContext, error) {
	spec, err := Lookup(provider, alias)
	if err != nil {
		return nil, err
	}

	backend, ok := r.backends[provider][alias]
	if !ok {
		return nil, &chat.ConfigurationError{
			Message: "no backend registered for " + string(provider) + "/" + alias,
		}
	}

	requests, tokens := r.limitersFor(spec)
	return &ModelContext{
		Provider: provider,
		Alias:    alias,
		ID:       spec.ID,
		backend:  backend,
		requests: requests,
		tokens:   tokens,
		registry: r,
	}, nil
}

// limitersFor returns the limiter pair for the model's group, creating
// them on first use.
func (r *Registry) limitersFor(spec Spec) (*rate_limit.Limiter, *rate_limit.Limiter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	requestRate, tokenRate := spec.Requests, spec.Tokens
	if limit, ok := r.overrides[spec.LimiterKey]; ok {
		requestRate, tokenRate = limit.Requests, limit.Tokens
	}

	requests, ok := r.requests[spec.LimiterKey]
	if !ok {
		requests = rate_limit.NewLimiter(requestRate.Amount, requestRate.Period)
		r.requests[spec.LimiterKey] = requests
	}
	tokens, ok := r.tokens[spec.LimiterKey]
	if !ok {
		tokens = rate_limit.NewLimiter(tokenRate.Amount, tokenRate.Period)
		r.tokens[spec.LimiterKey] = tokens
	}
	return requests, tokens
}

// UsageReport formats the accumulated usage for one model.
func (r *Registry) UsageReport(provider chat.Provider, alias string) (string, error) {
	return r.usage.Report(provider, alias)
}

// Usage exposes the ledger for direct inspection.
func (r *Registry) Usage() *Usage {
	return r.usage
}

// SetRetryUnitForTests rescales the retry backoff time base (used
// primarily for testing).
func (r *Registry) SetRetryUnitForTests(unit time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retryUnit = unit
}

// retryUnitValue returns the current backoff time base.
func (r *Registry) retryUnitValue() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retryUnit
}

var (
	defaultRegistry *Registry
	defaultErr      error
	defaultOnce     sync.Once
)

// Resolve returns a ModelContext from the default registry, which is
// built from the environment on first use.
func Resolve(provider chat.Provider, alias string) (*ModelContext, error) {
	if err := ensureDefault(); err != nil {
		return nil, err
	}
	return defaultRegistry.Resolve(provider, alias)
}

// UsageReport formats the default registry's accumulated usage for one
// model.
func UsageReport(provider chat.Provider, alias string) (string, error) {
	if err := ensureDefault(); err != nil {
		return "", err
	}
	return defaultRegistry.UsageReport(provider, alias)
}

func ensureDefault() error {
	defaultOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			defaultErr = err
			return
		}
		log, err := defaultLogger(cfg)
		if err != nil {
			defaultErr = err
			return
		}
		defaultRegistry, defaultErr = NewRegistry(cfg, log)
	})
	return defaultErr
}

// defaultLogger builds the default registry's logger: stdout, mirrored to
// the configured log file when one is set.
func defaultLogger(cfg *config.Config) (logger.Logger, error) {
	stdout := logger.NewStdoutLogger()
	if cfg.LogFile == "" {
		return stdout, nil
	}
	fileLog, err := logger.NewFileLogger(cfg.LogFile)
	if err != nil {
		return nil, &chat.ConfigurationError{
			Message: "failed to open log file " + cfg.LogFile + ": " + err.Error(),
		}
	}
	return logger.NewMultiLogger(stdout, fileLog), nil
}
