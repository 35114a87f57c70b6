// Package config loads provider credentials and optional limit overrides
// at process startup. Credentials are read once from the environment;
// missing credentials are a fatal configuration error at startup, not
// per-call.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jgaeb/no-news/chat"
	"github.com/jgaeb/no-news/rate_limit"
)

// EnvFile is the well-known override file consulted when NO_NEWS_CONFIG is
// not set. Absence of the file is not an error.
const EnvFile = "no-news.yaml"

// Config holds everything the model registry needs at construction time.
type Config struct {
	OpenAIKey          string
	OpenAIOrg          string
	AnthropicKey       string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	// AWSRegion is the Bedrock region, us-east-1 unless overridden.
	AWSRegion string

	// LogFile mirrors the default registry's log to a file when set.
	LogFile string

	// PoolSize is the Bedrock client pool size; ConnectionLimit bounds
	// in-flight calls for the cheap-handle providers.
	PoolSize        int
	ConnectionLimit int

	// Overrides replace catalog rate limits for specific models.
	Overrides []LimitOverride
}

// LimitOverride adjusts the request and/or token rate of one model. Zero
// fields leave the corresponding catalog value untouched.
type LimitOverride struct {
	Provider             string `yaml:"provider"`
	Model                string `yaml:"model"`
	Requests             int    `yaml:"requests"`
	RequestPeriodSeconds int    `yaml:"request_period_seconds"`
	Tokens               int    `yaml:"tokens"`
	TokenPeriodSeconds   int    `yaml:"token_period_seconds"`
}

// RequestRate returns the override's request rate, or ok=false if unset.
func (o LimitOverride) RequestRate() (rate_limit.Rate, bool) {
	if o.Requests <= 0 {
		return rate_limit.Rate{}, false
	}
	period := time.Duration(o.RequestPeriodSeconds) * time.Second
	if period <= 0 {
		period = time.Minute
	}
	return rate_limit.Rate{Amount: o.Requests, Period: period}, true
}

// TokenRate returns the override's token rate, or ok=false if unset.
func (o LimitOverride) TokenRate() (rate_limit.Rate, bool) {
	if o.Tokens <= 0 {
		return rate_limit.Rate{}, false
	}
	period := time.Duration(o.TokenPeriodSeconds) * time.Second
	if period <= 0 {
		period = time.Minute
	}
	return rate_limit.Rate{Amount: o.Tokens, Period: period}, true
}

// fileConfig is the YAML shape of the optional override file.
type fileConfig struct {
	AWSRegion       string          `yaml:"aws_region"`
	LogFile         string          `yaml:"log_file"`
	PoolMaxsize     int             `yaml:"pool_maxsize"`
	ConnectionLimit int             `yaml:"connection_limit"`
	RateLimits      []LimitOverride `yaml:"rate_limits"`
}

// Load reads credentials from the process environment (after a best-effort
// .env load) and merges the optional YAML override file. It fails with a
// ConfigurationError naming every missing credential variable.
func Load() (*Config, error) {
	// A missing .env file is fine; explicit environment wins anyway.
	_ = godotenv.Load()

	cfg := &Config{
		OpenAIKey:          os.Getenv("OPENAI_API_KEY"),
		OpenAIOrg:          os.Getenv("OPENAI_API_ORG"),
		AnthropicKey:       os.Getenv("ANTHROPIC_API_KEY"),
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		AWSRegion:          os.Getenv("AWS_REGION"),
		LogFile:            os.Getenv("NO_NEWS_LOG_FILE"),
		PoolSize:           rate_limit.DefaultConnectionLimit,
		ConnectionLimit:    rate_limit.DefaultConnectionLimit,
	}
	if cfg.AWSRegion == "" {
		cfg.AWSRegion = "us-east-1"
	}

	missing := []string{}
	for name, value := range map[string]string{
		"OPENAI_API_KEY":        cfg.OpenAIKey,
		"OPENAI_API_ORG":        cfg.OpenAIOrg,
		"ANTHROPIC_API_KEY":     cfg.AnthropicKey,
		"AWS_ACCESS_KEY_ID":     cfg.AWSAccessKeyID,
		"AWS_SECRET_ACCESS_KEY": cfg.AWSSecretAccessKey,
	} {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		// Sort for a stable message; the map above iterates randomly.
		sort.Strings(missing)
		return nil, &chat.ConfigurationError{
			Message: fmt.Sprintf("missing environment variables: %s", strings.Join(missing, ", ")),
		}
	}

	path := os.Getenv("NO_NEWS_CONFIG")
	if path == "" {
		path = EnvFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// LoadFile parses a YAML override file into an otherwise-default Config.
// Used by tests and tooling that bypass environment credentials.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{
		AWSRegion:       "us-east-1",
		PoolSize:        rate_limit.DefaultConnectionLimit,
		ConnectionLimit: rate_limit.DefaultConnectionLimit,
	}
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile applies the YAML override file on top of cfg.
func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return &chat.ConfigurationError{
			Message: fmt.Sprintf("failed to read config file %s: %v", path, err),
		}
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return &chat.ConfigurationError{
			Message: fmt.Sprintf("failed to parse config file %s: %v", path, err),
		}
	}

	if fc.AWSRegion != "" {
		c.AWSRegion = fc.AWSRegion
	}
	if fc.LogFile != "" {
		c.LogFile = fc.LogFile
	}
	if fc.PoolMaxsize > 0 {
		c.PoolSize = fc.PoolMaxsize
	}
	if fc.ConnectionLimit > 0 {
		c.ConnectionLimit = fc.ConnectionLimit
	}
	c.Overrides = append(c.Overrides, fc.RateLimits...)
	return nil
}
