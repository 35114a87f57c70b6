package chat

import (
	"errors"
	"fmt"
)

// ConfigurationError reports an unknown provider or alias, or missing
// credentials. Fatal at construction or startup; never retried.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// TransientError wraps a vendor-reported rate-limit or server error.
// The invoker retries these with jittered exponential backoff.
type TransientError struct {
	Provider Provider
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient %s error: %v", e.Provider, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// ExhaustedRetriesError is returned once the attempt cap is reached.
// Fatal to the single invocation that exhausted its attempts.
type ExhaustedRetriesError struct {
	Model    string
	Attempts int
	Err      error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("failed to connect to %s after %d attempts: %v", e.Model, e.Attempts, e.Err)
}

func (e *ExhaustedRetriesError) Unwrap() error {
	return e.Err
}

// ProtocolError reports a provider response missing expected fields.
// Missing usage counters are only logged; a ProtocolError is returned when
// no textual content can be extracted at all.
type ProtocolError struct {
	Model   string
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("malformed response from %s: %s", e.Model, e.Message)
}

// UnclassifiedError wraps any network-layer failure the adapter does not
// recognize as transient. Never retried.
type UnclassifiedError struct {
	Model string
	Err   error
}

func (e *UnclassifiedError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.Model, e.Err)
}

func (e *UnclassifiedError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
