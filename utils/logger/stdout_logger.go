package logger

import "fmt"

// StdoutLogger writes logs to standard output.
type StdoutLogger struct{}

var _ Logger = (*StdoutLogger)(nil)

// NewStdoutLogger creates a logger that prints to stdout
func NewStdoutLogger() *StdoutLogger {
	return &StdoutLogger{}
}

func (s *StdoutLogger) Type() LoggerType {
	return LoggerTypeStdout
}

func (s *StdoutLogger) Printf(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}

func (s *StdoutLogger) Println(message string) {
	fmt.Println(message)
}

func (s *StdoutLogger) Close() error {
	return nil
}

// NoopLogger discards all messages. Used as the default so components can
// log unconditionally without forcing output on callers.
type NoopLogger struct{}

var _ Logger = (*NoopLogger)(nil)

// NewNoopLogger creates a logger that discards everything
func NewNoopLogger() *NoopLogger {
	return &NoopLogger{}
}

func (n *NoopLogger) Type() LoggerType {
	return LoggerTypeNoop
}

func (n *NoopLogger) Printf(format string, args ...any) {}

func (n *NoopLogger) Println(message string) {}

func (n *NoopLogger) Close() error {
	return nil
}
