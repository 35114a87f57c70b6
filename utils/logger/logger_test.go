package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStdoutLogger(t *testing.T) {
	// Capture stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	logger := NewStdoutLogger()
	logger.Println("test message")
	logger.Printf("formatted %s", "message")

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	buf.ReadFrom(r)
	output := buf.String()

	if !strings.Contains(output, "test message") {
		t.Errorf("Expected 'test message' in output, got: %s", output)
	}
	if !strings.Contains(output, "formatted message") {
		t.Errorf("Expected 'formatted message' in output, got: %s", output)
	}
}

func TestFileLogger(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "test_logger.log")

	logger, err := NewFileLogger(tmpFile)
	if err != nil {
		t.Fatalf("Failed to create file logger: %v", err)
	}

	logger.Println("test message")
	logger.Printf("formatted %s", "message")

	// Close to flush
	logger.Close()

	// Read file contents
	content, err := os.ReadFile(tmpFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	output := string(content)
	if !strings.Contains(output, "test message") {
		t.Errorf("Expected 'test message' in file, got: %s", output)
	}
	if !strings.Contains(output, "formatted message") {
		t.Errorf("Expected 'formatted message' in file, got: %s", output)
	}
}

func TestNoopLogger(t *testing.T) {
	logger := NewNoopLogger()
	// Should not panic
	logger.Println("test")
	logger.Printf("test %s", "message")
	if err := logger.Close(); err != nil {
		t.Errorf("Close should not error, got: %v", err)
	}
}

func TestMultiLogger(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "test_multi_logger.log")

	fileLogger, err := NewFileLogger(tmpFile)
	if err != nil {
		t.Fatalf("Failed to create file logger: %v", err)
	}

	multi := NewMultiLogger(NewNoopLogger(), fileLogger)
	multi.Println("multi message")
	multi.Close()

	content, err := os.ReadFile(tmpFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "multi message") {
		t.Errorf("Expected 'multi message' in file, got: %s", content)
	}
}
