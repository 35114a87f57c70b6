package logger

import (
	"log"
	"os"
)

// FileLogger appends timestamped lines to a log file. The file is opened
// with O_APPEND so concurrent writers, including separate processes
// sharing the file, never interleave within a line.
type FileLogger struct {
	logger *log.Logger
	file   *os.File
}

var _ Logger = (*FileLogger)(nil)

// NewFileLogger opens (or creates) the file at path for appending.
func NewFileLogger(path string) (*FileLogger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}

	return &FileLogger{
		logger: log.New(file, "", log.LstdFlags),
		file:   file,
	}, nil
}

func (l *FileLogger) Type() LoggerType {
	return LoggerTypeFile
}

func (l *FileLogger) Printf(format string, args ...any) {
	l.logger.Printf(format, args...)
}

func (l *FileLogger) Println(message string) {
	l.logger.Println(message)
}

// Close closes the underlying file. The logger is unusable afterwards.
func (l *FileLogger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
