package logger

import (
	"github.com/baditaflorin/go_code_similarity/internal/ports"
)

// NopLogger discards everything. Used in tests and in quiet CLI runs.
type NopLogger struct{}

// NewNopLogger creates a logger that drops all messages.
func NewNopLogger() ports.Logger {
	return &NopLogger{}
}

func (*NopLogger) Debug(string, ...interface{}) {}
func (*NopLogger) Info(string, ...interface{})  {}
func (*NopLogger) Warn(string, ...interface{})  {}
func (*NopLogger) Error(string, ...interface{}) {}
func (*NopLogger) Close() error                 { return nil }
