// Package logger adapts github.com/baditaflorin/l to the engine's
// logging port.
package logger

import (
	"os"

	"github.com/baditaflorin/go_code_similarity/internal/ports"
	"github.com/baditaflorin/l"
)

// StdLogger wraps an l.Logger behind the ports.Logger interface.
type StdLogger struct {
	inner l.Logger
}

// NewStdLogger creates a logger writing human-readable lines to stderr,
// keeping stdout free for comparison reports.
func NewStdLogger() (ports.Logger, error) {
	inner, err := l.NewStandardFactory().CreateLogger(l.Config{
		Output:      os.Stderr,
		JsonFormat:  false,
		AsyncWrite:  true,
		BufferSize:  256 * 1024,
		MaxFileSize: 10 * 1024 * 1024,
		MaxBackups:  5,
		AddSource:   false,
		Metrics:     false,
	})
	if err != nil {
		return nil, err
	}
	return &StdLogger{inner: inner}, nil
}

// FromExisting wraps an already configured l.Logger.
func FromExisting(inner l.Logger) ports.Logger {
	return &StdLogger{inner: inner}
}

func (s *StdLogger) Debug(msg string, keysAndValues ...interface{}) {
	s.inner.Debug(msg, keysAndValues...)
}

func (s *StdLogger) Info(msg string, keysAndValues ...interface{}) {
	s.inner.Info(msg, keysAndValues...)
}

func (s *StdLogger) Warn(msg string, keysAndValues ...interface{}) {
	s.inner.Warn(msg, keysAndValues...)
}

func (s *StdLogger) Error(msg string, keysAndValues ...interface{}) {
	s.inner.Error(msg, keysAndValues...)
}

func (s *StdLogger) Close() error {
	return s.inner.Close()
}
