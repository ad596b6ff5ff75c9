// pattern: Imperative Shell

package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NopLogger returns a logger that discards all output.
// Use in tests or when logging is not configured.
func NopLogger() *ScopedLogger {
	return &ScopedLogger{}
}

// TestLogManager is a LoggerProvider that keeps every entry in memory,
// at debug level, for assertions.
type TestLogManager struct {
	sink    *MemorySink
	baseZap *zap.Logger
	loggers map[string]*ScopedLogger
	mu      sync.Mutex
}

// NewTestLogManager creates an in-memory log manager.
func NewTestLogManager() *TestLogManager {
	sink := &MemorySink{}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(jsonEncoderConfig()),
		zapcore.AddSync(sink),
		zapcore.DebugLevel,
	)
	return &TestLogManager{
		sink:    sink,
		baseZap: zap.New(core),
		loggers: make(map[string]*ScopedLogger),
	}
}

// For returns the logger for scope, creating it on first use.
func (m *TestLogManager) For(scope string) *ScopedLogger {
	m.mu.Lock()
	defer m.mu.Unlock()
	if logger, ok := m.loggers[scope]; ok {
		return logger
	}
	logger := newScopedLogger(m.baseZap.Named(scope), zapcore.DebugLevel, scope)
	m.loggers[scope] = logger
	return logger
}

// Drain returns the entries logged since the previous Drain.
func (m *TestLogManager) Drain() Entries {
	return m.sink.Take()
}

func (m *TestLogManager) Close() error {
	return m.sink.Close()
}
