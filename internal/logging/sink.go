// pattern: Imperative Shell

package logging

import (
	"bytes"
	"errors"
	"sync"
)

var errSinkClosed = errors.New("write to closed memory sink")

// MemorySink is a zapcore.WriteSyncer that keeps every decoded log line
// in memory. Lines that are not valid JSON are skipped.
type MemorySink struct {
	mu      sync.Mutex
	entries Entries
	closed  bool
}

func (s *MemorySink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errSinkClosed
	}
	for _, line := range bytes.Split(p, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if e, err := decodeEntry(line); err == nil {
			s.entries = append(s.entries, e)
		}
	}
	return len(p), nil
}

func (s *MemorySink) Sync() error {
	return nil
}

// Close makes later writes fail. Safe to call more than once.
func (s *MemorySink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Take returns the entries written since the last Take and forgets them.
func (s *MemorySink) Take() Entries {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.entries
	s.entries = nil
	return out
}
