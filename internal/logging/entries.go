// pattern: Functional Core

package logging

import (
	"encoding/json"
	"strings"
	"time"
)

// Entry is one decoded log line.
type Entry struct {
	Time    time.Time
	Level   string // DEBUG, INFO, WARN or ERROR
	Scope   string // Logger scope, e.g. "worktree" or "git"
	Message string
	Fields  map[string]any
}

// Entries is a sequence of decoded log lines in write order.
type Entries []Entry

// Scoped returns the entries logged under scope.
func (es Entries) Scoped(scope string) Entries {
	var out Entries
	for _, e := range es {
		if e.Scope == scope {
			out = append(out, e)
		}
	}
	return out
}

// Find returns the first entry with the given scope and message.
func (es Entries) Find(scope, msg string) (Entry, bool) {
	for _, e := range es {
		if e.Scope == scope && e.Message == msg {
			return e, true
		}
	}
	return Entry{}, false
}

// decodeEntry parses one line written by the JSON encoder.
func decodeEntry(line []byte) (Entry, error) {
	var raw map[string]any
	if err := json.Unmarshal(line, &raw); err != nil {
		return Entry{}, err
	}

	e := Entry{Level: "INFO", Fields: map[string]any{}}
	if msg, ok := raw["msg"].(string); ok {
		e.Message = msg
	}
	if level, ok := raw["level"].(string); ok {
		e.Level = strings.ToUpper(level)
	}
	if scope, ok := raw["logger"].(string); ok {
		e.Scope = scope
	}
	if ts, ok := raw["ts"].(float64); ok {
		sec := int64(ts)
		e.Time = time.Unix(sec, int64((ts-float64(sec))*1e9))
	}

	for k, v := range raw {
		switch k {
		case "msg", "level", "logger", "ts", "caller", "stacktrace":
		default:
			e.Fields[k] = v
		}
	}
	return e, nil
}
