// Package migrate checks a record set for data-quality problems and copies
// records between store backends (for example from a JSON file to SQLite).
package migrate

import (
	"fmt"
	"time"
)

// MessageLevel represents the severity of a message
type MessageLevel int

const (
	LevelDebug MessageLevel = iota
	LevelInfo
	LevelWarning
	LevelError
)

func (l MessageLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	default:
		return "error"
	}
}

// MarshalText writes the level by name.
func (l MessageLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// Message is one line of migration output
type Message struct {
	Level   MessageLevel           `json:"level"`
	Text    string                 `json:"text"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Result encapsulates the outcome of a migration operation
type Result struct {
	Success  bool      `json:"success"`
	Code     int       `json:"code"`
	Messages []Message `json:"messages"`
	// Affected lists the ids of records the operation flagged or wrote
	Affected []string `json:"affected"`
	Stats    Stats    `json:"stats"`
}

// Stats provides migration statistics
type Stats struct {
	TotalRecords    int           `json:"total_records"`
	AffectedRecords int           `json:"affected_records"`
	FailedRecords   int           `json:"failed_records"`
	Duration        time.Duration `json:"duration"`
}

// Options configures migration behavior
type Options struct {
	DryRun  bool
	Verbose bool
}

// Result codes
const (
	CodeSuccess = iota
	CodeValidationError
	CodeExecutionError
	CodePartialFailure
)

func newResult(total int) *Result {
	return &Result{
		Success:  true,
		Code:     CodeSuccess,
		Messages: []Message{},
		Affected: []string{},
		Stats:    Stats{TotalRecords: total},
	}
}

func (r *Result) add(level MessageLevel, details map[string]interface{}, format string, args ...interface{}) {
	r.Messages = append(r.Messages, Message{Level: level, Text: fmt.Sprintf(format, args...), Details: details})
}

// Count returns the number of messages at level.
func (r *Result) Count(level MessageLevel) int {
	n := 0
	for _, m := range r.Messages {
		if m.Level == level {
			n++
		}
	}
	return n
}
