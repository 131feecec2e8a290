package firelog

import (
	"errors"
	"time"
)

var ErrClosed = errors.New("firing log closed")

// Status of one dispatch attempt.
type Status string

const (
	StatusSent  Status = "sent"
	StatusError Status = "error"
)

// Entry records one dispatch attempt, successful or not. Exactly one entry
// is appended per attempt.
type Entry struct {
	ID    string    `json:"id"`
	Event string    `json:"event"`
	At    time.Time `json:"at"`

	Status Status `json:"status"`
	Tool   string `json:"tool"`
	Detail string `json:"detail,omitempty"`

	// Delivery metadata, set by tools that have it.
	MessageID  string `json:"message_id,omitempty"`
	Recipients int    `json:"recipients,omitempty"`

	// Manual marks fire-once dispatches as opposed to scheduled ones.
	Manual bool `json:"manual,omitempty"`
}

// Config configures the firing log.
//
// Driver values:
//   - "file": append-only JSON Lines file
//   - "sqlite": SQLite database file
//
// Empty or "none" keeps the log in memory only.
type Config struct {
	Driver      string
	Path        string
	HistorySize int           // in-memory ring size; 0 means default
	BusyTimeout time.Duration // sqlite only; 0 means default
}

const defaultHistorySize = 256
