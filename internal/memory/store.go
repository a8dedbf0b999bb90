// Package memory provides the durable conversation log that recent turns
// are loaded from at the start of every run.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"
)

// Message is one persisted conversation turn.
type Message struct {
	Role      string    `json:"role"` // user or assistant
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is an append-only message log.
type Store interface {
	// LoadRecent returns the last n messages in chronological order.
	LoadRecent(ctx context.Context, n int) ([]Message, error)
	// Append adds one message to the end of the log.
	Append(ctx context.Context, msg Message) error
	Close() error
}

// Open returns the store named by backend, rooted in dir. The "none"
// backend returns a nil Store: nothing outlives the process.
func Open(backend, dir string, logger *slog.Logger) (Store, error) {
	switch backend {
	case "none":
		return nil, nil
	case "", "jsonl":
		return NewJSONLStore(filepath.Join(dir, "conversations.jsonl"), logger)
	case "sqlite":
		return NewSQLiteStore(filepath.Join(dir, "conversations.db"))
	default:
		return nil, fmt.Errorf("unknown memory backend %q", backend)
	}
}

// timestampLayouts are accepted when reading persisted timestamps. Older
// logs carry naive ISO-8601 strings without a zone, read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
