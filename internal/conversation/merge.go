// Package conversation assembles the turn context a run starts from:
// recent durable turns, then the caller's in-memory history, then the new
// user message.
package conversation

import (
	"context"
	"log/slog"
	"time"

	"github.com/heliohq/helio/internal/memory"
)

// Merge concatenates durable, inMemory and user in that order. Nothing is
// reordered, deduplicated or dropped.
func Merge(durable, inMemory []memory.Message, user memory.Message) []memory.Message {
	out := make([]memory.Message, 0, len(durable)+len(inMemory)+1)
	out = append(out, durable...)
	out = append(out, inMemory...)
	return append(out, user)
}

// RecentLoader is the part of the memory store the merger reads.
type RecentLoader interface {
	LoadRecent(ctx context.Context, n int) ([]memory.Message, error)
}

// Merger builds turn contexts from a durable store.
type Merger struct {
	Store       RecentLoader
	RecentTurns int
	Logger      *slog.Logger
}

// Build loads the most recent RecentTurns durable messages and merges
// them with inMemory and a new user message stamped now. A failed load
// is logged and treated as an empty history.
func (m *Merger) Build(ctx context.Context, inMemory []memory.Message, userText string, now time.Time) []memory.Message {
	user := memory.Message{Role: "user", Content: userText, Timestamp: now}

	var durable []memory.Message
	if m.Store != nil && m.RecentTurns > 0 {
		var err error
		durable, err = m.Store.LoadRecent(ctx, m.RecentTurns)
		if err != nil {
			logger := m.Logger
			if logger == nil {
				logger = slog.Default()
			}
			logger.Warn("failed to load recent turns, continuing without history", "error", err)
			durable = nil
		}
	}
	return Merge(durable, inMemory, user)
}
