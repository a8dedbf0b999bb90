// Package approvals stores side-effecting tool calls that wait for the
// user's decision. A conversation has at most one pending action; a new
// one replaces the old.
package approvals

import (
	"context"
	"sync"
	"time"

	"github.com/heliohq/helio/internal/llm"
)

// Action is a tool call held until the user approves or denies it.
type Action struct {
	Token          string
	ConversationID string
	Call           llm.ToolCall
	CreatedAt      time.Time
}

// Store holds pending actions keyed by conversation. Implementations are
// safe for concurrent use.
type Store interface {
	// Put registers a, replacing any earlier action for the conversation.
	Put(ctx context.Context, a *Action) error
	// Take removes and returns the conversation's action, or nil.
	Take(ctx context.Context, conversationID string) (*Action, error)
	// Peek returns the conversation's action without removing it.
	Peek(ctx context.Context, conversationID string) (*Action, error)
}

// MemoryStore keeps actions for the life of the process.
type MemoryStore struct {
	mu      sync.Mutex
	actions map[string]*Action
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{actions: make(map[string]*Action)}
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, a *Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[a.ConversationID] = a
	return nil
}

// Take implements Store.
func (s *MemoryStore) Take(_ context.Context, conversationID string) (*Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.actions[conversationID]
	delete(s.actions, conversationID)
	return a, nil
}

// Peek implements Store.
func (s *MemoryStore) Peek(_ context.Context, conversationID string) (*Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.actions[conversationID], nil
}
