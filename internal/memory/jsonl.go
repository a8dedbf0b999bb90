package memory

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// maxLineBytes bounds a single JSONL record.
const maxLineBytes = 16 * 1024 * 1024

// record is the on-disk line format. Unknown fields are ignored.
type record struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// JSONLStore keeps messages in a JSON Lines file, one object per line.
type JSONLStore struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
}

// NewJSONLStore opens (creating the directory if needed) a JSONL store.
func NewJSONLStore(path string, logger *slog.Logger) (*JSONLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create memory dir: %w", err)
	}
	return &JSONLStore{path: path, logger: logger.With("component", "memory")}, nil
}

// Append writes msg as a new line. Existing lines are never rewritten.
func (s *JSONLStore) Append(_ context.Context, msg Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	line, err := json.Marshal(record{
		Role:      msg.Role,
		Content:   msg.Content,
		Timestamp: msg.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open memory log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append memory log: %w", err)
	}
	return nil
}

// LoadRecent returns the last n well-formed messages. Malformed lines are
// skipped with a warning. A missing file is an empty log.
func (s *JSONLStore) LoadRecent(ctx context.Context, n int) ([]Message, error) {
	if n <= 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open memory log: %w", err)
	}
	defer f.Close()

	// Ring of the last n messages.
	ring := make([]Message, 0, n)
	start := 0
	lineNo := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil || rec.Role == "" {
			s.logger.Warn("skipping malformed memory record", "path", s.path, "line", lineNo, "error", err)
			continue
		}
		msg := Message{Role: rec.Role, Content: rec.Content, Timestamp: parseTimestamp(rec.Timestamp)}
		if len(ring) < n {
			ring = append(ring, msg)
			continue
		}
		ring[start] = msg
		start = (start + 1) % n
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read memory log: %w", err)
	}

	return append(ring[start:], ring[:start]...), nil
}

// Close implements Store.
func (s *JSONLStore) Close() error { return nil }
