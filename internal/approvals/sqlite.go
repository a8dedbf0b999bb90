package approvals

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/heliohq/helio/internal/llm"
)

const timeLayout = "2006-01-02T15:04:05.000000Z"

// SQLiteStore keeps pending actions on disk so a decision can arrive
// from a later process.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the pending-action database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create approvals dir: %w", err)
		}
		dsn += "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open approvals database: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS pending_actions (
		conversation_id TEXT PRIMARY KEY,
		token           TEXT NOT NULL,
		call_id         TEXT NOT NULL,
		tool            TEXT NOT NULL,
		arguments       TEXT NOT NULL,
		created_at      TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate approvals schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Put implements Store.
func (s *SQLiteStore) Put(ctx context.Context, a *Action) error {
	args, err := json.Marshal(a.Call.Function.Arguments)
	if err != nil {
		return fmt.Errorf("marshal arguments: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO pending_actions (conversation_id, token, call_id, tool, arguments, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ConversationID, a.Token, a.Call.ID, a.Call.Function.Name, string(args),
		a.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("store pending action: %w", err)
	}
	return nil
}

// Take implements Store.
func (s *SQLiteStore) Take(ctx context.Context, conversationID string) (*Action, error) {
	row := s.db.QueryRowContext(ctx,
		`DELETE FROM pending_actions WHERE conversation_id = ?
		 RETURNING conversation_id, token, call_id, tool, arguments, created_at`,
		conversationID)
	return scanAction(row)
}

// Peek implements Store.
func (s *SQLiteStore) Peek(ctx context.Context, conversationID string) (*Action, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT conversation_id, token, call_id, tool, arguments, created_at
		 FROM pending_actions WHERE conversation_id = ?`,
		conversationID)
	return scanAction(row)
}

func scanAction(row *sql.Row) (*Action, error) {
	var (
		a                Action
		args, created    string
		callID, toolName string
	)
	err := row.Scan(&a.ConversationID, &a.Token, &callID, &toolName, &args, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pending action: %w", err)
	}

	a.Call = llm.ToolCall{ID: callID, Function: llm.FunctionCall{Name: toolName}}
	if err := json.Unmarshal([]byte(args), &a.Call.Function.Arguments); err != nil {
		return nil, fmt.Errorf("decode arguments of %s: %w", toolName, err)
	}
	a.CreatedAt, _ = time.Parse(timeLayout, created)
	return &a, nil
}
