// ABOUTME: SQLite implementation of the turn transcript using modernc.org/sqlite.
// ABOUTME: Schema is created automatically; writes never block a turn's outcome.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore records turn transcripts in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the transcript database at path.
// Parent directories are created if needed.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL keeps transcript writes from stalling concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("transcript store initialized", "path", path)
	return s, nil
}

// createSchema creates the transcript table if it doesn't exist.
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS turns (
			id TEXT PRIMARY KEY,
			frontend TEXT NOT NULL,
			chat_id TEXT NOT NULL,
			sender_id TEXT NOT NULL,
			query TEXT NOT NULL,
			reply TEXT NOT NULL DEFAULT '',
			has_reply INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_turns_chat_created
			ON turns(chat_id, created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// RecordTurn inserts one completed turn into the transcript.
func (s *SQLiteStore) RecordTurn(ctx context.Context, t *Turn) error {
	hasReply := 0
	if t.HasReply {
		hasReply = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (id, frontend, chat_id, sender_id, query, reply, has_reply, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Frontend, t.ChatID, t.SenderID, t.Query, t.Reply, hasReply, t.Error,
		t.Duration.Milliseconds(), t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting turn: %w", err)
	}
	return nil
}

// RecentTurns returns the most recent turns for a chat, newest first.
func (s *SQLiteStore) RecentTurns(ctx context.Context, chatID string, limit int) ([]*Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, frontend, chat_id, sender_id, query, reply, has_reply, error, duration_ms, created_at
		FROM turns WHERE chat_id = ?
		ORDER BY created_at DESC LIMIT ?`,
		chatID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	var turns []*Turn
	for rows.Next() {
		var (
			t          Turn
			hasReply   int
			durationMS int64
		)
		if err := rows.Scan(&t.ID, &t.Frontend, &t.ChatID, &t.SenderID, &t.Query, &t.Reply,
			&hasReply, &t.Error, &durationMS, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		t.HasReply = hasReply != 0
		t.Duration = time.Duration(durationMS) * time.Millisecond
		turns = append(turns, &t)
	}
	return turns, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
