package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/twinlink-server/internal/store"
)

// Schema creates the directory tables when they are missing.
const Schema = `
CREATE TABLE IF NOT EXISTS user_connections (
	user_id           TEXT NOT NULL,
	connected_user_id TEXT NOT NULL,
	status            TEXT NOT NULL DEFAULT 'pending',
	created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (user_id, connected_user_id)
);

CREATE TABLE IF NOT EXISTS conversation_participants (
	conversation_id TEXT NOT NULL,
	user_id         TEXT NOT NULL,
	joined_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (conversation_id, user_id)
);
`

// SQLiteStore implements store.Directory for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ store.Directory = (*SQLiteStore)(nil)

// New opens the database at dbPath and applies Schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, ApplySchema)
}

// NewWithSetup opens a SQLite store and runs a setup function.
// Useful for tests to seed an in-memory database.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; :memory: requires it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// ApplySchema creates the directory tables.
func ApplySchema(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== RelationshipStore implementation ====

// AreConnected checks for an accepted relationship in either direction.
func (s *SQLiteStore) AreConnected(ctx context.Context, userID, otherID string) (bool, error) {
	query := `
		SELECT 1 FROM user_connections
		WHERE ((user_id = ? AND connected_user_id = ?) OR (user_id = ? AND connected_user_id = ?))
		AND status = 'accepted'
		LIMIT 1
	`
	var exists int
	err := s.db.QueryRowContext(ctx, query, userID, otherID, otherID, userID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query connection: %w", err)
	}
	return true, nil
}

// SetConnection upserts the relationship from userID to otherID.
func (s *SQLiteStore) SetConnection(ctx context.Context, userID, otherID string, status store.ConnectionStatus) error {
	query := `
		INSERT INTO user_connections (user_id, connected_user_id, status)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, connected_user_id)
		DO UPDATE SET status = excluded.status, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, query, userID, otherID, string(status)); err != nil {
		return fmt.Errorf("upsert connection: %w", err)
	}
	return nil
}

// ==== ConversationStore implementation ====

// IsParticipant checks if the user is part of the conversation.
func (s *SQLiteStore) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	query := `
		SELECT 1 FROM conversation_participants
		WHERE conversation_id = ? AND user_id = ?
	`
	var exists int
	err := s.db.QueryRowContext(ctx, query, conversationID, userID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query participant: %w", err)
	}
	return true, nil
}

// AddParticipant adds a user to a conversation.
func (s *SQLiteStore) AddParticipant(ctx context.Context, conversationID, userID string) error {
	query := `
		INSERT OR IGNORE INTO conversation_participants (conversation_id, user_id)
		VALUES (?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, conversationID, userID); err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}
