package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/wirerelay/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS blocked_subjects (
	subject    TEXT PRIMARY KEY,
	blocked_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteStore implements store.BlockStore for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ store.BlockStore = (*SQLiteStore)(nil)

// New opens (or creates) the database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps ":memory:"
	// databases alive across queries.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// IsBlocked reports whether subject is on the block list.
func (s *SQLiteStore) IsBlocked(ctx context.Context, subject string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM blocked_subjects WHERE subject = ?`, subject).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query block: %w", err)
	}
	return true, nil
}

// SetBlocked adds subject to or removes it from the block list.
func (s *SQLiteStore) SetBlocked(ctx context.Context, subject string, blocked bool) error {
	var err error
	if blocked {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO blocked_subjects (subject, blocked_at)
			VALUES (?, ?)
			ON CONFLICT(subject) DO NOTHING
		`, subject, time.Now().UTC())
	} else {
		_, err = s.db.ExecContext(ctx, `DELETE FROM blocked_subjects WHERE subject = ?`, subject)
	}
	if err != nil {
		return fmt.Errorf("set block %q: %w", subject, err)
	}
	return nil
}

// ListBlocked returns every blocked subject, oldest first.
func (s *SQLiteStore) ListBlocked(ctx context.Context) ([]store.Block, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT subject, blocked_at
		FROM blocked_subjects
		ORDER BY blocked_at ASC, subject ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	defer rows.Close()

	var blocks []store.Block
	for rows.Next() {
		var b store.Block
		if err := rows.Scan(&b.Subject, &b.BlockedAt); err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocks: %w", err)
	}
	return blocks, nil
}
