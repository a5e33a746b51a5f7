package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS sessions (
	user_id    TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStore is a file-backed store for single-node deployments. Every
// write is a single statement, so a record is never partially written.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// OpenSQLite opens (or creates) the session database at path.
func OpenSQLite(path string, ttl time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("session database ping failed: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sessions table: %w", err)
	}
	return &SQLiteStore{db: db, ttl: ttl, now: time.Now}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get loads the session for userID. Expired rows count as missing.
func (s *SQLiteStore) Get(ctx context.Context, userID string) (*Session, error) {
	var (
		data      string
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT data, updated_at FROM sessions WHERE user_id = ?", userID,
	).Scan(&data, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	if s.ttl > 0 && s.now().Sub(time.UnixMilli(updatedAt)) > s.ttl {
		if err := s.Delete(ctx, userID); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}

	sess, err := decode([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("decode session %s: %w", userID, err)
	}
	return sess, nil
}

// Create stores a fresh session, replacing any existing one.
func (s *SQLiteStore) Create(ctx context.Context, userID string) (*Session, error) {
	sess := New(userID, s.now())
	data, err := encode(sess)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (user_id, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		userID, string(data), sess.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// Update overwrites an existing row. A missing row is left missing.
func (s *SQLiteStore) Update(ctx context.Context, userID string, sess *Session) error {
	sess.UpdatedAt = s.now()
	data, err := encode(sess)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"UPDATE sessions SET data = ?, updated_at = ? WHERE user_id = ?",
		string(data), sess.UpdatedAt.UnixMilli(), userID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// Delete removes the row if present.
func (s *SQLiteStore) Delete(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
