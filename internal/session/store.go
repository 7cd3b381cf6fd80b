// Package session persists the API token and cached user profile in a
// local SQLite database, so a login survives a process restart. Sessions
// live until explicit logout; an expired token is only discovered when
// the API rejects it.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"tally/internal/core"
)

// ErrNotFound is returned when no session exists for the given id.
var ErrNotFound = errors.New("session not found")

// Session is one stored login: the cookie value (ID), the API token, and
// the cached user for display.
type Session struct {
	ID        string
	Token     string
	User      core.User
	CreatedAt time.Time
}

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the session database and runs migrations.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create session db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping session database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Create stores a new session for the given token and user and returns it.
func (s *Store) Create(ctx context.Context, token string, user core.User) (Session, error) {
	sess := Session{
		ID:        uuid.NewString(),
		Token:     token,
		User:      user,
		CreatedAt: time.Now().UTC(),
	}

	const q = `INSERT INTO sessions (id, token, user_id, username, email, created_at)
	           VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q,
		sess.ID, sess.Token, user.ID, user.Username, user.Email, sess.CreatedAt); err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}

	slog.InfoContext(ctx, "Session created", "session_id", sess.ID, "username", user.Username)
	return sess, nil
}

// Get loads the session for the given id, restoring the cached user
// without re-validating the token against the API.
func (s *Store) Get(ctx context.Context, id string) (Session, error) {
	const q = `SELECT id, token, user_id, username, email, created_at
	           FROM sessions WHERE id = ?`

	var sess Session
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&sess.ID, &sess.Token, &sess.User.ID, &sess.User.Username, &sess.User.Email, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

// Delete removes the session. Deleting an unknown id is not an error, so
// logout is always safe to repeat.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
