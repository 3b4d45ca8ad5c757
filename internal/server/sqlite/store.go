// Package sqlite provides SQLite-backed persistence for the PromptNote server.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/promptnote/promptnote/internal/auth"
	"github.com/promptnote/promptnote/internal/id"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Default account seeded on first start. Historical behavior: the server
// always has this user so unauthenticated requests have somewhere to land.
const (
	DefaultUserID    = "user_default"
	DefaultUserEmail = "usuario_teste@exemplo.com"
	DefaultUserName  = "Usuário Teste"

	defaultUserPassword = "senha123"
)

// Store provides SQLite-backed persistence for the PromptNote server.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates a new SQLite store at the given path.
// It configures WAL mode, sets pragmas, runs schema migrations, and seeds
// the default user.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Store{
		db:     db,
		logger: logger,
	}

	if err := s.seedDefaultUser(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed default user: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// seedDefaultUser inserts the default account if it does not exist yet.
func (s *Store) seedDefaultUser(ctx context.Context) error {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE id = ?`, DefaultUserID).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(defaultUserPassword)
	if err != nil {
		return err
	}

	now := formatTime(time.Now())
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		DefaultUserID, DefaultUserEmail, DefaultUserName, hash, now, now,
	)
	return err
}

// PurgeExpired removes refresh tokens and password reset tokens that have
// passed their expiry. Run periodically by the server.
func (s *Store) PurgeExpired(ctx context.Context, now time.Time) error {
	cutoff := formatTime(now)

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < ?`, cutoff)
	if err != nil {
		return fmt.Errorf("purge refresh tokens: %w", err)
	}
	refreshPurged, _ := res.RowsAffected()

	res, err = s.db.ExecContext(ctx,
		`DELETE FROM password_reset_tokens WHERE expires_at < ?`, cutoff)
	if err != nil {
		return fmt.Errorf("purge reset tokens: %w", err)
	}
	resetPurged, _ := res.RowsAffected()

	if refreshPurged > 0 || resetPurged > 0 {
		s.logger.Info("purged expired tokens",
			"refresh", refreshPurged,
			"reset", resetPurged,
		)
	}
	return nil
}

// newID generates a prefixed id for a new row.
func newID(prefix string) string {
	return id.MustGenerate(prefix)
}

// formatTime formats a time.Time to RFC3339Nano for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a RFC3339Nano string back to time.Time.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// parseNullableTime parses an optional time string.
func parseNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// nullString returns a sql.NullString from a string, treating "" as NULL.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
