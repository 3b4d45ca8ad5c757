package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/promptnote/promptnote/internal/errors"
)

// RefreshRecord is a stored refresh token. Only the hash is persisted.
type RefreshRecord struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SaveRefreshToken stores a refresh token hash for a user.
func (s *Store) SaveRefreshToken(ctx context.Context, rec *RefreshRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.ID,
		rec.UserID,
		rec.TokenHash,
		formatTime(rec.ExpiresAt),
		formatTime(rec.CreatedAt),
	)
	return err
}

// GetRefreshToken looks up a refresh token record by hash.
// Expired records are treated as absent.
func (s *Store) GetRefreshToken(ctx context.Context, tokenHash string, now time.Time) (*RefreshRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM refresh_tokens WHERE token_hash = ?`,
		tokenHash)

	var rec RefreshRecord
	var expiresAt, createdAt string
	err := row.Scan(&rec.ID, &rec.UserID, &rec.TokenHash, &expiresAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, errors.Unauthorized("refresh token inválido")
	}
	if err != nil {
		return nil, err
	}

	rec.ExpiresAt, err = parseTime(expiresAt)
	if err != nil {
		return nil, err
	}
	rec.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}

	if now.After(rec.ExpiresAt) {
		// Clean up eagerly so the purge task has less to do.
		_, _ = s.db.ExecContext(ctx,
			`DELETE FROM refresh_tokens WHERE id = ?`, rec.ID)
		return nil, errors.ErrTokenExpired
	}

	return &rec, nil
}

// DeleteRefreshToken removes a single refresh token by hash.
func (s *Store) DeleteRefreshToken(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE token_hash = ?`, tokenHash)
	return err
}

// DeleteUserRefreshTokens revokes all refresh tokens for a user.
func (s *Store) DeleteUserRefreshTokens(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE user_id = ?`, userID)
	return err
}

// CreatePasswordReset stores a single-use password reset token.
func (s *Store) CreatePasswordReset(ctx context.Context, token, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_reset_tokens (token, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)`,
		token, userID, formatTime(expiresAt), formatTime(time.Now()),
	)
	return err
}

// ConsumePasswordReset validates and deletes a reset token, returning the
// user it belongs to. A token can only be consumed once.
func (s *Store) ConsumePasswordReset(ctx context.Context, token string, now time.Time) (string, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM password_reset_tokens WHERE token = ?`, token)

	var userID, expiresAt string
	err := row.Scan(&userID, &expiresAt)
	if err == sql.ErrNoRows {
		return "", errors.Unauthorized("token de redefinição inválido")
	}
	if err != nil {
		return "", err
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM password_reset_tokens WHERE token = ?`, token); err != nil {
		return "", err
	}

	expiry, err := parseTime(expiresAt)
	if err != nil {
		return "", err
	}
	if now.After(expiry) {
		return "", errors.ErrTokenExpired
	}

	return userID, nil
}
