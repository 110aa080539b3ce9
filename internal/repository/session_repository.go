package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/marketbase/auth-service/internal/model"
)

// SessionRepo persists session token records. Rows are append-mostly:
// created on login, flag-flipped on logout, never deleted.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Create inserts a session row for a freshly issued token.
func (r *SessionRepo) Create(ctx context.Context, userID uint64, token, platform string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO session_tokens (user_id, token, platform, expires_at) VALUES (?,?,?,?)",
		userID, token, platform, expiresAt)
	return err
}

// Find returns the session record matching a token string.
func (r *SessionRepo) Find(ctx context.Context, token string) (model.SessionToken, error) {
	var (
		st      model.SessionToken
		revoked sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, token, platform, expires_at, revoked_at, created_at FROM session_tokens WHERE token=? LIMIT 1",
		token).Scan(&st.ID, &st.UserID, &st.Token, &st.Platform, &st.ExpiresAt, &revoked, &st.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SessionToken{}, ErrNotFound
	}
	if err != nil {
		return model.SessionToken{}, err
	}
	if revoked.Valid {
		t := revoked.Time
		st.RevokedAt = &t
	}
	return st, nil
}

// Revoke marks a session revoked. Revoking an already-revoked token is a
// no-op, which makes logout idempotent.
func (r *SessionRepo) Revoke(ctx context.Context, token string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE session_tokens SET revoked_at=NOW() WHERE token=? AND revoked_at IS NULL",
		token)
	return err
}

// RevokeAllForUser revokes every live session of a user.
func (r *SessionRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE session_tokens SET revoked_at=NOW() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}
