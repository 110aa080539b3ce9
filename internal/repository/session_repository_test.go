package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionRepo(t *testing.T) (*SessionRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSessionRepo(db), mock
}

func TestSessionFindRevokedColumn(t *testing.T) {
	repo, mock := newSessionRepo(t)

	now := time.Now().Truncate(time.Second)
	revoked := now.Add(-time.Minute)
	mock.ExpectQuery(`FROM session_tokens WHERE token=\?`).
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "token", "platform", "expires_at", "revoked_at", "created_at",
		}).AddRow(1, 7, "tok", "admin", now.Add(time.Hour), revoked, now))

	st, err := repo.Find(context.Background(), "tok")
	require.NoError(t, err)
	require.NotNil(t, st.RevokedAt)
	assert.Equal(t, revoked, *st.RevokedAt)
	assert.Equal(t, "admin", st.Platform)
}

func TestSessionFindMissing(t *testing.T) {
	repo, mock := newSessionRepo(t)

	mock.ExpectQuery(`FROM session_tokens WHERE token=\?`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Find(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionRevokeOnlyTouchesLiveRows(t *testing.T) {
	repo, mock := newSessionRepo(t)

	mock.ExpectExec(`UPDATE session_tokens SET revoked_at=NOW\(\) WHERE token=\? AND revoked_at IS NULL`).
		WithArgs("tok").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Revoke(context.Background(), "tok"))

	// Second revoke matches zero rows and still returns nil.
	mock.ExpectExec(`UPDATE session_tokens SET revoked_at=NOW\(\) WHERE token=\? AND revoked_at IS NULL`).
		WithArgs("tok").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Revoke(context.Background(), "tok"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeAllForUser(t *testing.T) {
	repo, mock := newSessionRepo(t)

	mock.ExpectExec(`UPDATE session_tokens SET revoked_at=NOW\(\) WHERE user_id=\? AND revoked_at IS NULL`).
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.RevokeAllForUser(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}
