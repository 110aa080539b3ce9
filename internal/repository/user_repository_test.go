package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketbase/auth-service/internal/model"
)

func newUserRepo(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUserRepo(db), mock
}

func userRows(id uint64, username string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "username", "email", "password_hash", "user_type", "mobile_no",
		"is_active", "is_deleted", "login_retry_count", "login_lock_until",
		"reset_code", "reset_expires_at", "created_at", "updated_at",
	}).AddRow(id, username, username+"@example.com", "$2a$04$hash", "USER", "5550001",
		true, false, 0, nil, nil, nil, now, now)
}

func TestCreateNormalizesAndReturnsID(t *testing.T) {
	repo, mock := newUserRepo(t)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("alice", "alice@example.com", "hash", "USER", "5550001").
		WillReturnResult(sqlmock.NewResult(42, 1))

	id, err := repo.Create(context.Background(), "  Alice ", "Alice@Example.COM", "hash", model.UserTypeUser, "5550001")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDuplicateKey(t *testing.T) {
	repo, mock := newUserRepo(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'alice' for key 'users.username'"))

	_, err := repo.Create(context.Background(), "alice", "alice@example.com", "hash", model.UserTypeUser, "")
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestFindActiveByIdentifierFound(t *testing.T) {
	repo, mock := newUserRepo(t)

	mock.ExpectQuery(`FROM users WHERE \(username=\? OR email=\?\) AND is_active=1 AND is_deleted=0`).
		WithArgs("alice", "alice").
		WillReturnRows(userRows(7, "alice"))

	u, err := repo.FindActiveByIdentifier(context.Background(), " Alice ")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.Nil(t, u.LoginLockUntil)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindActiveByIdentifierNotFound(t *testing.T) {
	repo, mock := newUserRepo(t)

	mock.ExpectQuery("FROM users WHERE").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindActiveByIdentifier(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindByResetCodeCarriesNullableColumns(t *testing.T) {
	repo, mock := newUserRepo(t)

	now := time.Now().Truncate(time.Second)
	expiry := now.Add(15 * time.Minute)
	rows := sqlmock.NewRows([]string{
		"id", "username", "email", "password_hash", "user_type", "mobile_no",
		"is_active", "is_deleted", "login_retry_count", "login_lock_until",
		"reset_code", "reset_expires_at", "created_at", "updated_at",
	}).AddRow(7, "alice", "alice@example.com", "$2a$04$hash", "USER", "5550001",
		true, false, 2, nil, "code-123", expiry, now, now)

	mock.ExpectQuery(`FROM users WHERE reset_code=\?`).
		WithArgs("code-123").
		WillReturnRows(rows)

	u, err := repo.FindByResetCode(context.Background(), "code-123")
	require.NoError(t, err)
	require.NotNil(t, u.ResetCode)
	assert.Equal(t, "code-123", *u.ResetCode)
	require.NotNil(t, u.ResetExpiresAt)
	assert.Equal(t, expiry, *u.ResetExpiresAt)
	assert.Equal(t, 2, u.LoginRetryCount)
}

// LAST_INSERT_ID is per-connection state, so the increment and the read
// back must share a connection: read on another pool connection and the
// value is a stranger's (0 on a fresh connection, or some unrelated insert
// id). The expectations below pin both statements inside one transaction.
func TestRecordFailedAttemptIncrementsAndReadsOnOneConnection(t *testing.T) {
	repo, mock := newUserRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE users SET login_retry_count = LAST_INSERT_ID\(login_retry_count \+ 1\) WHERE id=\?`).
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT LAST_INSERT_ID\(\)`).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(5))
	mock.ExpectCommit()

	n, err := repo.RecordFailedAttempt(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordFailedAttemptRollsBackOnError(t *testing.T) {
	repo, mock := newUserRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE users SET login_retry_count = LAST_INSERT_ID\(login_retry_count \+ 1\) WHERE id=\?`).
		WithArgs(uint64(7)).
		WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	_, err := repo.RecordFailedAttempt(context.Background(), 7)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClearLockResetsCounterAndWindow(t *testing.T) {
	repo, mock := newUserRepo(t)

	mock.ExpectExec(`UPDATE users SET login_retry_count=0, login_lock_until=NULL WHERE id=\?`).
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ClearLock(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteResetSingleStatement(t *testing.T) {
	repo, mock := newUserRepo(t)

	mock.ExpectExec(`UPDATE users SET password_hash=\?, reset_code=NULL, reset_expires_at=NULL`).
		WithArgs("newhash", uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CompleteReset(context.Background(), 7, "newhash"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
