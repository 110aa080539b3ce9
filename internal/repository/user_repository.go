package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/marketbase/auth-service/internal/model"
)

// UserRepo persists user records. Every read filters on
// is_active=1 AND is_deleted=0 so that disabled or soft-deleted accounts
// are indistinguishable from missing ones.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, username, email, password_hash, user_type, mobile_no,
	is_active, is_deleted, login_retry_count, login_lock_until,
	reset_code, reset_expires_at, created_at, updated_at`

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u         model.User
		lockUntil sql.NullTime
		code      sql.NullString
		codeExp   sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.UserType,
		&u.MobileNo, &u.IsActive, &u.IsDeleted, &u.LoginRetryCount, &lockUntil,
		&code, &codeExp, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	if lockUntil.Valid {
		t := lockUntil.Time
		u.LoginLockUntil = &t
	}
	if code.Valid {
		s := code.String
		u.ResetCode = &s
	}
	if codeExp.Valid {
		t := codeExp.Time
		u.ResetExpiresAt = &t
	}
	return u, nil
}

// Create inserts a user and returns its ID. Username and email are
// normalized to lower case before insert.
func (r *UserRepo) Create(ctx context.Context, username, email, passwordHash string, userType model.UserType, mobileNo string) (uint64, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, user_type, mobile_no) VALUES (?,?,?,?,?)",
		username, email, passwordHash, string(userType), mobileNo)
	if err != nil {
		// MySQL 1062 = duplicate entry on a unique key.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// FindActiveByIdentifier fetches an active, non-deleted user whose username
// or email equals the identifier.
func (r *UserRepo) FindActiveByIdentifier(ctx context.Context, identifier string) (model.User, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE (username=? OR email=?) AND is_active=1 AND is_deleted=0 LIMIT 1",
		identifier, identifier))
}

// FindActiveByEmail fetches an active, non-deleted user by email.
func (r *UserRepo) FindActiveByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? AND is_active=1 AND is_deleted=0 LIMIT 1",
		email))
}

// FindActiveByID fetches an active, non-deleted user by id.
func (r *UserRepo) FindActiveByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? AND is_active=1 AND is_deleted=0 LIMIT 1",
		id))
}

// FindByResetCode fetches the active user holding a pending reset code.
func (r *UserRepo) FindByResetCode(ctx context.Context, code string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE reset_code=? AND is_active=1 AND is_deleted=0 LIMIT 1",
		code))
}

// RecordFailedAttempt atomically increments the retry counter and returns
// the new value. The LAST_INSERT_ID wrapper makes increment-and-read a
// single statement, so two concurrent failed attempts can never observe
// the same count. LAST_INSERT_ID is per-connection, so both statements
// run inside one transaction to pin them to the same pool connection.
func (r *UserRepo) RecordFailedAttempt(ctx context.Context, id uint64) (int, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET login_retry_count = LAST_INSERT_ID(login_retry_count + 1) WHERE id=?",
		id); err != nil {
		return 0, err
	}
	var n int
	if err := tx.QueryRowContext(ctx, "SELECT LAST_INSERT_ID()").Scan(&n); err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// SetLockUntil (re)arms the lockout window on an account.
func (r *UserRepo) SetLockUntil(ctx context.Context, id uint64, until time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET login_lock_until=? WHERE id=?", until, id)
	return err
}

// ClearLock resets the retry counter and removes the lockout window.
func (r *UserRepo) ClearLock(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET login_retry_count=0, login_lock_until=NULL WHERE id=?", id)
	return err
}

// SetResetCode overwrites any pending reset code with a fresh one.
func (r *UserRepo) SetResetCode(ctx context.Context, id uint64, code string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET reset_code=?, reset_expires_at=? WHERE id=?", code, expiresAt, id)
	return err
}

// ClearResetCode consumes the pending reset code, if any.
func (r *UserRepo) ClearResetCode(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET reset_code=NULL, reset_expires_at=NULL WHERE id=?", id)
	return err
}

// CompleteReset installs a new password hash, consumes the reset code and
// zeroes the retry counter in one statement.
func (r *UserRepo) CompleteReset(ctx context.Context, id uint64, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET password_hash=?, reset_code=NULL, reset_expires_at=NULL,
			login_retry_count=0, login_lock_until=NULL WHERE id=?`,
		passwordHash, id)
	return err
}
