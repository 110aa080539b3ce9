package auth

import (
	"context"
	"errors"
	"time"

	"github.com/marketbase/auth-service/internal/model"
	"github.com/marketbase/auth-service/internal/repository"
	"github.com/marketbase/auth-service/internal/utils"
)

// CredentialStore is the slice of the user repository the guardian needs.
// *repository.UserRepo satisfies it.
type CredentialStore interface {
	FindActiveByIdentifier(ctx context.Context, identifier string) (model.User, error)
	RecordFailedAttempt(ctx context.Context, id uint64) (int, error)
	SetLockUntil(ctx context.Context, id uint64, until time.Time) error
	ClearLock(ctx context.Context, id uint64) error
}

// Guardian evaluates login attempts and enforces the retry-limit lockout.
// An account moves Normal -> Locked once the failed-attempt counter reaches
// maxRetry, and recovers automatically when the lock window passes. Every
// counter mutation is pushed to the store before the verdict is returned,
// so concurrent attempts never act on a stale "not yet locked" read.
type Guardian struct {
	users      CredentialStore
	issuer     *TokenIssuer
	maxRetry   int
	lockWindow time.Duration

	// verify and now are swappable for tests.
	verify func(hash, plain string) bool
	now    func() time.Time
}

func NewGuardian(users CredentialStore, issuer *TokenIssuer, maxRetry int, lockWindow time.Duration) *Guardian {
	return &Guardian{
		users:      users,
		issuer:     issuer,
		maxRetry:   maxRetry,
		lockWindow: lockWindow,
		verify:     utils.VerifyPassword,
		now:        time.Now,
	}
}

// LoginResult is returned on a successful attempt.
type LoginResult struct {
	User      model.User
	Token     string
	ExpiresAt time.Time
}

// Attempt runs one login attempt through the lockout state machine.
//
// Locked accounts are rejected before any password comparison. An attempt
// made while the lock window is still open re-arms the window to its full
// length; probing a locked account only pushes the unlock further out.
func (g *Guardian) Attempt(ctx context.Context, identifier, password string, p Platform) (LoginResult, error) {
	u, err := g.users.FindActiveByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return LoginResult{}, ErrUserNotFound
		}
		return LoginResult{}, err
	}
	if u.UserType == "" {
		return LoginResult{}, ErrNoRoleAssigned
	}

	now := g.now()
	if u.LoginRetryCount >= g.maxRetry {
		switch {
		case u.LoginLockUntil == nil:
			// Threshold crossed but no window armed yet (e.g. rows
			// migrated from before lockout existed). Arm it now.
			until := now.Add(g.lockWindow)
			if err := g.users.SetLockUntil(ctx, u.ID, until); err != nil {
				return LoginResult{}, err
			}
			if _, err := g.users.RecordFailedAttempt(ctx, u.ID); err != nil {
				return LoginResult{}, err
			}
			return LoginResult{}, &LockedOutError{RetryAfter: g.lockWindow}
		case u.LoginLockUntil.After(now):
			// Still locked: re-arm the full window and reject without
			// touching the password.
			until := now.Add(g.lockWindow)
			if err := g.users.SetLockUntil(ctx, u.ID, until); err != nil {
				return LoginResult{}, err
			}
			return LoginResult{}, &LockedOutError{RetryAfter: until.Sub(now)}
		default:
			// Window has passed; recover to Normal and fall through to
			// the ordinary password check.
			if err := g.users.ClearLock(ctx, u.ID); err != nil {
				return LoginResult{}, err
			}
			u.LoginRetryCount = 0
			u.LoginLockUntil = nil
		}
	}

	if !g.verify(u.PasswordHash, password) {
		count, err := g.users.RecordFailedAttempt(ctx, u.ID)
		if err != nil {
			return LoginResult{}, err
		}
		if count >= g.maxRetry {
			// This failure crossed the threshold: lock immediately so the
			// caller learns about the lockout on this attempt, not the next.
			until := now.Add(g.lockWindow)
			if err := g.users.SetLockUntil(ctx, u.ID, until); err != nil {
				return LoginResult{}, err
			}
			return LoginResult{}, &LockedOutError{RetryAfter: g.lockWindow}
		}
		return LoginResult{}, ErrIncorrectPassword
	}

	// Success: counters reset before the token is minted.
	if err := g.users.ClearLock(ctx, u.ID); err != nil {
		return LoginResult{}, err
	}
	issued, err := g.issuer.Issue(ctx, u, p)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{User: u, Token: issued.Token, ExpiresAt: issued.ExpiresAt}, nil
}
