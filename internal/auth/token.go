package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/marketbase/auth-service/internal/model"
	"github.com/marketbase/auth-service/internal/repository"
)

// SessionStore persists session token records. *repository.SessionRepo
// satisfies it; tests substitute an in-memory fake.
type SessionStore interface {
	Create(ctx context.Context, userID uint64, token, platform string, expiresAt time.Time) error
	Find(ctx context.Context, token string) (model.SessionToken, error)
	Revoke(ctx context.Context, token string) error
}

// PlatformKey is one platform's signing material and token lifetime.
type PlatformKey struct {
	Secret string
	TTL    time.Duration
}

// TokenIssuer creates and validates HS256 session tokens scoped to a
// platform. A token is valid only while its signature verifies under the
// platform secret, it has not expired, and its session record exists and
// is unrevoked.
type TokenIssuer struct {
	keys     map[Platform]PlatformKey
	sessions SessionStore
	now      func() time.Time
}

func NewTokenIssuer(keys map[Platform]PlatformKey, sessions SessionStore) *TokenIssuer {
	return &TokenIssuer{keys: keys, sessions: sessions, now: time.Now}
}

// IssuedToken is the outcome of a successful Issue call.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// Issue signs a token for the user on the given platform and persists the
// matching session record. Fails with ErrPlatformNotAllowed when the
// user's type is not on the platform's allow-list.
func (i *TokenIssuer) Issue(ctx context.Context, u model.User, p Platform) (IssuedToken, error) {
	if !PlatformAllowed(u.UserType, p) {
		return IssuedToken{}, ErrPlatformNotAllowed
	}
	key, ok := i.keys[p]
	if !ok {
		return IssuedToken{}, ErrPlatformNotAllowed
	}

	now := i.now().UTC()
	exp := now.Add(key.TTL)
	claims := jwt.MapClaims{
		"sub":      u.ID,
		"username": u.Username,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key.Secret))
	if err != nil {
		return IssuedToken{}, err
	}
	if err := i.sessions.Create(ctx, u.ID, signed, string(p), exp); err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Token: signed, ExpiresAt: exp}, nil
}

// Verify validates a token under the platform secret and against the
// session record. On success it returns the embedded user id. Failure
// kinds are distinct: ErrInvalidToken (bad signature, malformed, unknown
// session), ErrTokenExpired, ErrTokenRevoked.
func (i *TokenIssuer) Verify(ctx context.Context, token string, p Platform) (uint64, error) {
	key, ok := i.keys[p]
	if !ok {
		return 0, ErrInvalidToken
	}

	tok, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(key.Secret), nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return 0, ErrInvalidToken
	}

	st, err := i.sessions.Find(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrInvalidToken
		}
		return 0, err
	}
	if st.RevokedAt != nil {
		return 0, ErrTokenRevoked
	}
	if i.now().After(st.ExpiresAt) {
		return 0, ErrTokenExpired
	}
	return uint64(sub), nil
}

// Revoke invalidates a token's session record. Idempotent: revoking twice
// is a no-op, not an error.
func (i *TokenIssuer) Revoke(ctx context.Context, token string) error {
	return i.sessions.Revoke(ctx, token)
}
