package auth

import (
	"errors"
	"fmt"
	"time"
)

// Business-rule failures. Handlers branch on these with errors.Is and map
// them onto the response envelope; anything else is a system failure.
var (
	ErrUserNotFound       = errors.New("user not exists")
	ErrIncorrectPassword  = errors.New("incorrect password")
	ErrNoRoleAssigned     = errors.New("no role assigned to user")
	ErrPlatformNotAllowed = errors.New("user type not allowed on this platform")

	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")

	ErrInvalidCode  = errors.New("invalid reset code")
	ErrCodeExpired  = errors.New("reset code expired")
	ErrDeliveryFail = errors.New("reset code delivery failed")
)

// LockedOutError rejects a login attempt against a locked account. The
// RetryAfter duration feeds the human-readable message shown to the user.
type LockedOutError struct {
	RetryAfter time.Duration
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("account locked, retry after %s", e.RetryAfter.Round(time.Second))
}
