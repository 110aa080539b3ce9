package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marketbase/auth-service/internal/model"
	"github.com/marketbase/auth-service/internal/notify"
	"github.com/marketbase/auth-service/internal/repository"
	"github.com/marketbase/auth-service/internal/utils"
)

// ResetStore is the slice of the user repository the reset flow needs.
// *repository.UserRepo satisfies it.
type ResetStore interface {
	FindActiveByEmail(ctx context.Context, email string) (model.User, error)
	FindByResetCode(ctx context.Context, code string) (model.User, error)
	SetResetCode(ctx context.Context, id uint64, code string, expiresAt time.Time) error
	ClearResetCode(ctx context.Context, id uint64) error
	CompleteReset(ctx context.Context, id uint64, passwordHash string) error
}

// ResetFlow implements the one-time-code password reset: issuance with
// delivery over the configured channels, expiry-checked validation, and
// the final password change. Codes are single use; validating one consumes
// it even when no password change follows.
type ResetFlow struct {
	users      ResetStore
	dispatcher *notify.Dispatcher
	window     time.Duration
	bcryptCost int

	// newCode and now are swappable for tests.
	newCode func() string
	now     func() time.Time
}

func NewResetFlow(users ResetStore, dispatcher *notify.Dispatcher, window time.Duration, bcryptCost int) *ResetFlow {
	return &ResetFlow{
		users:      users,
		dispatcher: dispatcher,
		window:     window,
		bcryptCost: bcryptCost,
		newCode:    uuid.NewString,
		now:        time.Now,
	}
}

// RequestReset generates a fresh code for the account behind email,
// overwriting any pending one, and dispatches it. The per-channel report
// is always returned; if every configured channel fails the error is
// ErrDeliveryFail, which callers must surface differently from
// ErrUserNotFound.
func (f *ResetFlow) RequestReset(ctx context.Context, email string) ([]notify.Delivery, error) {
	u, err := f.users.FindActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	code := f.newCode()
	expiresAt := f.now().Add(f.window)
	if err := f.users.SetResetCode(ctx, u.ID, code, expiresAt); err != nil {
		return nil, err
	}

	report := f.dispatcher.Dispatch(ctx, notify.Message{
		Email:    u.Email,
		MobileNo: u.MobileNo,
		Subject:  "Password reset code",
		Body:     fmt.Sprintf("Your password reset code is %s. It expires in %s.", code, f.window),
	})
	if !notify.AnySucceeded(report) {
		return report, ErrDeliveryFail
	}
	return report, nil
}

// lookup finds the user behind a pending code and checks expiry. The
// boundary instant still validates: a code is rejected only when now is
// strictly past expires_at.
func (f *ResetFlow) lookup(ctx context.Context, code string) (model.User, error) {
	u, err := f.users.FindByResetCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrInvalidCode
		}
		return model.User{}, err
	}
	if u.ResetExpiresAt == nil {
		return model.User{}, ErrInvalidCode
	}
	if f.now().After(*u.ResetExpiresAt) {
		return model.User{}, ErrCodeExpired
	}
	return u, nil
}

// ValidateCode checks a code and consumes it on success. The password is
// not changed here; ResetPassword is a separate, independent entry point.
func (f *ResetFlow) ValidateCode(ctx context.Context, code string) error {
	u, err := f.lookup(ctx, code)
	if err != nil {
		return err
	}
	return f.users.ClearResetCode(ctx, u.ID)
}

// ResetPassword validates a code and installs the new password. It repeats
// the full lookup because validate-otp and reset-password are usable
// independently. The retry counter and any lockout clear along with the code.
func (f *ResetFlow) ResetPassword(ctx context.Context, code, newPassword string) error {
	u, err := f.lookup(ctx, code)
	if err != nil {
		return err
	}
	hash, err := utils.HashPassword(newPassword, f.bcryptCost)
	if err != nil {
		return err
	}
	return f.users.CompleteReset(ctx, u.ID, hash)
}
