package auth

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketbase/auth-service/internal/model"
	"github.com/marketbase/auth-service/internal/notify"
	"github.com/marketbase/auth-service/internal/repository"
	"github.com/marketbase/auth-service/internal/utils"
)

// fakeResetStore holds a single user.
type fakeResetStore struct {
	user model.User
}

func (s *fakeResetStore) FindActiveByEmail(_ context.Context, email string) (model.User, error) {
	if email == s.user.Email {
		return s.user, nil
	}
	return model.User{}, repository.ErrNotFound
}

func (s *fakeResetStore) FindByResetCode(_ context.Context, code string) (model.User, error) {
	if s.user.ResetCode != nil && *s.user.ResetCode == code {
		return s.user, nil
	}
	return model.User{}, repository.ErrNotFound
}

func (s *fakeResetStore) SetResetCode(_ context.Context, _ uint64, code string, expiresAt time.Time) error {
	c, e := code, expiresAt
	s.user.ResetCode = &c
	s.user.ResetExpiresAt = &e
	return nil
}

func (s *fakeResetStore) ClearResetCode(_ context.Context, _ uint64) error {
	s.user.ResetCode = nil
	s.user.ResetExpiresAt = nil
	return nil
}

func (s *fakeResetStore) CompleteReset(_ context.Context, _ uint64, passwordHash string) error {
	s.user.PasswordHash = passwordHash
	s.user.ResetCode = nil
	s.user.ResetExpiresAt = nil
	s.user.LoginRetryCount = 0
	s.user.LoginLockUntil = nil
	return nil
}

// fakeChannel records sends and optionally fails.
type fakeChannel struct {
	name string
	err  error
	sent []notify.Message
}

func (c *fakeChannel) Name() string { return c.name }
func (c *fakeChannel) Send(_ context.Context, m notify.Message) error {
	c.sent = append(c.sent, m)
	return c.err
}

var resetBase = time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testResetFlow(store *fakeResetStore, channels ...notify.Channel) *ResetFlow {
	f := NewResetFlow(store, notify.NewDispatcher(quietLogger(), time.Second, channels...),
		15*time.Minute, 4 /* bcrypt min-ish cost for tests */)
	f.now = func() time.Time { return resetBase }
	f.newCode = func() string { return "11111111-2222-3333-4444-555555555555" }
	return f
}

func resetUser() model.User {
	return model.User{
		ID: 1, Username: "alice", Email: "alice@example.com",
		MobileNo: "5550001", UserType: model.UserTypeUser, IsActive: true,
	}
}

func TestRequestResetUnknownEmail(t *testing.T) {
	f := testResetFlow(&fakeResetStore{user: resetUser()}, &fakeChannel{name: "email"})

	_, err := f.RequestReset(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRequestResetDualChannel(t *testing.T) {
	store := &fakeResetStore{user: resetUser()}
	email := &fakeChannel{name: "email"}
	sms := &fakeChannel{name: "sms"}
	f := testResetFlow(store, email, sms)

	report, err := f.RequestReset(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, []notify.Delivery{{Channel: "email", OK: true}, {Channel: "sms", OK: true}}, report)

	require.NotNil(t, store.user.ResetCode)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", *store.user.ResetCode)
	assert.Equal(t, resetBase.Add(15*time.Minute), *store.user.ResetExpiresAt)
	require.Len(t, email.sent, 1)
	assert.Contains(t, email.sent[0].Body, *store.user.ResetCode)
}

func TestRequestResetSingleChannelFailureStillSucceeds(t *testing.T) {
	store := &fakeResetStore{user: resetUser()}
	email := &fakeChannel{name: "email"}
	sms := &fakeChannel{name: "sms", err: errors.New("gateway down")}
	f := testResetFlow(store, email, sms)

	report, err := f.RequestReset(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, []notify.Delivery{{Channel: "email", OK: true}, {Channel: "sms", OK: false}}, report)
}

func TestRequestResetAllChannelsFail(t *testing.T) {
	store := &fakeResetStore{user: resetUser()}
	email := &fakeChannel{name: "email", err: errors.New("smtp refused")}
	f := testResetFlow(store, email)

	report, err := f.RequestReset(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, ErrDeliveryFail)
	assert.Equal(t, []notify.Delivery{{Channel: "email", OK: false}}, report)
	// The code is still armed; the user may retry delivery.
	assert.NotNil(t, store.user.ResetCode)
}

func TestValidateCodeConsumesOnSuccess(t *testing.T) {
	store := &fakeResetStore{user: resetUser()}
	f := testResetFlow(store, &fakeChannel{name: "email"})

	_, err := f.RequestReset(context.Background(), "alice@example.com")
	require.NoError(t, err)
	code := *store.user.ResetCode

	require.NoError(t, f.ValidateCode(context.Background(), code))
	assert.Nil(t, store.user.ResetCode)

	// Second validation of the same code fails: one-time use.
	assert.ErrorIs(t, f.ValidateCode(context.Background(), code), ErrInvalidCode)
}

func TestValidateCodeExpiryBoundary(t *testing.T) {
	store := &fakeResetStore{user: resetUser()}
	f := testResetFlow(store, &fakeChannel{name: "email"})
	_, err := f.RequestReset(context.Background(), "alice@example.com")
	require.NoError(t, err)
	code := *store.user.ResetCode
	expiry := *store.user.ResetExpiresAt

	// At exactly expires_at the code is still valid.
	f.now = func() time.Time { return expiry }
	require.NoError(t, f.ValidateCode(context.Background(), code))

	// Strictly past it, expired.
	require.NoError(t, store.SetResetCode(context.Background(), 1, code, expiry))
	f.now = func() time.Time { return expiry.Add(time.Second) }
	assert.ErrorIs(t, f.ValidateCode(context.Background(), code), ErrCodeExpired)
}

func TestResetPasswordInstallsNewHash(t *testing.T) {
	store := &fakeResetStore{user: resetUser()}
	store.user.LoginRetryCount = 4
	f := testResetFlow(store, &fakeChannel{name: "email"})
	_, err := f.RequestReset(context.Background(), "alice@example.com")
	require.NoError(t, err)
	code := *store.user.ResetCode

	require.NoError(t, f.ResetPassword(context.Background(), code, "n3w-passw0rd"))
	assert.True(t, utils.VerifyPassword(store.user.PasswordHash, "n3w-passw0rd"))
	assert.Nil(t, store.user.ResetCode)
	assert.Zero(t, store.user.LoginRetryCount)

	// The code was consumed by the reset.
	assert.ErrorIs(t, f.ResetPassword(context.Background(), code, "another"), ErrInvalidCode)
}

func TestResetPasswordExpiredCode(t *testing.T) {
	store := &fakeResetStore{user: resetUser()}
	f := testResetFlow(store, &fakeChannel{name: "email"})
	_, err := f.RequestReset(context.Background(), "alice@example.com")
	require.NoError(t, err)

	f.now = func() time.Time { return resetBase.Add(15*time.Minute + time.Second) }
	assert.ErrorIs(t,
		f.ResetPassword(context.Background(), *store.user.ResetCode, "whatever"),
		ErrCodeExpired)
}
