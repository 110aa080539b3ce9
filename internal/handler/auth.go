package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/marketbase/auth-service/internal/auth"
	"github.com/marketbase/auth-service/internal/config"
	"github.com/marketbase/auth-service/internal/middleware"
	"github.com/marketbase/auth-service/internal/model"
	"github.com/marketbase/auth-service/internal/notify"
	"github.com/marketbase/auth-service/internal/repository"
)

// AuthHandler bundles the auth endpoints for one platform. A separate
// instance is registered per router tree, so every endpoint is bound to
// exactly one platform scope.
type AuthHandler struct {
	Cfg        config.Config
	Platform   auth.Platform
	Users      *repository.UserRepo
	Access     *repository.AccessRepo
	Guardian   *auth.Guardian
	Issuer     *auth.TokenIssuer
	Reset      *auth.ResetFlow
	Dispatcher *notify.Dispatcher
	Log        *logrus.Logger
	Hash       func(plain string, cost int) (string, error)
	GenPass    func() (string, error)
}

// ----- DTOs -----

// registerReq carries only what this service persists. Profile data such
// as shipping addresses belongs to the downstream CRUD services; extra
// body fields are ignored by the binder.
type registerReq struct {
	Username string `json:"username"`
	Password string `json:"password"` // optional: generated and delivered when empty
	Email    string `json:"email"`
	Name     string `json:"name"`
	MobileNo string `json:"mobileNo"`
	UserType string `json:"userType"`
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type forgotReq struct {
	Email string `json:"email"`
}

type validateOTPReq struct {
	OTP string `json:"otp"`
}

type resetPasswordReq struct {
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

// registerUserTypes limits which account types each surface may create.
var registerUserTypes = map[auth.Platform]map[model.UserType]bool{
	auth.PlatformAdmin:  {model.UserTypeAdmin: true, model.UserTypeSystemUser: true},
	auth.PlatformDevice: {model.UserTypeUser: true, model.UserTypeSeller: true},
	auth.PlatformClient: {model.UserTypeUser: true, model.UserTypeSeller: true},
}

func (h *AuthHandler) defaultUserType() model.UserType {
	if h.Platform == auth.PlatformAdmin {
		return model.UserTypeAdmin
	}
	return model.UserTypeUser
}

// Register creates a user, grants the role matching its type, and — when
// the password was omitted — generates one and delivers it over the
// configured channels.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" || req.Email == "" {
		return badRequest(c, "username and email are required")
	}
	if !strings.Contains(req.Email, "@") {
		return badRequest(c, "invalid email")
	}

	userType := h.defaultUserType()
	if req.UserType != "" {
		candidate := model.UserType(strings.ToUpper(strings.TrimSpace(req.UserType)))
		if !registerUserTypes[h.Platform][candidate] {
			return badRequest(c, "user type not allowed on this platform")
		}
		userType = candidate
	}

	password := req.Password
	generated := false
	if password == "" {
		p, err := h.GenPass()
		if err != nil {
			h.Log.WithError(err).Error("password generation failed")
			return internal(c)
		}
		password = p
		generated = true
	}
	hash, err := h.Hash(password, h.Cfg.BcryptCost)
	if err != nil {
		h.Log.WithError(err).Error("password hashing failed")
		return internal(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Username, req.Email, hash, userType, req.MobileNo)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return conflict(c, "username or email already exists")
		}
		h.Log.WithError(err).Error("create user failed")
		return internal(c)
	}

	role, err := h.Access.RoleByCode(ctx, userType.RoleCode())
	if err != nil {
		h.Log.WithError(err).WithField("role", userType.RoleCode()).Error("role lookup failed")
		return internal(c)
	}
	if err := h.Access.AssignRole(ctx, uid, role.ID); err != nil {
		h.Log.WithError(err).Error("role assignment failed")
		return internal(c)
	}

	data := echo.Map{"id": uid}
	if generated {
		report := h.Dispatcher.Dispatch(ctx, notify.Message{
			Email:    req.Email,
			MobileNo: req.MobileNo,
			Subject:  "Your account credentials",
			Body:     fmt.Sprintf("Welcome %s. Your username is %s and your password is %s.", req.Name, req.Username, password),
		})
		data["deliveries"] = report
	}
	return success(c, "registered successfully", data)
}

// Login runs the attempt through the login guardian and answers with the
// issued platform token. Bad credentials, lockout and platform refusals
// are all 400s with distinct messages.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if req.Username == "" || req.Password == "" {
		return badRequest(c, "username and password are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Guardian.Attempt(ctx, req.Username, req.Password, h.Platform)
	if err != nil {
		var locked *auth.LockedOutError
		switch {
		case errors.As(err, &locked):
			return badRequest(c, fmt.Sprintf(
				"you have exceeded the number of attempts, you can login after %s",
				humanDuration(locked.RetryAfter)))
		case errors.Is(err, auth.ErrUserNotFound):
			return badRequest(c, "User not exists")
		case errors.Is(err, auth.ErrIncorrectPassword):
			return badRequest(c, "Incorrect Password")
		case errors.Is(err, auth.ErrNoRoleAssigned):
			return badRequest(c, "you have not been assigned any role")
		case errors.Is(err, auth.ErrPlatformNotAllowed):
			return badRequest(c, "you are unable to access this platform")
		default:
			h.Log.WithError(err).Error("login attempt failed")
			return internal(c)
		}
	}

	return success(c, "login successful", echo.Map{
		"id":    res.User.ID,
		"token": res.Token,
	})
}

// ForgotPassword issues a reset code and reports which channels carried
// it. An unknown email is a 404; all-channels-failed is a FAILURE status,
// deliberately distinct.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return badRequest(c, "email is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	report, err := h.Reset.RequestReset(ctx, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserNotFound):
			return notFound(c, "email not found")
		case errors.Is(err, auth.ErrDeliveryFail):
			return failure(c, "unable to deliver reset code", echo.Map{"deliveries": report})
		default:
			h.Log.WithError(err).Error("reset request failed")
			return internal(c)
		}
	}

	var sent []string
	for _, d := range report {
		if d.OK {
			sent = append(sent, d.Channel)
		}
	}
	return success(c,
		fmt.Sprintf("reset code sent via %s", strings.Join(sent, " and ")),
		echo.Map{"deliveries": report})
}

// ValidateOTP checks a reset code. Outcome travels in the status field;
// the HTTP code stays 200 even for an invalid or expired OTP.
func (h *AuthHandler) ValidateOTP(c echo.Context) error {
	var req validateOTPReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.OTP) == "" {
		return badRequest(c, "otp is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Reset.ValidateCode(ctx, strings.TrimSpace(req.OTP)); {
	case err == nil:
		return success(c, "otp verified", nil)
	case errors.Is(err, auth.ErrInvalidCode):
		return failure(c, "invalid otp", nil)
	case errors.Is(err, auth.ErrCodeExpired):
		return failure(c, "otp expired", nil)
	default:
		h.Log.WithError(err).Error("otp validation failed")
		return internal(c)
	}
}

// ResetPassword validates a code and installs the new password, with the
// same 200-with-status-field convention as ValidateOTP.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil ||
		strings.TrimSpace(req.Code) == "" || req.NewPassword == "" {
		return badRequest(c, "code and newPassword are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Reset.ResetPassword(ctx, strings.TrimSpace(req.Code), req.NewPassword); {
	case err == nil:
		return success(c, "password reset successfully", nil)
	case errors.Is(err, auth.ErrInvalidCode):
		return failure(c, "invalid code", nil)
	case errors.Is(err, auth.ErrCodeExpired):
		return failure(c, "code expired", nil)
	default:
		h.Log.WithError(err).Error("password reset failed")
		return internal(c)
	}
}

// Logout revokes the bearer token that authorized this request. Runs
// behind Authorize, so the token in context is already verified.
func (h *AuthHandler) Logout(c echo.Context) error {
	token, _ := c.Get(middleware.CtxToken).(string)
	if token == "" {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Issuer.Revoke(ctx, token); err != nil {
		h.Log.WithError(err).Error("logout failed")
		return internal(c)
	}
	return success(c, "logged out", nil)
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	u, ok := c.Get(middleware.CtxUser).(model.User)
	if !ok {
		return unauthorized(c)
	}
	return c.JSON(http.StatusOK, envelope{Status: statusSuccess, Message: "ok", Data: echo.Map{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
		"userType": u.UserType,
	}})
}

// humanDuration renders a retry-after interval the way the login message
// expects, e.g. "2 minutes 30 seconds".
func humanDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := int(d / time.Minute)
	s := int(d%time.Minute) / int(time.Second)
	switch {
	case m > 0 && s > 0:
		return fmt.Sprintf("%d minutes %d seconds", m, s)
	case m > 0:
		return fmt.Sprintf("%d minutes", m)
	default:
		return fmt.Sprintf("%d seconds", s)
	}
}
