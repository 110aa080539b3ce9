package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/marketbase/auth-service/internal/auth"
	"github.com/marketbase/auth-service/internal/model"
	"github.com/marketbase/auth-service/internal/rbac"
)

// Context keys set by Authorize for downstream handlers.
const (
	CtxUser  = "user"  // model.User of the authenticated caller
	CtxToken = "token" // raw bearer token (logout revokes it)
)

// UserLoader resolves the user behind a verified token.
// *repository.UserRepo satisfies it.
type UserLoader interface {
	FindActiveByID(ctx context.Context, id uint64) (model.User, error)
}

// Authorize returns the per-request gate for one platform's router tree:
// bearer extraction, token verification, user load and the RBAC decision,
// failing closed at the first broken link. Token problems and disabled or
// deleted accounts all collapse into the same 401 so account state never
// leaks; only a missing grant yields a 403.
func Authorize(issuer *auth.TokenIssuer, users UserLoader, resolver *rbac.Resolver, platform auth.Platform, log *logrus.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"status": "UNAUTHORIZED", "message": "authentication required"})
			}
			token := strings.TrimPrefix(header, "Bearer ")

			ctx := c.Request().Context()
			userID, err := issuer.Verify(ctx, token, platform)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrInvalidToken),
					errors.Is(err, auth.ErrTokenExpired),
					errors.Is(err, auth.ErrTokenRevoked):
					return c.JSON(http.StatusUnauthorized, echo.Map{"status": "UNAUTHORIZED", "message": "authentication required"})
				default:
					log.WithError(err).Error("token verification failed")
					return c.JSON(http.StatusInternalServerError, echo.Map{"status": "INTERNAL_SERVER_ERROR", "message": "internal error"})
				}
			}

			u, err := users.FindActiveByID(ctx, userID)
			if err != nil {
				// Missing, disabled and deleted accounts answer exactly
				// like a bad token.
				return c.JSON(http.StatusUnauthorized, echo.Map{"status": "UNAUTHORIZED", "message": "authentication required"})
			}
			c.Set(CtxUser, u)
			c.Set(CtxToken, token)

			// c.Path() is the registered template (placeholders intact),
			// which is the registry's URI representation.
			if err := resolver.Authorize(ctx, u.ID, c.Path(), c.Request().Method); err != nil {
				switch {
				case errors.Is(err, rbac.ErrRouteUnregistered):
					log.WithFields(logrus.Fields{
						"uri":    c.Path(),
						"method": c.Request().Method,
					}).Warn("request for route missing from route registry")
					return c.JSON(http.StatusForbidden, echo.Map{"status": "FORBIDDEN", "message": "access denied"})
				case errors.Is(err, rbac.ErrForbidden):
					return c.JSON(http.StatusForbidden, echo.Map{"status": "FORBIDDEN", "message": "access denied"})
				default:
					log.WithError(err).Error("permission resolution failed")
					return c.JSON(http.StatusInternalServerError, echo.Map{"status": "INTERNAL_SERVER_ERROR", "message": "internal error"})
				}
			}
			return next(c)
		}
	}
}
