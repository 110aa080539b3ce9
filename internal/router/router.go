// Package router wires HTTP routes. Admin, device and client are separate
// router trees sharing one parameterized middleware stack; each tree is
// hard-bound to its platform, so the same handler code runs against three
// independent token scopes.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/marketbase/auth-service/internal/auth"
	"github.com/marketbase/auth-service/internal/handler"
	"github.com/marketbase/auth-service/internal/middleware"
	"github.com/marketbase/auth-service/internal/rbac"
)

// PlatformDeps carries everything one platform tree needs.
type PlatformDeps struct {
	Auth     *handler.AuthHandler
	Access   *handler.AccessHandler
	Issuer   *auth.TokenIssuer
	Users    middleware.UserLoader
	Resolver *rbac.Resolver
	Limiter  echo.MiddlewareFunc
	Log      *logrus.Logger
}

// RegisterRoutes registers routes that exist outside any platform tree.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPlatform mounts one platform's tree under /{platform}. The
// credential endpoints sit in front of the gate (rate limited); everything
// else runs behind Authorize and therefore through the RBAC resolver.
func RegisterPlatform(e *echo.Echo, p auth.Platform, d PlatformDeps) {
	g := e.Group("/" + string(p))

	pub := g.Group("/auth")
	pub.POST("/register", d.Auth.Register, d.Limiter)
	pub.POST("/login", d.Auth.Login, d.Limiter)
	pub.POST("/forgot-password", d.Auth.ForgotPassword, d.Limiter)
	pub.POST("/validate-otp", d.Auth.ValidateOTP)
	pub.PUT("/reset-password", d.Auth.ResetPassword)

	guarded := g.Group("", middleware.Authorize(d.Issuer, d.Users, d.Resolver, p, d.Log))
	guarded.POST("/auth/logout", d.Auth.Logout)
	guarded.GET("/auth/me", d.Auth.Me)
	guarded.GET("/access/summary", d.Access.Summary)
	guarded.GET("/catalog/list", handler.CatalogList)
}
