package handler

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/marketbase/auth-service/internal/middleware"
	"github.com/marketbase/auth-service/internal/model"
	"github.com/marketbase/auth-service/internal/rbac"
)

// AccessHandler exposes RBAC introspection.
type AccessHandler struct {
	Resolver *rbac.Resolver
	Log      *logrus.Logger
}

// Summary answers the bulk role-access map for the caller:
// {role: {entity: [C,R,U,D]}}. Intended for UIs that render what the
// current account may do; per-request gating never goes through here.
func (h *AccessHandler) Summary(c echo.Context) error {
	u, ok := c.Get(middleware.CtxUser).(model.User)
	if !ok {
		return unauthorized(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	summary, err := h.Resolver.Summary(ctx, u.ID)
	if err != nil {
		h.Log.WithError(err).Error("role access summary failed")
		return internal(c)
	}
	return success(c, "role access summary", summary)
}
