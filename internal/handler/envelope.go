package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Every endpoint answers the same envelope. Some flows (validate-otp,
// reset-password) report business failures as 200 + FAILURE status rather
// than an error HTTP code; the helpers below keep that convention in one
// place.
const (
	statusSuccess      = "SUCCESS"
	statusFailure      = "FAILURE"
	statusBadRequest   = "BAD_REQUEST"
	statusUnauthorized = "UNAUTHORIZED"
	statusNotFound     = "RECORD_NOT_FOUND"
	statusInternal     = "INTERNAL_SERVER_ERROR"
)

type envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func success(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, envelope{Status: statusSuccess, Message: message, Data: data})
}

// failure is a business-rule failure delivered with HTTP 200.
func failure(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, envelope{Status: statusFailure, Message: message, Data: data})
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, envelope{Status: statusBadRequest, Message: message})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, envelope{Status: statusUnauthorized, Message: "authentication required"})
}

func notFound(c echo.Context, message string) error {
	return c.JSON(http.StatusNotFound, envelope{Status: statusNotFound, Message: message})
}

func conflict(c echo.Context, message string) error {
	return c.JSON(http.StatusConflict, envelope{Status: statusFailure, Message: message})
}

func internal(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, envelope{Status: statusInternal, Message: "internal error"})
}
