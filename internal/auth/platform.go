// Package auth implements the authentication core: per-platform token
// issuance and verification, the login retry-lockout state machine, and the
// password reset flow. Business-rule failures are returned as values so
// handlers can tell them apart from system failures.
package auth

import "github.com/marketbase/auth-service/internal/model"

// Platform is one of the three API surfaces. Each platform signs tokens
// with its own secret, so a token minted for one surface is garbage on the
// others.
type Platform string

const (
	PlatformAdmin  Platform = "admin"
	PlatformDevice Platform = "device"
	PlatformClient Platform = "client"
)

// Platforms lists every surface, in router registration order.
var Platforms = []Platform{PlatformAdmin, PlatformDevice, PlatformClient}

// loginAccess maps an account type to the platforms it may log in on.
// Admin staff never authenticate through the public client surface and
// customers never reach the back office.
var loginAccess = map[model.UserType][]Platform{
	model.UserTypeAdmin:      {PlatformAdmin},
	model.UserTypeSystemUser: {PlatformAdmin, PlatformDevice},
	model.UserTypeSeller:     {PlatformClient, PlatformDevice},
	model.UserTypeUser:       {PlatformClient, PlatformDevice},
}

// PlatformAllowed reports whether accounts of type t may log in on p.
func PlatformAllowed(t model.UserType, p Platform) bool {
	for _, allowed := range loginAccess[t] {
		if allowed == p {
			return true
		}
	}
	return false
}
