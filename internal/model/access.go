package model

import "time"

// Role is immutable reference data seeded once at startup. Weight breaks
// ties when an account holds several roles.
type Role struct {
	ID     uint64
	Code   string // e.g. ADMIN, SYSTEM_USER, CUSTOMER, SELLER
	Name   string
	Weight int
}

// Route is one discoverable endpoint of the system, identified by the
// (URI, Method) pair. URI is the lower-cased path template, parameter
// placeholders included (e.g. "/admin/catalog/get/:id").
type Route struct {
	ID     uint64
	URI    string
	Method string
}

// UserRole grants a role to a user. The (UserID, RoleID) pair is unique.
type UserRole struct {
	ID     uint64
	UserID uint64
	RoleID uint64
}

// RouteRole grants a role permission to invoke a route. The
// (RouteID, RoleID) pair is unique.
type RouteRole struct {
	ID      uint64
	RouteID uint64
	RoleID  uint64
}

// SessionToken models a row in `session_tokens`. One row is appended per
// successful login and flag-flipped on logout; rows double as an audit
// trail, so nothing is ever deleted.
type SessionToken struct {
	ID        uint64
	UserID    uint64
	Token     string
	Platform  string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
