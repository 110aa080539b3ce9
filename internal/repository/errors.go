// Package repository implements the persistence layer as thin structs over
// *sql.DB. Sentinel errors defined here let callers branch on failure
// scenarios without inspecting driver-specific errors.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no active row. Callers in
// the auth flows translate this into "user not exists" or a 404 depending
// on the endpoint.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert violates a unique constraint,
// e.g. registering an already-taken username or email. Handlers translate
// this into an HTTP 409 response.
var ErrDuplicate = errors.New("duplicate record")
