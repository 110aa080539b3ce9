package model

import "time"

// UserType classifies an account and decides which role it maps to and
// which platforms it may log in on. Stored as a string in users.user_type.
type UserType string

const (
	UserTypeUser       UserType = "USER"
	UserTypeAdmin      UserType = "ADMIN"
	UserTypeSystemUser UserType = "SYSTEM_USER"
	UserTypeSeller     UserType = "SELLER"
)

// RoleCode returns the role code granted to accounts of this type.
func (t UserType) RoleCode() string {
	switch t {
	case UserTypeAdmin:
		return "ADMIN"
	case UserTypeSystemUser:
		return "SYSTEM_USER"
	case UserTypeSeller:
		return "SELLER"
	default:
		return "CUSTOMER"
	}
}

// User mirrors the `users` table. Accounts are never physically removed;
// IsDeleted flips instead. Login lockout state lives directly on the row
// (retry counter plus a nullable unlock timestamp), and a pending password
// reset is the nullable (ResetCode, ResetExpiresAt) pair.
//
// Fields:
//  ID              – primary key identifier.
//  Username        – unique login name.
//  Email           – unique email address.
//  PasswordHash    – bcrypt hashed password.
//  UserType        – account class (maps to a role code).
//  MobileNo        – optional phone number for SMS delivery.
//  IsActive        – account enabled flag.
//  IsDeleted       – soft-delete flag.
//  LoginRetryCount – consecutive failed login attempts.
//  LoginLockUntil  – end of the current lockout window (nil when unlocked).
//  ResetCode       – pending one-time reset code (nil when none).
//  ResetExpiresAt  – expiry of the pending reset code.
type User struct {
	ID              uint64
	Username        string
	Email           string
	PasswordHash    string
	UserType        UserType
	MobileNo        string
	IsActive        bool
	IsDeleted       bool
	LoginRetryCount int
	LoginLockUntil  *time.Time
	ResetCode       *string
	ResetExpiresAt  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Locked reports whether the account is inside a lockout window at now.
func (u User) Locked(now time.Time) bool {
	return u.LoginLockUntil != nil && u.LoginLockUntil.After(now)
}
