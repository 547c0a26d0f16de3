// Package model defines the data structures used throughout the application.
package model

import "time"

// Role is the closed set of account roles. There is no hierarchy between
// them: every permission check names the role it requires.
type Role string

const (
	RoleUser       Role = "user"
	RoleSuperAdmin Role = "superadmin"
)

// ParseRole converts external input to a Role. The empty string maps to
// RoleUser; anything outside the enumeration is rejected.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case "", RoleUser:
		return RoleUser, true
	case RoleSuperAdmin:
		return RoleSuperAdmin, true
	default:
		return "", false
	}
}

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleSuperAdmin
}

func (r Role) IsSuperAdmin() bool {
	return r == RoleSuperAdmin
}

// User represents a registered account.
//
// PasswordHash and RefreshToken carry the `json:"-"` tag: they are never
// part of any response body, no matter which handler serialises the user.
//
// RefreshToken holds the single refresh token that is currently valid for
// this account. It is overwritten on login and refresh and cleared on logout
// or password change; an empty value means no refresh is possible.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Email        string    `json:"email"     db:"email"`
	FullName     string    `json:"fullName"  db:"full_name"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	Role         Role      `json:"role"      db:"role"`
	AvatarURL    string    `json:"avatarUrl,omitempty" db:"avatar_url"`
	RefreshToken string    `json:"-"         db:"refresh_token"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// IsSuperAdmin is nil-safe so callers can pass an optional acting user.
func (u *User) IsSuperAdmin() bool {
	return u != nil && u.Role.IsSuperAdmin()
}

// UserPatch is a partial profile update. Nil fields are left unchanged.
type UserPatch struct {
	FullName  *string
	Email     *string
	AvatarURL *string
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.FullName == nil && p.Email == nil && p.AvatarURL == nil
}
