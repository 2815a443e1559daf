// Package model provides data models for the EchoLearn auth service.
package model

import (
	"time"
)

// Role is the closed set of account roles.
type Role string

// Account roles
const (
	RoleUser    Role = "user"
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
)

// Roles lists every valid role
var Roles = []Role{RoleUser, RoleAdmin, RoleTeacher}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleTeacher:
		return true
	}
	return false
}

// Reading preference values
const (
	ThemeLight  = "light"
	ThemeCream  = "cream"
	ThemeBlue   = "blue"
	ThemeYellow = "yellow"
	ThemeDark   = "dark"

	MinFontSize     = 12
	MaxFontSize     = 24
	DefaultFontSize = 16

	DefaultLanguage = "en-US"
)

// Themes and Languages are the accepted preference values
var (
	Themes    = []string{ThemeLight, ThemeCream, ThemeBlue, ThemeYellow, ThemeDark}
	Languages = []string{"en-US", "en-GB", "zh-HK", "zh-CN", "zh-TW"}
)

// Preferences holds reading settings. The auth service passes them through.
type Preferences struct {
	Theme    string `json:"theme"`
	FontSize int    `json:"fontSize"`
	Language string `json:"language"`
}

// DefaultPreferences returns the settings a new account starts with
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:    ThemeLight,
		FontSize: DefaultFontSize,
		Language: DefaultLanguage,
	}
}

// User represents an account record as persisted by the credential store
type User struct {
	ID                     string      `json:"_key"`
	Email                  string      `json:"email"`
	PasswordHash           string      `json:"passwordHash"`
	FirstName              string      `json:"firstName"`
	LastName               string      `json:"lastName"`
	Role                   Role        `json:"role"`
	IsActive               bool        `json:"isActive"`
	EmailVerified          bool        `json:"emailVerified"`
	EmailVerificationToken string      `json:"emailVerificationToken"`
	PasswordResetToken     string      `json:"passwordResetToken"`
	PasswordResetExpires   *time.Time  `json:"passwordResetExpires"`
	FailedLoginCount       int         `json:"failedLoginCount"`
	LockedUntil            *time.Time  `json:"lockedUntil"`
	ActiveTokens           []string    `json:"activeTokens"`
	LastLoginAt            *time.Time  `json:"lastLoginAt"`
	LastLoginIP            string      `json:"lastLoginIp"`
	RegistrationIP         string      `json:"registrationIp"`
	Preferences            Preferences `json:"preferences"`
	CreatedAt              time.Time   `json:"createdAt"`
	UpdatedAt              time.Time   `json:"updatedAt"`
}

// NewUser creates a new user with default values
func NewUser(email string, role Role) *User {
	now := time.Now()
	return &User{
		Email:        email,
		Role:         role,
		IsActive:     true,
		ActiveTokens: []string{},
		Preferences:  DefaultPreferences(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsAdmin returns true if user is admin
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasRole reports whether the user holds any of roles
func (u *User) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so stores never share slices or pointers with callers
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.ActiveTokens = append([]string(nil), u.ActiveTokens...)
	c.PasswordResetExpires = cloneTime(u.PasswordResetExpires)
	c.LockedUntil = cloneTime(u.LockedUntil)
	c.LastLoginAt = cloneTime(u.LastLoginAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// SafeUser is the client-facing view of a User. Credentials, verification
// and reset tokens, the token registry and lockout state are never included.
type SafeUser struct {
	ID            string      `json:"id"`
	Email         string      `json:"email"`
	FirstName     string      `json:"firstName"`
	LastName      string      `json:"lastName"`
	Role          Role        `json:"role"`
	IsActive      bool        `json:"isActive"`
	EmailVerified bool        `json:"emailVerified"`
	LastLoginAt   *time.Time  `json:"lastLoginAt,omitempty"`
	Preferences   Preferences `json:"preferences"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// Safe returns the client-facing view of u
func (u *User) Safe() SafeUser {
	return SafeUser{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Role:          u.Role,
		IsActive:      u.IsActive,
		EmailVerified: u.EmailVerified,
		LastLoginAt:   u.LastLoginAt,
		Preferences:   u.Preferences,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// SafeUsers maps a slice of users to their client-facing views
func SafeUsers(users []*User) []SafeUser {
	out := make([]SafeUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Safe())
	}
	return out
}
