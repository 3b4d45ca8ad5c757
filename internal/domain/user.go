package domain

import "time"

// UserRole distinguishes admins from regular users.
type UserRole string

// Roles.
const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// UserStatus is the account lifecycle state.
type UserStatus string

// Statuses.
const (
	StatusActive    UserStatus = "active"
	StatusInactive  UserStatus = "inactive"
	StatusSuspended UserStatus = "suspended"
)

// ThemeMode is the UI theme preference.
type ThemeMode string

// Theme modes.
const (
	ThemeLight  ThemeMode = "light"
	ThemeDark   ThemeMode = "dark"
	ThemeSystem ThemeMode = "system"
)

// UserPreferences is the denormalized preferences bag stored on the user.
type UserPreferences struct {
	Theme             ThemeMode `json:"theme"`
	Notifications     bool      `json:"notifications"`
	Language          string    `json:"language"`
	DefaultCollection string    `json:"defaultCollection,omitempty"`
	DefaultView       string    `json:"defaultView"`
	ItemsPerPage      int       `json:"itemsPerPage"`
}

// DefaultPreferences returns the preferences a fresh account starts with.
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		Theme:         ThemeSystem,
		Notifications: true,
		Language:      "pt-BR",
		DefaultView:   "grid",
		ItemsPerPage:  20,
	}
}

// User is an account profile. PasswordHash never leaves the server.
type User struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Email        string           `json:"email"`
	PasswordHash string           `json:"-"`
	ProfileImage string           `json:"profileImage,omitempty"`
	Role         UserRole         `json:"role,omitempty"`
	Status       UserStatus       `json:"status,omitempty"`
	Preferences  *UserPreferences `json:"preferences,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
	LastLoginAt  *time.Time       `json:"lastLoginAt,omitempty"`
}

// TokenRecord is a server-side access/refresh token pair with independent
// expiry bookkeeping.
type TokenRecord struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	AccessToken   string    `json:"accessToken"`
	RefreshToken  string    `json:"refreshToken"`
	AccessExpiry  time.Time `json:"accessExpiry"`
	RefreshExpiry time.Time `json:"refreshExpiry"`
	CreatedAt     time.Time `json:"createdAt"`
}

// AccessExpired reports whether the access token has passed its expiry.
func (t *TokenRecord) AccessExpired(now time.Time) bool {
	return now.After(t.AccessExpiry)
}

// RefreshExpired reports whether the refresh token has passed its expiry.
func (t *TokenRecord) RefreshExpired(now time.Time) bool {
	return now.After(t.RefreshExpiry)
}
