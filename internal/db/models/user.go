package models

import (
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
)

// AnonymousUsername is the reserved username of the anonymous sentinel user.
// The sentinel represents unauthenticated requests uniformly; it is seeded at
// first start, permanently disabled and can never log in.
const AnonymousUsername = "anonymous"

// DeleteCooldown is how long a user must have been disabled before the
// account may be hard deleted.
const DeleteCooldown = 15 * 24 * time.Hour

// User represents a user account in the system.
// Users authenticate against the local database and receive permissions
// through the access groups they are members of, directly or transitively.
type User struct {
	// ID is the unique identifier for the user.
	ID uint64 `gorm:"primaryKey" json:"id"`
	// Username is the unique username for login.
	Username string `gorm:"unique;size:100;not null" json:"username"`
	// Name is the user's display name.
	Name string `gorm:"size:255" json:"name"`
	// Email is the user's email address.
	Email string `gorm:"size:255;not null" json:"email"`
	// Password is the Argon2id hashed password.
	Password string `gorm:"size:255" json:"-"`
	// Enabled indicates whether the account may log in at all.
	Enabled bool `json:"enabled"`
	// Activated indicates the account finished activation.
	Activated bool `json:"activated"`
	// SystemAdmin grants implicit membership in every group and passes
	// admin-only checks.
	SystemAdmin bool `gorm:"column:system_admin" json:"system_admin"`
	// Anonymous marks the sentinel row for unauthenticated requests.
	Anonymous bool `json:"-"`
	// DisabledAt is set when the account is disabled and cleared on enable.
	// Hard deletion is only allowed DeleteCooldown after this timestamp.
	DisabledAt *time.Time `json:"disabled_at,omitempty"`
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the database table name for the User model.
func (User) TableName() string {
	return "users"
}

// IsAnonymous reports whether this principal is the anonymous sentinel.
// A nil or zero-ID user counts as anonymous as well.
func (u *User) IsAnonymous() bool {
	return u == nil || u.Anonymous || u.ID == 0
}

// CanActAsAdmin reports whether the user passes admin-only checks: a real,
// enabled, activated system admin.
func (u *User) CanActAsAdmin() bool {
	return !u.IsAnonymous() && u.SystemAdmin && u.Enabled && u.Activated
}

// Deletable reports whether the account may be hard deleted at the given
// time: only while disabled and only after the cooldown has elapsed.
func (u *User) Deletable(now time.Time) bool {
	if u.Enabled || u.DisabledAt == nil {
		return false
	}

	return now.Sub(*u.DisabledAt) >= DeleteCooldown
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
// This function should be used when creating or updating user passwords.
// It uses the default Argon2id parameters for secure password hashing.
func HashPassword(password string) string {
	hashedPassword, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatal().Msgf("failed to hash password: %v", err)
	}

	return hashedPassword
}

// VerifyPassword verifies a plaintext password against the user's stored hashed password.
// It uses constant-time comparison to prevent timing attacks.
// Returns true if the password matches, false otherwise.
func (u *User) VerifyPassword(password string) bool {
	match, err := argon2id.ComparePasswordAndHash(password, u.Password)
	if err != nil {
		log.Error().Msgf("failed to verify password: %v", err)
		return false
	}

	return match
}
