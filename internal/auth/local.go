package auth

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/authgrid/authgrid/internal/db/models"
)

// LocalProvider handles local database authentication and the user account
// lifecycle.
type LocalProvider struct {
	db *gorm.DB
}

const (
	whereID = "id = ?"
)

// NewLocalProvider creates a new local authentication provider.
func NewLocalProvider(db *gorm.DB) *LocalProvider {
	return &LocalProvider{
		db: db,
	}
}

// Authenticate authenticates a user against the local database.
// The anonymous sentinel can never log in regardless of credentials.
func (p *LocalProvider) Authenticate(username, password string) (*models.User, error) {
	var user models.User

	err := p.db.Where("username = ?", username).First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if user.Anonymous {
		return nil, ErrUserNotFound
	}

	if !user.Enabled {
		return nil, ErrUserAccountDisabled
	}

	if !user.Activated {
		return nil, ErrUserNotActivated
	}

	if !user.VerifyPassword(password) {
		return nil, ErrInvalidPassword
	}

	return &user, nil
}

// CreateUser creates a new local user. New accounts start enabled but not
// activated; activation is a separate admin step.
func (p *LocalProvider) CreateUser(username, email, password, name string) (*models.User, error) {
	if username == models.AnonymousUsername {
		return nil, ErrAnonymousReserved
	}

	// Check if user already exists
	var existingUser models.User

	err := p.db.Where("username = ? OR email = ?", username, email).First(&existingUser).Error
	if err == nil {
		return nil, ErrUserNameOrEmailExists
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	user := models.User{
		Username: username,
		Email:    email,
		Password: models.HashPassword(password),
		Name:     name,
		Enabled:  true,
	}

	if err := p.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}

// UpdateUser updates the mutable profile fields of an existing user.
func (p *LocalProvider) UpdateUser(userID uint64, email, name string) error {
	updates := map[string]interface{}{
		"email": email,
		"name":  name,
	}

	return p.db.Model(&models.User{}).
		Where(whereID, userID).
		Updates(updates).Error
}

// ChangePassword changes a user's password after verifying the old one.
func (p *LocalProvider) ChangePassword(userID uint64, oldPassword, newPassword string) error {
	var user models.User
	if err := p.db.Where(whereID, userID).First(&user).Error; err != nil {
		return fmt.Errorf("user not found: %w", err)
	}

	if !user.VerifyPassword(oldPassword) {
		return ErrInvalidOldPassword
	}

	return p.db.Model(&models.User{}).
		Where(whereID, userID).
		Update("password", models.HashPassword(newPassword)).Error
}

// ResetPassword resets a user's password (admin function).
func (p *LocalProvider) ResetPassword(userID uint64, newPassword string) error {
	return p.db.Model(&models.User{}).
		Where(whereID, userID).
		Update("password", models.HashPassword(newPassword)).Error
}

// ActivateUser marks a user account as activated.
func (p *LocalProvider) ActivateUser(userID uint64) error {
	return p.db.Model(&models.User{}).
		Where(whereID, userID).
		Update("activated", true).Error
}

// EnableUser re-enables a disabled account and clears the disable timestamp,
// which also resets the delete cooldown.
func (p *LocalProvider) EnableUser(userID uint64) error {
	updates := map[string]interface{}{
		"enabled":     true,
		"disabled_at": nil,
	}

	return p.db.Model(&models.User{}).
		Where(whereID, userID).
		Updates(updates).Error
}

// DisableUser disables an account and stamps the time, starting the delete
// cooldown. The anonymous sentinel is already disabled and stays untouched.
func (p *LocalProvider) DisableUser(userID uint64) error {
	user, err := p.GetUserByID(userID)
	if err != nil {
		return err
	}

	if user.Anonymous {
		return ErrAnonymousReserved
	}

	now := time.Now()
	updates := map[string]interface{}{
		"enabled":     false,
		"disabled_at": &now,
	}

	return p.db.Model(&models.User{}).
		Where(whereID, userID).
		Updates(updates).Error
}

// DeleteUser hard deletes a user account. Deletion is only allowed for
// accounts that have been disabled for at least the cooldown period, so an
// accidental disable can be undone without data loss.
func (p *LocalProvider) DeleteUser(userID uint64) error {
	user, err := p.GetUserByID(userID)
	if err != nil {
		return err
	}

	if user.Anonymous {
		return ErrAnonymousReserved
	}

	if !user.Deletable(time.Now()) {
		return ErrUserNotDeletable
	}

	return p.db.Delete(&models.User{}, userID).Error
}

// GetUserByID retrieves a user by ID.
func (p *LocalProvider) GetUserByID(userID uint64) (*models.User, error) {
	var user models.User
	if err := p.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, err
	}

	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (p *LocalProvider) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := p.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, err
	}

	return &user, nil
}
