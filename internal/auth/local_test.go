package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgrid/authgrid/internal/db/models"
)

func TestAuthenticate(t *testing.T) {
	db := setupTestDB(t)
	p := NewLocalProvider(db)

	user, err := p.CreateUser("alice", "alice@example.com", "s3cret", "Alice")
	require.NoError(t, err)
	require.NoError(t, p.ActivateUser(user.ID))

	// wrong password
	_, err = p.Authenticate("alice", "nope")
	require.ErrorIs(t, err, ErrInvalidPassword)

	// unknown user
	_, err = p.Authenticate("nobody", "s3cret")
	require.ErrorIs(t, err, ErrUserNotFound)

	// success
	got, err := p.Authenticate("alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	// disabled account
	require.NoError(t, p.DisableUser(user.ID))
	_, err = p.Authenticate("alice", "s3cret")
	require.ErrorIs(t, err, ErrUserAccountDisabled)

	// not yet activated account
	fresh, err := p.CreateUser("bob", "bob@example.com", "pw", "Bob")
	require.NoError(t, err)
	_, err = p.Authenticate(fresh.Username, "pw")
	require.ErrorIs(t, err, ErrUserNotActivated)
}

func TestAuthenticateAnonymousSentinel(t *testing.T) {
	db := setupTestDB(t)
	p := NewLocalProvider(db)

	sentinel := models.User{
		Username:  models.AnonymousUsername,
		Email:     "anonymous@localhost",
		Anonymous: true,
	}
	require.NoError(t, db.Create(&sentinel).Error)

	_, err := p.Authenticate(models.AnonymousUsername, "")
	require.ErrorIs(t, err, ErrUserNotFound)

	// the sentinel is also shielded from lifecycle operations
	require.ErrorIs(t, p.DisableUser(sentinel.ID), ErrAnonymousReserved)
	require.ErrorIs(t, p.DeleteUser(sentinel.ID), ErrAnonymousReserved)

	_, err = p.CreateUser(models.AnonymousUsername, "x@example.com", "pw", "")
	require.ErrorIs(t, err, ErrAnonymousReserved)
}

func TestCreateUserDuplicate(t *testing.T) {
	db := setupTestDB(t)
	p := NewLocalProvider(db)

	_, err := p.CreateUser("carol", "carol@example.com", "pw", "Carol")
	require.NoError(t, err)

	_, err = p.CreateUser("carol", "other@example.com", "pw", "")
	require.ErrorIs(t, err, ErrUserNameOrEmailExists)

	_, err = p.CreateUser("other", "carol@example.com", "pw", "")
	require.ErrorIs(t, err, ErrUserNameOrEmailExists)
}

func TestChangePassword(t *testing.T) {
	db := setupTestDB(t)
	p := NewLocalProvider(db)

	user, err := p.CreateUser("dave", "dave@example.com", "old", "Dave")
	require.NoError(t, err)
	require.NoError(t, p.ActivateUser(user.ID))

	require.ErrorIs(t, p.ChangePassword(user.ID, "wrong", "new"), ErrInvalidOldPassword)
	require.NoError(t, p.ChangePassword(user.ID, "old", "new"))

	_, err = p.Authenticate("dave", "new")
	require.NoError(t, err)
}

func TestDeleteUserCooldown(t *testing.T) {
	db := setupTestDB(t)
	p := NewLocalProvider(db)

	user, err := p.CreateUser("eve", "eve@example.com", "pw", "Eve")
	require.NoError(t, err)

	// enabled accounts are never deletable
	require.ErrorIs(t, p.DeleteUser(user.ID), ErrUserNotDeletable)

	// freshly disabled accounts must wait out the cooldown
	require.NoError(t, p.DisableUser(user.ID))
	require.ErrorIs(t, p.DeleteUser(user.ID), ErrUserNotDeletable)

	// re-enabling clears the disable timestamp
	require.NoError(t, p.EnableUser(user.ID))
	got, err := p.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DisabledAt)

	// backdate the disable beyond the cooldown and delete for real
	stale := time.Now().Add(-models.DeleteCooldown - time.Hour)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).
		Updates(map[string]interface{}{"enabled": false, "disabled_at": &stale}).Error)

	require.NoError(t, p.DeleteUser(user.ID))

	_, err = p.GetUserByID(user.ID)
	require.ErrorIs(t, err, ErrUserNotFound)
}
