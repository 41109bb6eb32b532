package auth

import "errors"

var (
	// ErrInvalidOldPassword is returned when the provided old password does not match the user's current password.
	ErrInvalidOldPassword = errors.New("invalid old password")

	// ErrUserNameOrEmailExists is returned when attempting to create a user with a username or email that already exists.
	ErrUserNameOrEmailExists = errors.New("user with username or email already exists")

	// ErrUserAccountDisabled is returned when attempting to authenticate a disabled user account.
	ErrUserAccountDisabled = errors.New("user account is disabled")

	// ErrUserNotActivated is returned when attempting to authenticate an account that never finished activation.
	ErrUserNotActivated = errors.New("user account is not activated")

	// ErrInvalidPassword is returned when the provided password is incorrect during authentication.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrUserNotFound is returned when a user cannot be found in the database.
	ErrUserNotFound = errors.New("user not found")

	// ErrAnonymousReserved is returned when an operation targets the reserved anonymous sentinel account.
	ErrAnonymousReserved = errors.New("the anonymous account is reserved")

	// ErrUserNotDeletable is returned when deleting a user that is still enabled
	// or whose disable cooldown has not elapsed yet.
	ErrUserNotDeletable = errors.New("user is not deletable yet")
)
