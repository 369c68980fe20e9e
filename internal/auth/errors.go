package auth

import "errors"

// Domain errors for the auth package, checked with errors.Is().
var (
	// ErrUserNotFound is returned when a user id or username does not exist.
	ErrUserNotFound = errors.New("auth: user not found")

	// ErrUsernameExists is returned when creating a user with a taken username.
	ErrUsernameExists = errors.New("auth: username already exists")

	// ErrInvalidCredentials is returned when a login attempt fails.
	// It deliberately does not distinguish unknown user from wrong password.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrUserDisabled is returned when an inactive account attempts to log in.
	ErrUserDisabled = errors.New("auth: account disabled")

	// ErrTokenInvalid is returned when an access token fails validation.
	ErrTokenInvalid = errors.New("auth: invalid token")
)
