package auth

import (
	"errors"
	"fmt"

	"github.com/redmonkez12/go-auth-starter/internal/account"
)

// ErrValidation is wrapped by every input-validation error so callers can match the class
var ErrValidation = errors.New("validation failed")

var (
	ErrEmailRequired      = fmt.Errorf("%w: email is required", ErrValidation)
	ErrInvalidEmailFormat = fmt.Errorf("%w: invalid email format", ErrValidation)
	ErrNameRequired       = fmt.Errorf("%w: name is required", ErrValidation)
	ErrNameTooLong        = fmt.Errorf("%w: name must be at most %d characters", ErrValidation, maxNameLength)
	ErrPasswordTooLong    = fmt.Errorf("%w: password must be at most %d characters", ErrValidation, maxPasswordLength)
	ErrInvalidAvatarRef   = fmt.Errorf("%w: avatar must reference an uploaded image", ErrValidation)
)

var (
	ErrDuplicateEmail        = account.ErrDuplicateEmail
	ErrWeakCredential        = fmt.Errorf("password must be at least %d characters", minPasswordLength)
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrEmailNotVerified      = errors.New("email not verified, please check your inbox")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDispatch              = errors.New("failed to send email")
	ErrIdentityConflict      = errors.New("email already registered with a different sign-in method")
	ErrUnknownProvider       = errors.New("unknown identity provider")
	ErrProviderExchange      = errors.New("identity provider exchange failed")
)

// Store-level errors, never returned from Service methods
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTokenNotFound   = errors.New("token not found")
	ErrInvalidToken    = errors.New("invalid token")
)
