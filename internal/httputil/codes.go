package httputil

// Machine-readable error codes returned in ErrorResponse.Code.
// Clients switch on these instead of parsing messages.
const (
	CodeInvalidRequestBody = "INVALID_REQUEST_BODY"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodeCooldownActive     = "COOLDOWN_ACTIVE"

	CodeEmailRequired      = "EMAIL_REQUIRED"
	CodeInvalidEmailFormat = "INVALID_EMAIL_FORMAT"
	CodeNameRequired       = "NAME_REQUIRED"
	CodeNameTooLong        = "NAME_TOO_LONG"
	CodePasswordTooShort   = "PASSWORD_TOO_SHORT"
	CodePasswordTooLong    = "PASSWORD_TOO_LONG"
	CodePasswordMismatch   = "PASSWORD_MISMATCH"
	CodeInvalidAvatar      = "INVALID_AVATAR"
	CodeUnsupportedMedia   = "UNSUPPORTED_MEDIA_TYPE"

	CodeEmailAlreadyExists = "EMAIL_ALREADY_EXISTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeEmailNotVerified   = "EMAIL_NOT_VERIFIED"
	CodeInvalidToken       = "INVALID_OR_EXPIRED_TOKEN"
	CodeTokenRequired      = "TOKEN_REQUIRED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidAuthHeader  = "INVALID_AUTH_HEADER"
	CodeEmailDispatch      = "EMAIL_DISPATCH_FAILED"

	CodeUnknownProvider  = "UNKNOWN_PROVIDER"
	CodeIdentityConflict = "IDENTITY_CONFLICT"
	CodeOAuthFailed      = "OAUTH_FAILED"
	CodeStorageDisabled  = "STORAGE_DISABLED"
)
