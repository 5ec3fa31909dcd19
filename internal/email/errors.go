package email

import "errors"

var (
	ErrSendFailed      = errors.New("failed to send email")
	ErrInvalidConfig   = errors.New("invalid email configuration")
	ErrUnknownTemplate = errors.New("unknown email template")
	ErrInvalidMessage  = errors.New("invalid email message")
)
