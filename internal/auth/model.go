package auth

import (
	"time"

	"github.com/google/uuid"
)

// Session is an authenticated context issued on sign-in.
// ID is the random handle sealed inside Token and is never serialized.
type Session struct {
	ID        string    `json:"-"`
	Token     string    `json:"token"`
	AccountID uuid.UUID `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// TokenClaims represents the claims sealed into a session token
type TokenClaims struct {
	SessionID string
	AccountID uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenPurpose scopes single-use action tokens
type TokenPurpose string

const (
	PurposePasswordReset     TokenPurpose = "password_reset"
	PurposeEmailVerification TokenPurpose = "email_verification"
)

// ExternalIdentity is what an identity provider asserts about a user
type ExternalIdentity struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	AvatarURL     string
}
