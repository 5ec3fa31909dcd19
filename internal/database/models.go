package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the persisted user record
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID            uuid.UUID `bun:"id,pk,type:uuid"`
	Email         string    `bun:"email,notnull,unique"`
	Name          string    `bun:"name,notnull"`
	AvatarURL     *string   `bun:"avatar_url"`
	PasswordHash  string    `bun:"password_hash,notnull"`
	EmailVerified bool      `bun:"email_verified,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
}

// IdentityLink ties an account to a subject at an external identity provider
type IdentityLink struct {
	bun.BaseModel `bun:"table:identity_links,alias:il"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	AccountID uuid.UUID `bun:"account_id,notnull,type:uuid"`
	Provider  string    `bun:"provider,notnull,unique:provider_subject"`
	Subject   string    `bun:"subject,notnull,unique:provider_subject"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// Session is a persisted sign-in. Only the hash of the session id is stored.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	IDHash    string    `bun:"id_hash,pk"`
	AccountID uuid.UUID `bun:"account_id,notnull,type:uuid"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
}
