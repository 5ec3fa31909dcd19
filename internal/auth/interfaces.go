package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/go-auth-starter/internal/account"
	"github.com/redmonkez12/go-auth-starter/internal/email"
)

// TokenService seals and opens session tokens.
// Implementations include PasetoService (PASETO v4.local) and JWTService (HS256).
type TokenService interface {
	CreateToken(sessionID string, accountID uuid.UUID, issuedAt, expiresAt time.Time) (string, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}

// AccountStore is satisfied by *account.Repository
type AccountStore interface {
	Create(ctx context.Context, email, name, passwordHash string) (*account.Account, error)
	CreateWithIdentity(ctx context.Context, acc *account.Account, provider, subject string) (*account.Account, error)
	GetByEmail(ctx context.Context, email string) (*account.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error)
	GetByIdentity(ctx context.Context, provider, subject string) (*account.Account, error)
	LinkIdentity(ctx context.Context, accountID uuid.UUID, provider, subject string) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateProfile(ctx context.Context, id uuid.UUID, name string, avatarURL *string) (*account.Account, error)
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error
}

// SessionStore persists sessions keyed by their id.
// Implementations: RedisSessionRepository and SessionRepository (Postgres).
type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteAllForAccount(ctx context.Context, accountID uuid.UUID) error
}

// ActionTokenStore keeps single-use tokens and OAuth state values
type ActionTokenStore interface {
	Store(ctx context.Context, purpose TokenPurpose, token string, accountID uuid.UUID, ttl time.Duration) error
	// Consume returns the account and deletes the token atomically
	Consume(ctx context.Context, purpose TokenPurpose, token string) (uuid.UUID, error)
	// Redeem returns the account and marks the token used without deleting it
	Redeem(ctx context.Context, purpose TokenPurpose, token string) (uuid.UUID, error)
	StoreState(ctx context.Context, state, provider string, ttl time.Duration) error
	ConsumeState(ctx context.Context, state string) (string, error)
}

// Dispatcher delivers templated emails. Satisfied by *email.Service.
type Dispatcher interface {
	Send(ctx context.Context, kind email.TemplateKind, to string, data email.TemplateData) error
}

// AssetVerifier confirms that an avatar reference points at an uploaded asset.
// A false result with nil error means the reference was rejected.
type AssetVerifier interface {
	VerifyAsset(ctx context.Context, ref string) (bool, error)
}

// IdentityProvider is an external OAuth2 sign-in provider
type IdentityProvider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*ExternalIdentity, error)
}
