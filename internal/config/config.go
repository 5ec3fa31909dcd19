package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrInvalidTokenKey      = errors.New("AUTH_TOKEN_KEY must be exactly 32 bytes")
	ErrInvalidTokenFormat   = errors.New("AUTH_TOKEN_FORMAT must be one of: paseto, jwt")
	ErrInvalidSessionStore  = errors.New("SESSION_STORE must be one of: redis, postgres")
	ErrInvalidEmailProvider = errors.New("EMAIL_PROVIDER must be one of: postmark, smtp, log")
	ErrMissingEmailSettings = errors.New("email provider credentials are missing")
	ErrLogEmailOutsideDev   = errors.New("EMAIL_PROVIDER=log is only allowed when APP_ENV=dev")
	ErrInvalidDuration      = errors.New("durations must be positive")
)

const (
	TokenFormatPaseto = "paseto"
	TokenFormatJWT    = "jwt"

	SessionStoreRedis    = "redis"
	SessionStorePostgres = "postgres"

	EmailProviderPostmark = "postmark"
	EmailProviderSMTP     = "smtp"
	EmailProviderLog      = "log"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Email    EmailConfig
	OAuth    OAuthConfig
	Storage  StorageConfig
}

type ServerConfig struct {
	Port            string        `env:"SERVER_PORT" envDefault:"8080"`
	Env             string        `env:"APP_ENV" envDefault:"dev"` // dev or prod
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	TrustedOrigins  []string      `env:"TRUSTED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	// TrustProxy takes the client IP from X-Forwarded-For/X-Real-IP. Enable only behind a proxy that sets them.
	TrustProxy bool `env:"TRUST_PROXY" envDefault:"false"`
}

type DatabaseConfig struct {
	Host           string `env:"DB_HOST" envDefault:"localhost"`
	Port           string `env:"DB_PORT" envDefault:"5432"`
	User           string `env:"DB_USER" envDefault:"postgres"`
	Password       string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName         string `env:"DB_NAME" envDefault:"authstarter"`
	SSLMode        string `env:"DB_SSLMODE" envDefault:"disable"`
	ChannelBinding string `env:"DB_CHANNEL_BINDING"` // "require" for Neon DB, empty for local
	MaxOpenConns   int    `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns   int    `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	AutoMigrate    bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

type RedisConfig struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     string `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type AuthConfig struct {
	// TokenFormat selects how session tokens are sealed: paseto (v4.local) or jwt (HS256)
	TokenFormat string `env:"AUTH_TOKEN_FORMAT" envDefault:"paseto"`
	// TokenKey is the symmetric key for session tokens (32 bytes)
	TokenKey             string        `env:"AUTH_TOKEN_KEY"`
	SessionDuration      time.Duration `env:"SESSION_DURATION" envDefault:"168h"`
	ActionTokenDuration  time.Duration `env:"ACTION_TOKEN_DURATION" envDefault:"24h"`
	OAuthStateDuration   time.Duration `env:"OAUTH_STATE_DURATION" envDefault:"10m"`
	RequireVerifiedEmail bool          `env:"REQUIRE_VERIFIED_EMAIL" envDefault:"false"`
	// SessionStore selects where sessions live: redis or postgres
	SessionStore   string `env:"SESSION_STORE" envDefault:"redis"`
	CookieDomain   string `env:"COOKIE_DOMAIN"`
	CookieSameSite string `env:"COOKIE_SAMESITE" envDefault:"lax"`
}

type EmailConfig struct {
	Provider             string `env:"EMAIL_PROVIDER" envDefault:"log"`
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SMTPHost             string `env:"SMTP_HOST"`
	SMTPPort             string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser             string `env:"SMTP_USER"`
	SMTPPassword         string `env:"SMTP_PASS"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"no-reply@localhost"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@localhost"`
	FrontendURL          string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"` // Frontend URL for action links
}

type OAuthConfig struct {
	Google ProviderConfig `envPrefix:"GOOGLE_"`
	GitHub ProviderConfig `envPrefix:"GITHUB_"`
}

// ProviderConfig is enabled when ClientID is set
type ProviderConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"`
}

type StorageConfig struct {
	Bucket         string        `env:"S3_BUCKET"`
	Region         string        `env:"S3_REGION" envDefault:"us-east-1"`
	Endpoint       string        `env:"S3_ENDPOINT"`
	AccessKeyID    string        `env:"S3_ACCESS_KEY_ID"`
	SecretKey      string        `env:"S3_SECRET_KEY"`
	PublicBaseURL  string        `env:"S3_PUBLIC_BASE_URL"`
	ForcePathStyle bool          `env:"S3_FORCE_PATH_STYLE" envDefault:"false"`
	UploadURLTTL   time.Duration `env:"S3_UPLOAD_URL_TTL" envDefault:"15m"`
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express
func (c *Config) Validate() error {
	if len(c.Auth.TokenKey) != 32 {
		return fmt.Errorf("%w, got %d", ErrInvalidTokenKey, len(c.Auth.TokenKey))
	}

	switch c.Auth.TokenFormat {
	case TokenFormatPaseto, TokenFormatJWT:
	default:
		return ErrInvalidTokenFormat
	}

	durations := map[string]time.Duration{
		"SESSION_DURATION":      c.Auth.SessionDuration,
		"ACTION_TOKEN_DURATION": c.Auth.ActionTokenDuration,
		"OAUTH_STATE_DURATION":  c.Auth.OAuthStateDuration,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%w: %s is %s", ErrInvalidDuration, name, d)
		}
	}

	switch c.Auth.SessionStore {
	case SessionStoreRedis, SessionStorePostgres:
	default:
		return ErrInvalidSessionStore
	}

	switch c.Email.Provider {
	case EmailProviderLog:
		// The log sender prints action links, raw tokens included
		if !c.Server.IsDevelopment() {
			return ErrLogEmailOutsideDev
		}
	case EmailProviderPostmark:
		if c.Email.PostmarkServerToken == "" || c.Email.PostmarkAccountToken == "" {
			return fmt.Errorf("%w: POSTMARK_SERVER_TOKEN and POSTMARK_ACCOUNT_TOKEN are required", ErrMissingEmailSettings)
		}
	case EmailProviderSMTP:
		if c.Email.SMTPHost == "" {
			return fmt.Errorf("%w: SMTP_HOST is required", ErrMissingEmailSettings)
		}
	default:
		return ErrInvalidEmailProvider
	}

	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)

	// Add channel_binding if configured (required for Neon DB)
	if c.ChannelBinding != "" {
		connStr += fmt.Sprintf(" channel_binding=%s", c.ChannelBinding)
	}

	return connStr
}

// Address returns Redis connection address (host:port)
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if the environment is set to dev
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "dev"
}

// Enabled reports whether the provider has credentials configured
func (c ProviderConfig) Enabled() bool {
	return c.ClientID != ""
}

// Enabled reports whether avatar uploads go to object storage
func (c StorageConfig) Enabled() bool {
	return c.Bucket != ""
}
