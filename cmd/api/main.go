package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	_ "github.com/redmonkez12/go-auth-starter/docs" // Swagger docs
	"github.com/redmonkez12/go-auth-starter/internal/account"
	"github.com/redmonkez12/go-auth-starter/internal/auth"
	"github.com/redmonkez12/go-auth-starter/internal/config"
	"github.com/redmonkez12/go-auth-starter/internal/database"
	"github.com/redmonkez12/go-auth-starter/internal/email"
	httpServer "github.com/redmonkez12/go-auth-starter/internal/http"
	"github.com/redmonkez12/go-auth-starter/internal/logging"
	"github.com/redmonkez12/go-auth-starter/internal/ratelimit"
	"github.com/redmonkez12/go-auth-starter/internal/storage"
)

// @title           Go Auth Starter
// @version         1.0
// @description     Account and session API: email/password and social sign-in, email verification, password reset and profiles.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.

const sessionCleanupInterval = time.Hour

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"token_format", cfg.Auth.TokenFormat,
		"session_store", cfg.Auth.SessionStore,
		"email_provider", cfg.Email.Provider,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, logger); err != nil {
			return err
		}
	}

	redisClient, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	tokenService, err := newTokenService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	sender, err := newEmailSender(cfg.Email, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize email sender: %w", err)
	}
	emailService, err := email.NewService(sender, cfg.Email.FrontendURL, cfg.Email.SupportEmail)
	if err != nil {
		return fmt.Errorf("failed to initialize email service: %w", err)
	}

	// Avatars fall back to syntax-only checks when no bucket is configured
	var (
		assets   auth.AssetVerifier = storage.URLVerifier{}
		uploader auth.AvatarUploader
	)
	if cfg.Storage.Enabled() {
		avatarStore, err := storage.NewAvatarStore(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to initialize avatar storage: %w", err)
		}
		assets = avatarStore
		uploader = avatarStore
	}

	authService, err := auth.NewService(
		account.NewRepository(db),
		newSessionStore(ctx, cfg.Auth, db, redisClient, logger),
		auth.NewTokenRepository(redisClient),
		tokenService,
		emailService,
		assets,
		logger,
		auth.ServiceConfig{
			SessionDuration:      cfg.Auth.SessionDuration,
			ActionTokenDuration:  cfg.Auth.ActionTokenDuration,
			OAuthStateDuration:   cfg.Auth.OAuthStateDuration,
			RequireVerifiedEmail: cfg.Auth.RequireVerifiedEmail,
		},
		auth.WithIdentityProviders(identityProviders(cfg.OAuth)...),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize auth service: %w", err)
	}
	logger.Info("identity providers configured", "providers", authService.Providers())

	cookies := auth.NewCookieConfig(cfg.Auth.CookieDomain, !cfg.Server.IsDevelopment(), cfg.Auth.CookieSameSite)
	router := httpServer.NewRouter(cfg, httpServer.Handlers{
		Auth:       auth.NewHandler(authService, ratelimit.NewLimiter(redisClient), cookies, cfg.Email.FrontendURL),
		Profile:    auth.NewProfileHandler(authService, uploader),
		Middleware: auth.NewMiddleware(authService),
	}, logger)

	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	// Verification emails queued by the last sign-ups
	authService.Wait()
	logger.Info("shutdown complete")

	return nil
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}

func newTokenService(cfg config.AuthConfig) (auth.TokenService, error) {
	if cfg.TokenFormat == config.TokenFormatJWT {
		return auth.NewJWTService([]byte(cfg.TokenKey))
	}
	return auth.NewPasetoService([]byte(cfg.TokenKey))
}

func newEmailSender(cfg config.EmailConfig, logger *logging.Logger) (email.Sender, error) {
	switch cfg.Provider {
	case config.EmailProviderPostmark:
		return email.NewPostmarkSender(cfg.PostmarkServerToken, cfg.PostmarkAccountToken, cfg.SenderEmail, cfg.SupportEmail)
	case config.EmailProviderSMTP:
		return email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SenderEmail)
	default:
		return email.NewLogSender(logger), nil
	}
}

// newSessionStore picks the session backend. The Postgres store gets a
// background sweep because rows do not expire on their own.
func newSessionStore(ctx context.Context, cfg config.AuthConfig, db *bun.DB, client *redis.Client, logger *logging.Logger) auth.SessionStore {
	if cfg.SessionStore != config.SessionStorePostgres {
		return auth.NewRedisSessionRepository(client)
	}

	store := auth.NewSessionRepository(db)
	go func() {
		ticker := time.NewTicker(sessionCleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := store.CleanupExpired(ctx)
				if err != nil {
					logger.Error("failed to clean up expired sessions", "error", err)
					continue
				}
				logger.Debug("expired sessions removed", "count", n)
			}
		}
	}()

	return store
}

func identityProviders(cfg config.OAuthConfig) []auth.IdentityProvider {
	var providers []auth.IdentityProvider
	if cfg.Google.Enabled() {
		providers = append(providers, auth.NewGoogleProvider(auth.OAuthClientConfig(cfg.Google)))
	}
	if cfg.GitHub.Enabled() {
		providers = append(providers, auth.NewGitHubProvider(auth.OAuthClientConfig(cfg.GitHub)))
	}
	return providers
}
