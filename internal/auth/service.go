package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/redmonkez12/go-auth-starter/internal/account"
	"github.com/redmonkez12/go-auth-starter/internal/email"
	"github.com/redmonkez12/go-auth-starter/internal/logging"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
	maxNameLength     = 100
	maxEmailLength    = 254
)

// ServiceConfig holds the lifetimes and policies of the credential service
type ServiceConfig struct {
	SessionDuration      time.Duration
	ActionTokenDuration  time.Duration
	OAuthStateDuration   time.Duration
	RequireVerifiedEmail bool
}

// Service handles authentication business logic
type Service struct {
	accounts     AccountStore
	sessions     SessionStore
	tokens       ActionTokenStore
	tokenService TokenService
	dispatcher   Dispatcher
	assets       AssetVerifier
	hasher       *PasswordHasher
	providers    map[string]IdentityProvider
	logger       *logging.Logger
	cfg          ServiceConfig
	now          func() time.Time

	// dummyHash is compared against when no account matches, so sign-in
	// costs the same whether or not the email is registered
	dummyHash string
	pending   sync.WaitGroup
}

type Option func(*Service)

// WithPasswordHasher overrides the default argon2id parameters
func WithPasswordHasher(h *PasswordHasher) Option {
	return func(s *Service) { s.hasher = h }
}

// WithIdentityProviders registers providers for social sign-in
func WithIdentityProviders(providers ...IdentityProvider) Option {
	return func(s *Service) {
		for _, p := range providers {
			s.providers[p.Name()] = p
		}
	}
}

func NewService(
	accounts AccountStore,
	sessions SessionStore,
	tokens ActionTokenStore,
	tokenService TokenService,
	dispatcher Dispatcher,
	assets AssetVerifier,
	logger *logging.Logger,
	cfg ServiceConfig,
	opts ...Option,
) (*Service, error) {
	s := &Service{
		accounts:     accounts,
		sessions:     sessions,
		tokens:       tokens,
		tokenService: tokenService,
		dispatcher:   dispatcher,
		assets:       assets,
		hasher:       NewPasswordHasher(),
		providers:    make(map[string]IdentityProvider),
		logger:       logger,
		cfg:          cfg,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	secret, err := generateRandomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate dummy secret: %w", err)
	}
	s.dummyHash, err = s.hasher.Hash(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to compute dummy hash: %w", err)
	}

	return s, nil
}

// SignUp creates an account and an authenticated session.
// The verification email is best-effort: a dispatch failure is logged only.
func (s *Service) SignUp(ctx context.Context, name, emailAddr, password string) (*Session, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	emailAddr, err = validateEmail(emailAddr)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	acc, err := s.accounts.Create(ctx, emailAddr, name, passwordHash)
	if err != nil {
		if errors.Is(err, account.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.sendVerificationAsync(ctx, acc)

	session, err := s.issueSession(ctx, acc.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account created", "account_id", acc.ID)
	return session, nil
}

// SignIn checks credentials and issues a new session.
// Both unknown email and wrong password return ErrInvalidCredentials.
func (s *Service) SignIn(ctx context.Context, emailAddr, password string) (*Session, error) {
	emailAddr = account.NormalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	acc, err := s.accounts.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			s.hasher.Verify(s.dummyHash, password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if !acc.HasPassword() {
		s.hasher.Verify(s.dummyHash, password)
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(acc.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	if s.cfg.RequireVerifiedEmail && !acc.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	return s.issueSession(ctx, acc.ID)
}

// SignOut invalidates the session behind token.
// Unknown, malformed and expired tokens are treated as already signed out.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.tokenService.VerifyToken(token)
	if err != nil {
		return nil
	}

	if err := s.sessions.Delete(ctx, claims.SessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ResolveSession maps a bearer token to its live session and account
func (s *Service) ResolveSession(ctx context.Context, token string) (*Session, *account.Account, error) {
	if token == "" {
		return nil, nil, ErrUnauthorized
	}

	claims, err := s.tokenService.VerifyToken(token)
	if err != nil {
		return nil, nil, ErrUnauthorized
	}

	session, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, nil, ErrUnauthorized
		}
		return nil, nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.AccountID != claims.AccountID {
		return nil, nil, ErrUnauthorized
	}

	acc, err := s.accounts.GetByID(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			if delErr := s.sessions.Delete(ctx, session.ID); delErr != nil {
				s.logger.Warn("failed to delete orphaned session", "error", delErr)
			}
			return nil, nil, ErrUnauthorized
		}
		return nil, nil, fmt.Errorf("failed to get account: %w", err)
	}

	session.Token = token
	return session, acc, nil
}

// RequestPasswordReset sends a reset link when the email belongs to an account.
// An unknown email reports success without creating a token so the response
// does not reveal whether an account exists. Transport failures return ErrDispatch.
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	emailAddr, err := validateEmail(emailAddr)
	if err != nil {
		return err
	}

	acc, err := s.accounts.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			s.logger.Debug("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("failed to get account: %w", err)
	}

	token, err := s.storeActionToken(ctx, PurposePasswordReset, acc.ID)
	if err != nil {
		return err
	}

	return s.dispatch(ctx, email.TemplateResetPassword, acc, token)
}

// ResetPassword replaces the credential of the account bound to a reset token
// and revokes all of its sessions. The token is consumed before the write.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrInvalidOrExpiredToken
	}
	// Policy is checked first so a rejected password does not burn the token
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	accountID, err := s.tokens.Consume(ctx, PurposePasswordReset, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("failed to consume reset token: %w", err)
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.accounts.UpdatePassword(ctx, accountID, passwordHash); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.sessions.DeleteAllForAccount(ctx, accountID); err != nil {
		s.logger.Error("failed to revoke sessions after password reset", "account_id", accountID, "error", err)
	}

	s.logger.Info("password reset", "account_id", accountID)
	return nil
}

// VerifyEmail marks the account bound to the token as verified.
// Repeating the call with the same unexpired token succeeds.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidOrExpiredToken
	}

	accountID, err := s.tokens.Redeem(ctx, PurposeEmailVerification, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("failed to redeem verification token: %w", err)
	}

	if err := s.accounts.MarkEmailVerified(ctx, accountID); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("failed to verify email: %w", err)
	}

	return nil
}

// ResendVerificationEmail issues a fresh verification link.
// Unknown and already verified emails are silently ignored.
func (s *Service) ResendVerificationEmail(ctx context.Context, emailAddr string) error {
	emailAddr, err := validateEmail(emailAddr)
	if err != nil {
		return err
	}

	acc, err := s.accounts.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get account: %w", err)
	}
	if acc.EmailVerified {
		return nil
	}

	token, err := s.storeActionToken(ctx, PurposeEmailVerification, acc.ID)
	if err != nil {
		return err
	}

	return s.dispatch(ctx, email.TemplateVerifyEmail, acc, token)
}

// UpdateProfile sets the display name and avatar of the session's account.
// A nil or empty avatarRef clears the avatar. Passing the current avatar keeps it
// without re-verification.
func (s *Service) UpdateProfile(ctx context.Context, session *Session, name string, avatarRef *string) (*account.Account, error) {
	if session == nil {
		return nil, ErrUnauthorized
	}

	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	current, err := s.accounts.GetByID(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	avatar, err := s.resolveAvatar(ctx, current.AvatarURL, avatarRef)
	if err != nil {
		return nil, err
	}

	updated, err := s.accounts.UpdateProfile(ctx, session.AccountID, name, avatar)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return updated, nil
}

// Wait blocks until in-flight best-effort emails have been handed off
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) resolveAvatar(ctx context.Context, current, requested *string) (*string, error) {
	if requested == nil {
		return nil, nil
	}
	ref := strings.TrimSpace(*requested)
	if ref == "" {
		return nil, nil
	}
	if current != nil && *current == ref {
		return current, nil
	}

	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return nil, ErrInvalidAvatarRef
	}

	ok, err := s.assets.VerifyAsset(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to verify avatar: %w", err)
	}
	if !ok {
		return nil, ErrInvalidAvatarRef
	}

	return &ref, nil
}

func (s *Service) issueSession(ctx context.Context, accountID uuid.UUID) (*Session, error) {
	sessionID, err := generateRandomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	now := s.now()
	session := &Session{
		ID:        sessionID,
		AccountID: accountID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.SessionDuration),
	}

	session.Token, err = s.tokenService.CreateToken(session.ID, accountID, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session token: %w", err)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	return session, nil
}

func (s *Service) storeActionToken(ctx context.Context, purpose TokenPurpose, accountID uuid.UUID) (string, error) {
	token, err := generateRandomToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate %s token: %w", purpose, err)
	}

	if err := s.tokens.Store(ctx, purpose, token, accountID, s.cfg.ActionTokenDuration); err != nil {
		return "", fmt.Errorf("failed to store %s token: %w", purpose, err)
	}

	return token, nil
}

func (s *Service) dispatch(ctx context.Context, kind email.TemplateKind, acc *account.Account, token string) error {
	err := s.dispatcher.Send(ctx, kind, acc.Email, email.TemplateData{
		Username:  acc.Name,
		Email:     acc.Email,
		Token:     token,
		ExpiresIn: s.cfg.ActionTokenDuration,
	})
	if err != nil {
		s.logger.Error("failed to send email", "template", kind, "account_id", acc.ID, "error", err)
		return fmt.Errorf("%w: %v", ErrDispatch, err)
	}
	return nil
}

// sendVerificationAsync never fails the caller. The user can request a new
// verification email later.
func (s *Service) sendVerificationAsync(ctx context.Context, acc *account.Account) {
	token, err := s.storeActionToken(ctx, PurposeEmailVerification, acc.ID)
	if err != nil {
		s.logger.Warn("failed to create verification token", "account_id", acc.ID, "error", err)
		return
	}

	emailCtx := context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		_ = s.dispatch(emailCtx, email.TemplateVerifyEmail, acc, token)
	}()
}

// validateEmail returns the normalized address
func validateEmail(emailAddr string) (string, error) {
	emailAddr = account.NormalizeEmail(emailAddr)
	if emailAddr == "" {
		return "", ErrEmailRequired
	}
	if len(emailAddr) > maxEmailLength {
		return "", ErrInvalidEmailFormat
	}

	// Reject display-name forms like "Ada <ada@example.com>"
	parsed, err := mail.ParseAddress(emailAddr)
	if err != nil || parsed.Address != emailAddr {
		return "", ErrInvalidEmailFormat
	}

	return emailAddr, nil
}

func validatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLength {
		return ErrWeakCredential
	}
	if n > maxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// normalizeName trims and NFC-normalizes a display name
func normalizeName(name string) (string, error) {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return "", ErrNameRequired
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", ErrNameTooLong
	}
	return name, nil
}
