package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/redmonkez12/go-auth-starter/internal/account"
)

// Providers lists the names of registered identity providers
func (s *Service) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// OAuthRedirect starts social sign-in: the browser is sent to URL and must
// come back carrying State before ExpiresAt
type OAuthRedirect struct {
	URL       string
	State     string
	ExpiresAt time.Time
}

// BeginOAuth stores a fresh CSRF state and returns the provider's consent URL
func (s *Service) BeginOAuth(ctx context.Context, providerName string) (*OAuthRedirect, error) {
	provider, ok := s.providers[providerName]
	if !ok {
		return nil, ErrUnknownProvider
	}

	state, err := generateRandomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate oauth state: %w", err)
	}

	if err := s.tokens.StoreState(ctx, state, provider.Name(), s.cfg.OAuthStateDuration); err != nil {
		return nil, err
	}

	return &OAuthRedirect{
		URL:       provider.AuthCodeURL(state),
		State:     state,
		ExpiresAt: s.now().Add(s.cfg.OAuthStateDuration),
	}, nil
}

// CompleteOAuth validates the callback state, exchanges the code and signs the user in
func (s *Service) CompleteOAuth(ctx context.Context, providerName, state, code string) (*Session, error) {
	provider, ok := s.providers[providerName]
	if !ok {
		return nil, ErrUnknownProvider
	}
	if state == "" || code == "" {
		return nil, ErrInvalidOrExpiredToken
	}

	issuer, err := s.tokens.ConsumeState(ctx, state)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, err
	}
	if issuer != provider.Name() {
		return nil, ErrInvalidOrExpiredToken
	}

	identity, err := provider.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("oauth exchange failed", "provider", providerName, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrProviderExchange, err)
	}

	return s.SignInWithIdentity(ctx, identity)
}

// SignInWithIdentity signs in the account linked to an external identity,
// creating it on first use. An existing account with the same email is linked
// only when both sides have verified that address; otherwise it is a conflict.
func (s *Service) SignInWithIdentity(ctx context.Context, identity *ExternalIdentity) (*Session, error) {
	acc, err := s.accounts.GetByIdentity(ctx, identity.Provider, identity.Subject)
	if err == nil {
		return s.issueSession(ctx, acc.ID)
	}
	if !errors.Is(err, account.ErrNotFound) {
		return nil, fmt.Errorf("failed to get account by identity: %w", err)
	}

	emailAddr, err := validateEmail(identity.Email)
	if err != nil {
		return nil, err
	}

	existing, err := s.accounts.GetByEmail(ctx, emailAddr)
	switch {
	case err == nil:
		return s.linkIdentity(ctx, existing, identity)
	case !errors.Is(err, account.ErrNotFound):
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	name, err := normalizeName(identity.Name)
	if err != nil {
		name, _, _ = strings.Cut(emailAddr, "@")
	}

	newAccount := &account.Account{
		Email:         emailAddr,
		Name:          name,
		EmailVerified: identity.EmailVerified,
	}
	if identity.AvatarURL != "" {
		avatar := identity.AvatarURL
		newAccount.AvatarURL = &avatar
	}

	acc, err = s.accounts.CreateWithIdentity(ctx, newAccount, identity.Provider, identity.Subject)
	switch {
	case errors.Is(err, account.ErrDuplicateEmail), errors.Is(err, account.ErrIdentityLinked):
		// A concurrent first sign-in of the same identity won the insert
		return s.signInRacedIdentity(ctx, identity)
	case err != nil:
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.Info("account created", "account_id", acc.ID, "provider", identity.Provider)
	return s.issueSession(ctx, acc.ID)
}

func (s *Service) linkIdentity(ctx context.Context, acc *account.Account, identity *ExternalIdentity) (*Session, error) {
	if !identity.EmailVerified || !acc.EmailVerified {
		return nil, ErrIdentityConflict
	}

	err := s.accounts.LinkIdentity(ctx, acc.ID, identity.Provider, identity.Subject)
	switch {
	case errors.Is(err, account.ErrIdentityLinked):
		return s.signInRacedIdentity(ctx, identity)
	case err != nil:
		return nil, fmt.Errorf("failed to link identity: %w", err)
	}

	s.logger.Info("identity linked", "account_id", acc.ID, "provider", identity.Provider)
	return s.issueSession(ctx, acc.ID)
}

// signInRacedIdentity re-reads the identity link after a unique-constraint
// failure. No link means the email belongs to someone else.
func (s *Service) signInRacedIdentity(ctx context.Context, identity *ExternalIdentity) (*Session, error) {
	acc, err := s.accounts.GetByIdentity(ctx, identity.Provider, identity.Subject)
	if errors.Is(err, account.ErrNotFound) {
		return nil, ErrIdentityConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by identity: %w", err)
	}
	return s.issueSession(ctx, acc.ID)
}
