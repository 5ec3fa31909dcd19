package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TokenRepository handles action token and OAuth state storage in Redis.
// Only hashes of the raw values are used as keys.
type TokenRepository struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewTokenRepository creates a new token repository instance
func NewTokenRepository(client redis.UniversalClient) *TokenRepository {
	return &TokenRepository{client: client, now: time.Now}
}

// actionTokenKey generates a Redis key for a purpose-scoped action token
func actionTokenKey(purpose TokenPurpose, token string) string {
	return fmt.Sprintf("%s:%s", purpose, hashToken(token))
}

// oauthStateKey generates a Redis key for an OAuth state value
func oauthStateKey(state string) string {
	return fmt.Sprintf("oauth_state:%s", hashToken(state))
}

// Store saves an action token with the given TTL
func (r *TokenRepository) Store(ctx context.Context, purpose TokenPurpose, token string, accountID uuid.UUID, ttl time.Duration) error {
	key := actionTokenKey(purpose, token)

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, "account_id", accountID.String())
	pipe.Expire(ctx, key, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store %s token: %w", purpose, err)
	}

	return nil
}

// Consume returns the token's account and removes the token in one step
func (r *TokenRepository) Consume(ctx context.Context, purpose TokenPurpose, token string) (uuid.UUID, error) {
	key := actionTokenKey(purpose, token)

	pipe := r.client.TxPipeline()
	get := pipe.HGet(ctx, key, "account_id")
	pipe.Del(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return uuid.Nil, fmt.Errorf("failed to consume %s token: %w", purpose, err)
	}

	return parseAccountID(get.Val())
}

// Redeem returns the token's account and records the redemption.
// The token stays until it expires so repeated redemption is harmless.
func (r *TokenRepository) Redeem(ctx context.Context, purpose TokenPurpose, token string) (uuid.UUID, error) {
	key := actionTokenKey(purpose, token)

	accountIDStr, err := r.client.HGet(ctx, key, "account_id").Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrTokenNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to get %s token: %w", purpose, err)
	}

	accountID, err := parseAccountID(accountIDStr)
	if err != nil {
		return uuid.Nil, err
	}

	if err := r.client.HSetNX(ctx, key, "redeemed_at", r.now().Unix()).Err(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to redeem %s token: %w", purpose, err)
	}

	return accountID, nil
}

// StoreState saves an OAuth state bound to the provider that issued it
func (r *TokenRepository) StoreState(ctx context.Context, state, provider string, ttl time.Duration) error {
	if err := r.client.Set(ctx, oauthStateKey(state), provider, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store oauth state: %w", err)
	}
	return nil
}

// ConsumeState returns the provider for a state value and deletes it
func (r *TokenRepository) ConsumeState(ctx context.Context, state string) (string, error) {
	provider, err := r.client.GetDel(ctx, oauthStateKey(state)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to consume oauth state: %w", err)
	}
	return provider, nil
}

func parseAccountID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, ErrTokenNotFound
	}
	accountID, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, ErrTokenNotFound
	}
	return accountID, nil
}
