package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisSessionRepository handles session persistence in Redis
type RedisSessionRepository struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedisSessionRepository(client redis.UniversalClient) *RedisSessionRepository {
	return &RedisSessionRepository{client: client, now: time.Now}
}

// getSessionKey generates the Redis key for a session
func getSessionKey(idHash string) string {
	return fmt.Sprintf("session:%s", idHash)
}

// getAccountSessionsKey generates the Redis key for an account's session set
func getAccountSessionsKey(accountID uuid.UUID) string {
	return fmt.Sprintf("account_sessions:%s", accountID.String())
}

// Create stores a session with a TTL matching its expiry
func (r *RedisSessionRepository) Create(ctx context.Context, session *Session) error {
	idHash := hashToken(session.ID)
	sessionKey := getSessionKey(idHash)
	accountKey := getAccountSessionsKey(session.AccountID)

	ttl := session.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("session expiration time is in the past")
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, sessionKey, map[string]any{
		"account_id": session.AccountID.String(),
		"expires_at": session.ExpiresAt.Unix(),
		"created_at": session.CreatedAt.Unix(),
	})
	pipe.Expire(ctx, sessionKey, ttl)

	// The set lives as long as the newest session
	pipe.SAdd(ctx, accountKey, idHash)
	pipe.Expire(ctx, accountKey, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	return nil
}

// Get retrieves a live session by its id
func (r *RedisSessionRepository) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := r.client.HGetAll(ctx, getSessionKey(hashToken(sessionID))).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if len(data) == 0 {
		return nil, ErrSessionNotFound
	}

	accountID, err := uuid.Parse(data["account_id"])
	if err != nil {
		return nil, ErrSessionNotFound
	}
	expiresAt, err := parseUnix(data["expires_at"])
	if err != nil {
		return nil, ErrSessionNotFound
	}
	createdAt, err := parseUnix(data["created_at"])
	if err != nil {
		return nil, ErrSessionNotFound
	}

	session := &Session{
		ID:        sessionID,
		AccountID: accountID,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}
	if session.IsExpired(r.now()) {
		return nil, ErrSessionNotFound
	}

	return session, nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (r *RedisSessionRepository) Delete(ctx context.Context, sessionID string) error {
	idHash := hashToken(sessionID)
	sessionKey := getSessionKey(idHash)

	accountIDStr, err := r.client.HGet(ctx, sessionKey, "account_id").Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKey)
	if accountID, err := uuid.Parse(accountIDStr); err == nil {
		pipe.SRem(ctx, getAccountSessionsKey(accountID), idHash)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// DeleteAllForAccount removes every session belonging to the account
func (r *RedisSessionRepository) DeleteAllForAccount(ctx context.Context, accountID uuid.UUID) error {
	accountKey := getAccountSessionsKey(accountID)

	idHashes, err := r.client.SMembers(ctx, accountKey).Result()
	if err != nil {
		return fmt.Errorf("failed to get account sessions: %w", err)
	}

	keys := make([]string, 0, len(idHashes)+1)
	for _, idHash := range idHashes {
		keys = append(keys, getSessionKey(idHash))
	}
	keys = append(keys, accountKey)

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete account sessions: %w", err)
	}

	return nil
}

func parseUnix(s string) (time.Time, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(v, 0), nil
}
