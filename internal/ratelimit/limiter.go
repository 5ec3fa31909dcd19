package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultIPMaxRequests = 10
	defaultIPWindow      = 15 * time.Minute
	defaultEmailCooldown = 2 * time.Minute
)

// Limits configures the limiter. Zero values fall back to the defaults
// (10 requests per 15 minutes per IP, 2 minutes between emails).
type Limits struct {
	IPMaxRequests int
	IPWindow      time.Duration
	EmailCooldown time.Duration
}

// Limiter keeps fixed-window request counters and email cooldowns in Redis
type Limiter struct {
	client redis.UniversalClient
	limits Limits
}

func NewLimiter(client redis.UniversalClient) *Limiter {
	return NewLimiterWithLimits(client, Limits{})
}

func NewLimiterWithLimits(client redis.UniversalClient, limits Limits) *Limiter {
	if limits.IPMaxRequests <= 0 {
		limits.IPMaxRequests = defaultIPMaxRequests
	}
	if limits.IPWindow <= 0 {
		limits.IPWindow = defaultIPWindow
	}
	if limits.EmailCooldown <= 0 {
		limits.EmailCooldown = defaultEmailCooldown
	}
	return &Limiter{client: client, limits: limits}
}

func ipKey(ip, purpose string) string {
	if purpose == "" {
		return fmt.Sprintf("ratelimit:ip:%s", ip)
	}
	return fmt.Sprintf("ratelimit:ip:%s:%s", purpose, ip)
}

// cooldownKey hashes the address so raw emails never land in Redis
func cooldownKey(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("ratelimit:email:%s", hex.EncodeToString(sum[:]))
}

// CheckIPRateLimit reports whether the IP has used up its shared budget
func (l *Limiter) CheckIPRateLimit(ctx context.Context, ip string) (bool, error) {
	return l.CheckIPRateLimitWithPurpose(ctx, ip, "")
}

// RecordIPRequest counts a request against the IP's shared budget
func (l *Limiter) RecordIPRequest(ctx context.Context, ip string) error {
	return l.RecordIPRequestWithPurpose(ctx, ip, "")
}

// CheckIPRateLimitWithPurpose reports whether the IP has used up the budget for purpose
func (l *Limiter) CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error) {
	count, err := l.client.Get(ctx, ipKey(ip, purpose)).Int()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get request count: %w", err)
	}
	return count >= l.limits.IPMaxRequests, nil
}

// RecordIPRequestWithPurpose counts a request. The window starts with the first request.
func (l *Limiter) RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error {
	key := ipKey(ip, purpose)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to increment request count: %w", err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, key, l.limits.IPWindow).Err(); err != nil {
			return fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return nil
}

// CheckEmailCooldown reports whether an email was sent to the address recently
func (l *Limiter) CheckEmailCooldown(ctx context.Context, email string) (bool, error) {
	n, err := l.client.Exists(ctx, cooldownKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check email cooldown: %w", err)
	}
	return n > 0, nil
}

// SetEmailCooldown starts the cooldown for the address
func (l *Limiter) SetEmailCooldown(ctx context.Context, email string) error {
	if err := l.client.Set(ctx, cooldownKey(email), "1", l.limits.EmailCooldown).Err(); err != nil {
		return fmt.Errorf("failed to set email cooldown: %w", err)
	}
	return nil
}
