// Package ratelimit throttles repeated failed admin logins using Redis
// counters shared by every instance of the service.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	aghErrors "github.com/AdguardTeam/golibs/errors"
	"github.com/redis/go-redis/v9"
)

const (
	// ErrRateLimited is returned when the failed-attempt budget is spent.
	ErrRateLimited aghErrors.Error = "too many failed login attempts"

	// ErrUnavailable wraps Redis failures.
	ErrUnavailable aghErrors.Error = "rate limiter unavailable"
)

// LoginConfig configures a [Login] limiter.
type LoginConfig struct {
	// MaxAttempts is the number of failures allowed within Cooldown.
	MaxAttempts int

	// Cooldown is the length of the fixed counting window.
	Cooldown time.Duration

	// KeyPrefix namespaces the Redis keys.  Empty means "school".
	KeyPrefix string
}

// Login counts failed logins per username and per client IP.
type Login struct {
	redis  redis.UniversalClient
	config LoginConfig
}

func NewLogin(rdb redis.UniversalClient, c LoginConfig) *Login {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 15 * time.Minute
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "school"
	}
	return &Login{redis: rdb, config: c}
}

// Check returns [ErrRateLimited] when ip has used up its failure budget, or
// when username has and ip has failed at least once in the window.  A peer
// with a clean record can always try, so that failures aimed at a username
// from elsewhere do not lock its owner out.  An empty ip counts as failed.
func (l *Login) Check(ctx context.Context, username, ip string) error {
	limit := int64(l.config.MaxAttempts)

	var ipCount int64
	if ip != "" {
		n, err := l.count(ctx, l.ipKey(ip))
		if err != nil {
			return err
		}
		if n >= limit {
			return ErrRateLimited
		}
		ipCount = n
	}

	if username == "" || (ip != "" && ipCount == 0) {
		return nil
	}
	n, err := l.count(ctx, l.userKey(username))
	if err != nil {
		return err
	}
	if n >= limit {
		return ErrRateLimited
	}
	return nil
}

// count returns the current value of a counter, zero when it is unset.
func (l *Login) count(ctx context.Context, key string) (int64, error) {
	n, err := l.redis.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return n, nil
}

// Fail records a failed attempt.
func (l *Login) Fail(ctx context.Context, username, ip string) error {
	for _, key := range l.keys(username, ip) {
		count, err := l.redis.Incr(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		// Fixed window: the TTL is set by the first failure only.
		if count == 1 {
			if err := l.redis.Expire(ctx, key, l.config.Cooldown).Err(); err != nil {
				return fmt.Errorf("%w: %w", ErrUnavailable, err)
			}
		}
	}
	return nil
}

// Reset clears the counters after a successful login.
func (l *Login) Reset(ctx context.Context, username, ip string) error {
	keys := l.keys(username, ip)
	if len(keys) == 0 {
		return nil
	}
	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func (l *Login) keys(username, ip string) []string {
	keys := make([]string, 0, 2)
	if username != "" {
		keys = append(keys, l.userKey(username))
	}
	if ip != "" {
		keys = append(keys, l.ipKey(ip))
	}
	return keys
}

func (l *Login) userKey(username string) string {
	return l.config.KeyPrefix + ":login:user:" + strings.ToLower(username)
}

func (l *Login) ipKey(ip string) string {
	return l.config.KeyPrefix + ":login:ip:" + ip
}

// Nop never limits.  It is used when no Redis address is configured.
type Nop struct{}

func (Nop) Check(context.Context, string, string) error { return nil }
func (Nop) Fail(context.Context, string, string) error  { return nil }
func (Nop) Reset(context.Context, string, string) error { return nil }
