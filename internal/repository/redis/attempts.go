package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/port"
)

const defaultAttemptKeyPrefix = "portal:login_attempts"

// AttemptConfig defines configuration for the failed-attempt tracker.
type AttemptConfig struct {
	KeyPrefix string
	// Window is the rolling reset period. Every recorded failure
	// refreshes the expiry, so the counter only clears after the IP
	// stays quiet for a full window.
	Window time.Duration
}

// AttemptRepository tracks failed login attempts per source IP in
// Redis counters.
type AttemptRepository struct {
	client *redis.Client
	cfg    AttemptConfig
}

// NewAttemptRepository constructs a repository using the provided Redis client and config.
func NewAttemptRepository(client *redis.Client, cfg AttemptConfig) *AttemptRepository {
	if strings.TrimSpace(cfg.KeyPrefix) == "" {
		cfg.KeyPrefix = defaultAttemptKeyPrefix
	}
	return &AttemptRepository{client: client, cfg: cfg}
}

// Failures returns the live failure count for the IP, zero when no
// record exists or the previous one expired.
func (r *AttemptRepository) Failures(ctx context.Context, ip string) (int, error) {
	value, err := r.client.Get(ctx, r.key(ip)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get attempts: %w", err)
	}

	count, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parse attempt count: %w", err)
	}
	return count, nil
}

// RecordFailure increments the counter and refreshes the reset window.
func (r *AttemptRepository) RecordFailure(ctx context.Context, ip string) (int, error) {
	key := r.key(ip)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	if r.cfg.Window > 0 {
		pipe.Expire(ctx, key, r.cfg.Window)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis record attempt: %w", err)
	}

	return int(incr.Val()), nil
}

// Clear removes the record after a successful login.
func (r *AttemptRepository) Clear(ctx context.Context, ip string) error {
	if err := r.client.Del(ctx, r.key(ip)).Err(); err != nil {
		return fmt.Errorf("redis clear attempts: %w", err)
	}
	return nil
}

func (r *AttemptRepository) key(ip string) string {
	return fmt.Sprintf("%s:%s", r.cfg.KeyPrefix, ip)
}

var _ port.AttemptStore = (*AttemptRepository)(nil)
