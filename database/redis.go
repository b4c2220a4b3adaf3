package database

import (
	"context"
	"fmt"
	"time"

	"PathLab/apperrors"
	"PathLab/config"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NewRedisClient creates a Redis client with the provided configuration
func NewRedisClient(ctx context.Context, url string, cfg config.RedisConfig, log *zap.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.PoolSize = cfg.PoolSize
	opt.MinIdleConns = cfg.MinIdleConns
	opt.DialTimeout = cfg.DialTimeout
	opt.ReadTimeout = cfg.ReadTimeout
	opt.MaxRetries = cfg.MaxRetries

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis server: %w", err)
	}

	log.Info("redis client initialized",
		zap.Int("pool_size", cfg.PoolSize),
		zap.Int("min_idle_conns", cfg.MinIdleConns),
		zap.Duration("dial_timeout", cfg.DialTimeout),
		zap.Duration("read_timeout", cfg.ReadTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
	)
	return client, nil
}

// LogPoolStats logs the connection pool statistics at debug level and
// returns them for the health endpoint.
func LogPoolStats(client *redis.Client, log *zap.Logger) *redis.PoolStats {
	stats := client.PoolStats()
	log.Debug("redis pool stats",
		zap.Uint32("total", stats.TotalConns),
		zap.Uint32("idle", stats.IdleConns),
		zap.Uint32("stale", stats.StaleConns),
		zap.Uint32("timeouts", stats.Timeouts),
	)
	return stats
}

const releaseLockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

var releaseScript = redis.NewScript(releaseLockScript)

// ErrLockHeld is returned when another request holds the lock after all
// retries.
var ErrLockHeld = &apperrors.Error{Kind: apperrors.KindConflict, Message: "another request is already processing this resource"}

// Locker hands out short-lived Redis locks (SET NX with an owner token).
type Locker struct {
	client     *redis.Client
	log        *zap.Logger
	ttl        time.Duration
	retries    int
	retryDelay time.Duration
}

func NewLocker(client *redis.Client, log *zap.Logger) *Locker {
	return &Locker{
		client:     client,
		log:        log,
		ttl:        10 * time.Second,
		retries:    3,
		retryDelay: 2 * time.Second,
	}
}

// WithRetry overrides the retry policy.
func (l *Locker) WithRetry(retries int, delay time.Duration) *Locker {
	cp := *l
	cp.retries = retries
	cp.retryDelay = delay
	return &cp
}

// Acquire tries once. The returned token is needed to release.
func (l *Locker) Acquire(ctx context.Context, key string) (string, bool, error) {
	token := uuid.New().String()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Release deletes the lock only if token still owns it.
func (l *Locker) Release(ctx context.Context, key, token string) error {
	result, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if result == 0 {
		return fmt.Errorf("lock release failed: not the lock owner")
	}
	return nil
}

// WithLock runs fn while holding key. A lock that stays held through every
// retry yields ErrLockHeld; a Redis failure is an infrastructure error.
func (l *Locker) WithLock(ctx context.Context, key string, fn func() error) error {
	var (
		token  string
		locked bool
		err    error
	)
	for i := 0; i < l.retries; i++ {
		token, locked, err = l.Acquire(ctx, key)
		if err == nil && locked {
			break
		}
		if i < l.retries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(l.retryDelay):
			}
		}
	}
	if err != nil {
		return apperrors.Infrastructure(err, "failed to acquire lock")
	}
	if !locked {
		return ErrLockHeld
	}
	defer func() {
		if err := l.Release(context.Background(), key, token); err != nil {
			l.log.Warn("failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}()

	return fn()
}
