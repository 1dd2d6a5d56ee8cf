package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"entitlement-api/pkg/logging"

	"github.com/redis/go-redis/v9"
)

// RateLimiter counts attempts per key within a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// NewRateLimiter returns a Redis-backed limiter when client is set and an
// in-process one otherwise.
func NewRateLimiter(client *redis.Client, maxAttempts int, window time.Duration) RateLimiter {
	if client != nil {
		return NewRedisRateLimiter(client, maxAttempts, window)
	}
	return NewMemoryRateLimiter(maxAttempts, window)
}

// RedisRateLimiter provides rate limiting shared across server processes
type RedisRateLimiter struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
}

func NewRedisRateLimiter(client *redis.Client, maxAttempts int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, maxAttempts: maxAttempts, window: window}
}

// Allow increments the attempt counter for key and reports whether it is
// still within the limit. The window starts at the first attempt.
func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("rate_limit:activation:%s", key)

	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := r.client.Expire(ctx, redisKey, r.window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(r.maxAttempts), nil
}

type attemptWindow struct {
	count   int
	resetAt time.Time
}

// MemoryRateLimiter keeps attempt counters in process memory
type MemoryRateLimiter struct {
	maxAttempts     int
	window          time.Duration
	attempts        map[string]*attemptWindow
	mutex           sync.Mutex
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
	now             func() time.Time
}

func NewMemoryRateLimiter(maxAttempts int, window time.Duration) *MemoryRateLimiter {
	rl := &MemoryRateLimiter{
		maxAttempts:     maxAttempts,
		window:          window,
		attempts:        make(map[string]*attemptWindow),
		cleanupInterval: window,
		stopCleanup:     make(chan struct{}),
		now:             time.Now,
	}

	go rl.startCleanupRoutine()

	return rl
}

func (rl *MemoryRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	w, ok := rl.attempts[key]
	if !ok || !now.Before(w.resetAt) {
		w = &attemptWindow{resetAt: now.Add(rl.window)}
		rl.attempts[key] = w
	}
	w.count++
	return w.count <= rl.maxAttempts, nil
}

func (rl *MemoryRateLimiter) startCleanupRoutine() {
	if rl.cleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanup drops windows that have already reset
func (rl *MemoryRateLimiter) cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	initialCount := len(rl.attempts)
	for key, w := range rl.attempts {
		if !now.Before(w.resetAt) {
			delete(rl.attempts, key)
		}
	}

	if cleaned := initialCount - len(rl.attempts); cleaned > 0 {
		logging.Debugf("Rate limiter cleanup: removed %d expired windows, remaining: %d", cleaned, len(rl.attempts))
	}
}

// Stop stops the cleanup goroutine
func (rl *MemoryRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}
