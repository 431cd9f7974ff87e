package middleware

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// WindowCounter counts hits for a key within a fixed window
type WindowCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

// RedisCounter shares rate-limit windows across instances
type RedisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (r *RedisCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, time.Time{}, err
	}

	// First request opens the window
	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, time.Time{}, err
		}
		return count, time.Now().Add(window), nil
	}

	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, time.Time{}, err
	}
	if ttl < 0 {
		// Lost its expiry; never let a key live forever
		r.client.Expire(ctx, key, window)
		ttl = window
	}
	return count, time.Now().Add(ttl), nil
}

// MemoryCounter is a single-instance fallback when Redis is not configured
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]memoryWindow
	now     func() time.Time
}

type memoryWindow struct {
	count   int64
	resetAt time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{windows: make(map[string]memoryWindow), now: time.Now}
}

func (m *MemoryCounter) Hit(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		// Sweep stale windows opportunistically
		if len(m.windows) > 10000 {
			for k, old := range m.windows {
				if !now.Before(old.resetAt) {
					delete(m.windows, k)
				}
			}
		}
		w = memoryWindow{resetAt: now.Add(window)}
	}
	w.count++
	m.windows[key] = w
	return w.count, w.resetAt, nil
}

// RateLimit allows max requests per window for each caller, keyed by user
// id when authenticated and by IP otherwise. Counter errors fail open.
func RateLimit(counter WindowCounter, max int, window time.Duration, logger *slog.Logger) fiber.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *fiber.Ctx) error {
		if max <= 0 || counter == nil {
			return c.Next()
		}

		caller := "ip:" + c.IP()
		if userID := GetUserID(c); userID != "" {
			caller = "user:" + userID
		}
		key := "rl:" + caller + ":" + c.Method() + ":" + c.Route().Path

		count, resetAt, err := counter.Hit(c.UserContext(), key, window)
		if err != nil {
			logger.Warn("rate limiter unavailable", "key", key, "error", err)
			return c.Next()
		}

		remaining := int64(max) - count
		if remaining < 0 {
			remaining = 0
		}
		resetIn := int(time.Until(resetAt).Seconds())
		if resetIn < 0 {
			resetIn = 0
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(max))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Set("X-RateLimit-Reset", strconv.Itoa(resetIn))

		if count > int64(max) {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(resetIn))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "too many requests",
			})
		}
		return c.Next()
	}
}
