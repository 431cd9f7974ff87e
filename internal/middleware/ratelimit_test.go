package middleware

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func TestMemoryCounterWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	counter := NewMemoryCounter()
	counter.now = func() time.Time { return now }

	for i := int64(1); i <= 3; i++ {
		count, _, _ := counter.Hit(context.Background(), "k", time.Minute)
		if count != i {
			t.Fatalf("hit %d: count = %d", i, count)
		}
	}

	now = now.Add(time.Minute)
	count, resetAt, _ := counter.Hit(context.Background(), "k", time.Minute)
	if count != 1 {
		t.Errorf("count after window = %d, want 1", count)
	}
	if !resetAt.Equal(now.Add(time.Minute)) {
		t.Errorf("resetAt = %v", resetAt)
	}
}

func TestRateLimitBlocksOverLimit(t *testing.T) {
	app := fiber.New()
	app.Post("/compare", RateLimit(NewMemoryCounter(), 2, time.Minute, nil), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	want := []int{fiber.StatusOK, fiber.StatusOK, fiber.StatusTooManyRequests}
	for i, status := range want {
		resp, err := app.Test(httptest.NewRequest("POST", "/compare", nil))
		if err != nil {
			t.Fatalf("app.Test() error = %v", err)
		}
		if resp.StatusCode != status {
			t.Errorf("request %d: status = %d, want %d", i+1, resp.StatusCode, status)
		}
		if i == 2 && resp.Header.Get("Retry-After") == "" {
			t.Error("expected Retry-After on a limited response")
		}
	}
}

type failingCounter struct{}

func (failingCounter) Hit(context.Context, string, time.Duration) (int64, time.Time, error) {
	return 0, time.Time{}, errors.New("redis down")
}

func TestRateLimitFailsOpen(t *testing.T) {
	app := fiber.New()
	app.Post("/compare", RateLimit(failingCounter{}, 1, time.Minute, nil), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("POST", "/compare", nil))
		if err != nil {
			t.Fatalf("app.Test() error = %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
	}
}
