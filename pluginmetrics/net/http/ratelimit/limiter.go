package ratelimit

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// Config bounds each client to Max requests per Window.
type Config struct {
	Max    int
	Window time.Duration
	// KeyHeader, when set, keys the budget by that header instead of the client IP.
	KeyHeader string
}

// New returns the limiter middleware, or nil when cfg.Max is not positive.
// storage may be nil to keep counters in process memory.
func New(cfg Config, storage fiber.Storage) fiber.Handler {
	if cfg.Max <= 0 {
		return nil
	}

	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}

	lc := limiter.Config{
		Max:        cfg.Max,
		Expiration: cfg.Window,
		KeyGenerator: func(c *fiber.Ctx) string {
			if cfg.KeyHeader != "" {
				if v := c.Get(cfg.KeyHeader); v != "" {
					return v
				}
			}

			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"code":    fiber.StatusTooManyRequests,
				"title":   "rate_limited",
				"message": "too many requests",
			})
		},
	}

	if storage != nil {
		lc.Storage = storage
	}

	return limiter.New(lc)
}
