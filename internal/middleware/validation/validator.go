package validation

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Config struct {
	MaxSearchLength int
	Logger          *zap.Logger
}

// Middleware bounds the free-text query parameters before they reach the
// filter builder. Every filter value is passed to SQL as a bound parameter
// downstream; this layer only rejects input that is abusive on size or
// contains NUL bytes.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxSearchLength == 0 {
		cfg.MaxSearchLength = 200
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		for _, param := range []string{"search", "role", "country"} {
			value := c.Query(param)
			if value == "" {
				continue
			}

			if len(value) > cfg.MaxSearchLength {
				cfg.Logger.Warn("Oversized query parameter rejected",
					zap.String("param", param),
					zap.Int("length", len(value)),
					zap.String("ip", c.IP()),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Query parameter exceeds maximum length",
				})
			}

			if strings.ContainsRune(value, '\x00') {
				cfg.Logger.Warn("Query parameter with NUL byte rejected",
					zap.String("param", param),
					zap.String("ip", c.IP()),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid query parameter",
				})
			}
		}

		return c.Next()
	}
}
