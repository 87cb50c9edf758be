package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimit creates a per-candidate rate limiter, keyed by candidate id when
// authenticated and client IP otherwise.
func RateLimit(identifier string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			candidateID := fmt.Sprintf("%v", c.Locals("candidate_id"))
			if candidateID == "" || candidateID == "0" || candidateID == "<nil>" {
				candidateID = c.IP()
			}
			return fmt.Sprintf("%s:%s", identifier, candidateID)
		},
	})
}
