package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

// CronSecret guards the dispatch trigger with a shared-secret header. An
// empty configured secret disables the check, matching how the trigger is
// deployed in environments where the scheduler cannot set headers.
func CronSecret(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret != "" {
			provided := c.Get("x-cron-secret")
			if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Unauthorized",
				})
			}
		}
		return c.Next()
	}
}
