package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// AdminAuthMiddleware admits requests carrying the admin token as a Bearer
// token, an X-Admin-Token header or a ?token= query. With no token
// configured every admin request is refused.
func AdminAuthMiddleware(expectedToken string, log *logrus.Entry) fiber.Handler {
	if expectedToken == "" {
		log.Warn("⚠️ ADMIN_TOKEN is not set, admin routes are disabled")
	}

	return func(c *fiber.Ctx) error {
		if expectedToken == "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":   "forbidden",
				"message": "admin access is disabled",
			})
		}

		token := adminToken(c)
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			log.WithField("path", c.Path()).Warn("🚫 [ADMIN_AUTH] rejected admin request")
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":   "forbidden",
				"message": "invalid admin token",
			})
		}
		return c.Next()
	}
}

func adminToken(c *fiber.Ctx) string {
	if auth := c.Get(fiber.HeaderAuthorization); auth != "" {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if t := c.Get("X-Admin-Token"); t != "" {
		return t
	}
	return c.Query("token")
}
