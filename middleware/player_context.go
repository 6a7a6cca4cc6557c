package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// PlayerIDLocal is the Locals key holding the gateway-supplied player id.
const PlayerIDLocal = "player_id"

// PlayerContextMiddleware copies the X-Player-ID header set by a gateway
// into the request locals. Requests without it pass through untouched.
func PlayerContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id := strings.TrimSpace(c.Get("X-Player-ID")); id != "" {
			c.Locals(PlayerIDLocal, id)
		}
		return c.Next()
	}
}

// PlayerID returns the explicit id when set, falling back to the gateway
// header.
func PlayerID(c *fiber.Ctx, explicit string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	if id, ok := c.Locals(PlayerIDLocal).(string); ok {
		return id
	}
	return ""
}
