package middleware

import (
	"github.com/ManuelReschke/UrbanFix/internal/pkg/authz"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
)

// RequireAuth rejects anonymous requests with JSON 401.
func RequireAuth(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	return c.Next()
}

// RequireRole lets only actors of the given roles through. Anonymous requests get 401,
// authenticated actors of another role 403.
func RequireRole(roles ...authz.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := usercontext.GetActor(c)
		if !actor.IsAuthenticated() {
			return RequireAuth(c)
		}
		for _, r := range roles {
			if actor.Role == r {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "insufficient permissions",
		})
	}
}
