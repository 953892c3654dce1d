package usercontext

import (
	"github.com/ManuelReschke/UrbanFix/internal/pkg/authz"
	"github.com/gofiber/fiber/v2"
)

// Set stores the actor of the current request
func Set(c *fiber.Ctx, actor authz.Actor) {
	c.Locals(KeyActor, actor)
}

// GetActor retrieves the actor from fiber context
// Returns Anonymous if none is set
func GetActor(c *fiber.Ctx) authz.Actor {
	if actor, ok := c.Locals(KeyActor).(authz.Actor); ok {
		return actor
	}
	return authz.Anonymous
}

// IsLoggedIn checks if the current actor is authenticated
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetActor(c).IsAuthenticated()
}

// GetUserID returns the current actor's ID, or 0 if not logged in
func GetUserID(c *fiber.Ctx) uint {
	return GetActor(c).ID
}
