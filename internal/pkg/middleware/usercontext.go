package middleware

import (
	"context"

	"github.com/ManuelReschke/UrbanFix/internal/pkg/authz"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/session"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// ActiveCheck reports whether the account behind a session is still active.
type ActiveCheck func(ctx context.Context, id uint) (bool, error)

// UserContextMiddleware loads the session actor for every request. Actors whose
// role has an ActiveCheck are re-validated and treated as logged out once inactive.
// A failing check answers 503 and leaves the session in place.
func UserContextMiddleware(checks map[authz.Role]ActiveCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := session.GetActor(c)

		if check, ok := checks[actor.Role]; ok && actor.IsAuthenticated() {
			active, err := check(c.UserContext(), actor.ID)
			if err != nil {
				log.Errorf("[Session] Could not re-validate %s %d: %v", actor.Role, actor.ID, err)
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error":   "service_unavailable",
					"message": "could not verify account status, try again",
				})
			}
			if !active {
				log.Infof("[Session] Dropping session of inactive %s %d", actor.Role, actor.ID)
				if err := session.Clear(c); err != nil {
					log.Warnf("[Session] Could not clear session: %v", err)
				}
				actor = authz.Anonymous
			}
		}

		usercontext.Set(c, actor)
		return c.Next()
	}
}
