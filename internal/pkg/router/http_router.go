package router

import (
	"github.com/ManuelReschke/UrbanFix/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
)

type HttpRouter struct {
	handlers Handlers
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware(h.handlers.ActiveChecks))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}

func NewHttpRouter(h Handlers) *HttpRouter {
	return &HttpRouter{handlers: h}
}
