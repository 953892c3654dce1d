package router

import (
	"time"

	apiv1 "github.com/ManuelReschke/UrbanFix/internal/api/v1"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/env"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
	handlers Handlers
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        env.GetEnvInt("API_RATE_LIMIT", 120),
		Expiration: time.Minute,
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1")
	apiv1.RegisterHandlers(v1, apiv1.Handlers{
		Auth:       h.handlers.Auth,
		Complaints: h.handlers.Complaints,
		Admin:      h.handlers.Admin,
		Contractor: h.handlers.Contractor,
	})
}

func NewApiRouter(h Handlers) *ApiRouter {
	return &ApiRouter{handlers: h}
}
