package router

import (
	"github.com/ManuelReschke/UrbanFix/app/controllers"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/authz"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Handlers bundles the controllers and session checks the routers need.
type Handlers struct {
	Auth         *controllers.AuthController
	Complaints   *controllers.ComplaintController
	Admin        *controllers.AdminController
	Contractor   *controllers.ContractorController
	ActiveChecks map[authz.Role]middleware.ActiveCheck
}

func InstallRouter(app *fiber.App, h Handlers) {
	// HttpRouter installs the UserContext middleware the API routes depend on
	setup(app, NewHttpRouter(h), NewApiRouter(h))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
