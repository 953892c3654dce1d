package apiv1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/UrbanFix/app/controllers"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/authz"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/middleware"
)

// Handlers are the controllers served under /api/v1
type Handlers struct {
	Auth       *controllers.AuthController
	Complaints *controllers.ComplaintController
	Admin      *controllers.AdminController
	Contractor *controllers.ContractorController
}

// Route is one documented endpoint. Op names the gated operation; an empty Op
// marks session and lookup endpoints open to everyone.
type Route struct {
	Method  string
	Path    string
	Op      authz.Operation
	Handler fiber.Handler
}

// Routes lists every v1 endpoint
func Routes(h Handlers) []Route {
	return []Route{
		{fiber.MethodGet, "/ping", "", GetPing},

		{fiber.MethodPost, "/auth/signup", "", h.Auth.HandleSignup},
		{fiber.MethodPost, "/auth/login", "", h.Auth.HandleLogin},
		{fiber.MethodPost, "/auth/admin/login", "", h.Auth.HandleAdminLogin},
		{fiber.MethodPost, "/auth/contractor/login", "", h.Auth.HandleContractorLogin},
		{fiber.MethodPost, "/auth/logout", "", h.Auth.HandleLogout},
		{fiber.MethodGet, "/auth/me", "", h.Auth.HandleMe},

		{fiber.MethodGet, "/categories", "", h.Complaints.HandleCategories},
		{fiber.MethodGet, "/complaints/track/:reportID", authz.OpTrackComplaint, h.Complaints.HandleTrack},
		{fiber.MethodPost, "/complaints", authz.OpCreateComplaint, h.Complaints.HandleCreate},
		{fiber.MethodGet, "/complaints/mine", authz.OpListOwnComplaints, h.Complaints.HandleListOwn},

		{fiber.MethodGet, "/admin/dashboard", authz.OpViewDashboard, h.Admin.HandleDashboard},
		{fiber.MethodGet, "/admin/queue", authz.OpViewQueue, h.Admin.HandleQueue},
		{fiber.MethodGet, "/admin/complaints", authz.OpListComplaints, h.Admin.HandleComplaints},
		{fiber.MethodPut, "/admin/complaints/:reportID/assignment", authz.OpAssignComplaint, h.Admin.HandleAssign},
		{fiber.MethodDelete, "/admin/complaints/:reportID", authz.OpDeleteComplaint, h.Admin.HandleDeleteComplaint},
		{fiber.MethodGet, "/admin/contractors", authz.OpListContractors, h.Admin.HandleContractors},
		{fiber.MethodPost, "/admin/contractors", authz.OpCreateContractor, h.Admin.HandleCreateContractor},
		{fiber.MethodGet, "/admin/contractors/:id", authz.OpListContractors, h.Admin.HandleContractor},
		{fiber.MethodPut, "/admin/contractors/:id", authz.OpUpdateContractor, h.Admin.HandleUpdateContractor},
		{fiber.MethodDelete, "/admin/contractors/:id", authz.OpDeleteContractor, h.Admin.HandleDeleteContractor},
		{fiber.MethodGet, "/admin/users", authz.OpListUsers, h.Admin.HandleUsers},
		{fiber.MethodPost, "/admin/users/:id/toggle", authz.OpToggleUser, h.Admin.HandleToggleUser},

		{fiber.MethodGet, "/contractor/dashboard", authz.OpViewContractorSummary, h.Contractor.HandleDashboard},
		{fiber.MethodGet, "/contractor/complaints", authz.OpListAssignedComplaints, h.Contractor.HandleAssigned},
		{fiber.MethodPut, "/contractor/complaints/:reportID/status", authz.OpSetComplaintStatus, h.Contractor.HandleSetStatus},
	}
}

// RegisterHandlers mounts all v1 routes on router. Role gates come from the
// authz policy so routes and services share one table.
func RegisterHandlers(router fiber.Router, h Handlers) {
	for _, r := range Routes(h) {
		handlers := []fiber.Handler{r.Handler}
		if roles := authz.RolesFor(r.Op); len(roles) > 0 {
			handlers = append([]fiber.Handler{middleware.RequireRole(roles...)}, handlers...)
		}
		router.Add(r.Method, r.Path, handlers...)
	}
}

// Pong is the ping response
type Pong struct {
	Ping string `json:"ping"`
}

// GetPing handles the ping endpoint
func GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(Pong{Ping: "pong"})
}
