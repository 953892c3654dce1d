package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/ManuelReschke/UrbanFix/app/repository"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/account"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/apperror"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/authz"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/complaint"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/contractor"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/jobqueue"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/statistics"
	"github.com/gofiber/fiber/v2"
)

// QueueStats exposes the event queue counters.
type QueueStats interface {
	Stats(ctx context.Context) (*jobqueue.Stats, error)
}

// AdminController handles complaint triage, contractor and user management
type AdminController struct {
	complaints  *complaint.Service
	contractors *contractor.Service
	accounts    *account.Service
	stats       *statistics.Service
	queue       QueueStats
	photos      PhotoURLer
}

func NewAdminController(complaints *complaint.Service, contractors *contractor.Service, accounts *account.Service,
	stats *statistics.Service, queue QueueStats, photos PhotoURLer) *AdminController {
	return &AdminController{
		complaints:  complaints,
		contractors: contractors,
		accounts:    accounts,
		stats:       stats,
		queue:       queue,
		photos:      photos,
	}
}

// HandleComplaints lists complaints with filters and pagination
func (ac *AdminController) HandleComplaints(c *fiber.Ctx) error {
	offset, limit := pageQuery(c)
	page, err := ac.complaints.List(c.UserContext(), currentActor(c), repository.ComplaintFilter{
		Category:   strings.ToLower(strings.TrimSpace(c.Query("category"))),
		Status:     strings.ToLower(strings.TrimSpace(c.Query("status"))),
		Contractor: strings.TrimSpace(c.Query("contractor")),
		Search:     strings.TrimSpace(c.Query("q")),
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"items":  newComplaintViews(page.Items, ac.photos),
		"total":  page.Total,
		"offset": page.Offset,
		"limit":  page.Limit,
	})
}

// parseAssignment reads {"contractor_id": <id>|null}. Only an explicit null unassigns.
func parseAssignment(body []byte) (*uint, bool) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, false
	}
	value, ok := raw["contractor_id"]
	if !ok {
		return nil, false
	}
	if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
		return nil, true
	}
	var id uint
	if err := json.Unmarshal(value, &id); err != nil || id == 0 {
		return nil, false
	}
	return &id, true
}

// HandleAssign assigns or, with a null contractor_id, unassigns a complaint
func (ac *AdminController) HandleAssign(c *fiber.Ctx) error {
	contractorID, ok := parseAssignment(c.Body())
	if !ok {
		return badRequest(c, "contractor_id must be a contractor id or null")
	}
	updated, err := ac.complaints.AdminSetAssignment(c.UserContext(), currentActor(c), c.Params("reportID"), contractorID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(newComplaintView(updated, ac.photos))
}

func (ac *AdminController) HandleDeleteComplaint(c *fiber.Ctx) error {
	if err := ac.complaints.Delete(c.UserContext(), currentActor(c), c.Params("reportID")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleContractors lists contractors with their assigned task counts
func (ac *AdminController) HandleContractors(c *fiber.Ctx) error {
	if c.QueryBool("active") {
		items, err := ac.contractors.ListActive(c.UserContext(), currentActor(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"items": items})
	}
	items, err := ac.contractors.List(c.UserContext(), currentActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"items": items})
}

func (ac *AdminController) HandleContractor(c *fiber.Ctx) error {
	id, ok := uintParam(c, "id")
	if !ok {
		return respondError(c, apperror.NotFound("contractor %q not found", c.Params("id")))
	}
	item, err := ac.contractors.Get(c.UserContext(), currentActor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

func (ac *AdminController) HandleCreateContractor(c *fiber.Ctx) error {
	var in contractor.Input
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	created, err := ac.contractors.Create(c.UserContext(), currentActor(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (ac *AdminController) HandleUpdateContractor(c *fiber.Ctx) error {
	id, ok := uintParam(c, "id")
	if !ok {
		return respondError(c, apperror.NotFound("contractor %q not found", c.Params("id")))
	}
	var in contractor.Input
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	updated, err := ac.contractors.Update(c.UserContext(), currentActor(c), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(updated)
}

func (ac *AdminController) HandleDeleteContractor(c *fiber.Ctx) error {
	id, ok := uintParam(c, "id")
	if !ok {
		return respondError(c, apperror.NotFound("contractor %q not found", c.Params("id")))
	}
	if err := ac.contractors.Delete(c.UserContext(), currentActor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleUsers lists citizens with their complaint counts
func (ac *AdminController) HandleUsers(c *fiber.Ctx) error {
	offset, limit := pageQuery(c)
	if limit <= 0 || limit > complaint.MaxPageSize {
		limit = complaint.DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	users, total, err := ac.accounts.ListUsers(c.UserContext(), currentActor(c), offset, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"items": users, "total": total, "offset": offset, "limit": limit})
}

func (ac *AdminController) HandleToggleUser(c *fiber.Ctx) error {
	id, ok := uintParam(c, "id")
	if !ok {
		return respondError(c, apperror.NotFound("user %q not found", c.Params("id")))
	}
	u, err := ac.accounts.ToggleUser(c.UserContext(), currentActor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(u)
}

func (ac *AdminController) HandleDashboard(c *fiber.Ctx) error {
	d, err := ac.stats.Dashboard(c.UserContext(), currentActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(d)
}

// HandleQueue reports the lifecycle event queue state
func (ac *AdminController) HandleQueue(c *fiber.Ctx) error {
	if err := authz.Authorize(currentActor(c), authz.OpViewQueue); err != nil {
		return respondError(c, err)
	}
	if ac.queue == nil {
		return c.JSON(fiber.Map{"enabled": false})
	}
	s, err := ac.queue.Stats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"enabled": true, "stats": s})
}
