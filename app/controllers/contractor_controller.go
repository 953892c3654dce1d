package controllers

import (
	"github.com/ManuelReschke/UrbanFix/internal/pkg/complaint"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/statistics"
	"github.com/gofiber/fiber/v2"
)

// ContractorController serves the contractor's work queue
type ContractorController struct {
	complaints *complaint.Service
	stats      *statistics.Service
	photos     PhotoURLer
}

func NewContractorController(complaints *complaint.Service, stats *statistics.Service, photos PhotoURLer) *ContractorController {
	return &ContractorController{complaints: complaints, stats: stats, photos: photos}
}

func (cc *ContractorController) HandleAssigned(c *fiber.Ctx) error {
	items, err := cc.complaints.ListAssigned(c.UserContext(), currentActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"items": newComplaintViews(items, cc.photos)})
}

type statusRequest struct {
	Status string `json:"status" form:"status"`
}

// HandleSetStatus resolves or rejects an assigned complaint
func (cc *ContractorController) HandleSetStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	updated, err := cc.complaints.ContractorSetStatus(c.UserContext(), currentActor(c), c.Params("reportID"), req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(newComplaintView(updated, cc.photos))
}

func (cc *ContractorController) HandleDashboard(c *fiber.Ctx) error {
	d, err := cc.stats.ContractorDashboard(c.UserContext(), currentActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(d)
}
