package controllers

import (
	"time"

	"github.com/ManuelReschke/UrbanFix/app/models"
)

// PhotoURLer maps a stored photo reference to its public URL.
type PhotoURLer interface {
	URL(ref string) string
}

type contractorRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type complaintView struct {
	ReportID      string         `json:"report_id"`
	Category      string         `json:"category"`
	CategoryLabel string         `json:"category_label"`
	Location      string         `json:"location"`
	Description   string         `json:"description"`
	PhotoURL      string         `json:"photo_url,omitempty"`
	Latitude      *float64       `json:"latitude,omitempty"`
	Longitude     *float64       `json:"longitude,omitempty"`
	Status        string         `json:"status"`
	StatusLabel   string         `json:"status_label"`
	SubmittedBy   string         `json:"submitted_by,omitempty"`
	AssignedTo    *contractorRef `json:"assigned_to,omitempty"`
	AssignedAt    *time.Time     `json:"assigned_at,omitempty"`
	SubmittedAt   time.Time      `json:"submitted_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func newComplaintView(c *models.Complaint, photos PhotoURLer) complaintView {
	v := complaintView{
		ReportID:      c.ReportID,
		Category:      c.Category,
		CategoryLabel: c.CategoryLabel(),
		Location:      c.Location,
		Description:   c.Description,
		Latitude:      c.Latitude,
		Longitude:     c.Longitude,
		Status:        c.Status,
		StatusLabel:   c.StatusLabel(),
		AssignedAt:    c.AssignedAt,
		SubmittedAt:   c.SubmittedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	if c.Photo != "" && photos != nil {
		v.PhotoURL = photos.URL(c.Photo)
	}
	if c.User != nil {
		v.SubmittedBy = c.User.Name
	}
	if c.AssignedToID != nil {
		v.AssignedTo = &contractorRef{ID: *c.AssignedToID}
		if c.AssignedTo != nil {
			v.AssignedTo.Name = c.AssignedTo.Name
		}
	}
	return v
}

func newComplaintViews(items []models.Complaint, photos PhotoURLer) []complaintView {
	views := make([]complaintView, 0, len(items))
	for i := range items {
		views = append(views, newComplaintView(&items[i], photos))
	}
	return views
}
