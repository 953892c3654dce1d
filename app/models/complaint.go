package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	ComplaintStatusPending    = "pending"
	ComplaintStatusInProgress = "in_progress"
	ComplaintStatusResolved   = "resolved"
	ComplaintStatusRejected   = "rejected"
)

// ComplaintStatuses lists all statuses in lifecycle order.
var ComplaintStatuses = []Choice{
	{Value: ComplaintStatusPending, Label: "Pending"},
	{Value: ComplaintStatusInProgress, Label: "In Progress"},
	{Value: ComplaintStatusResolved, Label: "Resolved"},
	{Value: ComplaintStatusRejected, Label: "Rejected"},
}

type Complaint struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	ReportID     string         `gorm:"type:varchar(32);uniqueIndex;not null" json:"report_id" validate:"required,max=32"`
	UserID       uint           `gorm:"index;not null" json:"user_id" validate:"required"`
	User         *User          `gorm:"foreignKey:UserID" json:"user,omitempty" validate:"-"`
	Category     string         `gorm:"type:varchar(50);index;not null" json:"category" validate:"required,oneof=water road garbage electricity sewage parks streetlights traffic other"`
	Location     string         `gorm:"type:varchar(255);not null" json:"location" validate:"required,max=255"`
	Description  string         `gorm:"type:text;not null" json:"description" validate:"required,max=5000"`
	Photo        string         `gorm:"type:varchar(255);default:null" json:"photo,omitempty" validate:"max=255"`
	Latitude     *float64       `gorm:"type:decimal(9,6)" json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude    *float64       `gorm:"type:decimal(9,6)" json:"longitude,omitempty" validate:"omitempty,longitude"`
	Status       string         `gorm:"type:varchar(20);index;not null" json:"status" validate:"required,oneof=pending in_progress resolved rejected"`
	AssignedToID *uint          `gorm:"index" json:"assigned_to_id,omitempty"`
	AssignedTo   *Contractor    `gorm:"foreignKey:AssignedToID;constraint:OnDelete:RESTRICT" json:"assigned_to,omitempty" validate:"-"`
	AssignedAt   *time.Time     `gorm:"type:timestamp;default:null;index" json:"assigned_at,omitempty"`
	SubmittedAt  time.Time      `gorm:"autoCreateTime;index" json:"submitted_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Complaint) Validate() error {
	v := validator.New()

	return v.Struct(c)
}

// IsTerminal reports whether the complaint reached resolved or rejected.
func (c *Complaint) IsTerminal() bool {
	return IsTerminalStatus(c.Status)
}

// IsAssigned reports whether a contractor currently holds the complaint.
func (c *Complaint) IsAssigned() bool {
	return c.AssignedToID != nil
}

// IsAssignedTo reports whether the given contractor currently holds the complaint.
func (c *Complaint) IsAssignedTo(contractorID uint) bool {
	return c.AssignedToID != nil && *c.AssignedToID == contractorID
}

// CategoryLabel returns the display label of the complaint category.
func (c *Complaint) CategoryLabel() string {
	return CategoryLabel(c.Category)
}

// StatusLabel returns the display label of the complaint status.
func (c *Complaint) StatusLabel() string {
	for _, s := range ComplaintStatuses {
		if s.Value == c.Status {
			return s.Label
		}
	}
	return c.Status
}

// IsValidComplaintStatus reports whether status is part of the lifecycle.
func IsValidComplaintStatus(status string) bool {
	for _, s := range ComplaintStatuses {
		if s.Value == status {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether status is resolved or rejected.
func IsTerminalStatus(status string) bool {
	return status == ComplaintStatusResolved || status == ComplaintStatusRejected
}
