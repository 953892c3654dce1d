package complaint

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// Lifecycle event types.
const (
	EventCreated       = "complaint.created"
	EventAssigned      = "complaint.assigned"
	EventUnassigned    = "complaint.unassigned"
	EventStatusChanged = "complaint.status_changed"
	EventDeleted       = "complaint.deleted"
)

// Event is published after a lifecycle change has been committed.
type Event struct {
	Type                 string    `json:"type"`
	ReportID             string    `json:"report_id"`
	UserID               uint      `json:"user_id"`
	Category             string    `json:"category"`
	Status               string    `json:"status"`
	PreviousStatus       string    `json:"previous_status,omitempty"`
	ContractorID         *uint     `json:"contractor_id,omitempty"`
	PreviousContractorID *uint     `json:"previous_contractor_id,omitempty"`
	Photo                string    `json:"photo,omitempty"`
	OccurredAt           time.Time `json:"occurred_at"`
}

// StatusChanged reports whether the event moved the complaint status.
func (e Event) StatusChanged() bool {
	return e.PreviousStatus != "" && e.PreviousStatus != e.Status
}

// Publisher hands events to the reporting side.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// publish never fails the calling operation; the change is already committed.
func (s *Service) publish(ctx context.Context, event Event) {
	if s.events == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := s.events.Publish(ctx, event); err != nil {
		log.Errorf("[Complaint] Failed to publish %s for %s: %v", event.Type, event.ReportID, err)
	}
}
