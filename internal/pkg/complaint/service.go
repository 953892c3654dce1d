package complaint

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ManuelReschke/UrbanFix/app/models"
	"github.com/ManuelReschke/UrbanFix/app/repository"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/apperror"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/assignment"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/authz"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/reportid"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Policy configures optional lifecycle checks.
type Policy struct {
	// RequireCoordinates rejects submissions without a latitude/longitude pair.
	RequireCoordinates bool
	// StrictContractorTransitions rejects status changes of already resolved or rejected complaints.
	StrictContractorTransitions bool
}

// PhotoRemover deletes a stored photo by its reference.
type PhotoRemover interface {
	Delete(ctx context.Context, ref string) error
}

// CreateInput carries a citizen submission.
type CreateInput struct {
	Category    string
	Location    string
	Description string
	Photo       string
	Latitude    *float64
	Longitude   *float64
}

// Page is one page of a complaint listing.
type Page struct {
	Items  []models.Complaint `json:"items"`
	Total  int64              `json:"total"`
	Offset int                `json:"offset"`
	Limit  int                `json:"limit"`
}

// Service owns the complaint lifecycle.
type Service struct {
	repos       *repository.Repositories
	tx          repository.Transactor
	coordinator *assignment.Coordinator
	policy      Policy
	events      Publisher
	photos      PhotoRemover
}

func NewService(repos *repository.Repositories, tx repository.Transactor, coordinator *assignment.Coordinator, policy Policy) *Service {
	return &Service{repos: repos, tx: tx, coordinator: coordinator, policy: policy}
}

// WithEvents sets the publisher that receives lifecycle events.
func (s *Service) WithEvents(p Publisher) *Service {
	s.events = p
	return s
}

// WithPhotoRemover sets the store used to clean up photos of deleted complaints.
func (s *Service) WithPhotoRemover(p PhotoRemover) *Service {
	s.photos = p
	return s
}

func (s *Service) Policy() Policy {
	return s.policy
}

func notFound(reportID string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("complaint %s not found", reportID)
	}
	return fmt.Errorf("load complaint %s: %w", reportID, err)
}

// Create stores a new pending, unassigned complaint under a fresh report id.
func (s *Service) Create(ctx context.Context, actor authz.Actor, in CreateInput) (*models.Complaint, error) {
	if err := authz.Authorize(actor, authz.OpCreateComplaint); err != nil {
		return nil, err
	}

	c := &models.Complaint{
		UserID:      actor.ID,
		Category:    strings.ToLower(strings.TrimSpace(in.Category)),
		Location:    strings.TrimSpace(in.Location),
		Description: strings.TrimSpace(in.Description),
		Photo:       strings.TrimSpace(in.Photo),
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Status:      models.ComplaintStatusPending,
	}
	if err := s.validateNew(c); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= reportid.MaxAttempts; attempt++ {
		id, err := reportid.Next(s.repos.Complaint.ReportIDExists)
		if err != nil {
			return nil, fmt.Errorf("generate report id: %w", err)
		}
		c.ID = 0
		c.ReportID = id
		err = s.repos.Complaint.Create(c)
		if err == nil {
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("create complaint: %w", err)
		}
		log.Warnf("[Complaint] Report id %s collided on insert (attempt %d/%d)", id, attempt, reportid.MaxAttempts)
		if attempt == reportid.MaxAttempts {
			return nil, fmt.Errorf("create complaint: %w", reportid.ErrExhausted)
		}
	}

	s.publish(ctx, Event{
		Type:     EventCreated,
		ReportID: c.ReportID,
		UserID:   c.UserID,
		Category: c.Category,
		Status:   c.Status,
		Photo:    c.Photo,
	})
	return c, nil
}

func (s *Service) validateNew(c *models.Complaint) error {
	if c.Category == "" {
		return apperror.Validation("category", "category is required")
	}
	if !models.IsValidCategory(c.Category) {
		return apperror.Validation("category", "unknown category %q", c.Category)
	}
	if c.Location == "" {
		return apperror.Validation("location", "location is required")
	}
	if c.Description == "" {
		return apperror.Validation("description", "description is required")
	}
	if (c.Latitude == nil) != (c.Longitude == nil) {
		return apperror.Validation("latitude", "latitude and longitude must be given together")
	}
	if s.policy.RequireCoordinates && c.Latitude == nil {
		return apperror.Validation("latitude", "coordinates are required")
	}
	// report id is assigned later; validate the rest with a placeholder
	c.ReportID = reportid.Prefix
	defer func() { c.ReportID = "" }()
	if err := c.Validate(); err != nil {
		return apperror.FromValidator(err)
	}
	return nil
}

// GetByReportID is the public tracking query. The complaint is returned directly to the caller.
func (s *Service) GetByReportID(ctx context.Context, actor authz.Actor, reportID string) (*models.Complaint, error) {
	if err := authz.Authorize(actor, authz.OpTrackComplaint); err != nil {
		return nil, err
	}
	id := reportid.Normalize(reportID)
	if id == "" {
		return nil, apperror.Validation("report_id", "report id is required")
	}
	c, err := s.repos.Complaint.GetByReportID(id)
	if err != nil {
		return nil, notFound(id, err)
	}
	return c, nil
}

// ListOwn returns the complaints the citizen submitted, newest first.
func (s *Service) ListOwn(ctx context.Context, actor authz.Actor) ([]models.Complaint, error) {
	if err := authz.Authorize(actor, authz.OpListOwnComplaints); err != nil {
		return nil, err
	}
	return s.repos.Complaint.ListByUser(actor.ID)
}

// List is the admin listing with filters and pagination.
func (s *Service) List(ctx context.Context, actor authz.Actor, filter repository.ComplaintFilter) (*Page, error) {
	if err := authz.Authorize(actor, authz.OpListComplaints); err != nil {
		return nil, err
	}
	if filter.Category != "" && !models.IsValidCategory(filter.Category) {
		return nil, apperror.Validation("category", "unknown category %q", filter.Category)
	}
	if filter.Status != "" && !models.IsValidComplaintStatus(filter.Status) {
		return nil, apperror.Validation("status", "unknown status %q", filter.Status)
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultPageSize
	}
	if filter.Limit > MaxPageSize {
		filter.Limit = MaxPageSize
	}
	items, total, err := s.repos.Complaint.List(filter)
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	return &Page{Items: items, Total: total, Offset: filter.Offset, Limit: filter.Limit}, nil
}

// AdminSetAssignment assigns the complaint to contractorID, or unassigns it when contractorID is nil.
// The complaint row is locked for the read-decide-write cycle so the status coupling is
// always computed from the current state.
func (s *Service) AdminSetAssignment(ctx context.Context, actor authz.Actor, reportID string, contractorID *uint) (*models.Complaint, error) {
	if err := authz.Authorize(actor, authz.OpAssignComplaint); err != nil {
		return nil, err
	}
	id := reportid.Normalize(reportID)

	var (
		updated *models.Complaint
		result  assignment.Result
	)
	err := s.tx.Transaction(func(tx *repository.Repositories) error {
		c, err := tx.Complaint.GetByReportIDLocked(id, repository.LockUpdate)
		if err != nil {
			return notFound(id, err)
		}

		var target *models.Contractor
		if contractorID != nil {
			target, err = tx.Contractor.GetByIDLocked(*contractorID, repository.LockShare)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperror.NotFound("contractor %d not found", *contractorID)
				}
				return fmt.Errorf("load contractor %d: %w", *contractorID, err)
			}
		}

		result, err = s.coordinator.Apply(c, target)
		if err != nil {
			return err
		}
		updated = c
		if result.Kind == assignment.NoChange {
			return nil
		}
		if err := tx.Complaint.SaveAssignment(c); err != nil {
			return fmt.Errorf("save assignment of %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Kind != assignment.NoChange {
		event := Event{
			Type:                 EventAssigned,
			ReportID:             updated.ReportID,
			UserID:               updated.UserID,
			Category:             updated.Category,
			Status:               updated.Status,
			PreviousStatus:       result.PreviousStatus,
			ContractorID:         updated.AssignedToID,
			PreviousContractorID: result.PreviousContractorID,
		}
		if result.Kind == assignment.Unassigned {
			event.Type = EventUnassigned
		}
		log.Infof("[Complaint] %s %s by admin %d (status %s -> %s)", id, result.Kind, actor.ID, result.PreviousStatus, updated.Status)
		s.publish(ctx, event)
	}
	return updated, nil
}

// ContractorSetStatus lets the assigned contractor resolve or reject a complaint.
func (s *Service) ContractorSetStatus(ctx context.Context, actor authz.Actor, reportID, newStatus string) (*models.Complaint, error) {
	if err := authz.Authorize(actor, authz.OpSetComplaintStatus); err != nil {
		return nil, err
	}
	id := reportid.Normalize(reportID)
	newStatus = strings.ToLower(strings.TrimSpace(newStatus))

	var (
		updated  *models.Complaint
		previous string
	)
	err := s.tx.Transaction(func(tx *repository.Repositories) error {
		c, err := tx.Complaint.GetByReportIDLocked(id, repository.LockUpdate)
		if err != nil {
			return notFound(id, err)
		}
		if !c.IsAssignedTo(actor.ID) {
			return apperror.Unauthorized("complaint %s is not assigned to you", id)
		}
		if !models.IsTerminalStatus(newStatus) {
			return apperror.InvalidTransition("contractors may only set status to resolved or rejected, not %q", newStatus)
		}
		if s.policy.StrictContractorTransitions && c.IsTerminal() {
			return apperror.InvalidTransition("complaint %s is already %s", id, c.Status)
		}
		previous = c.Status
		c.Status = newStatus
		if err := tx.Complaint.SaveStatus(c); err != nil {
			return fmt.Errorf("save status of %s: %w", id, err)
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("[Complaint] %s set to %s by contractor %d", id, newStatus, actor.ID)
	s.publish(ctx, Event{
		Type:           EventStatusChanged,
		ReportID:       updated.ReportID,
		UserID:         updated.UserID,
		Category:       updated.Category,
		Status:         updated.Status,
		PreviousStatus: previous,
		ContractorID:   updated.AssignedToID,
	})
	return updated, nil
}

// Delete removes a complaint unconditionally. The photo is removed best effort afterwards.
func (s *Service) Delete(ctx context.Context, actor authz.Actor, reportID string) error {
	if err := authz.Authorize(actor, authz.OpDeleteComplaint); err != nil {
		return err
	}
	id := reportid.Normalize(reportID)

	var deleted *models.Complaint
	err := s.tx.Transaction(func(tx *repository.Repositories) error {
		c, err := tx.Complaint.GetByReportIDLocked(id, repository.LockUpdate)
		if err != nil {
			return notFound(id, err)
		}
		if err := tx.Complaint.Delete(c.ID); err != nil {
			return fmt.Errorf("delete complaint %s: %w", id, err)
		}
		deleted = c
		return nil
	})
	if err != nil {
		return err
	}

	log.Infof("[Complaint] %s deleted by admin %d", id, actor.ID)
	if deleted.Photo != "" && s.photos != nil {
		if err := s.photos.Delete(ctx, deleted.Photo); err != nil {
			log.Warnf("[Complaint] Could not remove photo %s of %s: %v", deleted.Photo, id, err)
		}
	}
	s.publish(ctx, Event{
		Type:         EventDeleted,
		ReportID:     deleted.ReportID,
		UserID:       deleted.UserID,
		Category:     deleted.Category,
		Status:       deleted.Status,
		ContractorID: deleted.AssignedToID,
		Photo:        deleted.Photo,
	})
	return nil
}

// ListAssigned returns the complaints currently assigned to the contractor.
func (s *Service) ListAssigned(ctx context.Context, actor authz.Actor) ([]models.Complaint, error) {
	if err := authz.Authorize(actor, authz.OpListAssignedComplaints); err != nil {
		return nil, err
	}
	return s.repos.Complaint.ListByAssignee(actor.ID)
}
