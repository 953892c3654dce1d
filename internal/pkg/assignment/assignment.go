package assignment

import (
	"time"

	"github.com/ManuelReschke/UrbanFix/app/models"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/apperror"
	"github.com/gofiber/fiber/v2/log"
)

// Policy configures optional assignment checks.
type Policy struct {
	// RequireActiveContractor rejects assignments to deactivated contractors.
	RequireActiveContractor bool
}

// Kind tells what an assignment request changed.
type Kind int

const (
	NoChange Kind = iota
	Assigned
	Reassigned
	Unassigned
)

func (k Kind) String() string {
	switch k {
	case Assigned:
		return "assigned"
	case Reassigned:
		return "reassigned"
	case Unassigned:
		return "unassigned"
	default:
		return "unchanged"
	}
}

// Result describes the applied change and the state it replaced.
type Result struct {
	Kind                 Kind
	PreviousContractorID *uint
	PreviousStatus       string
}

// StatusChanged reports whether the assignment moved the complaint status.
func (r Result) StatusChanged(c *models.Complaint) bool {
	return r.Kind != NoChange && r.PreviousStatus != c.Status
}

// AssigneeCounter counts complaints currently assigned to a contractor.
type AssigneeCounter interface {
	CountByAssignee(contractorID uint) (int64, error)
}

type Coordinator struct {
	policy Policy
	now    func() time.Time
}

func NewCoordinator(policy Policy) *Coordinator {
	return &Coordinator{policy: policy, now: time.Now}
}

// WithClock replaces the clock used to stamp AssignedAt.
func (co *Coordinator) WithClock(now func() time.Time) *Coordinator {
	co.now = now
	return co
}

// Policy returns the active policy.
func (co *Coordinator) Policy() Policy {
	return co.policy
}

// Apply sets complaint's contractor to contractor, or unassigns it when contractor is nil,
// and couples the status:
//
//	pending -> in_progress when a contractor is set
//	in_progress -> pending when the contractor is removed
//
// Terminal statuses are never touched. AssignedAt is stamped on the first
// assignment only. Requesting the current contractor is a no-op.
func (co *Coordinator) Apply(c *models.Complaint, contractor *models.Contractor) (Result, error) {
	res := Result{Kind: NoChange, PreviousStatus: c.Status}
	if c.AssignedToID != nil {
		prev := *c.AssignedToID
		res.PreviousContractorID = &prev
	}

	if contractor == nil {
		if c.AssignedToID == nil {
			return res, nil
		}
		c.AssignedToID = nil
		c.AssignedTo = nil
		if c.Status == models.ComplaintStatusInProgress {
			c.Status = models.ComplaintStatusPending
		}
		res.Kind = Unassigned
		return res, nil
	}

	if c.IsAssignedTo(contractor.ID) {
		return res, nil
	}
	if !contractor.IsActive {
		if co.policy.RequireActiveContractor {
			return res, apperror.Validation("contractor_id", "contractor %s is inactive and cannot be assigned", contractor.Name)
		}
		log.Warnf("[Assignment] Complaint %s assigned to inactive contractor %d", c.ReportID, contractor.ID)
	}

	res.Kind = Assigned
	if c.AssignedToID != nil {
		res.Kind = Reassigned
	}
	id := contractor.ID
	c.AssignedToID = &id
	c.AssignedTo = contractor
	if c.AssignedAt == nil {
		now := co.now()
		c.AssignedAt = &now
	}
	if c.Status == models.ComplaintStatusPending {
		c.Status = models.ComplaintStatusInProgress
	}
	return res, nil
}

// CanDelete reports whether no complaint references the contractor.
func (co *Coordinator) CanDelete(counter AssigneeCounter, contractorID uint) (bool, error) {
	n, err := counter.CountByAssignee(contractorID)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}
