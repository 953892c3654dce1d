package authz

import (
	"github.com/ManuelReschke/UrbanFix/internal/pkg/apperror"
)

// Role is one of the three actor kinds.
type Role string

const (
	RoleAnonymous  Role = ""
	RoleCitizen    Role = "citizen"
	RoleAdmin      Role = "admin"
	RoleContractor Role = "contractor"
)

// Actor is the opaque identity the core operates on behalf of.
// ID refers to a user for citizens and admins and to a contractor for contractors.
type Actor struct {
	ID   uint   `json:"id"`
	Role Role   `json:"role"`
	Name string `json:"name"`
}

// Anonymous is the actor of unauthenticated requests.
var Anonymous = Actor{}

func (a Actor) IsAuthenticated() bool {
	return a.Role != RoleAnonymous && a.ID != 0
}

func (a Actor) Is(role Role) bool {
	return a.IsAuthenticated() && a.Role == role
}

// Operation names an entry point guarded by the gate.
type Operation string

const (
	OpCreateComplaint        Operation = "complaint.create"
	OpTrackComplaint         Operation = "complaint.track"
	OpListOwnComplaints      Operation = "complaint.list_own"
	OpListComplaints         Operation = "complaint.list"
	OpAssignComplaint        Operation = "complaint.assign"
	OpDeleteComplaint        Operation = "complaint.delete"
	OpListAssignedComplaints Operation = "complaint.list_assigned"
	OpSetComplaintStatus     Operation = "complaint.set_status"
	OpCreateContractor       Operation = "contractor.create"
	OpUpdateContractor       Operation = "contractor.update"
	OpDeleteContractor       Operation = "contractor.delete"
	OpListContractors        Operation = "contractor.list"
	OpViewDashboard          Operation = "report.dashboard"
	OpViewContractorSummary  Operation = "report.contractor_dashboard"
	OpViewQueue              Operation = "report.queue"
	OpListUsers              Operation = "user.list"
	OpToggleUser             Operation = "user.toggle"
)

// public operations need no authenticated actor
var public = map[Operation]bool{
	OpTrackComplaint: true,
}

var policy = map[Operation][]Role{
	OpCreateComplaint:        {RoleCitizen},
	OpListOwnComplaints:      {RoleCitizen},
	OpListComplaints:         {RoleAdmin},
	OpAssignComplaint:        {RoleAdmin},
	OpDeleteComplaint:        {RoleAdmin},
	OpListAssignedComplaints: {RoleContractor},
	OpSetComplaintStatus:     {RoleContractor},
	OpCreateContractor:       {RoleAdmin},
	OpUpdateContractor:       {RoleAdmin},
	OpDeleteContractor:       {RoleAdmin},
	OpListContractors:        {RoleAdmin},
	OpViewDashboard:          {RoleAdmin},
	OpViewContractorSummary:  {RoleContractor},
	OpViewQueue:              {RoleAdmin},
	OpListUsers:              {RoleAdmin},
	OpToggleUser:             {RoleAdmin},
}

// RolesFor returns the roles permitted to invoke op.
func RolesFor(op Operation) []Role {
	return policy[op]
}

// Authorize is the single gate every entry point passes through.
func Authorize(actor Actor, op Operation) error {
	if public[op] {
		return nil
	}
	roles, ok := policy[op]
	if !ok {
		return apperror.Unauthorized("operation %s is not permitted", op)
	}
	if !actor.IsAuthenticated() {
		return apperror.Unauthorized("login required")
	}
	for _, r := range roles {
		if actor.Role == r {
			return nil
		}
	}
	return apperror.Unauthorized("role %s may not perform %s", actor.Role, op)
}
