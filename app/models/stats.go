package models

// StatusCounts holds the number of complaints per lifecycle status.
type StatusCounts struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"in_progress"`
	Resolved   int64 `json:"resolved"`
	Rejected   int64 `json:"rejected"`
}

// Add increments the counter of the given status and the total.
func (s *StatusCounts) Add(status string, n int64) {
	switch status {
	case ComplaintStatusPending:
		s.Pending += n
	case ComplaintStatusInProgress:
		s.InProgress += n
	case ComplaintStatusResolved:
		s.Resolved += n
	case ComplaintStatusRejected:
		s.Rejected += n
	default:
		return
	}
	s.Total += n
}

// Open returns the number of complaints not yet in a terminal status.
func (s StatusCounts) Open() int64 {
	return s.Pending + s.InProgress
}

type CategoryCount struct {
	Category string `json:"category"`
	Label    string `json:"label"`
	Count    int64  `json:"count"`
}

// MonthlyCount is the number of complaints in one calendar month (YYYY-MM).
type MonthlyCount struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

type MonthlySummary struct {
	Month  string       `json:"month"`
	Counts StatusCounts `json:"counts"`
}

type ContractorKPIs struct {
	Total           int64 `json:"total"`
	Active          int64 `json:"active"`
	ResolvedTasks   int64 `json:"resolved_tasks"`
	PendingTasks    int64 `json:"pending_tasks"`
	InProgressTasks int64 `json:"in_progress_tasks"`
}

// ContractorWorkload is the number of complaints currently assigned to one contractor.
type ContractorWorkload struct {
	ContractorID uint   `json:"contractor_id"`
	Name         string `json:"name"`
	Assigned     int64  `json:"assigned"`
	Open         int64  `json:"open"`
}

type ContractorWithCount struct {
	Contractor
	AssignedCount int64 `json:"assigned_count"`
}

type UserWithCount struct {
	User
	ComplaintCount int64 `json:"complaint_count"`
}

// Dashboard is the admin reporting projection.
type Dashboard struct {
	Status          StatusCounts         `json:"status"`
	ByCategory      []CategoryCount      `json:"by_category"`
	PerMonth        []MonthlyCount       `json:"per_month"`
	MonthlySummary  []MonthlySummary     `json:"monthly_summary"`
	Contractors     ContractorKPIs       `json:"contractors"`
	Workload        []ContractorWorkload `json:"workload"`
	TaskStatus      StatusCounts         `json:"task_status"`
	UnassignedCount int64                `json:"unassigned_count"`
}

// ContractorDashboard is the reporting projection shown to a contractor.
type ContractorDashboard struct {
	Assigned       int64          `json:"assigned"`
	Open           int64          `json:"open"`
	Resolved       int64          `json:"resolved"`
	Rejected       int64          `json:"rejected"`
	Status         StatusCounts   `json:"status"`
	AssignedPerMon []MonthlyCount `json:"assigned_per_month"`
}
