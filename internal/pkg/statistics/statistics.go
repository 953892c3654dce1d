package statistics

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuelReschke/UrbanFix/app/models"
	"github.com/ManuelReschke/UrbanFix/app/repository"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/authz"
	"github.com/gofiber/fiber/v2/log"
)

const (
	CacheKeyPattern    = "statistics:*"
	CacheKeyDashboard  = "statistics:dashboard"
	CacheKeyContractor = "statistics:contractor:%d"
	CacheExpiration    = 5 * time.Minute

	PerMonthWindow = 6
	SummaryWindow  = 12
)

// Cache stores projections between requests.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DeletePattern(ctx context.Context, pattern string) (int64, error)
}

// Service computes read-only projections over complaints and contractors.
type Service struct {
	repos *repository.Repositories
	cache Cache
	now   func() time.Time
}

// NewService creates the projections service. cache may be nil.
func NewService(repos *repository.Repositories, cache Cache) *Service {
	return &Service{repos: repos, cache: cache, now: time.Now}
}

// cached loads key from the cache or computes and stores it
func cached[T any](ctx context.Context, s *Service, key string, compute func() (T, error)) (T, error) {
	var v T
	if s.cache != nil {
		hit, err := s.cache.GetJSON(ctx, key, &v)
		if err != nil {
			log.Warnf("[Statistics] Cache read of %s failed: %v", key, err)
		} else if hit {
			return v, nil
		}
	}
	v, err := compute()
	if err != nil {
		return v, err
	}
	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, v, CacheExpiration); err != nil {
			log.Warnf("[Statistics] Cache write of %s failed: %v", key, err)
		}
	}
	return v, nil
}

// Invalidate drops all cached projections.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	n, err := s.cache.DeletePattern(ctx, CacheKeyPattern)
	if err != nil {
		return fmt.Errorf("invalidate statistics: %w", err)
	}
	log.Debugf("[Statistics] Invalidated %d cached projections", n)
	return nil
}

// monthsBack returns the n months up to and including now's month as YYYY-MM, oldest first.
func monthsBack(now time.Time, n int) []string {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	months := make([]string, n)
	for i := 0; i < n; i++ {
		months[i] = first.AddDate(0, i-n+1, 0).Format("2006-01")
	}
	return months
}

func windowStart(now time.Time, n int) time.Time {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return first.AddDate(0, -(n - 1), 0)
}

// Dashboard is the admin overview.
func (s *Service) Dashboard(ctx context.Context, actor authz.Actor) (*models.Dashboard, error) {
	if err := authz.Authorize(actor, authz.OpViewDashboard); err != nil {
		return nil, err
	}
	d, err := cached(ctx, s, CacheKeyDashboard, s.computeDashboard)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Service) computeDashboard() (models.Dashboard, error) {
	var d models.Dashboard
	now := s.now()
	var err error

	if d.Status, err = s.repos.Complaint.CountByStatus(repository.ComplaintScope{}); err != nil {
		return d, fmt.Errorf("count by status: %w", err)
	}
	if d.ByCategory, err = s.repos.Complaint.CountByCategory(); err != nil {
		return d, fmt.Errorf("count by category: %w", err)
	}

	rows, err := s.repos.Complaint.CountPerMonth(windowStart(now, SummaryWindow), repository.ComplaintScope{})
	if err != nil {
		return d, fmt.Errorf("count per month: %w", err)
	}
	summary := map[string]*models.StatusCounts{}
	for _, m := range monthsBack(now, SummaryWindow) {
		summary[m] = &models.StatusCounts{}
	}
	for _, r := range rows {
		if c, ok := summary[r.Month]; ok {
			c.Add(r.Status, r.Count)
		}
	}
	for _, m := range monthsBack(now, SummaryWindow) {
		d.MonthlySummary = append(d.MonthlySummary, models.MonthlySummary{Month: m, Counts: *summary[m]})
	}
	for _, m := range monthsBack(now, PerMonthWindow) {
		d.PerMonth = append(d.PerMonth, models.MonthlyCount{Month: m, Count: summary[m].Total})
	}

	if d.Contractors.Total, err = s.repos.Contractor.Count(); err != nil {
		return d, err
	}
	if d.Contractors.Active, err = s.repos.Contractor.CountActive(); err != nil {
		return d, err
	}
	if d.TaskStatus, err = s.repos.Complaint.CountByStatus(repository.ComplaintScope{AssignedOnly: true}); err != nil {
		return d, err
	}
	d.Contractors.ResolvedTasks = d.TaskStatus.Resolved
	d.Contractors.PendingTasks = d.TaskStatus.Pending
	d.Contractors.InProgressTasks = d.TaskStatus.InProgress

	if d.Workload, err = s.repos.Contractor.Workload(); err != nil {
		return d, fmt.Errorf("workload: %w", err)
	}
	if d.UnassignedCount, err = s.repos.Complaint.CountUnassigned(); err != nil {
		return d, err
	}
	return d, nil
}

// ContractorDashboard summarizes the complaints assigned to the calling contractor.
func (s *Service) ContractorDashboard(ctx context.Context, actor authz.Actor) (*models.ContractorDashboard, error) {
	if err := authz.Authorize(actor, authz.OpViewContractorSummary); err != nil {
		return nil, err
	}
	key := fmt.Sprintf(CacheKeyContractor, actor.ID)
	d, err := cached(ctx, s, key, func() (models.ContractorDashboard, error) {
		var d models.ContractorDashboard
		counts, err := s.repos.Complaint.CountByStatus(repository.ComplaintScope{AssignedToID: actor.ID})
		if err != nil {
			return d, err
		}
		d.Status = counts
		d.Assigned = counts.Total
		d.Open = counts.Open()
		d.Resolved = counts.Resolved
		d.Rejected = counts.Rejected

		now := s.now()
		rows, err := s.repos.Complaint.CountAssignedPerMonth(actor.ID, windowStart(now, PerMonthWindow))
		if err != nil {
			return d, err
		}
		byMonth := map[string]int64{}
		for _, r := range rows {
			byMonth[r.Month] = r.Count
		}
		for _, m := range monthsBack(now, PerMonthWindow) {
			d.AssignedPerMon = append(d.AssignedPerMon, models.MonthlyCount{Month: m, Count: byMonth[m]})
		}
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CitizenCounts returns the per status counts of the calling citizen's complaints.
// Citizens see their own submissions at once, so the counts are not cached.
func (s *Service) CitizenCounts(ctx context.Context, actor authz.Actor) (models.StatusCounts, error) {
	if err := authz.Authorize(actor, authz.OpListOwnComplaints); err != nil {
		return models.StatusCounts{}, err
	}
	return s.repos.Complaint.CountByStatus(repository.ComplaintScope{UserID: actor.ID})
}
