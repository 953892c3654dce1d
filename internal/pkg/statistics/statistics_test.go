package statistics

import (
	"context"
	"encoding/json"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/ManuelReschke/UrbanFix/app/models"
	"github.com/ManuelReschke/UrbanFix/app/repository/repotest"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/apperror"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/authz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{items: map[string][]byte{}}
}

func (m *mapCache) GetJSON(_ context.Context, key string, dst interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (m *mapCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = raw
	return nil
}

func (m *mapCache) DeletePattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.items {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.items, k)
			n++
		}
	}
	return n, nil
}

var (
	admin   = authz.Actor{ID: 1, Role: authz.RoleAdmin, Name: "root"}
	citizen = authz.Actor{ID: 2, Role: authz.RoleCitizen, Name: "alice"}
)

type seed struct {
	store *repotest.Store
	c1    *models.Contractor
	c2    *models.Contractor
}

func seedStore(t *testing.T, now time.Time) seed {
	t.Helper()
	store := repotest.NewStore()
	repos := store.Repositories()

	c1 := &models.Contractor{Name: "Alpha", Email: "a@example.com", IsActive: true}
	c2 := &models.Contractor{Name: "Beta", Email: "b@example.com", IsActive: false}
	require.NoError(t, repos.Contractor.Create(c1))
	require.NoError(t, repos.Contractor.Create(c2))

	add := func(id string, at time.Time, category, status string, assignee *models.Contractor) {
		store.Now = func() time.Time { return at }
		c := &models.Complaint{ReportID: id, UserID: citizen.ID, Category: category, Location: "x", Description: "y", Status: status}
		if assignee != nil {
			cid := assignee.ID
			c.AssignedToID = &cid
			c.AssignedAt = &at
		}
		require.NoError(t, repos.Complaint.Create(c))
	}
	add("URB000001", now, models.CategoryRoad, models.ComplaintStatusPending, nil)
	add("URB000002", now, models.CategoryRoad, models.ComplaintStatusInProgress, c1)
	add("URB000003", now.AddDate(0, -1, 0), models.CategoryWater, models.ComplaintStatusResolved, c1)
	add("URB000004", now.AddDate(0, -2, 0), models.CategoryRoad, models.ComplaintStatusRejected, c2)
	add("URB000005", now.AddDate(0, -8, 0), models.CategoryGarbage, models.ComplaintStatusResolved, nil)
	add("URB000006", now.AddDate(-2, 0, 0), models.CategoryGarbage, models.ComplaintStatusResolved, nil)

	return seed{store: store, c1: c1, c2: c2}
}

func TestDashboard(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	s := seedStore(t, now)
	svc := NewService(s.store.Repositories(), nil)
	svc.now = func() time.Time { return now }

	d, err := svc.Dashboard(context.Background(), admin)
	require.NoError(t, err)

	assert.Equal(t, int64(6), d.Status.Total)
	assert.Equal(t, int64(1), d.Status.Pending)
	assert.Equal(t, int64(3), d.Status.Resolved)

	require.NotEmpty(t, d.ByCategory)
	assert.Equal(t, models.CategoryRoad, d.ByCategory[0].Category)
	assert.Equal(t, int64(3), d.ByCategory[0].Count)

	require.Len(t, d.PerMonth, PerMonthWindow)
	assert.Equal(t, "2026-01", d.PerMonth[0].Month)
	assert.Equal(t, "2026-06", d.PerMonth[5].Month)
	assert.Equal(t, int64(2), d.PerMonth[5].Count)
	assert.Equal(t, int64(1), d.PerMonth[4].Count)

	require.Len(t, d.MonthlySummary, SummaryWindow)
	assert.Equal(t, "2025-07", d.MonthlySummary[0].Month)
	var summaryTotal int64
	for _, m := range d.MonthlySummary {
		summaryTotal += m.Counts.Total
	}
	assert.Equal(t, int64(5), summaryTotal, "complaints older than the window are not counted")

	assert.Equal(t, int64(2), d.Contractors.Total)
	assert.Equal(t, int64(1), d.Contractors.Active)
	assert.Equal(t, int64(1), d.Contractors.ResolvedTasks)
	assert.Equal(t, int64(1), d.Contractors.InProgressTasks)
	assert.Equal(t, int64(3), d.TaskStatus.Total)
	assert.Equal(t, int64(3), d.UnassignedCount)

	require.Len(t, d.Workload, 2)
	assert.Equal(t, "Alpha", d.Workload[0].Name)
	assert.Equal(t, int64(2), d.Workload[0].Assigned)
	assert.Equal(t, int64(1), d.Workload[0].Open)
}

func TestDashboardRequiresAdmin(t *testing.T) {
	svc := NewService(repotest.NewStore().Repositories(), nil)
	_, err := svc.Dashboard(context.Background(), citizen)
	assert.ErrorIs(t, err, apperror.ErrAuthorization)
}

func TestContractorDashboard(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	s := seedStore(t, now)
	svc := NewService(s.store.Repositories(), nil)
	svc.now = func() time.Time { return now }

	d, err := svc.ContractorDashboard(context.Background(), authz.Actor{ID: s.c1.ID, Role: authz.RoleContractor})
	require.NoError(t, err)
	assert.Equal(t, int64(2), d.Assigned)
	assert.Equal(t, int64(1), d.Open)
	assert.Equal(t, int64(1), d.Resolved)
	assert.Equal(t, int64(0), d.Rejected)
	require.Len(t, d.AssignedPerMon, PerMonthWindow)
	assert.Equal(t, int64(1), d.AssignedPerMon[5].Count)
	assert.Equal(t, int64(1), d.AssignedPerMon[4].Count)
}

func TestCachingAndInvalidation(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	s := seedStore(t, now)
	cache := newMapCache()
	svc := NewService(s.store.Repositories(), cache)
	svc.now = func() time.Time { return now }

	d, err := svc.Dashboard(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, int64(6), d.Status.Total)
	assert.Len(t, cache.items, 1)

	s.store.Now = func() time.Time { return now }
	require.NoError(t, s.store.Repositories().Complaint.Create(&models.Complaint{
		ReportID: "URB000007", UserID: citizen.ID, Category: "road", Location: "x", Description: "y", Status: models.ComplaintStatusPending,
	}))

	d, err = svc.Dashboard(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, int64(6), d.Status.Total, "served from cache")

	require.NoError(t, svc.Invalidate(context.Background()))
	assert.Empty(t, cache.items)

	d, err = svc.Dashboard(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, int64(7), d.Status.Total)
}

func TestCitizenCountsReflectNewSubmissions(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	s := seedStore(t, now)
	cache := newMapCache()
	svc := NewService(s.store.Repositories(), cache)
	svc.now = func() time.Time { return now }

	counts, err := svc.CitizenCounts(context.Background(), citizen)
	require.NoError(t, err)
	assert.Equal(t, int64(6), counts.Total)
	assert.Equal(t, int64(1), counts.Pending)

	s.store.Now = func() time.Time { return now }
	require.NoError(t, s.store.Repositories().Complaint.Create(&models.Complaint{
		ReportID: "URB000007", UserID: citizen.ID, Category: "road", Location: "x", Description: "y", Status: models.ComplaintStatusPending,
	}))

	counts, err = svc.CitizenCounts(context.Background(), citizen)
	require.NoError(t, err)
	assert.Equal(t, int64(7), counts.Total)
	assert.Equal(t, int64(2), counts.Pending)
	assert.Empty(t, cache.items)
}

func TestMonthsBack(t *testing.T) {
	got := monthsBack(time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), 4)
	assert.Equal(t, []string{"2025-12", "2026-01", "2026-02", "2026-03"}, got)
}
