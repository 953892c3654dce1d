package complaint

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ManuelReschke/UrbanFix/app/models"
	"github.com/ManuelReschke/UrbanFix/app/repository"
	"github.com/ManuelReschke/UrbanFix/app/repository/repotest"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/apperror"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/assignment"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/authz"
	"github.com/gofiber/fiber/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type mockPhotoRemover struct {
	mock.Mock
}

func (m *mockPhotoRemover) Delete(ctx context.Context, ref string) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

type fixture struct {
	store      *repotest.Store
	svc        *Service
	events     *recordingPublisher
	citizen    authz.Actor
	admin      authz.Actor
	c1, c2     *models.Contractor
	contractor func(c *models.Contractor) authz.Actor
}

func newFixture(t *testing.T, policy Policy, assignPolicy assignment.Policy) *fixture {
	t.Helper()
	store := repotest.NewStore()
	repos := store.Repositories()

	citizen := &models.User{Name: "alice", Role: models.ROLE_USER, Status: models.STATUS_ACTIVE, Password: "x"}
	require.NoError(t, repos.User.Create(citizen))
	admin := &models.User{Name: "root", Role: models.ROLE_ADMIN, Status: models.STATUS_ACTIVE, Password: "x"}
	require.NoError(t, repos.User.Create(admin))

	c1 := &models.Contractor{Name: "Roadworks Ltd", Email: "c1@example.com", Specialization: models.CategoryRoad, IsActive: true, Password: "h"}
	require.NoError(t, repos.Contractor.Create(c1))
	c2 := &models.Contractor{Name: "Fixers Inc", Email: "c2@example.com", Specialization: models.CategoryRoad, IsActive: true, Password: "h"}
	require.NoError(t, repos.Contractor.Create(c2))

	events := &recordingPublisher{}
	svc := NewService(repos, store, assignment.NewCoordinator(assignPolicy), policy).WithEvents(events)

	return &fixture{
		store:   store,
		svc:     svc,
		events:  events,
		citizen: authz.Actor{ID: citizen.ID, Role: authz.RoleCitizen, Name: citizen.Name},
		admin:   authz.Actor{ID: admin.ID, Role: authz.RoleAdmin, Name: admin.Name},
		c1:      c1,
		c2:      c2,
		contractor: func(c *models.Contractor) authz.Actor {
			return authz.Actor{ID: c.ID, Role: authz.RoleContractor, Name: c.Name}
		},
	}
}

func coords() (*float64, *float64) {
	lat, lon := 52.520008, 13.404954
	return &lat, &lon
}

func (f *fixture) create(t *testing.T) *models.Complaint {
	t.Helper()
	lat, lon := coords()
	c, err := f.svc.Create(context.Background(), f.citizen, CreateInput{
		Category:    models.CategoryRoad,
		Location:    "Main St",
		Description: "Deep pothole",
		Latitude:    lat,
		Longitude:   lon,
	})
	require.NoError(t, err)
	return c
}

func idOf(c *models.Contractor) *uint {
	id := c.ID
	return &id
}

func TestCreateStartsPendingAndUnassigned(t *testing.T) {
	f := newFixture(t, Policy{RequireCoordinates: true}, assignment.Policy{})
	c := f.create(t)

	assert.Equal(t, models.ComplaintStatusPending, c.Status)
	assert.Nil(t, c.AssignedToID)
	assert.Nil(t, c.AssignedAt)
	assert.Regexp(t, `^URB\d{6}$`, c.ReportID)
	assert.Equal(t, f.citizen.ID, c.UserID)
	assert.Equal(t, []string{EventCreated}, f.events.types())
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, Policy{RequireCoordinates: true}, assignment.Policy{})
	lat, lon := coords()
	bad := 120.0

	tests := []struct {
		name  string
		in    CreateInput
		field string
	}{
		{"missing category", CreateInput{Location: "x", Description: "y", Latitude: lat, Longitude: lon}, "category"},
		{"unknown category", CreateInput{Category: "lava", Location: "x", Description: "y", Latitude: lat, Longitude: lon}, "category"},
		{"missing location", CreateInput{Category: "road", Location: "  ", Description: "y", Latitude: lat, Longitude: lon}, "location"},
		{"missing description", CreateInput{Category: "road", Location: "x", Latitude: lat, Longitude: lon}, "description"},
		{"missing coordinates", CreateInput{Category: "road", Location: "x", Description: "y"}, "latitude"},
		{"half coordinates", CreateInput{Category: "road", Location: "x", Description: "y", Latitude: lat}, "latitude"},
		{"latitude out of range", CreateInput{Category: "road", Location: "x", Description: "y", Latitude: &bad, Longitude: lon}, "latitude"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), f.citizen, tt.in)
			require.ErrorIs(t, err, apperror.ErrValidation)
			var appErr *apperror.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestCreateWithoutCoordinatesWhenOptional(t *testing.T) {
	f := newFixture(t, Policy{RequireCoordinates: false}, assignment.Policy{})
	c, err := f.svc.Create(context.Background(), f.citizen, CreateInput{Category: "water", Location: "Park Ave", Description: "Leak"})
	require.NoError(t, err)
	assert.Nil(t, c.Latitude)
}

func TestCreateOnlyByCitizen(t *testing.T) {
	f := newFixture(t, Policy{}, assignment.Policy{})
	_, err := f.svc.Create(context.Background(), f.admin, CreateInput{Category: "water", Location: "x", Description: "y"})
	assert.ErrorIs(t, err, apperror.ErrAuthorization)
}

func TestCreateRetriesOnDuplicateKey(t *testing.T) {
	f := newFixture(t, Policy{}, assignment.Policy{})
	attempts := 0
	f.store.BeforeComplaintCreate = func(*models.Complaint) error {
		attempts++
		if attempts < 3 {
			return gorm.ErrDuplicatedKey
		}
		return nil
	}

	c, err := f.svc.Create(context.Background(), f.citizen, CreateInput{Category: "water", Location: "x", Description: "y"})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.NotEmpty(t, c.ReportID)
}

func TestCreateGivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newFixture(t, Policy{}, assignment.Policy{})
	f.store.BeforeComplaintCreate = func(*models.Complaint) error { return gorm.ErrDuplicatedKey }

	_, err := f.svc.Create(context.Background(), f.citizen, CreateInput{Category: "water", Location: "x", Description: "y"})
	require.Error(t, err)
	assert.Empty(t, f.events.types())
}

func TestCreateSucceedsWhenPublishingFails(t *testing.T) {
	f := newFixture(t, Policy{}, assignment.Policy{})
	f.events.err = errors.New("redis down")

	_, err := f.svc.Create(context.Background(), f.citizen, CreateInput{Category: "water", Location: "x", Description: "y"})
	assert.NoError(t, err)
}

func TestTrackingIsPublicAndNormalizesInput(t *testing.T) {
	f := newFixture(t, Policy{RequireCoordinates: true}, assignment.Policy{})
	c := f.create(t)

	got, err := f.svc.GetByReportID(context.Background(), authz.Anonymous, "  "+c.ReportID+" ")
	require.NoError(t, err)
	assert.Equal(t, c.ReportID, got.ReportID)
	require.NotNil(t, got.User)
	assert.Equal(t, "alice", got.User.Name)

	_, err = f.svc.GetByReportID(context.Background(), authz.Anonymous, "URB000001")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.svc.GetByReportID(context.Background(), authz.Anonymous, " ")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestAssignPendingActivatesAndReassignSameIsNoop(t *testing.T) {
	f := newFixture(t, Policy{RequireCoordinates: true}, assignment.Policy{})
	c := f.create(t)

	updated, err := f.svc.AdminSetAssignment(context.Background(), f.admin, c.ReportID, idOf(f.c1))
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusInProgress, updated.Status)
	require.NotNil(t, updated.AssignedAt)
	stamped := *updated.AssignedAt

	again, err := f.svc.AdminSetAssignment(context.Background(), f.admin, c.ReportID, idOf(f.c1))
	require.NoError(t, err)
	assert.Equal(t, stamped, *again.AssignedAt)

	stored, ok := f.store.Complaint(c.ReportID)
	require.True(t, ok)
	assert.Equal(t, stamped, *stored.AssignedAt)
	assert.Equal(t, []string{EventCreated, EventAssigned}, f.events.types())
}

func TestAssignUnknownContractor(t *testing.T) {
	f := newFixture(t, Policy{RequireCoordinates: true}, assignment.Policy{})
	c := f.create(t)
	missing := uint(9999)

	_, err := f.svc.AdminSetAssignment(context.Background(), f.admin, c.ReportID, &missing)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	stored, _ := f.store.Complaint(c.ReportID)
	assert.Equal(t, models.ComplaintStatusPending, stored.Status)
}

func TestAssignUnknownComplaint(t *testing.T) {
	f := newFixture(t, Policy{}, assignment.Policy{})
	_, err := f.svc.AdminSetAssignment(context.Background(), f.admin, "URB999999", idOf(f.c1))
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestAssignOnlyByAdmin(t *testing.T) {
	f := newFixture(t, Policy{RequireCoordinates: true}, assignment.Policy{})
	c := f.create(t)

	_, err := f.svc.AdminSetAssignment(context.Background(), f.contractor(f.c1), c.ReportID, idOf(f.c1))
	assert.ErrorIs(t, err, apperror.ErrAuthorization)
	_, err = f.svc.AdminSetAssignment(context.Background(), f.citizen, c.ReportID, idOf(f.c1))
	assert.ErrorIs(t, err, apperror.ErrAuthorization)
}

func TestAssignInactiveContractorFollowsPolicy(t *testing.T) {
	f := newFixture(t, Policy{RequireCoordinates: true}, assignment.Policy{})
	f.c1.IsActive = false
	require.NoError(t, f.store.Repositories().Contractor.Update(f.c1))
	c := f.create(t)

	var logs bytes.Buffer
	log.SetOutput(&logs)
	_, err := f.svc.AdminSetAssignment(context.Background(), f.admin, c.ReportID, idOf(f.c1))
	log.SetOutput(os.Stderr)
	assert.NoError(t, err)
	assert.Equal(t, 1, strings.Count(logs.String(), "inactive contractor"), logs.String())

	strict := newFixture(t, Policy{RequireCoordinates: true}, assignment.Policy{RequireActiveContractor: true})
	strict.c1.IsActive = false
	require.NoError(t, strict.store.Repositories().Contractor.Update(strict.c1))
	c = strict.create(t)
	_, err = strict.svc.AdminSetAssignment(context.Background(), strict.admin, c.ReportID, idOf(strict.c1))
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestContractorSetStatus(t *testing.T) {
	f := newFixture(t, Policy{RequireCoordinates: true}, assignment.Policy{})
	c := f.create(t)
	_, err := f.svc.AdminSetAssignment(context.Background(), f.admin, c.ReportID, idOf(f.c1))
	require.NoError(t, err)

	_, err = f.svc.ContractorSetStatus(context.Background(), f.contractor(f.c2), c.ReportID, models.ComplaintStatusResolved)
	assert.ErrorIs(t, err, apperror.ErrAuthorization, "only the assigned contractor may change status")

	for _, target := range []string{models.ComplaintStatusPending, models.ComplaintStatusInProgress, "closed"} {
		_, err = f.svc.ContractorSetStatus(context.Background(), f.contractor(f.c1), c.ReportID, target)
		assert.ErrorIs(t, err, apperror.ErrInvalidTransition, target)
	}

	updated, err := f.svc.ContractorSetStatus(context.Background(), f.contractor(f.c1), c.ReportID, models.ComplaintStatusRejected)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusRejected, updated.Status)

	// terminal statuses may be set again unless the strict policy is on
	_, err = f.svc.ContractorSetStatus(context.Background(), f.contractor(f.c1), c.ReportID, models.ComplaintStatusResolved)
	assert.NoError(t, err)
}

func TestContractorSetStatusStrictPolicy(t *testing.T) {
	f := newFixture(t, Policy{RequireCoordinates: true, StrictContractorTransitions: true}, assignment.Policy{})
	c := f.create(t)
	_, err := f.svc.AdminSetAssignment(context.Background(), f.admin, c.ReportID, idOf(f.c1))
	require.NoError(t, err)

	_, err = f.svc.ContractorSetStatus(context.Background(), f.contractor(f.c1), c.ReportID, models.ComplaintStatusResolved)
	require.NoError(t, err)
	_, err = f.svc.ContractorSetStatus(context.Background(), f.contractor(f.c1), c.ReportID, models.ComplaintStatusRejected)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestContractorCannotChangeUnassignedComplaint(t *testing.T) {
	f := newFixture(t, Policy{RequireCoordinates: true}, assignment.Policy{})
	c := f.create(t)

	_, err := f.svc.ContractorSetStatus(context.Background(), f.contractor(f.c1), c.ReportID, models.ComplaintStatusResolved)
	assert.ErrorIs(t, err, apperror.ErrAuthorization)
}

func TestLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Policy{RequireCoordinates: false}, assignment.Policy{})

	r1, err := f.svc.Create(ctx, f.citizen, CreateInput{Category: models.CategoryRoad, Location: "Main St", Description: "Pothole"})
	require.NoError(t, err)
	require.Equal(t, models.ComplaintStatusPending, r1.Status)

	got, err := f.svc.AdminSetAssignment(ctx, f.admin, r1.ReportID, idOf(f.c1))
	require.NoError(t, err)
	require.Equal(t, models.ComplaintStatusInProgress, got.Status)
	require.NotNil(t, got.AssignedAt)
	assignedAt := *got.AssignedAt

	got, err = f.svc.AdminSetAssignment(ctx, f.admin, r1.ReportID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusPending, got.Status)
	assert.Nil(t, got.AssignedToID)
	assert.Equal(t, assignedAt, *got.AssignedAt)

	got, err = f.svc.AdminSetAssignment(ctx, f.admin, r1.ReportID, idOf(f.c2))
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusInProgress, got.Status)
	assert.Equal(t, assignedAt, *got.AssignedAt)

	got, err = f.svc.ContractorSetStatus(ctx, f.contractor(f.c2), r1.ReportID, models.ComplaintStatusResolved)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusResolved, got.Status)

	got, err = f.svc.AdminSetAssignment(ctx, f.admin, r1.ReportID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusResolved, got.Status)

	stored, ok := f.store.Complaint(r1.ReportID)
	require.True(t, ok)
	assert.Equal(t, models.ComplaintStatusResolved, stored.Status)
	assert.Nil(t, stored.AssignedToID)
	assert.Equal(t, assignedAt, *stored.AssignedAt)

	assert.Equal(t, []string{
		EventCreated, EventAssigned, EventUnassigned, EventAssigned, EventStatusChanged, EventUnassigned,
	}, f.events.types())
}

func TestConcurrentAssignmentsKeepStatusCoupling(t *testing.T) {
	f := newFixture(t, Policy{RequireCoordinates: true}, assignment.Policy{})
	c := f.create(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			target := idOf(f.c1)
			if i%2 == 1 {
				target = idOf(f.c2)
			}
			_, err := f.svc.AdminSetAssignment(context.Background(), f.admin, c.ReportID, target)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stored, _ := f.store.Complaint(c.ReportID)
	assert.Equal(t, models.ComplaintStatusInProgress, stored.Status)
	require.NotNil(t, stored.AssignedToID)
	require.NotNil(t, stored.AssignedAt)
}

func TestDeleteIsUnconditionalAndRemovesPhoto(t *testing.T) {
	f := newFixture(t, Policy{}, assignment.Policy{})
	photos := &mockPhotoRemover{}
	f.svc.WithPhotoRemover(photos)

	c, err := f.svc.Create(context.Background(), f.citizen, CreateInput{Category: "garbage", Location: "x", Description: "y", Photo: "complaints/abc.jpg"})
	require.NoError(t, err)
	_, err = f.svc.AdminSetAssignment(context.Background(), f.admin, c.ReportID, idOf(f.c1))
	require.NoError(t, err)

	photos.On("Delete", mock.Anything, "complaints/abc.jpg").Return(errors.New("gone already")).Once()

	require.NoError(t, f.svc.Delete(context.Background(), f.admin, c.ReportID))
	photos.AssertExpectations(t)

	_, ok := f.store.Complaint(c.ReportID)
	assert.False(t, ok)

	// the report id stays reserved after deletion
	exists, err := f.store.Repositories().Complaint.ReportIDExists(c.ReportID)
	require.NoError(t, err)
	assert.True(t, exists)

	err = f.svc.Delete(context.Background(), f.admin, c.ReportID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDeleteOnlyByAdmin(t *testing.T) {
	f := newFixture(t, Policy{RequireCoordinates: true}, assignment.Policy{})
	c := f.create(t)
	assert.ErrorIs(t, f.svc.Delete(context.Background(), f.citizen, c.ReportID), apperror.ErrAuthorization)
}

func TestListFiltersAndOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Policy{}, assignment.Policy{})

	a, err := f.svc.Create(ctx, f.citizen, CreateInput{Category: "water", Location: "x", Description: "y"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.citizen, CreateInput{Category: "road", Location: "x", Description: "y"})
	require.NoError(t, err)
	_, err = f.svc.AdminSetAssignment(ctx, f.admin, a.ReportID, idOf(f.c1))
	require.NoError(t, err)

	page, err := f.svc.List(ctx, f.admin, repository.ComplaintFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, DefaultPageSize, page.Limit)

	page, err = f.svc.List(ctx, f.admin, repository.ComplaintFilter{Contractor: repository.ContractorFilterUnassigned})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "road", page.Items[0].Category)

	page, err = f.svc.List(ctx, f.admin, repository.ComplaintFilter{Search: "ALI"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = f.svc.List(ctx, f.admin, repository.ComplaintFilter{Status: models.ComplaintStatusInProgress})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, a.ReportID, page.Items[0].ReportID)

	_, err = f.svc.List(ctx, f.admin, repository.ComplaintFilter{Status: "done"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = f.svc.List(ctx, f.citizen, repository.ComplaintFilter{})
	assert.ErrorIs(t, err, apperror.ErrAuthorization)

	own, err := f.svc.ListOwn(ctx, f.citizen)
	require.NoError(t, err)
	assert.Len(t, own, 2)

	assigned, err := f.svc.ListAssigned(ctx, f.contractor(f.c1))
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, a.ReportID, assigned[0].ReportID)

	assigned, err = f.svc.ListAssigned(ctx, f.contractor(f.c2))
	require.NoError(t, err)
	assert.Empty(t, assigned)
}

func TestListAssignedOrdersByAssignmentTime(t *testing.T) {
	f := newFixture(t, Policy{RequireCoordinates: true}, assignment.Policy{})
	ctx := context.Background()
	first := f.create(t)
	second := f.create(t)

	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	f.svc.coordinator.WithClock(func() time.Time { return at })
	_, err := f.svc.AdminSetAssignment(ctx, f.admin, second.ReportID, idOf(f.c1))
	require.NoError(t, err)

	at = at.Add(time.Hour)
	_, err = f.svc.AdminSetAssignment(ctx, f.admin, first.ReportID, idOf(f.c1))
	require.NoError(t, err)

	assigned, err := f.svc.ListAssigned(ctx, f.contractor(f.c1))
	require.NoError(t, err)
	require.Len(t, assigned, 2)
	assert.Equal(t, first.ReportID, assigned[0].ReportID)
	assert.Equal(t, second.ReportID, assigned[1].ReportID)
}
