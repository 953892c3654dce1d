package assignment

import (
	"errors"
	"testing"
	"time"

	"github.com/ManuelReschke/UrbanFix/app/models"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedCoordinator(policy Policy, at time.Time) *Coordinator {
	co := NewCoordinator(policy)
	co.now = func() time.Time { return at }
	return co
}

func contractor(id uint, active bool) *models.Contractor {
	return &models.Contractor{ID: id, Name: "Contractor", IsActive: active}
}

func TestApplyAssignActivatesPendingAndStamps(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	co := fixedCoordinator(Policy{}, at)
	c := &models.Complaint{Status: models.ComplaintStatusPending}

	res, err := co.Apply(c, contractor(1, true))
	require.NoError(t, err)

	assert.Equal(t, Assigned, res.Kind)
	assert.True(t, res.StatusChanged(c))
	assert.Equal(t, models.ComplaintStatusInProgress, c.Status)
	require.NotNil(t, c.AssignedAt)
	assert.Equal(t, at, *c.AssignedAt)
	assert.True(t, c.IsAssignedTo(1))
}

func TestApplySameContractorIsNoop(t *testing.T) {
	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	co := fixedCoordinator(Policy{}, first)
	c := &models.Complaint{Status: models.ComplaintStatusPending}
	_, err := co.Apply(c, contractor(1, true))
	require.NoError(t, err)

	co.now = func() time.Time { return first.Add(time.Hour) }
	res, err := co.Apply(c, contractor(1, true))
	require.NoError(t, err)

	assert.Equal(t, NoChange, res.Kind)
	assert.Equal(t, first, *c.AssignedAt)
}

func TestApplyUnassignRevertsInProgressOnly(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{models.ComplaintStatusInProgress, models.ComplaintStatusPending},
		{models.ComplaintStatusPending, models.ComplaintStatusPending},
		{models.ComplaintStatusResolved, models.ComplaintStatusResolved},
		{models.ComplaintStatusRejected, models.ComplaintStatusRejected},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			at := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
			id := uint(5)
			c := &models.Complaint{Status: tt.status, AssignedToID: &id, AssignedAt: &at}

			res, err := NewCoordinator(Policy{}).Apply(c, nil)
			require.NoError(t, err)

			assert.Equal(t, Unassigned, res.Kind)
			require.NotNil(t, res.PreviousContractorID)
			assert.Equal(t, uint(5), *res.PreviousContractorID)
			assert.Nil(t, c.AssignedToID)
			assert.Equal(t, tt.want, c.Status)
			assert.Equal(t, at, *c.AssignedAt)
		})
	}
}

func TestApplyUnassignWhenUnassignedIsNoop(t *testing.T) {
	c := &models.Complaint{Status: models.ComplaintStatusPending}
	res, err := NewCoordinator(Policy{}).Apply(c, nil)
	require.NoError(t, err)
	assert.Equal(t, NoChange, res.Kind)
	assert.False(t, res.StatusChanged(c))
}

func TestApplyReassignKeepsAssignedAtAndTerminalStatus(t *testing.T) {
	at := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	id := uint(1)
	c := &models.Complaint{Status: models.ComplaintStatusResolved, AssignedToID: &id, AssignedAt: &at}

	res, err := fixedCoordinator(Policy{}, at.Add(48*time.Hour)).Apply(c, contractor(2, true))
	require.NoError(t, err)

	assert.Equal(t, Reassigned, res.Kind)
	assert.True(t, c.IsAssignedTo(2))
	assert.Equal(t, models.ComplaintStatusResolved, c.Status)
	assert.Equal(t, at, *c.AssignedAt)
}

func TestApplyInactiveContractor(t *testing.T) {
	c := &models.Complaint{Status: models.ComplaintStatusPending}
	_, err := NewCoordinator(Policy{}).Apply(c, contractor(3, false))
	require.NoError(t, err, "inactive contractors are assignable unless the policy forbids it")

	c = &models.Complaint{Status: models.ComplaintStatusPending}
	_, err = NewCoordinator(Policy{RequireActiveContractor: true}).Apply(c, contractor(3, false))
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Nil(t, c.AssignedToID)
	assert.Equal(t, models.ComplaintStatusPending, c.Status)
}

type counterFunc func(uint) (int64, error)

func (f counterFunc) CountByAssignee(id uint) (int64, error) { return f(id) }

func TestCanDelete(t *testing.T) {
	co := NewCoordinator(Policy{})

	ok, err := co.CanDelete(counterFunc(func(uint) (int64, error) { return 0, nil }), 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = co.CanDelete(counterFunc(func(uint) (int64, error) { return 2, nil }), 1)
	require.NoError(t, err)
	assert.False(t, ok)

	boom := errors.New("db down")
	_, err = co.CanDelete(counterFunc(func(uint) (int64, error) { return 0, boom }), 1)
	assert.ErrorIs(t, err, boom)
}
