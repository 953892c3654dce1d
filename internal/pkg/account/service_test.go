package account

import (
	"context"
	"testing"

	"github.com/ManuelReschke/UrbanFix/app/models"
	"github.com/ManuelReschke/UrbanFix/app/repository/repotest"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/apperror"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/authz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockContractors struct {
	mock.Mock
}

func (m *mockContractors) Authenticate(ctx context.Context, email, password string) (*models.Contractor, error) {
	args := m.Called(email, password)
	c, _ := args.Get(0).(*models.Contractor)
	return c, args.Error(1)
}

func signup(t *testing.T, svc *Service, name string) *models.User {
	t.Helper()
	u, err := svc.Signup(context.Background(), SignupInput{Username: name, Email: name + "@example.com", Password: "password1", PasswordConfirm: "password1"})
	require.NoError(t, err)
	return u
}

func TestSignupAndLogin(t *testing.T) {
	store := repotest.NewStore()
	svc := NewService(store.Repositories(), &mockContractors{})

	u := signup(t, svc, "alice")
	assert.True(t, u.IsActive())
	assert.Equal(t, models.ROLE_USER, u.Role)

	actor, err := svc.Login(context.Background(), "alice", "password1", false)
	require.NoError(t, err)
	assert.Equal(t, authz.Actor{ID: u.ID, Role: authz.RoleCitizen, Name: "alice"}, actor)

	_, err = svc.Login(context.Background(), "alice", "nope", false)
	assert.ErrorIs(t, err, apperror.ErrAuthorization)

	_, err = svc.Login(context.Background(), "alice", "password1", true)
	assert.ErrorIs(t, err, apperror.ErrAuthorization, "citizens cannot use the admin login")
}

func TestSignupValidation(t *testing.T) {
	store := repotest.NewStore()
	svc := NewService(store.Repositories(), &mockContractors{})
	signup(t, svc, "alice")

	tests := []struct {
		name  string
		in    SignupInput
		field string
	}{
		{"duplicate username", SignupInput{Username: "alice", Password: "password1", PasswordConfirm: "password1"}, "username"},
		{"password mismatch", SignupInput{Username: "bob", Password: "password1", PasswordConfirm: "password2"}, "password_confirm"},
		{"short password", SignupInput{Username: "bob", Password: "pw", PasswordConfirm: "pw"}, "password"},
		{"short username", SignupInput{Username: "bo", Password: "password1", PasswordConfirm: "password1"}, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(context.Background(), tt.in)
			require.ErrorIs(t, err, apperror.ErrValidation)
			assert.Equal(t, tt.field, err.(*apperror.Error).Field)
		})
	}
}

func TestAdminLogin(t *testing.T) {
	store := repotest.NewStore()
	repos := store.Repositories()
	svc := NewService(repos, &mockContractors{})

	admin, err := models.CreateUser("root", "", "password1")
	require.NoError(t, err)
	admin.Role = models.ROLE_ADMIN
	require.NoError(t, repos.User.Create(admin))

	actor, err := svc.Login(context.Background(), "root", "password1", true)
	require.NoError(t, err)
	assert.Equal(t, authz.RoleAdmin, actor.Role)

	stored, err := repos.User.GetByID(admin.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestToggleUserBlocksLogin(t *testing.T) {
	store := repotest.NewStore()
	svc := NewService(store.Repositories(), &mockContractors{})
	u := signup(t, svc, "alice")
	admin := authz.Actor{ID: 100, Role: authz.RoleAdmin}

	toggled, err := svc.ToggleUser(context.Background(), admin, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.STATUS_INACTIVE, toggled.Status)

	_, err = svc.Login(context.Background(), "alice", "password1", false)
	assert.ErrorIs(t, err, apperror.ErrAuthorization)

	active, err := svc.IsUserActive(context.Background(), u.ID)
	require.NoError(t, err)
	assert.False(t, active)

	_, err = svc.ToggleUser(context.Background(), admin, u.ID)
	require.NoError(t, err)
	_, err = svc.Login(context.Background(), "alice", "password1", false)
	assert.NoError(t, err)

	_, err = svc.ToggleUser(context.Background(), admin, 999)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.ToggleUser(context.Background(), authz.Actor{ID: u.ID, Role: authz.RoleCitizen}, u.ID)
	assert.ErrorIs(t, err, apperror.ErrAuthorization)
}

func TestListUsers(t *testing.T) {
	store := repotest.NewStore()
	svc := NewService(store.Repositories(), &mockContractors{})
	signup(t, svc, "alice")
	signup(t, svc, "bobby")

	users, total, err := svc.ListUsers(context.Background(), authz.Actor{ID: 100, Role: authz.RoleAdmin}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, users, 2)
}

func TestLoginContractor(t *testing.T) {
	contractors := &mockContractors{}
	svc := NewService(repotest.NewStore().Repositories(), contractors)

	contractors.On("Authenticate", "crew@example.com", "secret1").
		Return(&models.Contractor{ID: 7, Name: "Crew"}, nil).Once()
	contractors.On("Authenticate", "crew@example.com", "bad").
		Return(nil, apperror.Unauthorized("invalid email or password")).Once()

	actor, err := svc.LoginContractor(context.Background(), "crew@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, authz.Actor{ID: 7, Role: authz.RoleContractor, Name: "Crew"}, actor)

	_, err = svc.LoginContractor(context.Background(), "crew@example.com", "bad")
	assert.ErrorIs(t, err, apperror.ErrAuthorization)
	contractors.AssertExpectations(t)
}
