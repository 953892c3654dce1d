package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuelReschke/UrbanFix/app/models"
	"github.com/ManuelReschke/UrbanFix/app/repository"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/apperror"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/authz"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

const MinPasswordLength = 6

// SignupInput is the citizen registration form.
type SignupInput struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// ContractorAuthenticator verifies contractor credentials.
type ContractorAuthenticator interface {
	Authenticate(ctx context.Context, email, password string) (*models.Contractor, error)
}

// Service is the identity store for citizens, admins and contractors.
type Service struct {
	repos       *repository.Repositories
	contractors ContractorAuthenticator
	now         func() time.Time
}

func NewService(repos *repository.Repositories, contractors ContractorAuthenticator) *Service {
	return &Service{repos: repos, contractors: contractors, now: time.Now}
}

var errInvalidLogin = apperror.Unauthorized("invalid username or password")

// Signup creates an active citizen account.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username == "" {
		return nil, apperror.Validation("username", "username is required")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, apperror.Validation("password", "password must be at least %d characters", MinPasswordLength)
	}
	if in.Password != in.PasswordConfirm {
		return nil, apperror.Validation("password_confirm", "passwords do not match")
	}

	if _, err := s.repos.User.GetByName(username); err == nil {
		return nil, apperror.Validation("username", "username %s is already taken", username)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	u, err := models.CreateUser(username, email, in.Password)
	if err != nil {
		return nil, apperror.FromValidator(err)
	}
	if err := s.repos.User.Create(u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Validation("username", "username %s is already taken", username)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	log.Infof("[Account] New citizen account %d (%s)", u.ID, u.Name)
	return u, nil
}

// Login authenticates a citizen or, with asAdmin, an admin and returns the session actor.
func (s *Service) Login(ctx context.Context, username, password string, asAdmin bool) (authz.Actor, error) {
	u, err := s.repos.User.GetByName(strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return authz.Anonymous, errInvalidLogin
		}
		return authz.Anonymous, fmt.Errorf("load user: %w", err)
	}
	if !u.CheckPassword(password) {
		return authz.Anonymous, errInvalidLogin
	}
	if !u.IsActive() {
		return authz.Anonymous, apperror.Unauthorized("your account is inactive")
	}
	if asAdmin && !u.IsAdmin() {
		return authz.Anonymous, apperror.Unauthorized("admin access required")
	}

	now := s.now()
	u.LastLoginAt = &now
	if err := s.repos.User.Update(u); err != nil {
		log.Warnf("[Account] Could not record login of user %d: %v", u.ID, err)
	}

	role := authz.RoleCitizen
	if u.IsAdmin() {
		role = authz.RoleAdmin
	}
	return authz.Actor{ID: u.ID, Role: role, Name: u.Name}, nil
}

// LoginContractor authenticates a contractor by email.
func (s *Service) LoginContractor(ctx context.Context, email, password string) (authz.Actor, error) {
	c, err := s.contractors.Authenticate(ctx, email, password)
	if err != nil {
		return authz.Anonymous, err
	}
	return authz.Actor{ID: c.ID, Role: authz.RoleContractor, Name: c.Name}, nil
}

// ListUsers returns citizens with their complaint counts.
func (s *Service) ListUsers(ctx context.Context, actor authz.Actor, offset, limit int) ([]models.UserWithCount, int64, error) {
	if err := authz.Authorize(actor, authz.OpListUsers); err != nil {
		return nil, 0, err
	}
	users, err := s.repos.User.ListWithComplaintCounts(offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repos.User.Count()
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ToggleUser flips a citizen between active and inactive.
func (s *Service) ToggleUser(ctx context.Context, actor authz.Actor, id uint) (*models.User, error) {
	if err := authz.Authorize(actor, authz.OpToggleUser); err != nil {
		return nil, err
	}
	u, err := s.repos.User.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user %d not found", id)
		}
		return nil, err
	}
	if u.IsAdmin() {
		return nil, apperror.Conflict("admin accounts cannot be toggled")
	}
	u.ToggleStatus()
	if err := s.repos.User.Update(u); err != nil {
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	log.Infof("[Account] User %d is now %s (by admin %d)", u.ID, u.Status, actor.ID)
	return u, nil
}

// IsUserActive reports whether a citizen or admin session still refers to an active account.
func (s *Service) IsUserActive(ctx context.Context, id uint) (bool, error) {
	u, err := s.repos.User.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return u.IsActive(), nil
}
