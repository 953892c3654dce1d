package contractor

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
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

const MinPasswordLength = 6

// Input carries the admin form of a contractor. An empty Password on update keeps the stored hash.
type Input struct {
	Name           string `json:"name"`
	ContactNumber  string `json:"contact_number"`
	Specialization string `json:"specialization"`
	AreaAssigned   string `json:"area_assigned"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	IsActive       *bool  `json:"is_active"`
}

type Service struct {
	repos       *repository.Repositories
	tx          repository.Transactor
	coordinator *assignment.Coordinator
}

func NewService(repos *repository.Repositories, tx repository.Transactor, coordinator *assignment.Coordinator) *Service {
	return &Service{repos: repos, tx: tx, coordinator: coordinator}
}

func notFound(id uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("contractor %d not found", id)
	}
	return fmt.Errorf("load contractor %d: %w", id, err)
}

func duplicateEmail(email string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.Conflict("a contractor with email %s already exists", email)
	}
	return err
}

func (in Input) apply(c *models.Contractor) {
	c.Name = strings.TrimSpace(in.Name)
	c.ContactNumber = strings.TrimSpace(in.ContactNumber)
	c.Specialization = strings.ToLower(strings.TrimSpace(in.Specialization))
	c.AreaAssigned = strings.TrimSpace(in.AreaAssigned)
	c.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
}

func validate(c *models.Contractor) error {
	if err := c.Validate(); err != nil {
		return apperror.FromValidator(err)
	}
	return nil
}

// Create registers a contractor. New contractors are active unless the input says otherwise.
func (s *Service) Create(ctx context.Context, actor authz.Actor, in Input) (*models.Contractor, error) {
	if err := authz.Authorize(actor, authz.OpCreateContractor); err != nil {
		return nil, err
	}
	if len(in.Password) < MinPasswordLength {
		return nil, apperror.Validation("password", "password must be at least %d characters", MinPasswordLength)
	}

	c := &models.Contractor{IsActive: true}
	in.apply(c)
	if err := c.SetCredential(models.RawCredential(in.Password)); err != nil {
		return nil, fmt.Errorf("hash contractor password: %w", err)
	}
	if err := validate(c); err != nil {
		return nil, err
	}

	if err := s.repos.Contractor.Create(c); err != nil {
		return nil, duplicateEmail(c.Email, err)
	}
	log.Infof("[Contractor] Created contractor %d (%s) by admin %d", c.ID, c.Email, actor.ID)
	return c, nil
}

// Update changes a contractor under a row lock. Deactivating keeps existing assignments.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id uint, in Input) (*models.Contractor, error) {
	if err := authz.Authorize(actor, authz.OpUpdateContractor); err != nil {
		return nil, err
	}
	if in.Password != "" && len(in.Password) < MinPasswordLength {
		return nil, apperror.Validation("password", "password must be at least %d characters", MinPasswordLength)
	}

	var updated *models.Contractor
	err := s.tx.Transaction(func(tx *repository.Repositories) error {
		c, err := tx.Contractor.GetByIDLocked(id, repository.LockUpdate)
		if err != nil {
			return notFound(id, err)
		}
		in.apply(c)
		cred := models.HashedCredential(c.Password)
		if in.Password != "" {
			cred = models.RawCredential(in.Password)
		}
		if err := c.SetCredential(cred); err != nil {
			return fmt.Errorf("store contractor password: %w", err)
		}
		if err := validate(c); err != nil {
			return err
		}
		if err := tx.Contractor.Update(c); err != nil {
			return duplicateEmail(c.Email, err)
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Infof("[Contractor] Updated contractor %d by admin %d (active=%t)", id, actor.ID, updated.IsActive)
	return updated, nil
}

// Delete removes a contractor that no complaint references. The guard and the
// delete run in one transaction with the contractor row locked.
func (s *Service) Delete(ctx context.Context, actor authz.Actor, id uint) error {
	if err := authz.Authorize(actor, authz.OpDeleteContractor); err != nil {
		return err
	}

	err := s.tx.Transaction(func(tx *repository.Repositories) error {
		c, err := tx.Contractor.GetByIDLocked(id, repository.LockUpdate)
		if err != nil {
			return notFound(id, err)
		}
		ok, err := s.coordinator.CanDelete(tx.Complaint, c.ID)
		if err != nil {
			return fmt.Errorf("count assignments of contractor %d: %w", id, err)
		}
		if !ok {
			return apperror.Conflict("contractor %s still has assigned complaints", c.Name)
		}
		if err := tx.Contractor.Delete(c.ID); err != nil {
			if errors.Is(err, gorm.ErrForeignKeyViolated) {
				return apperror.Conflict("contractor %s still has assigned complaints", c.Name)
			}
			return fmt.Errorf("delete contractor %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Infof("[Contractor] Deleted contractor %d by admin %d", id, actor.ID)
	return nil
}

func (s *Service) Get(ctx context.Context, actor authz.Actor, id uint) (*models.Contractor, error) {
	if err := authz.Authorize(actor, authz.OpListContractors); err != nil {
		return nil, err
	}
	c, err := s.repos.Contractor.GetByID(id)
	if err != nil {
		return nil, notFound(id, err)
	}
	return c, nil
}

// List returns all contractors with their assigned complaint counts.
func (s *Service) List(ctx context.Context, actor authz.Actor) ([]models.ContractorWithCount, error) {
	if err := authz.Authorize(actor, authz.OpListContractors); err != nil {
		return nil, err
	}
	return s.repos.Contractor.ListWithCounts()
}

// ListActive returns the contractors offered in assignment pickers.
func (s *Service) ListActive(ctx context.Context, actor authz.Actor) ([]models.Contractor, error) {
	if err := authz.Authorize(actor, authz.OpListContractors); err != nil {
		return nil, err
	}
	return s.repos.Contractor.ListActive()
}

var errInvalidLogin = apperror.Unauthorized("invalid email or password")

// Authenticate checks contractor credentials. Inactive contractors cannot log in.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.Contractor, error) {
	c, err := s.repos.Contractor.GetByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errInvalidLogin
		}
		return nil, fmt.Errorf("load contractor: %w", err)
	}
	if !c.CheckPassword(password) {
		return nil, errInvalidLogin
	}
	if !c.IsActive {
		return nil, apperror.Unauthorized("your contractor account is inactive")
	}
	return c, nil
}

// IsActive reports whether the contractor still exists and is active.
func (s *Service) IsActive(ctx context.Context, id uint) (bool, error) {
	c, err := s.repos.Contractor.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return c.IsActive, nil
}
