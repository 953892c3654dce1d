package repository

import (
	"time"

	"github.com/ManuelReschke/UrbanFix/app/models"
	"gorm.io/gorm"
)

// LockMode selects the row lock taken by locking reads inside a transaction.
type LockMode int

const (
	LockNone LockMode = iota
	LockShare
	LockUpdate
)

// Contractor filter values of ComplaintFilter besides a numeric contractor id.
const (
	ContractorFilterUnassigned = "unassigned"
	ContractorFilterAssigned   = "assigned"
)

// ComplaintFilter narrows complaint listings. Zero values mean "no filter".
type ComplaintFilter struct {
	Category   string
	Status     string
	Contractor string
	Search     string
	Offset     int
	Limit      int
}

// ComplaintScope restricts aggregate queries to one citizen or one contractor.
type ComplaintScope struct {
	UserID       uint
	AssignedToID uint
	AssignedOnly bool
}

// MonthStatusCount is one row of a per month and status aggregation.
type MonthStatusCount struct {
	Month  string
	Status string
	Count  int64
}

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByName(name string) (*models.User, error)
	Update(user *models.User) error
	ListWithComplaintCounts(offset, limit int) ([]models.UserWithCount, error)
	Count() (int64, error)
}

// ComplaintRepository defines the interface for complaint-related database operations
type ComplaintRepository interface {
	Create(complaint *models.Complaint) error
	GetByReportID(reportID string) (*models.Complaint, error)
	GetByReportIDLocked(reportID string, mode LockMode) (*models.Complaint, error)
	ReportIDExists(reportID string) (bool, error)
	SaveAssignment(complaint *models.Complaint) error
	SaveStatus(complaint *models.Complaint) error
	Delete(id uint) error
	List(filter ComplaintFilter) ([]models.Complaint, int64, error)
	ListByUser(userID uint) ([]models.Complaint, error)
	ListByAssignee(contractorID uint) ([]models.Complaint, error)
	CountByAssignee(contractorID uint) (int64, error)
	CountByStatus(scope ComplaintScope) (models.StatusCounts, error)
	CountByCategory() ([]models.CategoryCount, error)
	CountUnassigned() (int64, error)
	CountPerMonth(since time.Time, scope ComplaintScope) ([]MonthStatusCount, error)
	CountAssignedPerMonth(contractorID uint, since time.Time) ([]models.MonthlyCount, error)
}

// ContractorRepository defines the interface for contractor-related database operations
type ContractorRepository interface {
	Create(contractor *models.Contractor) error
	GetByID(id uint) (*models.Contractor, error)
	GetByIDLocked(id uint, mode LockMode) (*models.Contractor, error)
	GetByEmail(email string) (*models.Contractor, error)
	Update(contractor *models.Contractor) error
	Delete(id uint) error
	ListWithCounts() ([]models.ContractorWithCount, error)
	ListActive() ([]models.Contractor, error)
	Count() (int64, error)
	CountActive() (int64, error)
	Workload() ([]models.ContractorWorkload, error)
}

// Transactor runs fn atomically against repositories bound to one transaction.
type Transactor interface {
	Transaction(fn func(tx *Repositories) error) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User       UserRepository
	Complaint  ComplaintRepository
	Contractor ContractorRepository

	db *gorm.DB
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:       NewUserRepository(db),
		Complaint:  NewComplaintRepository(db),
		Contractor: NewContractorRepository(db),
		db:         db,
	}
}

// Transaction runs fn inside a database transaction. Repositories passed to fn
// share the transaction; the transaction is rolled back when fn returns an error.
func (r *Repositories) Transaction(fn func(tx *Repositories) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
