package repository

import (
	"sort"

	"github.com/ManuelReschke/UrbanFix/app/models"
	"gorm.io/gorm"
)

// contractorRepository implements the ContractorRepository interface
type contractorRepository struct {
	db *gorm.DB
}

// NewContractorRepository creates a new contractor repository instance
func NewContractorRepository(db *gorm.DB) ContractorRepository {
	return &contractorRepository{db: db}
}

func (r *contractorRepository) Create(contractor *models.Contractor) error {
	return r.db.Create(contractor).Error
}

func (r *contractorRepository) GetByID(id uint) (*models.Contractor, error) {
	var contractor models.Contractor
	if err := r.db.First(&contractor, id).Error; err != nil {
		return nil, err
	}
	return &contractor, nil
}

// GetByIDLocked reads the contractor row with the given lock. Only meaningful inside a transaction.
func (r *contractorRepository) GetByIDLocked(id uint, mode LockMode) (*models.Contractor, error) {
	q := r.db
	if lock, ok := lockClause(mode); ok {
		q = q.Clauses(lock)
	}
	var contractor models.Contractor
	if err := q.First(&contractor, id).Error; err != nil {
		return nil, err
	}
	return &contractor, nil
}

func (r *contractorRepository) GetByEmail(email string) (*models.Contractor, error) {
	var contractor models.Contractor
	if err := r.db.Where("email = ?", email).First(&contractor).Error; err != nil {
		return nil, err
	}
	return &contractor, nil
}

// Update saves all columns; IsActive=false is written too
func (r *contractorRepository) Update(contractor *models.Contractor) error {
	return r.db.Save(contractor).Error
}

func (r *contractorRepository) Delete(id uint) error {
	return r.db.Delete(&models.Contractor{}, id).Error
}

type contractorCountRow struct {
	AssignedToID uint
	Total        int64
	OpenCount    int64
}

func (r *contractorRepository) assignmentCounts() (map[uint]contractorCountRow, error) {
	var rows []contractorCountRow
	err := r.db.Model(&models.Complaint{}).
		Select("assigned_to_id, COUNT(*) AS total, SUM(CASE WHEN status IN ? THEN 1 ELSE 0 END) AS open_count",
			[]string{models.ComplaintStatusPending, models.ComplaintStatusInProgress}).
		Where("assigned_to_id IS NOT NULL").
		Group("assigned_to_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uint]contractorCountRow, len(rows))
	for _, rw := range rows {
		counts[rw.AssignedToID] = rw
	}
	return counts, nil
}

// ListWithCounts returns all contractors ordered by name with their assigned complaint counts
func (r *contractorRepository) ListWithCounts() ([]models.ContractorWithCount, error) {
	var contractors []models.Contractor
	if err := r.db.Order("name ASC").Find(&contractors).Error; err != nil {
		return nil, err
	}
	counts, err := r.assignmentCounts()
	if err != nil {
		return nil, err
	}
	result := make([]models.ContractorWithCount, 0, len(contractors))
	for _, c := range contractors {
		result = append(result, models.ContractorWithCount{Contractor: c, AssignedCount: counts[c.ID].Total})
	}
	return result, nil
}

func (r *contractorRepository) ListActive() ([]models.Contractor, error) {
	var contractors []models.Contractor
	err := r.db.Where("is_active = ?", true).Order("name ASC").Find(&contractors).Error
	return contractors, err
}

func (r *contractorRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Contractor{}).Count(&count).Error
	return count, err
}

func (r *contractorRepository) CountActive() (int64, error) {
	var count int64
	err := r.db.Model(&models.Contractor{}).Where("is_active = ?", true).Count(&count).Error
	return count, err
}

// Workload lists every contractor with its assigned and still open complaints, busiest first
func (r *contractorRepository) Workload() ([]models.ContractorWorkload, error) {
	var contractors []models.Contractor
	if err := r.db.Order("name ASC").Find(&contractors).Error; err != nil {
		return nil, err
	}
	counts, err := r.assignmentCounts()
	if err != nil {
		return nil, err
	}
	result := make([]models.ContractorWorkload, 0, len(contractors))
	for _, c := range contractors {
		result = append(result, models.ContractorWorkload{
			ContractorID: c.ID,
			Name:         c.Name,
			Assigned:     counts[c.ID].Total,
			Open:         counts[c.ID].OpenCount,
		})
	}
	SortWorkload(result)
	return result, nil
}

// SortWorkload orders by assigned count descending, then by name.
func SortWorkload(w []models.ContractorWorkload) {
	sort.SliceStable(w, func(i, j int) bool {
		if w[i].Assigned != w[j].Assigned {
			return w[i].Assigned > w[j].Assigned
		}
		return w[i].Name < w[j].Name
	})
}
