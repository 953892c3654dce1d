package repository

import (
	"strconv"
	"strings"
	"time"

	"github.com/ManuelReschke/UrbanFix/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// complaintRepository implements the ComplaintRepository interface
type complaintRepository struct {
	db *gorm.DB
}

// NewComplaintRepository creates a new complaint repository instance
func NewComplaintRepository(db *gorm.DB) ComplaintRepository {
	return &complaintRepository{db: db}
}

func lockClause(mode LockMode) (clause.Locking, bool) {
	switch mode {
	case LockShare:
		return clause.Locking{Strength: "SHARE"}, true
	case LockUpdate:
		return clause.Locking{Strength: "UPDATE"}, true
	default:
		return clause.Locking{}, false
	}
}

func (r *complaintRepository) Create(complaint *models.Complaint) error {
	return r.db.Create(complaint).Error
}

// GetByReportID retrieves a complaint with its submitter and contractor
func (r *complaintRepository) GetByReportID(reportID string) (*models.Complaint, error) {
	var complaint models.Complaint
	err := r.db.Preload("User").Preload("AssignedTo").
		Where("report_id = ?", reportID).First(&complaint).Error
	if err != nil {
		return nil, err
	}
	return &complaint, nil
}

// GetByReportIDLocked reads the complaint row with the given lock. Only meaningful inside a transaction.
func (r *complaintRepository) GetByReportIDLocked(reportID string, mode LockMode) (*models.Complaint, error) {
	q := r.db
	if lock, ok := lockClause(mode); ok {
		q = q.Clauses(lock)
	}
	var complaint models.Complaint
	if err := q.Where("report_id = ?", reportID).First(&complaint).Error; err != nil {
		return nil, err
	}
	return &complaint, nil
}

// ReportIDExists also sees deleted complaints so identifiers are never reused
func (r *complaintRepository) ReportIDExists(reportID string) (bool, error) {
	var count int64
	err := r.db.Unscoped().Model(&models.Complaint{}).Where("report_id = ?", reportID).Count(&count).Error
	return count > 0, err
}

// SaveAssignment writes the assignment columns together with the coupled status
func (r *complaintRepository) SaveAssignment(complaint *models.Complaint) error {
	return r.db.Model(complaint).
		Select("AssignedToID", "AssignedAt", "Status").
		Updates(complaint).Error
}

func (r *complaintRepository) SaveStatus(complaint *models.Complaint) error {
	return r.db.Model(complaint).Update("status", complaint.Status).Error
}

// Delete soft deletes a complaint and releases its contractor reference
func (r *complaintRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Complaint{}).Where("id = ?", id).Update("assigned_to_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Complaint{}, id).Error
	})
}

func (r *complaintRepository) applyFilter(q *gorm.DB, filter ComplaintFilter) *gorm.DB {
	if filter.Category != "" {
		q = q.Where("complaints.category = ?", filter.Category)
	}
	if filter.Status != "" {
		q = q.Where("complaints.status = ?", filter.Status)
	}
	switch filter.Contractor {
	case "":
	case ContractorFilterUnassigned:
		q = q.Where("complaints.assigned_to_id IS NULL")
	case ContractorFilterAssigned:
		q = q.Where("complaints.assigned_to_id IS NOT NULL")
	default:
		if id, err := strconv.ParseUint(filter.Contractor, 10, 64); err == nil {
			q = q.Where("complaints.assigned_to_id = ?", id)
		}
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Joins("LEFT JOIN users ON users.id = complaints.user_id").
			Where("LOWER(complaints.report_id) LIKE ? OR LOWER(complaints.category) LIKE ? OR LOWER(users.name) LIKE ?", like, like, like)
	}
	return q
}

// List returns one page of complaints matching filter, newest first, and the total match count
func (r *complaintRepository) List(filter ComplaintFilter) ([]models.Complaint, int64, error) {
	var total int64
	if err := r.applyFilter(r.db.Model(&models.Complaint{}), filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var complaints []models.Complaint
	q := r.applyFilter(r.db.Model(&models.Complaint{}), filter).
		Preload("User").Preload("AssignedTo").
		Order("complaints.submitted_at DESC").
		Offset(filter.Offset)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Find(&complaints).Error; err != nil {
		return nil, 0, err
	}
	return complaints, total, nil
}

func (r *complaintRepository) ListByUser(userID uint) ([]models.Complaint, error) {
	var complaints []models.Complaint
	err := r.db.Preload("AssignedTo").Where("user_id = ?", userID).
		Order("submitted_at DESC").Find(&complaints).Error
	return complaints, err
}

// ListByAssignee returns the contractor's complaints, most recently assigned first
func (r *complaintRepository) ListByAssignee(contractorID uint) ([]models.Complaint, error) {
	var complaints []models.Complaint
	err := r.db.Preload("User").Where("assigned_to_id = ?", contractorID).
		Order("assigned_at DESC").Order("id DESC").Find(&complaints).Error
	return complaints, err
}

// CountByAssignee counts complaints currently referencing the contractor
func (r *complaintRepository) CountByAssignee(contractorID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Complaint{}).Where("assigned_to_id = ?", contractorID).Count(&count).Error
	return count, err
}

func applyScope(q *gorm.DB, scope ComplaintScope) *gorm.DB {
	if scope.UserID != 0 {
		q = q.Where("user_id = ?", scope.UserID)
	}
	if scope.AssignedToID != 0 {
		q = q.Where("assigned_to_id = ?", scope.AssignedToID)
	}
	if scope.AssignedOnly {
		q = q.Where("assigned_to_id IS NOT NULL")
	}
	return q
}

func (r *complaintRepository) CountByStatus(scope ComplaintScope) (models.StatusCounts, error) {
	type row struct {
		Status string
		Total  int64
	}
	var rows []row
	var counts models.StatusCounts
	err := applyScope(r.db.Model(&models.Complaint{}), scope).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return counts, err
	}
	for _, rw := range rows {
		counts.Add(rw.Status, rw.Total)
	}
	return counts, nil
}

// CountByCategory returns complaint counts per category, largest first
func (r *complaintRepository) CountByCategory() ([]models.CategoryCount, error) {
	type row struct {
		Category string
		Total    int64
	}
	var rows []row
	err := r.db.Model(&models.Complaint{}).
		Select("category, COUNT(*) AS total").
		Group("category").
		Order("total DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]models.CategoryCount, 0, len(rows))
	for _, rw := range rows {
		result = append(result, models.CategoryCount{
			Category: rw.Category,
			Label:    models.CategoryLabel(rw.Category),
			Count:    rw.Total,
		})
	}
	return result, nil
}

func (r *complaintRepository) CountUnassigned() (int64, error) {
	var count int64
	err := r.db.Model(&models.Complaint{}).Where("assigned_to_id IS NULL").Count(&count).Error
	return count, err
}

// CountPerMonth groups complaints submitted since the given time by month (YYYY-MM) and status
func (r *complaintRepository) CountPerMonth(since time.Time, scope ComplaintScope) ([]MonthStatusCount, error) {
	var rows []MonthStatusCount
	err := applyScope(r.db.Model(&models.Complaint{}), scope).
		Select("DATE_FORMAT(submitted_at, '%Y-%m') AS month, status, COUNT(*) AS count").
		Where("submitted_at >= ?", since).
		Group("month, status").
		Order("month ASC").
		Scan(&rows).Error
	return rows, err
}

// CountAssignedPerMonth groups a contractor's complaints by the month of their first assignment
func (r *complaintRepository) CountAssignedPerMonth(contractorID uint, since time.Time) ([]models.MonthlyCount, error) {
	var rows []models.MonthlyCount
	err := r.db.Model(&models.Complaint{}).
		Select("DATE_FORMAT(assigned_at, '%Y-%m') AS month, COUNT(*) AS count").
		Where("assigned_to_id = ? AND assigned_at >= ?", contractorID, since).
		Group("month").
		Order("month ASC").
		Scan(&rows).Error
	return rows, err
}
