package repository

import (
	"github.com/ManuelReschke/UrbanFix/app/models"
	"gorm.io/gorm"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByName retrieves a user by the unique username
func (r *userRepository) GetByName(name string) (*models.User, error) {
	var user models.User
	err := r.db.Where("name = ?", name).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// ListWithComplaintCounts returns citizens (non admins) with the number of complaints they submitted
func (r *userRepository) ListWithComplaintCounts(offset, limit int) ([]models.UserWithCount, error) {
	var users []models.User
	q := r.db.Where("role = ?", models.ROLE_USER).Order("created_at DESC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return []models.UserWithCount{}, nil
	}

	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	type row struct {
		UserID uint
		Total  int64
	}
	var rows []row
	err := r.db.Model(&models.Complaint{}).
		Select("user_id, COUNT(*) AS total").
		Where("user_id IN ?", ids).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uint]int64, len(rows))
	for _, rw := range rows {
		counts[rw.UserID] = rw.Total
	}

	result := make([]models.UserWithCount, 0, len(users))
	for _, u := range users {
		result = append(result, models.UserWithCount{User: u, ComplaintCount: counts[u.ID]})
	}
	return result, nil
}

func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("role = ?", models.ROLE_USER).Count(&count).Error
	return count, err
}
