package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

type Contractor struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name" validate:"required,max=255"`
	ContactNumber  string    `gorm:"type:varchar(20);default:null" json:"contact_number" validate:"max=20"`
	Specialization string    `gorm:"type:varchar(100);not null" json:"specialization" validate:"required,oneof=water road garbage electricity sewage parks streetlights traffic other"`
	AreaAssigned   string    `gorm:"type:varchar(255);default:null" json:"area_assigned" validate:"max=255"`
	IsActive       bool      `gorm:"not null" json:"is_active"`
	Email          string    `gorm:"uniqueIndex;type:varchar(200);not null" json:"email" validate:"required,email,max=200"`
	Password       string    `gorm:"type:varchar(128);not null" json:"-" validate:"required"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Contractor) Validate() error {
	v := validator.New()

	return v.Struct(c)
}

// SetCredential stores the secret, hashing it only when the caller marked it raw.
func (c *Contractor) SetCredential(cred Credential) error {
	stored, err := cred.Stored()
	if err != nil {
		return err
	}
	c.Password = stored
	return nil
}

// CheckPassword verifies a raw password against the stored hash.
func (c *Contractor) CheckPassword(password string) bool {
	return CheckPasswordHash(password, c.Password)
}

// SpecializationLabel returns the display label of the specialization.
func (c *Contractor) SpecializationLabel() string {
	return CategoryLabel(c.Specialization)
}
