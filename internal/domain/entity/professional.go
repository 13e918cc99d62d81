package entity

import (
	"time"

	"github.com/google/uuid"
)

// Professional represents a registered healthcare professional. SubjectID is
// the canonical link to the external identity provider; lookups always go
// through it, never through email or national id.
type Professional struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SubjectID      string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"subject_id"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	NationalID     string    `gorm:"type:char(11);uniqueIndex;not null" json:"national_id"`
	Email          string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Phone          string    `gorm:"type:varchar(20);not null" json:"phone"`
	ProfessionType string    `gorm:"type:varchar(64);not null" json:"profession_type"`
	LicenseNumber  string    `gorm:"type:varchar(32)" json:"license_number,omitempty"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Patients []Patient  `gorm:"foreignKey:ProfessionalID" json:"patients,omitempty"`
	Analyses []Analysis `gorm:"foreignKey:ProfessionalID" json:"analyses,omitempty"`
}

func (Professional) TableName() string {
	return "professionals"
}
