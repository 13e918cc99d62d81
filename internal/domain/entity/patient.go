package entity

import (
	"time"

	"github.com/google/uuid"
)

// Patient is always owned by exactly one professional. The database enforces
// national-id uniqueness per owner; when the registry is configured with
// global scope the usecase layer additionally checks across owners.
type Patient struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProfessionalID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_patients_owner_national_id" json:"professional_id"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	NationalID     string    `gorm:"type:char(11);not null;uniqueIndex:idx_patients_owner_national_id" json:"national_id"`
	BirthDate      time.Time `gorm:"type:date;not null" json:"birth_date"`
	Gender         string    `gorm:"type:varchar(10);not null" json:"gender"`
	Phone          string    `gorm:"type:varchar(20);not null" json:"phone"`
	Email          *string   `gorm:"type:varchar(255)" json:"email,omitempty"`
	Address        *string   `gorm:"type:text" json:"address,omitempty"`
	Insurance      *string   `gorm:"type:varchar(128)" json:"insurance,omitempty"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Professional *Professional `gorm:"foreignKey:ProfessionalID" json:"professional,omitempty"`
	Analyses     []Analysis    `gorm:"foreignKey:PatientID" json:"analyses,omitempty"`
}

func (Patient) TableName() string {
	return "patients"
}

// Gender constants
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)
