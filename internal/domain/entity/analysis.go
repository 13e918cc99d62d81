package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AnalysisStatus tracks the save saga. A record is created pending, flipped
// to complete once the image upload finished and the public URL is known,
// and marked failed when the upload errored. Failed and stale pending rows
// are reclaimed by the sweep.
type AnalysisStatus string

const (
	AnalysisStatusPending  AnalysisStatus = "pending"
	AnalysisStatusComplete AnalysisStatus = "complete"
	AnalysisStatusFailed   AnalysisStatus = "failed"
)

// Region is a rectangular sub-area of the analyzed image, stored in
// original-image pixel space, with the model's classification and an
// optional clinician note.
type Region struct {
	XMin       int     `json:"x_min"`
	YMin       int     `json:"y_min"`
	XMax       int     `json:"x_max"`
	YMax       int     `json:"y_max"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Diagnosis  string  `json:"diagnosis,omitempty"`
}

// RegionList is stored as a single JSONB column.
type RegionList []Region

// Value implements driver.Valuer for JSONB storage
func (l RegionList) Value() (driver.Value, error) {
	if l == nil {
		l = RegionList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner
func (l *RegionList) Scan(value interface{}) error {
	if value == nil {
		*l = RegionList{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New(fmt.Sprint("Failed to unmarshal JSONB value:", value))
	}
	return json.Unmarshal(bytes, l)
}

// Analysis references exactly one patient and one professional, both of
// which must already exist. Complete analyses are immutable.
type Analysis struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProfessionalID uuid.UUID      `gorm:"type:uuid;not null;index" json:"professional_id"`
	PatientID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"patient_id"`
	ImageURL       string         `gorm:"type:text;not null;default:''" json:"image_url"`
	Status         AnalysisStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	Regions        RegionList     `gorm:"type:jsonb;not null" json:"regions"`
	Diagnosis      string         `gorm:"type:text;not null" json:"diagnosis"`
	CreatedAt      time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Professional *Professional `gorm:"foreignKey:ProfessionalID" json:"professional,omitempty"`
	Patient      *Patient      `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
}

func (Analysis) TableName() string {
	return "analyses"
}

// ObjectPath is the storage key for the analysis image.
func (a *Analysis) ObjectPath() string {
	return fmt.Sprintf("analyses/%s_%s_%s.jpg", a.ProfessionalID, a.PatientID, a.ID)
}
