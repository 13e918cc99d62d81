package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

// ProfessionalRegisterRequest creates or updates the profile bound to the
// verified subject. Subject id and email come from the credential, never
// from the body.
type ProfessionalRegisterRequest struct {
	Name           string `json:"name" validate:"required,min=3,max=255"`
	NationalID     string `json:"national_id" validate:"required,nationalid"`
	Phone          string `json:"phone" validate:"required,min=8,max=20"`
	ProfessionType string `json:"profession_type" validate:"required,oneof=doctor nurse physiotherapist other"`
	LicenseNumber  string `json:"license_number" validate:"omitempty,max=32"`
}

// Response DTOs

type ProfessionalResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	NationalID     string    `json:"national_id"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	ProfessionType string    `json:"profession_type"`
	LicenseNumber  string    `json:"license_number,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
