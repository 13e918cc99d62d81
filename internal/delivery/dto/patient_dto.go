package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type PatientCreateRequest struct {
	Name       string `json:"name" validate:"required,min=3,max=255"`
	NationalID string `json:"national_id" validate:"required,nationalid"`
	BirthDate  string `json:"birth_date" validate:"required"`
	Gender     string `json:"gender" validate:"required,oneof=male female other"`
	Phone      string `json:"phone" validate:"required,min=8,max=20"`
	Email      string `json:"email" validate:"omitempty,email"`
	Address    string `json:"address" validate:"omitempty,max=500"`
	Insurance  string `json:"insurance" validate:"omitempty,max=128"`
}

// PatientUpdateRequest is a partial merge: empty fields keep their stored
// value. National id is not editable after creation.
type PatientUpdateRequest struct {
	Name      string `json:"name" validate:"omitempty,min=3,max=255"`
	BirthDate string `json:"birth_date" validate:"omitempty"`
	Gender    string `json:"gender" validate:"omitempty,oneof=male female other"`
	Phone     string `json:"phone" validate:"omitempty,min=8,max=20"`
	Email     string `json:"email" validate:"omitempty,email"`
	Address   string `json:"address" validate:"omitempty,max=500"`
	Insurance string `json:"insurance" validate:"omitempty,max=128"`
}

type PatientListRequest struct {
	Search string `json:"search"`
	Page   int    `json:"page" validate:"min=1"`
	Limit  int    `json:"limit" validate:"min=1,max=100"`
}

// Response DTOs

type PatientResponse struct {
	ID            uuid.UUID          `json:"id"`
	Name          string             `json:"name"`
	NationalID    string             `json:"national_id"`
	BirthDate     string             `json:"birth_date"`
	Gender        string             `json:"gender"`
	Phone         string             `json:"phone"`
	Email         string             `json:"email,omitempty"`
	Address       string             `json:"address,omitempty"`
	Insurance     string             `json:"insurance,omitempty"`
	AnalysisCount int64              `json:"analysis_count"`
	Analyses      []AnalysisResponse `json:"analyses,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}
