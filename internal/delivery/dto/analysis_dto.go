package dto

import (
	"time"

	"wound-analysis-service/pkg/imaging"

	"github.com/google/uuid"
)

// Request DTOs

// RegionSubmission is a finalized rectangle in working-image pixel space,
// sent to the classification stage after the professional reviewed the
// detected candidates.
type RegionSubmission struct {
	XMin int `json:"x_min" validate:"min=0"`
	YMin int `json:"y_min" validate:"min=0"`
	XMax int `json:"x_max" validate:"gtfield=XMin"`
	YMax int `json:"y_max" validate:"gtfield=YMin"`
}

type AnalysisClassifyRequest struct {
	Image   string             `json:"image" validate:"required,base64"`
	Regions []RegionSubmission `json:"regions" validate:"required,min=1,dive"`
}

// RegionPayload is one classified region of a save request, in
// original-image pixel space.
type RegionPayload struct {
	XMin       int     `json:"x_min" validate:"min=0"`
	YMin       int     `json:"y_min" validate:"min=0"`
	XMax       int     `json:"x_max" validate:"gtfield=XMin"`
	YMax       int     `json:"y_max" validate:"gtfield=YMin"`
	Label      string  `json:"label" validate:"required,max=64"`
	Confidence float64 `json:"confidence" validate:"min=0,max=1"`
	Diagnosis  string  `json:"diagnosis" validate:"omitempty,max=2000"`
}

type AnalysisSaveRequest struct {
	PatientID string          `json:"patient_id" validate:"required,uuid"`
	Image     string          `json:"image" validate:"required,base64"`
	Diagnosis string          `json:"diagnosis" validate:"required,max=5000"`
	Regions   []RegionPayload `json:"regions" validate:"dive"`
}

// Response DTOs

// RegionCandidateResponse is one detected candidate in working-image
// pixel space.
type RegionCandidateResponse struct {
	XMin       int     `json:"x_min"`
	YMin       int     `json:"y_min"`
	XMax       int     `json:"x_max"`
	YMax       int     `json:"y_max"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	SubImage   string  `json:"sub_image,omitempty"`
}

type AnalysisDetectResponse struct {
	WorkingImage     string                    `json:"working_image"`
	Regions          []RegionCandidateResponse `json:"regions"`
	Resize           imaging.ResizeMeta        `json:"resize"`
	InferenceSeconds float64                   `json:"inference_seconds"`
	Device           string                    `json:"device,omitempty"`
}

type AnalysisClassifyResponse struct {
	Regions []RegionCandidateResponse `json:"regions"`
}

type RegionResponse struct {
	XMin       int     `json:"x_min"`
	YMin       int     `json:"y_min"`
	XMax       int     `json:"x_max"`
	YMax       int     `json:"y_max"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Diagnosis  string  `json:"diagnosis,omitempty"`
	SubImage   string  `json:"sub_image,omitempty"`
}

type AnalysisResponse struct {
	ID             uuid.UUID        `json:"id"`
	ProfessionalID uuid.UUID        `json:"professional_id"`
	PatientID      uuid.UUID        `json:"patient_id"`
	ImageURL       string           `json:"image_url"`
	Status         string           `json:"status"`
	Diagnosis      string           `json:"diagnosis"`
	Regions        []RegionResponse `json:"regions"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}
