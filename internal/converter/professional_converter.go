package converter

import (
	"wound-analysis-service/internal/delivery/dto"
	"wound-analysis-service/internal/domain/entity"
)

// ProfessionalToResponse converts a Professional entity to ProfessionalResponse DTO
func ProfessionalToResponse(professional *entity.Professional) *dto.ProfessionalResponse {
	if professional == nil {
		return nil
	}

	return &dto.ProfessionalResponse{
		ID:             professional.ID,
		Name:           professional.Name,
		NationalID:     professional.NationalID,
		Email:          professional.Email,
		Phone:          professional.Phone,
		ProfessionType: professional.ProfessionType,
		LicenseNumber:  professional.LicenseNumber,
		CreatedAt:      professional.CreatedAt,
		UpdatedAt:      professional.UpdatedAt,
	}
}
