package converter

import (
	"wound-analysis-service/internal/delivery/dto"
	"wound-analysis-service/internal/domain/entity"
)

// PatientToResponse converts a Patient entity to PatientResponse DTO
func PatientToResponse(patient *entity.Patient) *dto.PatientResponse {
	if patient == nil {
		return nil
	}

	return &dto.PatientResponse{
		ID:         patient.ID,
		Name:       patient.Name,
		NationalID: patient.NationalID,
		BirthDate:  patient.BirthDate.Format("2006-01-02"),
		Gender:     patient.Gender,
		Phone:      patient.Phone,
		Email:      derefString(patient.Email),
		Address:    derefString(patient.Address),
		Insurance:  derefString(patient.Insurance),
		CreatedAt:  patient.CreatedAt,
		UpdatedAt:  patient.UpdatedAt,
	}
}

// PatientToResponseWithCount attaches the analysis count shown in listings
func PatientToResponseWithCount(patient *entity.Patient, analysisCount int64) *dto.PatientResponse {
	response := PatientToResponse(patient)
	if response == nil {
		return nil
	}
	response.AnalysisCount = analysisCount
	return response
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
