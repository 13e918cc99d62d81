package converter

import (
	"wound-analysis-service/internal/delivery/dto"
	"wound-analysis-service/internal/domain/entity"
)

// AnalysisToResponse converts an Analysis entity to AnalysisResponse DTO
func AnalysisToResponse(analysis *entity.Analysis) *dto.AnalysisResponse {
	if analysis == nil {
		return nil
	}

	return &dto.AnalysisResponse{
		ID:             analysis.ID,
		ProfessionalID: analysis.ProfessionalID,
		PatientID:      analysis.PatientID,
		ImageURL:       analysis.ImageURL,
		Status:         string(analysis.Status),
		Diagnosis:      analysis.Diagnosis,
		Regions:        RegionsToResponses(analysis.Regions),
		CreatedAt:      analysis.CreatedAt,
		UpdatedAt:      analysis.UpdatedAt,
	}
}

// AnalysesToResponses converts a slice of Analysis entities to response DTOs
func AnalysesToResponses(analyses []entity.Analysis) []dto.AnalysisResponse {
	responses := make([]dto.AnalysisResponse, len(analyses))
	for i := range analyses {
		responses[i] = *AnalysisToResponse(&analyses[i])
	}
	return responses
}

// RegionsToResponses converts stored regions to response DTOs
func RegionsToResponses(regions entity.RegionList) []dto.RegionResponse {
	responses := make([]dto.RegionResponse, len(regions))
	for i, region := range regions {
		responses[i] = dto.RegionResponse{
			XMin:       region.XMin,
			YMin:       region.YMin,
			XMax:       region.XMax,
			YMax:       region.YMax,
			Label:      region.Label,
			Confidence: region.Confidence,
			Diagnosis:  region.Diagnosis,
		}
	}
	return responses
}

// RegionPayloadsToEntities converts save-request regions to stored regions
func RegionPayloadsToEntities(payloads []dto.RegionPayload) entity.RegionList {
	regions := make(entity.RegionList, len(payloads))
	for i, payload := range payloads {
		regions[i] = entity.Region{
			XMin:       payload.XMin,
			YMin:       payload.YMin,
			XMax:       payload.XMax,
			YMax:       payload.YMax,
			Label:      payload.Label,
			Confidence: payload.Confidence,
			Diagnosis:  payload.Diagnosis,
		}
	}
	return regions
}
