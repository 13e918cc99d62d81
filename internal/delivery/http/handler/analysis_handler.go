package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"wound-analysis-service/internal/delivery/dto"
	"wound-analysis-service/internal/infrastructure/inference"
	"wound-analysis-service/internal/service"
	"wound-analysis-service/internal/usecase"
	"wound-analysis-service/pkg/response"
	"wound-analysis-service/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Uploaded wound photos are a few MB; this bounds multipart memory use.
const maxUploadSize = 32 << 20

type AnalysisHandler struct {
	analysisUsecase usecase.AnalysisUsecase
	validator       *validator.CustomValidator
}

func NewAnalysisHandler(analysisUsecase usecase.AnalysisUsecase, validator *validator.CustomValidator) *AnalysisHandler {
	return &AnalysisHandler{
		analysisUsecase: analysisUsecase,
		validator:       validator,
	}
}

func (h *AnalysisHandler) Detect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid multipart form", nil)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Image file is required", nil)
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Failed to read image file", nil)
		return
	}

	result, err := h.analysisUsecase.Detect(r.Context(), header.Filename, header.Header.Get("Content-Type"), image)
	if err != nil {
		h.writeWorkflowError(w, err, "Failed to run detection")
		return
	}

	response.Success(w, http.StatusOK, "Detection completed successfully", result)
}

func (h *AnalysisHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req dto.AnalysisClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := h.analysisUsecase.Classify(r.Context(), &req)
	if err != nil {
		h.writeWorkflowError(w, err, "Failed to run classification")
		return
	}

	response.Success(w, http.StatusOK, "Classification completed successfully", result)
}

func (h *AnalysisHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req dto.AnalysisSaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	analysis, err := h.analysisUsecase.Save(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrPatientNotFound):
			response.NotFound(w, "Patient not found")
		case errors.Is(err, usecase.ErrInvalidImage), errors.Is(err, usecase.ErrMissingImage):
			response.Error(w, http.StatusBadRequest, "Image is not valid base64 data", nil)
		case errors.Is(err, service.ErrDuplicateRequest):
			response.Conflict(w, "An identical analysis was just submitted")
		case errors.Is(err, usecase.ErrImageUploadFailed):
			response.ServiceUnavailable(w, "Image upload failed, analysis marked failed")
		default:
			response.InternalServerError(w, "Failed to save analysis")
		}
		return
	}

	response.Success(w, http.StatusCreated, "Analysis saved successfully", analysis)
}

func (h *AnalysisHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := h.analysisID(w, r)
	if !ok {
		return
	}

	analysis, err := h.analysisUsecase.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, usecase.ErrAnalysisNotFound) {
			response.NotFound(w, "Analysis not found")
			return
		}
		response.InternalServerError(w, "Failed to get analysis")
		return
	}

	response.Success(w, http.StatusOK, "Analysis retrieved successfully", analysis)
}

func (h *AnalysisHandler) GetAnalysisDetailed(w http.ResponseWriter, r *http.Request) {
	id, ok := h.analysisID(w, r)
	if !ok {
		return
	}

	analysis, err := h.analysisUsecase.GetDetailed(r.Context(), id)
	if err != nil {
		if errors.Is(err, usecase.ErrAnalysisNotFound) {
			response.NotFound(w, "Analysis not found")
			return
		}
		response.InternalServerError(w, "Failed to get analysis")
		return
	}

	response.Success(w, http.StatusOK, "Analysis retrieved successfully", analysis)
}

func (h *AnalysisHandler) writeWorkflowError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, usecase.ErrMissingImage):
		response.Error(w, http.StatusBadRequest, "Image file is required", nil)
	case errors.Is(err, usecase.ErrInvalidImage):
		response.Error(w, http.StatusBadRequest, "Image is not valid base64 data", nil)
	case errors.Is(err, inference.ErrUnavailable), errors.Is(err, inference.ErrInvalidResponse):
		response.ServiceUnavailable(w, "Inference service is unavailable")
	default:
		response.InternalServerError(w, fallback)
	}
}

func (h *AnalysisHandler) analysisID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid analysis ID", nil)
		return uuid.Nil, false
	}
	return id, true
}
