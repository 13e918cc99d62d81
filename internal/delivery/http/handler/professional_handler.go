package handler

import (
	"encoding/json"
	"net/http"

	"wound-analysis-service/internal/delivery/dto"
	"wound-analysis-service/internal/usecase"
	"wound-analysis-service/pkg/response"
	"wound-analysis-service/pkg/validator"
)

type ProfessionalHandler struct {
	professionalUsecase usecase.ProfessionalUsecase
	validator           *validator.CustomValidator
}

func NewProfessionalHandler(professionalUsecase usecase.ProfessionalUsecase, validator *validator.CustomValidator) *ProfessionalHandler {
	return &ProfessionalHandler{
		professionalUsecase: professionalUsecase,
		validator:           validator,
	}
}

func (h *ProfessionalHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.ProfessionalRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	professional, err := h.professionalUsecase.Register(r.Context(), &req)
	if err != nil {
		switch err {
		case usecase.ErrProfessionalNationalIDExists:
			response.Conflict(w, "National ID already registered to another professional")
		case usecase.ErrProfessionalEmailExists:
			response.Conflict(w, "Email already registered to another professional")
		default:
			response.InternalServerError(w, "Failed to register professional")
		}
		return
	}

	response.Success(w, http.StatusCreated, "Professional registered successfully", professional)
}

func (h *ProfessionalHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	professional, err := h.professionalUsecase.GetProfile(r.Context())
	if err != nil {
		switch err {
		case usecase.ErrProfessionalNotRegistered:
			response.NotFound(w, "Professional profile not found, complete registration first")
		default:
			response.InternalServerError(w, "Failed to get profile")
		}
		return
	}

	response.Success(w, http.StatusOK, "Profile retrieved successfully", professional)
}
