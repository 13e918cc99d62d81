package usecase

import (
	"context"
	"errors"
	"time"

	"wound-analysis-service/config"
	"wound-analysis-service/internal/converter"
	"wound-analysis-service/internal/delivery/dto"
	"wound-analysis-service/internal/delivery/http/middleware"
	"wound-analysis-service/internal/domain/entity"
	"wound-analysis-service/internal/domain/repository"
	"wound-analysis-service/internal/service"
	"wound-analysis-service/pkg/response"
	"wound-analysis-service/pkg/validator"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrPatientNotFound         = errors.New("patient not found")
	ErrPatientNationalIDExists = errors.New("national id already registered to another patient")
	ErrPatientHasAnalyses      = errors.New("patient has analyses and cannot be deleted")
	ErrInvalidDateFormat       = errors.New("invalid date format, use YYYY-MM-DD")
)

type PatientUsecase interface {
	Create(ctx context.Context, req *dto.PatientCreateRequest) (*dto.PatientResponse, error)
	List(ctx context.Context, req *dto.PatientListRequest) ([]dto.PatientResponse, *response.Meta, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.PatientResponse, error)
	Update(ctx context.Context, id uuid.UUID, req *dto.PatientUpdateRequest) (*dto.PatientResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListAnalyses(ctx context.Context, id uuid.UUID) ([]dto.AnalysisResponse, error)
}

type patientUsecase struct {
	db             *gorm.DB
	log            *logrus.Logger
	validate       *validator.CustomValidator
	workflowConfig config.WorkflowConfig
	patientRepo    repository.PatientRepository
	analysisRepo   repository.AnalysisRepository
	auditService   service.AuditService
}

func NewPatientUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	validate *validator.CustomValidator,
	workflowConfig config.WorkflowConfig,
	patientRepo repository.PatientRepository,
	analysisRepo repository.AnalysisRepository,
	auditService service.AuditService,
) PatientUsecase {
	return &patientUsecase{
		db:             db,
		log:            log,
		validate:       validate,
		workflowConfig: workflowConfig,
		patientRepo:    patientRepo,
		analysisRepo:   analysisRepo,
		auditService:   auditService,
	}
}

func (u *patientUsecase) Create(ctx context.Context, req *dto.PatientCreateRequest) (*dto.PatientResponse, error) {
	professional, ok := middleware.GetProfessionalFromContext(ctx)
	if !ok {
		return nil, errors.New("professional not found in context")
	}

	if err := u.validate.Validate(req); err != nil {
		return nil, err
	}

	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		return nil, ErrInvalidDateFormat
	}

	nationalID := validator.StripNationalID(req.NationalID)

	if err := u.checkNationalIDAvailable(ctx, nationalID, professional.ID, uuid.Nil); err != nil {
		return nil, err
	}

	patient := &entity.Patient{
		ProfessionalID: professional.ID,
		Name:           req.Name,
		NationalID:     nationalID,
		BirthDate:      birthDate,
		Gender:         req.Gender,
		Phone:          req.Phone,
		Email:          optionalString(req.Email),
		Address:        optionalString(req.Address),
		Insurance:      optionalString(req.Insurance),
	}

	if err := u.patientRepo.Create(ctx, u.db, patient); err != nil {
		if isDuplicateKeyError(err, "national_id") {
			return nil, ErrPatientNationalIDExists
		}
		u.log.Warnf("Failed to create patient: %+v", err)
		return nil, err
	}

	if err := u.auditService.LogCreate(ctx, u.db, &professional.ID, entity.AuditActionPatientCreate, "patient", patient.ID.String(), converter.PatientToResponse(patient)); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	return converter.PatientToResponse(patient), nil
}

func (u *patientUsecase) List(ctx context.Context, req *dto.PatientListRequest) ([]dto.PatientResponse, *response.Meta, error) {
	professional, ok := middleware.GetProfessionalFromContext(ctx)
	if !ok {
		return nil, nil, errors.New("professional not found in context")
	}

	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 10
	}

	offset := (req.Page - 1) * req.Limit

	patients, total, err := u.patientRepo.Search(ctx, u.db, professional.ID, req.Search, req.Limit, offset)
	if err != nil {
		u.log.Warnf("Failed to search patients: %+v", err)
		return nil, nil, err
	}

	responses := make([]dto.PatientResponse, len(patients))
	for i := range patients {
		count, err := u.analysisRepo.CountByPatientID(ctx, u.db, patients[i].ID)
		if err != nil {
			u.log.Warnf("Failed to count analyses for patient %s: %+v", patients[i].ID, err)
			count = 0
		}
		responses[i] = *converter.PatientToResponseWithCount(&patients[i], count)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))

	meta := &response.Meta{
		Page:       req.Page,
		Limit:      req.Limit,
		Total:      total,
		TotalPages: totalPages,
	}

	return responses, meta, nil
}

func (u *patientUsecase) Get(ctx context.Context, id uuid.UUID) (*dto.PatientResponse, error) {
	professional, ok := middleware.GetProfessionalFromContext(ctx)
	if !ok {
		return nil, errors.New("professional not found in context")
	}

	patient, err := u.patientRepo.FindByIDAndOwner(ctx, u.db, id, professional.ID)
	if err != nil {
		u.log.Warnf("Failed to find patient: %+v", err)
		return nil, err
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}

	analyses, err := u.analysisRepo.FindByPatientID(ctx, u.db, patient.ID)
	if err != nil {
		u.log.Warnf("Failed to find analyses for patient %s: %+v", patient.ID, err)
		return nil, err
	}

	result := converter.PatientToResponseWithCount(patient, int64(len(analyses)))
	result.Analyses = converter.AnalysesToResponses(analyses)

	return result, nil
}

func (u *patientUsecase) Update(ctx context.Context, id uuid.UUID, req *dto.PatientUpdateRequest) (*dto.PatientResponse, error) {
	professional, ok := middleware.GetProfessionalFromContext(ctx)
	if !ok {
		return nil, errors.New("professional not found in context")
	}

	if err := u.validate.Validate(req); err != nil {
		return nil, err
	}

	patient, err := u.patientRepo.FindByIDAndOwner(ctx, u.db, id, professional.ID)
	if err != nil {
		u.log.Warnf("Failed to find patient: %+v", err)
		return nil, err
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}

	oldValue := converter.PatientToResponse(patient)

	if req.Name != "" {
		patient.Name = req.Name
	}
	if req.BirthDate != "" {
		birthDate, err := time.Parse("2006-01-02", req.BirthDate)
		if err != nil {
			return nil, ErrInvalidDateFormat
		}
		patient.BirthDate = birthDate
	}
	if req.Gender != "" {
		patient.Gender = req.Gender
	}
	if req.Phone != "" {
		patient.Phone = req.Phone
	}
	if req.Email != "" {
		patient.Email = optionalString(req.Email)
	}
	if req.Address != "" {
		patient.Address = optionalString(req.Address)
	}
	if req.Insurance != "" {
		patient.Insurance = optionalString(req.Insurance)
	}

	if err := u.patientRepo.Update(ctx, u.db, patient); err != nil {
		u.log.Warnf("Failed to update patient: %+v", err)
		return nil, err
	}

	newValue := converter.PatientToResponse(patient)
	if err := u.auditService.LogUpdate(ctx, u.db, &professional.ID, entity.AuditActionPatientUpdate, "patient", patient.ID.String(), oldValue, newValue); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	return newValue, nil
}

func (u *patientUsecase) Delete(ctx context.Context, id uuid.UUID) error {
	professional, ok := middleware.GetProfessionalFromContext(ctx)
	if !ok {
		return errors.New("professional not found in context")
	}

	patient, err := u.patientRepo.FindByIDAndOwner(ctx, u.db, id, professional.ID)
	if err != nil {
		u.log.Warnf("Failed to find patient: %+v", err)
		return err
	}
	if patient == nil {
		return ErrPatientNotFound
	}

	// A patient with analyses cannot be removed; the analyses reference
	// the stored images and the clinical history must stay intact.
	count, err := u.analysisRepo.CountByPatientID(ctx, u.db, patient.ID)
	if err != nil {
		u.log.Warnf("Failed to count analyses for patient %s: %+v", patient.ID, err)
		return err
	}
	if count > 0 {
		return ErrPatientHasAnalyses
	}

	if err := u.patientRepo.Delete(ctx, u.db, patient.ID); err != nil {
		if isForeignKeyError(err, "analyses") {
			return ErrPatientHasAnalyses
		}
		u.log.Warnf("Failed to delete patient: %+v", err)
		return err
	}

	if err := u.auditService.LogDelete(ctx, u.db, &professional.ID, entity.AuditActionPatientDelete, "patient", patient.ID.String(), converter.PatientToResponse(patient)); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	return nil
}

func (u *patientUsecase) ListAnalyses(ctx context.Context, id uuid.UUID) ([]dto.AnalysisResponse, error) {
	professional, ok := middleware.GetProfessionalFromContext(ctx)
	if !ok {
		return nil, errors.New("professional not found in context")
	}

	patient, err := u.patientRepo.FindByIDAndOwner(ctx, u.db, id, professional.ID)
	if err != nil {
		u.log.Warnf("Failed to find patient: %+v", err)
		return nil, err
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}

	analyses, err := u.analysisRepo.FindByPatientID(ctx, u.db, patient.ID)
	if err != nil {
		u.log.Warnf("Failed to find analyses for patient %s: %+v", patient.ID, err)
		return nil, err
	}

	return converter.AnalysesToResponses(analyses), nil
}

// checkNationalIDAvailable enforces the configured uniqueness scope. The
// composite database index covers the per-professional scope; global scope
// needs this cross-owner lookup on top of it.
func (u *patientUsecase) checkNationalIDAvailable(ctx context.Context, nationalID string, professionalID, selfID uuid.UUID) error {
	var owner *uuid.UUID
	if u.workflowConfig.PatientIDScope == config.PatientIDScopeProfessional {
		owner = &professionalID
	}

	existing, err := u.patientRepo.FindByNationalID(ctx, u.db, nationalID, owner)
	if err != nil {
		u.log.Warnf("Failed to find patient by national id: %+v", err)
		return err
	}
	if existing != nil && existing.ID != selfID {
		return ErrPatientNationalIDExists
	}
	return nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
