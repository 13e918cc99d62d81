package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"wound-analysis-service/config"
	"wound-analysis-service/internal/converter"
	"wound-analysis-service/internal/delivery/dto"
	"wound-analysis-service/internal/delivery/http/middleware"
	"wound-analysis-service/internal/domain/entity"
	"wound-analysis-service/internal/domain/repository"
	"wound-analysis-service/internal/infrastructure/inference"
	"wound-analysis-service/internal/service"
	"wound-analysis-service/pkg/imaging"
	"wound-analysis-service/pkg/validator"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/iter"
	"gorm.io/gorm"
)

var (
	ErrAnalysisNotFound  = errors.New("analysis not found")
	ErrMissingImage      = errors.New("image file is required")
	ErrInvalidImage      = errors.New("image is not valid base64 data")
	ErrImageUploadFailed = errors.New("image upload failed, analysis marked failed")
)

// JPEG quality for region sub-image crops
const cropQuality = 90

// InferenceGateway is the slice of the inference client the workflow needs.
type InferenceGateway interface {
	Detect(ctx context.Context, filename, contentType string, image []byte) (*inference.DetectionResult, error)
	Classify(ctx context.Context, image []byte, regions []inference.BoxSubmission) ([]inference.ClassifiedBox, error)
}

// ObjectStore is the slice of the bucket client the workflow needs.
type ObjectStore interface {
	Upload(ctx context.Context, path string, data []byte, metadata map[string]string) (string, error)
	Download(ctx context.Context, url string) ([]byte, error)
	Delete(ctx context.Context, path string) error
}

// SaveGuard rejects duplicate save submissions inside the dedup window.
type SaveGuard interface {
	Acquire(ctx context.Context, professionalID, patientID, checksum string) error
	Release(ctx context.Context, professionalID, patientID, checksum string)
}

type AnalysisUsecase interface {
	// Detect relays the uploaded image to the detection model and returns
	// the working image with candidate regions in working-image space.
	Detect(ctx context.Context, filename, contentType string, image []byte) (*dto.AnalysisDetectResponse, error)
	// Classify relays the working image and the reviewed regions to the
	// classification model.
	Classify(ctx context.Context, req *dto.AnalysisClassifyRequest) (*dto.AnalysisClassifyResponse, error)
	// Save persists the finished analysis: record first in pending state,
	// then the image upload, then the flip to complete.
	Save(ctx context.Context, req *dto.AnalysisSaveRequest) (*dto.AnalysisResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.AnalysisResponse, error)
	// GetDetailed adds per-region sub-images cropped from the stored
	// original. A region whose crop fails is returned without one.
	GetDetailed(ctx context.Context, id uuid.UUID) (*dto.AnalysisResponse, error)
	// SweepStale reclaims failed analyses and pending analyses older
	// than the configured age, together with any uploaded image.
	SweepStale(ctx context.Context) error
}

type analysisUsecase struct {
	db             *gorm.DB
	log            *logrus.Logger
	validate       *validator.CustomValidator
	workflowConfig config.WorkflowConfig
	analysisRepo   repository.AnalysisRepository
	patientRepo    repository.PatientRepository
	inference      InferenceGateway
	store          ObjectStore
	saveGuard      SaveGuard
	auditService   service.AuditService
}

func NewAnalysisUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	validate *validator.CustomValidator,
	workflowConfig config.WorkflowConfig,
	analysisRepo repository.AnalysisRepository,
	patientRepo repository.PatientRepository,
	inferenceGateway InferenceGateway,
	store ObjectStore,
	saveGuard SaveGuard,
	auditService service.AuditService,
) AnalysisUsecase {
	return &analysisUsecase{
		db:             db,
		log:            log,
		validate:       validate,
		workflowConfig: workflowConfig,
		analysisRepo:   analysisRepo,
		patientRepo:    patientRepo,
		inference:      inferenceGateway,
		store:          store,
		saveGuard:      saveGuard,
		auditService:   auditService,
	}
}

func (u *analysisUsecase) Detect(ctx context.Context, filename, contentType string, image []byte) (*dto.AnalysisDetectResponse, error) {
	if len(image) == 0 {
		return nil, ErrMissingImage
	}

	result, err := u.inference.Detect(ctx, filename, contentType, image)
	if err != nil {
		u.log.Warnf("Detection failed: %+v", err)
		return nil, err
	}

	regions := make([]dto.RegionCandidateResponse, len(result.Boxes))
	for i, box := range result.Boxes {
		regions[i] = dto.RegionCandidateResponse{
			XMin:       box.XMin,
			YMin:       box.YMin,
			XMax:       box.XMax,
			YMax:       box.YMax,
			Label:      box.Label,
			Confidence: box.Confidence,
			SubImage:   box.SubImage,
		}
	}

	return &dto.AnalysisDetectResponse{
		WorkingImage:     result.WorkingImage,
		Regions:          regions,
		Resize:           result.Resize,
		InferenceSeconds: result.InferenceSeconds,
		Device:           result.Device,
	}, nil
}

func (u *analysisUsecase) Classify(ctx context.Context, req *dto.AnalysisClassifyRequest) (*dto.AnalysisClassifyResponse, error) {
	if err := u.validate.Validate(req); err != nil {
		return nil, err
	}

	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		return nil, ErrInvalidImage
	}

	submissions := make([]inference.BoxSubmission, len(req.Regions))
	for i, region := range req.Regions {
		submissions[i] = inference.BoxSubmission{
			XMin: region.XMin,
			YMin: region.YMin,
			XMax: region.XMax,
			YMax: region.YMax,
		}
	}

	results, err := u.inference.Classify(ctx, image, submissions)
	if err != nil {
		u.log.Warnf("Classification failed: %+v", err)
		return nil, err
	}

	regions := make([]dto.RegionCandidateResponse, len(results))
	for i, result := range results {
		regions[i] = dto.RegionCandidateResponse{
			XMin:       result.XMin,
			YMin:       result.YMin,
			XMax:       result.XMax,
			YMax:       result.YMax,
			Label:      result.Label,
			Confidence: result.Confidence,
			SubImage:   result.SubImage,
		}
	}

	return &dto.AnalysisClassifyResponse{Regions: regions}, nil
}

func (u *analysisUsecase) Save(ctx context.Context, req *dto.AnalysisSaveRequest) (*dto.AnalysisResponse, error) {
	professional, ok := middleware.GetProfessionalFromContext(ctx)
	if !ok {
		return nil, errors.New("professional not found in context")
	}

	// Everything is validated before the first side effect: a rejected
	// save must leave no record and no object behind.
	if err := u.validate.Validate(req); err != nil {
		return nil, err
	}

	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return nil, ErrPatientNotFound
	}

	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		return nil, ErrInvalidImage
	}
	if len(image) == 0 {
		return nil, ErrMissingImage
	}

	patient, err := u.patientRepo.FindByIDAndOwner(ctx, u.db, patientID, professional.ID)
	if err != nil {
		u.log.Warnf("Failed to find patient: %+v", err)
		return nil, err
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}

	checksum := sha256.Sum256(image)
	digest := hex.EncodeToString(checksum[:])

	if err := u.saveGuard.Acquire(ctx, professional.ID.String(), patient.ID.String(), digest); err != nil {
		return nil, err
	}

	analysis := &entity.Analysis{
		ProfessionalID: professional.ID,
		PatientID:      patient.ID,
		Status:         entity.AnalysisStatusPending,
		Regions:        converter.RegionPayloadsToEntities(req.Regions),
		Diagnosis:      req.Diagnosis,
	}

	if err := u.analysisRepo.Create(ctx, u.db, analysis); err != nil {
		u.saveGuard.Release(ctx, professional.ID.String(), patient.ID.String(), digest)
		u.log.Warnf("Failed to create analysis: %+v", err)
		return nil, err
	}

	metadata := map[string]string{
		"professional_id": professional.ID.String(),
		"patient_id":      patient.ID.String(),
		"analysis_id":     analysis.ID.String(),
	}

	url, err := u.store.Upload(ctx, analysis.ObjectPath(), image, metadata)
	if err != nil {
		u.log.Warnf("Failed to upload analysis image: %+v", err)
		// The pending record flips to failed so the client sees the
		// outcome and the sweep can reclaim it.
		analysis.Status = entity.AnalysisStatusFailed
		if updateErr := u.analysisRepo.Update(ctx, u.db, analysis); updateErr != nil {
			u.log.Warnf("Failed to mark analysis failed: %+v", updateErr)
		}
		u.saveGuard.Release(ctx, professional.ID.String(), patient.ID.String(), digest)
		return nil, ErrImageUploadFailed
	}

	analysis.ImageURL = url
	analysis.Status = entity.AnalysisStatusComplete

	if err := u.analysisRepo.Update(ctx, u.db, analysis); err != nil {
		u.log.Warnf("Failed to finalize analysis: %+v", err)
		return nil, err
	}

	if err := u.auditService.LogCreate(ctx, u.db, &professional.ID, entity.AuditActionAnalysisSave, "analysis", analysis.ID.String(), converter.AnalysisToResponse(analysis)); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	return converter.AnalysisToResponse(analysis), nil
}

func (u *analysisUsecase) Get(ctx context.Context, id uuid.UUID) (*dto.AnalysisResponse, error) {
	analysis, err := u.findOwned(ctx, id)
	if err != nil {
		return nil, err
	}
	return converter.AnalysisToResponse(analysis), nil
}

func (u *analysisUsecase) GetDetailed(ctx context.Context, id uuid.UUID) (*dto.AnalysisResponse, error) {
	analysis, err := u.findOwned(ctx, id)
	if err != nil {
		return nil, err
	}

	result := converter.AnalysisToResponse(analysis)

	if analysis.Status != entity.AnalysisStatusComplete || analysis.ImageURL == "" {
		return result, nil
	}

	image, err := u.store.Download(ctx, analysis.ImageURL)
	if err != nil {
		// The detail view still works without sub-images.
		u.log.Warnf("Failed to download analysis image %s: %+v", analysis.ID, err)
		return result, nil
	}

	regions := []entity.Region(analysis.Regions)
	subImages := iter.Map(regions, func(region *entity.Region) string {
		rect := imaging.Rect{XMin: region.XMin, YMin: region.YMin, XMax: region.XMax, YMax: region.YMax}
		crop, err := imaging.CropJPEG(image, rect, cropQuality)
		if err != nil {
			u.log.Warnf("Failed to crop region of analysis %s: %+v", analysis.ID, err)
			return ""
		}
		return base64.StdEncoding.EncodeToString(crop)
	})

	for i := range result.Regions {
		result.Regions[i].SubImage = subImages[i]
	}

	return result, nil
}

func (u *analysisUsecase) SweepStale(ctx context.Context) error {
	cutoff := time.Now().Add(-u.workflowConfig.PendingMaxAge)

	stale, err := u.analysisRepo.FindStale(ctx, u.db, cutoff)
	if err != nil {
		u.log.Warnf("Failed to find stale analyses: %+v", err)
		return err
	}

	for i := range stale {
		analysis := &stale[i]

		// A failed upload may still have left a partial object behind.
		if err := u.store.Delete(ctx, analysis.ObjectPath()); err != nil {
			u.log.Debugf("No object to reclaim for analysis %s: %+v", analysis.ID, err)
		}

		if err := u.analysisRepo.Delete(ctx, u.db, analysis.ID); err != nil {
			u.log.Warnf("Failed to delete stale analysis %s: %+v", analysis.ID, err)
			continue
		}
	}

	if len(stale) > 0 {
		u.log.Infof("Reclaimed %d stale analyses", len(stale))
	}

	return nil
}

func (u *analysisUsecase) findOwned(ctx context.Context, id uuid.UUID) (*entity.Analysis, error) {
	professional, ok := middleware.GetProfessionalFromContext(ctx)
	if !ok {
		return nil, errors.New("professional not found in context")
	}

	analysis, err := u.analysisRepo.FindByIDAndOwner(ctx, u.db, id, professional.ID)
	if err != nil {
		u.log.Warnf("Failed to find analysis: %+v", err)
		return nil, err
	}
	if analysis == nil {
		return nil, ErrAnalysisNotFound
	}

	return analysis, nil
}
