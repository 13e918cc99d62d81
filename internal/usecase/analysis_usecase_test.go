package usecase

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"

	"wound-analysis-service/config"
	"wound-analysis-service/internal/delivery/dto"
	"wound-analysis-service/internal/delivery/http/middleware"
	"wound-analysis-service/internal/domain/entity"
	"wound-analysis-service/internal/infrastructure/inference"
	"wound-analysis-service/internal/service"
	"wound-analysis-service/pkg/validator"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ---- fakes ----

type fakeAnalysisRepo struct {
	analyses  map[uuid.UUID]*entity.Analysis
	createErr error
	creates   int
	deletes   []uuid.UUID
	stale     []entity.Analysis
}

func newFakeAnalysisRepo() *fakeAnalysisRepo {
	return &fakeAnalysisRepo{analyses: map[uuid.UUID]*entity.Analysis{}}
}

func (r *fakeAnalysisRepo) Create(ctx context.Context, db *gorm.DB, analysis *entity.Analysis) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.creates++
	if analysis.ID == uuid.Nil {
		analysis.ID = uuid.New()
	}
	copied := *analysis
	r.analyses[analysis.ID] = &copied
	return nil
}

func (r *fakeAnalysisRepo) FindByIDAndOwner(ctx context.Context, db *gorm.DB, id, professionalID uuid.UUID) (*entity.Analysis, error) {
	analysis, ok := r.analyses[id]
	if !ok || analysis.ProfessionalID != professionalID {
		return nil, nil
	}
	copied := *analysis
	return &copied, nil
}

func (r *fakeAnalysisRepo) FindByPatientID(ctx context.Context, db *gorm.DB, patientID uuid.UUID) ([]entity.Analysis, error) {
	var result []entity.Analysis
	for _, analysis := range r.analyses {
		if analysis.PatientID == patientID {
			result = append(result, *analysis)
		}
	}
	return result, nil
}

func (r *fakeAnalysisRepo) CountByPatientID(ctx context.Context, db *gorm.DB, patientID uuid.UUID) (int64, error) {
	var count int64
	for _, analysis := range r.analyses {
		if analysis.PatientID == patientID {
			count++
		}
	}
	return count, nil
}

func (r *fakeAnalysisRepo) Update(ctx context.Context, db *gorm.DB, analysis *entity.Analysis) error {
	copied := *analysis
	r.analyses[analysis.ID] = &copied
	return nil
}

func (r *fakeAnalysisRepo) FindStale(ctx context.Context, db *gorm.DB, cutoff time.Time) ([]entity.Analysis, error) {
	return r.stale, nil
}

func (r *fakeAnalysisRepo) Delete(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	r.deletes = append(r.deletes, id)
	delete(r.analyses, id)
	return nil
}

type fakePatientRepo struct {
	patients map[uuid.UUID]*entity.Patient
}

func newFakePatientRepo() *fakePatientRepo {
	return &fakePatientRepo{patients: map[uuid.UUID]*entity.Patient{}}
}

func (r *fakePatientRepo) Create(ctx context.Context, db *gorm.DB, patient *entity.Patient) error {
	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	copied := *patient
	r.patients[patient.ID] = &copied
	return nil
}

func (r *fakePatientRepo) FindByIDAndOwner(ctx context.Context, db *gorm.DB, id, professionalID uuid.UUID) (*entity.Patient, error) {
	patient, ok := r.patients[id]
	if !ok || patient.ProfessionalID != professionalID {
		return nil, nil
	}
	copied := *patient
	return &copied, nil
}

func (r *fakePatientRepo) FindByNationalID(ctx context.Context, db *gorm.DB, nationalID string, professionalID *uuid.UUID) (*entity.Patient, error) {
	for _, patient := range r.patients {
		if patient.NationalID != nationalID {
			continue
		}
		if professionalID != nil && patient.ProfessionalID != *professionalID {
			continue
		}
		copied := *patient
		return &copied, nil
	}
	return nil, nil
}

func (r *fakePatientRepo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*entity.Patient, error) {
	for _, patient := range r.patients {
		if patient.Email != nil && *patient.Email == email {
			copied := *patient
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakePatientRepo) Search(ctx context.Context, db *gorm.DB, professionalID uuid.UUID, query string, limit, offset int) ([]entity.Patient, int64, error) {
	var result []entity.Patient
	for _, patient := range r.patients {
		if patient.ProfessionalID == professionalID {
			result = append(result, *patient)
		}
	}
	return result, int64(len(result)), nil
}

func (r *fakePatientRepo) Update(ctx context.Context, db *gorm.DB, patient *entity.Patient) error {
	copied := *patient
	r.patients[patient.ID] = &copied
	return nil
}

func (r *fakePatientRepo) Delete(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	delete(r.patients, id)
	return nil
}

type fakeGateway struct {
	detectResult   *inference.DetectionResult
	classifyResult []inference.ClassifiedBox
	err            error
}

func (g *fakeGateway) Detect(ctx context.Context, filename, contentType string, image []byte) (*inference.DetectionResult, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.detectResult, nil
}

func (g *fakeGateway) Classify(ctx context.Context, image []byte, regions []inference.BoxSubmission) ([]inference.ClassifiedBox, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.classifyResult, nil
}

type fakeStore struct {
	uploads      map[string][]byte
	uploadErr    error
	downloadData []byte
	downloadErr  error
	deleted      []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{uploads: map[string][]byte{}}
}

func (s *fakeStore) Upload(ctx context.Context, path string, data []byte, metadata map[string]string) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	s.uploads[path] = data
	return "https://storage.googleapis.com/test-bucket/" + path, nil
}

func (s *fakeStore) Download(ctx context.Context, url string) ([]byte, error) {
	if s.downloadErr != nil {
		return nil, s.downloadErr
	}
	return s.downloadData, nil
}

func (s *fakeStore) Delete(ctx context.Context, path string) error {
	s.deleted = append(s.deleted, path)
	return nil
}

type fakeGuard struct {
	acquireErr error
	acquired   int
	released   int
}

func (g *fakeGuard) Acquire(ctx context.Context, professionalID, patientID, checksum string) error {
	if g.acquireErr != nil {
		return g.acquireErr
	}
	g.acquired++
	return nil
}

func (g *fakeGuard) Release(ctx context.Context, professionalID, patientID, checksum string) {
	g.released++
}

type fakeAuditService struct{}

func (fakeAuditService) LogCreate(ctx context.Context, tx *gorm.DB, professionalID *uuid.UUID, action, entityName, entityID string, newValue interface{}) error {
	return nil
}

func (fakeAuditService) LogUpdate(ctx context.Context, tx *gorm.DB, professionalID *uuid.UUID, action, entityName, entityID string, oldValue, newValue interface{}) error {
	return nil
}

func (fakeAuditService) LogDelete(ctx context.Context, tx *gorm.DB, professionalID *uuid.UUID, action, entityName, entityID string, oldValue interface{}) error {
	return nil
}

// ---- helpers ----

type analysisFixture struct {
	usecase      AnalysisUsecase
	analysisRepo *fakeAnalysisRepo
	patientRepo  *fakePatientRepo
	gateway      *fakeGateway
	store        *fakeStore
	guard        *fakeGuard
	professional *entity.Professional
	patient      *entity.Patient
	ctx          context.Context
}

func newAnalysisFixture(t *testing.T) *analysisFixture {
	t.Helper()

	log := logrus.New()
	log.SetOutput(bytes.NewBuffer(nil))

	professional := &entity.Professional{ID: uuid.New(), SubjectID: "subject-1", Name: "Dr. Silva"}
	patient := &entity.Patient{ID: uuid.New(), ProfessionalID: professional.ID, Name: "Ana", NationalID: "12345678901"}

	analysisRepo := newFakeAnalysisRepo()
	patientRepo := newFakePatientRepo()
	patientRepo.patients[patient.ID] = patient

	gateway := &fakeGateway{}
	store := newFakeStore()
	guard := &fakeGuard{}

	uc := NewAnalysisUsecase(
		nil,
		log,
		validator.NewValidator(),
		config.WorkflowConfig{PendingMaxAge: 24 * time.Hour},
		analysisRepo,
		patientRepo,
		gateway,
		store,
		guard,
		fakeAuditService{},
	)

	ctx := context.WithValue(context.Background(), middleware.ProfessionalKey, professional)

	return &analysisFixture{
		usecase:      uc,
		analysisRepo: analysisRepo,
		patientRepo:  patientRepo,
		gateway:      gateway,
		store:        store,
		guard:        guard,
		professional: professional,
		patient:      patient,
		ctx:          ctx,
	}
}

func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func validSaveRequest(t *testing.T, patientID uuid.UUID) *dto.AnalysisSaveRequest {
	t.Helper()
	return &dto.AnalysisSaveRequest{
		PatientID: patientID.String(),
		Image:     base64.StdEncoding.EncodeToString(testJPEG(t, 32, 32)),
		Diagnosis: "superficial wound, clean margins",
		Regions: []dto.RegionPayload{
			{XMin: 2, YMin: 2, XMax: 20, YMax: 20, Label: "wound", Confidence: 0.91},
		},
	}
}

// ---- tests ----

func TestSaveValidation(t *testing.T) {
	t.Run("missing diagnosis fails before any side effect", func(t *testing.T) {
		f := newAnalysisFixture(t)
		req := validSaveRequest(t, f.patient.ID)
		req.Diagnosis = ""

		_, err := f.usecase.Save(f.ctx, req)

		require.Error(t, err)
		assert.Equal(t, 0, f.analysisRepo.creates)
		assert.Empty(t, f.store.uploads)
		assert.Equal(t, 0, f.guard.acquired)
	})

	t.Run("malformed region fails before any side effect", func(t *testing.T) {
		f := newAnalysisFixture(t)
		req := validSaveRequest(t, f.patient.ID)
		req.Regions[0].XMax = req.Regions[0].XMin // zero width

		_, err := f.usecase.Save(f.ctx, req)

		require.Error(t, err)
		assert.Equal(t, 0, f.analysisRepo.creates)
		assert.Empty(t, f.store.uploads)
	})

	t.Run("confidence above one is rejected", func(t *testing.T) {
		f := newAnalysisFixture(t)
		req := validSaveRequest(t, f.patient.ID)
		req.Regions[0].Confidence = 1.2

		_, err := f.usecase.Save(f.ctx, req)

		require.Error(t, err)
		assert.Equal(t, 0, f.analysisRepo.creates)
	})
}

func TestSavePatientScoping(t *testing.T) {
	t.Run("unknown patient", func(t *testing.T) {
		f := newAnalysisFixture(t)
		req := validSaveRequest(t, uuid.New())

		_, err := f.usecase.Save(f.ctx, req)

		assert.ErrorIs(t, err, ErrPatientNotFound)
		assert.Equal(t, 0, f.analysisRepo.creates)
	})

	t.Run("patient owned by another professional", func(t *testing.T) {
		f := newAnalysisFixture(t)
		other := &entity.Patient{ID: uuid.New(), ProfessionalID: uuid.New(), NationalID: "10987654321"}
		f.patientRepo.patients[other.ID] = other

		_, err := f.usecase.Save(f.ctx, validSaveRequest(t, other.ID))

		assert.ErrorIs(t, err, ErrPatientNotFound)
	})
}

func TestSaveDuplicateRejected(t *testing.T) {
	f := newAnalysisFixture(t)
	f.guard.acquireErr = service.ErrDuplicateRequest

	_, err := f.usecase.Save(f.ctx, validSaveRequest(t, f.patient.ID))

	assert.ErrorIs(t, err, service.ErrDuplicateRequest)
	assert.Equal(t, 0, f.analysisRepo.creates)
	assert.Empty(t, f.store.uploads)
}

func TestSaveCompletesSaga(t *testing.T) {
	f := newAnalysisFixture(t)

	result, err := f.usecase.Save(f.ctx, validSaveRequest(t, f.patient.ID))

	require.NoError(t, err)
	assert.Equal(t, string(entity.AnalysisStatusComplete), result.Status)
	assert.Contains(t, result.ImageURL, "https://storage.googleapis.com/test-bucket/analyses/")

	stored := f.analysisRepo.analyses[result.ID]
	require.NotNil(t, stored)
	assert.Equal(t, entity.AnalysisStatusComplete, stored.Status)
	assert.Equal(t, f.professional.ID, stored.ProfessionalID)
	assert.Equal(t, f.patient.ID, stored.PatientID)
	require.Len(t, stored.Regions, 1)
	assert.Equal(t, "wound", stored.Regions[0].Label)

	// The object path embeds professional, patient and analysis ids.
	assert.Contains(t, f.store.uploads, stored.ObjectPath())
}

func TestSaveUploadFailureMarksFailed(t *testing.T) {
	f := newAnalysisFixture(t)
	f.store.uploadErr = errors.New("bucket unreachable")

	_, err := f.usecase.Save(f.ctx, validSaveRequest(t, f.patient.ID))

	assert.ErrorIs(t, err, ErrImageUploadFailed)
	require.Equal(t, 1, f.analysisRepo.creates)
	for _, analysis := range f.analysisRepo.analyses {
		assert.Equal(t, entity.AnalysisStatusFailed, analysis.Status)
		assert.Empty(t, analysis.ImageURL)
	}
	// The dedup key is released so the client can retry immediately.
	assert.Equal(t, 1, f.guard.released)
}

func TestGetOwnershipIsolation(t *testing.T) {
	f := newAnalysisFixture(t)
	foreign := &entity.Analysis{
		ID:             uuid.New(),
		ProfessionalID: uuid.New(),
		PatientID:      uuid.New(),
		Status:         entity.AnalysisStatusComplete,
	}
	f.analysisRepo.analyses[foreign.ID] = foreign

	_, err := f.usecase.Get(f.ctx, foreign.ID)

	assert.ErrorIs(t, err, ErrAnalysisNotFound)
}

func TestGetDetailed(t *testing.T) {
	t.Run("crops regions and degrades the ones that fail", func(t *testing.T) {
		f := newAnalysisFixture(t)
		f.store.downloadData = testJPEG(t, 24, 24)

		analysis := &entity.Analysis{
			ID:             uuid.New(),
			ProfessionalID: f.professional.ID,
			PatientID:      f.patient.ID,
			ImageURL:       "https://storage.googleapis.com/test-bucket/analyses/a.jpg",
			Status:         entity.AnalysisStatusComplete,
			Regions: entity.RegionList{
				{XMin: 2, YMin: 2, XMax: 20, YMax: 20, Label: "wound", Confidence: 0.9},
				{XMin: 100, YMin: 100, XMax: 120, YMax: 120, Label: "wound", Confidence: 0.8},
			},
		}
		f.analysisRepo.analyses[analysis.ID] = analysis

		result, err := f.usecase.GetDetailed(f.ctx, analysis.ID)

		require.NoError(t, err)
		require.Len(t, result.Regions, 2)
		assert.NotEmpty(t, result.Regions[0].SubImage)
		assert.Empty(t, result.Regions[1].SubImage)

		crop, decodeErr := base64.StdEncoding.DecodeString(result.Regions[0].SubImage)
		require.NoError(t, decodeErr)
		cfg, _, decodeErr := image.DecodeConfig(bytes.NewReader(crop))
		require.NoError(t, decodeErr)
		assert.Equal(t, 18, cfg.Width)
		assert.Equal(t, 18, cfg.Height)
	})

	t.Run("unreachable image degrades every region", func(t *testing.T) {
		f := newAnalysisFixture(t)
		f.store.downloadErr = errors.New("object gone")

		analysis := &entity.Analysis{
			ID:             uuid.New(),
			ProfessionalID: f.professional.ID,
			PatientID:      f.patient.ID,
			ImageURL:       "https://storage.googleapis.com/test-bucket/analyses/a.jpg",
			Status:         entity.AnalysisStatusComplete,
			Regions: entity.RegionList{
				{XMin: 2, YMin: 2, XMax: 20, YMax: 20, Label: "wound", Confidence: 0.9},
			},
		}
		f.analysisRepo.analyses[analysis.ID] = analysis

		result, err := f.usecase.GetDetailed(f.ctx, analysis.ID)

		require.NoError(t, err)
		require.Len(t, result.Regions, 1)
		assert.Empty(t, result.Regions[0].SubImage)
	})
}

func TestDetect(t *testing.T) {
	t.Run("missing image", func(t *testing.T) {
		f := newAnalysisFixture(t)

		_, err := f.usecase.Detect(f.ctx, "wound.jpg", "image/jpeg", nil)

		assert.ErrorIs(t, err, ErrMissingImage)
	})

	t.Run("maps candidate regions", func(t *testing.T) {
		f := newAnalysisFixture(t)
		f.gateway.detectResult = &inference.DetectionResult{
			Boxes: []inference.DetectedBox{
				{XMin: 10, YMin: 12, XMax: 50, YMax: 60, Label: "wound", Confidence: 0.87, SubImage: "YWJj"},
			},
			WorkingImage:     "ZGVm",
			InferenceSeconds: 1.2,
			Device:           "cuda",
		}

		result, err := f.usecase.Detect(f.ctx, "wound.jpg", "image/jpeg", []byte("jpeg-bytes"))

		require.NoError(t, err)
		require.Len(t, result.Regions, 1)
		assert.Equal(t, 10, result.Regions[0].XMin)
		assert.Equal(t, 0.87, result.Regions[0].Confidence)
		assert.Equal(t, "ZGVm", result.WorkingImage)
	})

	t.Run("relays upstream failure untouched", func(t *testing.T) {
		f := newAnalysisFixture(t)
		f.gateway.err = inference.ErrUnavailable

		_, err := f.usecase.Detect(f.ctx, "wound.jpg", "image/jpeg", []byte("jpeg-bytes"))

		assert.ErrorIs(t, err, inference.ErrUnavailable)
	})
}

func TestClassify(t *testing.T) {
	f := newAnalysisFixture(t)
	f.gateway.classifyResult = []inference.ClassifiedBox{
		{XMin: 5, YMin: 5, XMax: 40, YMax: 40, Label: "grade-2", Confidence: 0.74, SubImage: "YWJj"},
	}

	result, err := f.usecase.Classify(f.ctx, &dto.AnalysisClassifyRequest{
		Image:   base64.StdEncoding.EncodeToString([]byte("working-image")),
		Regions: []dto.RegionSubmission{{XMin: 5, YMin: 5, XMax: 40, YMax: 40}},
	})

	require.NoError(t, err)
	require.Len(t, result.Regions, 1)
	assert.Equal(t, "grade-2", result.Regions[0].Label)
	assert.Equal(t, "YWJj", result.Regions[0].SubImage)
}

func TestSweepStale(t *testing.T) {
	f := newAnalysisFixture(t)
	failed := entity.Analysis{ID: uuid.New(), ProfessionalID: f.professional.ID, PatientID: f.patient.ID, Status: entity.AnalysisStatusFailed}
	stalePending := entity.Analysis{ID: uuid.New(), ProfessionalID: f.professional.ID, PatientID: f.patient.ID, Status: entity.AnalysisStatusPending}
	f.analysisRepo.stale = []entity.Analysis{failed, stalePending}
	f.analysisRepo.analyses[failed.ID] = &failed
	f.analysisRepo.analyses[stalePending.ID] = &stalePending

	err := f.usecase.SweepStale(f.ctx)

	require.NoError(t, err)
	assert.Len(t, f.analysisRepo.deletes, 2)
	assert.Len(t, f.store.deleted, 2)
}
