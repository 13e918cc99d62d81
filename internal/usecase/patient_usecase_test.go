package usecase

import (
	"bytes"
	"context"
	"testing"

	"wound-analysis-service/config"
	"wound-analysis-service/internal/delivery/dto"
	"wound-analysis-service/internal/delivery/http/middleware"
	"wound-analysis-service/internal/domain/entity"
	"wound-analysis-service/pkg/validator"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type patientFixture struct {
	usecase      PatientUsecase
	patientRepo  *fakePatientRepo
	analysisRepo *fakeAnalysisRepo
	professional *entity.Professional
	ctx          context.Context
}

func newPatientFixture(t *testing.T, scope string) *patientFixture {
	t.Helper()

	log := logrus.New()
	log.SetOutput(bytes.NewBuffer(nil))

	professional := &entity.Professional{ID: uuid.New(), SubjectID: "subject-1", Name: "Dr. Silva"}
	patientRepo := newFakePatientRepo()
	analysisRepo := newFakeAnalysisRepo()

	uc := NewPatientUsecase(
		nil,
		log,
		validator.NewValidator(),
		config.WorkflowConfig{PatientIDScope: scope},
		patientRepo,
		analysisRepo,
		fakeAuditService{},
	)

	ctx := context.WithValue(context.Background(), middleware.ProfessionalKey, professional)

	return &patientFixture{
		usecase:      uc,
		patientRepo:  patientRepo,
		analysisRepo: analysisRepo,
		professional: professional,
		ctx:          ctx,
	}
}

func validPatientRequest() *dto.PatientCreateRequest {
	return &dto.PatientCreateRequest{
		Name:       "Ana Souza",
		NationalID: "123.456.789-01",
		BirthDate:  "1985-04-12",
		Gender:     "female",
		Phone:      "11999990000",
	}
}

func TestCreatePatient(t *testing.T) {
	t.Run("strips national id separators", func(t *testing.T) {
		f := newPatientFixture(t, config.PatientIDScopeGlobal)

		patient, err := f.usecase.Create(f.ctx, validPatientRequest())

		require.NoError(t, err)
		assert.Equal(t, "12345678901", patient.NationalID)
		assert.Equal(t, "1985-04-12", patient.BirthDate)
	})

	t.Run("rejects short national id", func(t *testing.T) {
		f := newPatientFixture(t, config.PatientIDScopeGlobal)
		req := validPatientRequest()
		req.NationalID = "123.456.789"

		_, err := f.usecase.Create(f.ctx, req)

		require.Error(t, err)
	})

	t.Run("rejects malformed birth date", func(t *testing.T) {
		f := newPatientFixture(t, config.PatientIDScopeGlobal)
		req := validPatientRequest()
		req.BirthDate = "12/04/1985"

		_, err := f.usecase.Create(f.ctx, req)

		assert.ErrorIs(t, err, ErrInvalidDateFormat)
	})
}

func TestCreatePatientUniquenessScope(t *testing.T) {
	seedForeign := func(f *patientFixture) {
		f.patientRepo.patients[uuid.New()] = &entity.Patient{
			ID:             uuid.New(),
			ProfessionalID: uuid.New(),
			NationalID:     "12345678901",
		}
	}

	t.Run("global scope conflicts across owners", func(t *testing.T) {
		f := newPatientFixture(t, config.PatientIDScopeGlobal)
		seedForeign(f)

		_, err := f.usecase.Create(f.ctx, validPatientRequest())

		assert.ErrorIs(t, err, ErrPatientNationalIDExists)
	})

	t.Run("professional scope allows the same id under another owner", func(t *testing.T) {
		f := newPatientFixture(t, config.PatientIDScopeProfessional)
		seedForeign(f)

		_, err := f.usecase.Create(f.ctx, validPatientRequest())

		require.NoError(t, err)
	})

	t.Run("professional scope still conflicts within one owner", func(t *testing.T) {
		f := newPatientFixture(t, config.PatientIDScopeProfessional)
		_, err := f.usecase.Create(f.ctx, validPatientRequest())
		require.NoError(t, err)

		_, err = f.usecase.Create(f.ctx, validPatientRequest())

		assert.ErrorIs(t, err, ErrPatientNationalIDExists)
	})
}

func TestPatientOwnershipIsolation(t *testing.T) {
	f := newPatientFixture(t, config.PatientIDScopeGlobal)
	foreign := &entity.Patient{ID: uuid.New(), ProfessionalID: uuid.New(), NationalID: "10987654321"}
	f.patientRepo.patients[foreign.ID] = foreign

	t.Run("get", func(t *testing.T) {
		_, err := f.usecase.Get(f.ctx, foreign.ID)
		assert.ErrorIs(t, err, ErrPatientNotFound)
	})

	t.Run("update", func(t *testing.T) {
		_, err := f.usecase.Update(f.ctx, foreign.ID, &dto.PatientUpdateRequest{Name: "New Name"})
		assert.ErrorIs(t, err, ErrPatientNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		err := f.usecase.Delete(f.ctx, foreign.ID)
		assert.ErrorIs(t, err, ErrPatientNotFound)
	})

	t.Run("list analyses", func(t *testing.T) {
		_, err := f.usecase.ListAnalyses(f.ctx, foreign.ID)
		assert.ErrorIs(t, err, ErrPatientNotFound)
	})
}

func TestUpdatePatientPartialMerge(t *testing.T) {
	f := newPatientFixture(t, config.PatientIDScopeGlobal)
	created, err := f.usecase.Create(f.ctx, validPatientRequest())
	require.NoError(t, err)

	updated, err := f.usecase.Update(f.ctx, created.ID, &dto.PatientUpdateRequest{Phone: "11888887777"})

	require.NoError(t, err)
	assert.Equal(t, "11888887777", updated.Phone)
	// Untouched fields keep their stored values.
	assert.Equal(t, "Ana Souza", updated.Name)
	assert.Equal(t, "12345678901", updated.NationalID)
}

func TestDeletePatientGuard(t *testing.T) {
	t.Run("blocked while analyses reference the patient", func(t *testing.T) {
		f := newPatientFixture(t, config.PatientIDScopeGlobal)
		created, err := f.usecase.Create(f.ctx, validPatientRequest())
		require.NoError(t, err)

		analysis := &entity.Analysis{ID: uuid.New(), ProfessionalID: f.professional.ID, PatientID: created.ID, Status: entity.AnalysisStatusComplete}
		f.analysisRepo.analyses[analysis.ID] = analysis

		err = f.usecase.Delete(f.ctx, created.ID)

		assert.ErrorIs(t, err, ErrPatientHasAnalyses)
	})

	t.Run("allowed without analyses", func(t *testing.T) {
		f := newPatientFixture(t, config.PatientIDScopeGlobal)
		created, err := f.usecase.Create(f.ctx, validPatientRequest())
		require.NoError(t, err)

		err = f.usecase.Delete(f.ctx, created.ID)

		require.NoError(t, err)
		assert.Empty(t, f.patientRepo.patients)
	})
}
