package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"wound-analysis-service/internal/delivery/dto"
	"wound-analysis-service/internal/infrastructure/inference"
	"wound-analysis-service/internal/service"
	"wound-analysis-service/internal/usecase"
	"wound-analysis-service/pkg/response"
	"wound-analysis-service/pkg/validator"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalysisUsecase struct {
	saveErr    error
	saveResult *dto.AnalysisResponse
	detectErr  error
}

func (f *fakeAnalysisUsecase) Detect(ctx context.Context, filename, contentType string, image []byte) (*dto.AnalysisDetectResponse, error) {
	if f.detectErr != nil {
		return nil, f.detectErr
	}
	return &dto.AnalysisDetectResponse{}, nil
}

func (f *fakeAnalysisUsecase) Classify(ctx context.Context, req *dto.AnalysisClassifyRequest) (*dto.AnalysisClassifyResponse, error) {
	return &dto.AnalysisClassifyResponse{}, nil
}

func (f *fakeAnalysisUsecase) Save(ctx context.Context, req *dto.AnalysisSaveRequest) (*dto.AnalysisResponse, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	return f.saveResult, nil
}

func (f *fakeAnalysisUsecase) Get(ctx context.Context, id uuid.UUID) (*dto.AnalysisResponse, error) {
	return nil, usecase.ErrAnalysisNotFound
}

func (f *fakeAnalysisUsecase) GetDetailed(ctx context.Context, id uuid.UUID) (*dto.AnalysisResponse, error) {
	return nil, usecase.ErrAnalysisNotFound
}

func (f *fakeAnalysisUsecase) SweepStale(ctx context.Context) error {
	return nil
}

func saveBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(dto.AnalysisSaveRequest{
		PatientID: uuid.New().String(),
		Image:     base64.StdEncoding.EncodeToString([]byte("jpeg-bytes")),
		Diagnosis: "clean wound",
		Regions:   []dto.RegionPayload{{XMin: 0, YMin: 0, XMax: 10, YMax: 10, Label: "wound", Confidence: 0.5}},
	})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestSaveErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"patient not found", usecase.ErrPatientNotFound, http.StatusNotFound},
		{"duplicate submission", service.ErrDuplicateRequest, http.StatusConflict},
		{"upload failure", usecase.ErrImageUploadFailed, http.StatusServiceUnavailable},
		{"invalid image", usecase.ErrInvalidImage, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewAnalysisHandler(&fakeAnalysisUsecase{saveErr: tc.err}, validator.NewValidator())

			req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", saveBody(t))
			rec := httptest.NewRecorder()
			h.Save(rec, req)

			assert.Equal(t, tc.code, rec.Code)

			var envelope response.Response
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
			assert.False(t, envelope.Success)
		})
	}
}

func TestSaveSuccessEnvelope(t *testing.T) {
	h := NewAnalysisHandler(&fakeAnalysisUsecase{saveResult: &dto.AnalysisResponse{Status: "complete"}}, validator.NewValidator())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", saveBody(t))
	rec := httptest.NewRecorder()
	h.Save(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var envelope response.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.True(t, envelope.Success)
}

func TestSaveRejectsInvalidBody(t *testing.T) {
	h := NewAnalysisHandler(&fakeAnalysisUsecase{}, validator.NewValidator())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", bytes.NewBufferString(`{"diagnosis":""}`))
	rec := httptest.NewRecorder()
	h.Save(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetectRequiresFile(t *testing.T) {
	h := NewAnalysisHandler(&fakeAnalysisUsecase{}, validator.NewValidator())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses/detect", nil)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	rec := httptest.NewRecorder()
	h.Detect(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetectUpstreamDown(t *testing.T) {
	h := NewAnalysisHandler(&fakeAnalysisUsecase{detectErr: inference.ErrUnavailable}, validator.NewValidator())

	req := newMultipartImageRequest(t)
	rec := httptest.NewRecorder()
	h.Detect(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func newMultipartImageRequest(t *testing.T) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "wound.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses/detect", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
