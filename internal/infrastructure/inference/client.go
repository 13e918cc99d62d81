// Package inference is the HTTP client for the external prediction service.
// The service's wire format is fixed (it predates this backend), so the
// request and response shapes here mirror it exactly, including the
// Portuguese field names of the region payloads. Calls are single attempts
// with long timeouts; model inference is slow and there is no retry.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"wound-analysis-service/config"
	"wound-analysis-service/pkg/imaging"

	"github.com/sirupsen/logrus"
)

var (
	// ErrUnavailable covers an unreachable service and non-success
	// responses; the caller surfaces it as upstream-unavailable.
	ErrUnavailable = errors.New("inference service unavailable")
	// ErrInvalidResponse is returned when the service answered but the
	// expected result payload is missing.
	ErrInvalidResponse = errors.New("invalid inference service response")
)

// DetectedBox is one candidate region in working-image pixel space.
type DetectedBox struct {
	XMin       int     `json:"xmin"`
	YMin       int     `json:"ymin"`
	XMax       int     `json:"xmax"`
	YMax       int     `json:"ymax"`
	Label      string  `json:"classe"`
	Confidence float64 `json:"confianca"`
	SubImage   string  `json:"subimagem"`
}

// DetectionResult is the detection endpoint's payload: candidate boxes, the
// resized working image and the metadata needed to invert the resize.
type DetectionResult struct {
	Boxes            []DetectedBox      `json:"boxes"`
	Resize           imaging.ResizeMeta `json:"dimensoes"`
	WorkingImage     string             `json:"imagem_redimensionada"`
	InferenceSeconds float64            `json:"tempo_inferencia"`
	Device           string             `json:"device"`
}

// BoxSubmission is a finalized region sent for classification.
type BoxSubmission struct {
	XMin int `json:"xmin"`
	YMin int `json:"ymin"`
	XMax int `json:"xmax"`
	YMax int `json:"ymax"`
}

// ClassifiedBox carries the per-region classification plus a cropped
// sub-image of the region, base64-encoded.
type ClassifiedBox struct {
	XMin       int     `json:"xmin"`
	YMin       int     `json:"ymin"`
	XMax       int     `json:"xmax"`
	YMax       int     `json:"ymax"`
	Label      string  `json:"classe_classificacao"`
	Confidence float64 `json:"confianca_classificacao"`
	SubImage   string  `json:"subimagem"`
}

type classificationResponse struct {
	Results *[]ClassifiedBox `json:"resultados"`
}

// Health is the service's liveness payload.
type Health struct {
	Status string                 `json:"status"`
	Models map[string]interface{} `json:"models"`
}

type Client struct {
	baseURL         string
	httpClient      *http.Client
	detectTimeout   time.Duration
	classifyTimeout time.Duration
	healthTimeout   time.Duration
	log             *logrus.Logger
}

func NewClient(cfg config.InferenceConfig, log *logrus.Logger) *Client {
	return &Client{
		baseURL:         cfg.BaseURL,
		httpClient:      &http.Client{},
		detectTimeout:   cfg.DetectTimeout,
		classifyTimeout: cfg.ClassifyTimeout,
		healthTimeout:   cfg.HealthTimeout,
		log:             log,
	}
}

// Detect relays the original image to the detection endpoint.
func (c *Client) Detect(ctx context.Context, filename, contentType string, image []byte) (*DetectionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.detectTimeout)
	defer cancel()

	body, formContentType, err := imageForm(filename, contentType, image, nil)
	if err != nil {
		return nil, err
	}

	var result DetectionResult
	if err := c.postMultipart(ctx, "/predict/detection", body, formContentType, &result); err != nil {
		return nil, err
	}

	c.log.Infof("Detection returned %d candidate regions in %.2fs", len(result.Boxes), result.InferenceSeconds)
	return &result, nil
}

// Classify relays the working image plus the finalized regions to the
// classification endpoint. One result is returned per submitted region.
func (c *Client) Classify(ctx context.Context, image []byte, regions []BoxSubmission) ([]ClassifiedBox, error) {
	ctx, cancel := context.WithTimeout(ctx, c.classifyTimeout)
	defer cancel()

	regionsJSON, err := json.Marshal(regions)
	if err != nil {
		return nil, err
	}

	body, formContentType, err := imageForm("wound_analysis.jpg", "image/jpeg", image, map[string]string{
		"deteccoes_json": string(regionsJSON),
	})
	if err != nil {
		return nil, err
	}

	var result classificationResponse
	if err := c.postMultipart(ctx, "/predict/classification", body, formContentType, &result); err != nil {
		return nil, err
	}
	if result.Results == nil {
		return nil, fmt.Errorf("%w: result list is missing", ErrInvalidResponse)
	}

	c.log.Infof("Classification returned %d results", len(*result.Results))
	return *result.Results, nil
}

// CheckHealth probes the service's liveness endpoint.
func (c *Client) CheckHealth(ctx context.Context) (*Health, error) {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var health Health
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &health, nil
}

func (c *Client) postMultipart(ctx context.Context, path string, body *bytes.Buffer, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.log.Warnf("Inference call %s failed with status %d: %s", path, resp.StatusCode, detail)
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// imageForm builds a multipart body with the image under the "file" field
// plus any extra form fields.
func imageForm(filename, contentType string, image []byte, fields map[string]string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}

	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}
