package handler

import (
	"context"
	"net/http"

	"wound-analysis-service/internal/infrastructure/inference"
	"wound-analysis-service/pkg/response"
)

// InferenceHealthChecker reports whether the inference service is up.
type InferenceHealthChecker interface {
	CheckHealth(ctx context.Context) (*inference.Health, error)
}

type HealthHandler struct {
	inference InferenceHealthChecker
}

func NewHealthHandler(inferenceChecker InferenceHealthChecker) *HealthHandler {
	return &HealthHandler{
		inference: inferenceChecker,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, "Service is healthy", map[string]string{"status": "ok"})
}

// InferenceHealth relays the inference service's own liveness payload so
// the mobile app can tell a dead backend from a dead model server.
func (h *HealthHandler) InferenceHealth(w http.ResponseWriter, r *http.Request) {
	health, err := h.inference.CheckHealth(r.Context())
	if err != nil {
		response.ServiceUnavailable(w, "Inference service is unavailable")
		return
	}

	response.Success(w, http.StatusOK, "Inference service is healthy", health)
}
