package dto

import (
	"time"

	"wound-analysis-service/internal/domain/entity"
)

// Response DTOs

type AuditLogResponse struct {
	ID           int64                 `json:"id"`
	Professional *ProfessionalResponse `json:"professional,omitempty"`
	Action       string                `json:"action"`
	Metadata     entity.JSON           `json:"metadata"`
	CreatedAt    time.Time             `json:"created_at"`
}

type AuditLogListResponse struct {
	Logs  []AuditLogResponse `json:"logs"`
	Total int                `json:"total"`
}
