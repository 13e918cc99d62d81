package repository

import (
	"context"
	"time"

	"wound-analysis-service/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AnalysisRepository interface {
	Create(ctx context.Context, db *gorm.DB, analysis *entity.Analysis) error
	FindByIDAndOwner(ctx context.Context, db *gorm.DB, id, professionalID uuid.UUID) (*entity.Analysis, error)
	FindByPatientID(ctx context.Context, db *gorm.DB, patientID uuid.UUID) ([]entity.Analysis, error)
	CountByPatientID(ctx context.Context, db *gorm.DB, patientID uuid.UUID) (int64, error)
	Update(ctx context.Context, db *gorm.DB, analysis *entity.Analysis) error
	// FindStale returns failed analyses and pending analyses older than
	// cutoff; the sweep reclaims them together with their uploads.
	FindStale(ctx context.Context, db *gorm.DB, cutoff time.Time) ([]entity.Analysis, error)
	Delete(ctx context.Context, db *gorm.DB, id uuid.UUID) error
}
