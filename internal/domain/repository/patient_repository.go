package repository

import (
	"context"

	"wound-analysis-service/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PatientRepository interface {
	Create(ctx context.Context, db *gorm.DB, patient *entity.Patient) error
	// FindByIDAndOwner returns nil when the patient does not exist or is
	// owned by a different professional; callers cannot tell the two
	// apart, which is intentional.
	FindByIDAndOwner(ctx context.Context, db *gorm.DB, id, professionalID uuid.UUID) (*entity.Patient, error)
	// FindByNationalID looks up a national id, scoped to one owner when
	// professionalID is non-nil and across all owners otherwise.
	FindByNationalID(ctx context.Context, db *gorm.DB, nationalID string, professionalID *uuid.UUID) (*entity.Patient, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*entity.Patient, error)
	// Search lists an owner's patients newest-first, optionally filtered
	// by a case-insensitive name or national-id substring.
	Search(ctx context.Context, db *gorm.DB, professionalID uuid.UUID, query string, limit, offset int) ([]entity.Patient, int64, error)
	Update(ctx context.Context, db *gorm.DB, patient *entity.Patient) error
	Delete(ctx context.Context, db *gorm.DB, id uuid.UUID) error
}
