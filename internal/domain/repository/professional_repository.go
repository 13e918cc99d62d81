package repository

import (
	"context"

	"wound-analysis-service/internal/domain/entity"

	"gorm.io/gorm"
)

type ProfessionalRepository interface {
	Create(ctx context.Context, db *gorm.DB, professional *entity.Professional) error
	FindBySubjectID(ctx context.Context, db *gorm.DB, subjectID string) (*entity.Professional, error)
	FindByNationalID(ctx context.Context, db *gorm.DB, nationalID string) (*entity.Professional, error)
	Update(ctx context.Context, db *gorm.DB, professional *entity.Professional) error
}
