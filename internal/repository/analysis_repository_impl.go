package repository

import (
	"context"
	"errors"
	"time"

	"wound-analysis-service/internal/domain/entity"
	domainRepo "wound-analysis-service/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type analysisRepository struct{}

func NewAnalysisRepository() domainRepo.AnalysisRepository {
	return &analysisRepository{}
}

func (r *analysisRepository) Create(ctx context.Context, db *gorm.DB, analysis *entity.Analysis) error {
	return db.WithContext(ctx).Create(analysis).Error
}

func (r *analysisRepository) FindByIDAndOwner(ctx context.Context, db *gorm.DB, id, professionalID uuid.UUID) (*entity.Analysis, error) {
	var analysis entity.Analysis
	err := db.WithContext(ctx).
		Preload("Patient").
		Where("id = ? AND professional_id = ?", id, professionalID).
		First(&analysis).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &analysis, nil
}

func (r *analysisRepository) FindByPatientID(ctx context.Context, db *gorm.DB, patientID uuid.UUID) ([]entity.Analysis, error) {
	var analyses []entity.Analysis
	err := db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&analyses).Error
	if err != nil {
		return nil, err
	}
	return analyses, nil
}

func (r *analysisRepository) CountByPatientID(ctx context.Context, db *gorm.DB, patientID uuid.UUID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&entity.Analysis{}).Where("patient_id = ?", patientID).Count(&count).Error
	return count, err
}

func (r *analysisRepository) Update(ctx context.Context, db *gorm.DB, analysis *entity.Analysis) error {
	return db.WithContext(ctx).Save(analysis).Error
}

func (r *analysisRepository) FindStale(ctx context.Context, db *gorm.DB, cutoff time.Time) ([]entity.Analysis, error) {
	var analyses []entity.Analysis
	err := db.WithContext(ctx).
		Where("status = ? OR (status = ? AND created_at < ?)",
			entity.AnalysisStatusFailed, entity.AnalysisStatusPending, cutoff).
		Find(&analyses).Error
	if err != nil {
		return nil, err
	}
	return analyses, nil
}

func (r *analysisRepository) Delete(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Analysis{}).Error
}
