package repository

import (
	"context"
	"errors"

	"wound-analysis-service/internal/domain/entity"
	domainRepo "wound-analysis-service/internal/domain/repository"

	"gorm.io/gorm"
)

type professionalRepository struct{}

func NewProfessionalRepository() domainRepo.ProfessionalRepository {
	return &professionalRepository{}
}

func (r *professionalRepository) Create(ctx context.Context, db *gorm.DB, professional *entity.Professional) error {
	return db.WithContext(ctx).Create(professional).Error
}

func (r *professionalRepository) FindBySubjectID(ctx context.Context, db *gorm.DB, subjectID string) (*entity.Professional, error) {
	var professional entity.Professional
	err := db.WithContext(ctx).Where("subject_id = ?", subjectID).First(&professional).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &professional, nil
}

func (r *professionalRepository) FindByNationalID(ctx context.Context, db *gorm.DB, nationalID string) (*entity.Professional, error) {
	var professional entity.Professional
	err := db.WithContext(ctx).Where("national_id = ?", nationalID).First(&professional).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &professional, nil
}

func (r *professionalRepository) Update(ctx context.Context, db *gorm.DB, professional *entity.Professional) error {
	return db.WithContext(ctx).Save(professional).Error
}
