package repository

import (
	"context"
	"errors"

	"wound-analysis-service/internal/domain/entity"
	domainRepo "wound-analysis-service/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type patientRepository struct{}

func NewPatientRepository() domainRepo.PatientRepository {
	return &patientRepository{}
}

func (r *patientRepository) Create(ctx context.Context, db *gorm.DB, patient *entity.Patient) error {
	return db.WithContext(ctx).Create(patient).Error
}

func (r *patientRepository) FindByIDAndOwner(ctx context.Context, db *gorm.DB, id, professionalID uuid.UUID) (*entity.Patient, error) {
	var patient entity.Patient
	err := db.WithContext(ctx).
		Where("id = ? AND professional_id = ?", id, professionalID).
		First(&patient).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &patient, nil
}

func (r *patientRepository) FindByNationalID(ctx context.Context, db *gorm.DB, nationalID string, professionalID *uuid.UUID) (*entity.Patient, error) {
	query := db.WithContext(ctx).Where("national_id = ?", nationalID)
	if professionalID != nil {
		query = query.Where("professional_id = ?", *professionalID)
	}

	var patient entity.Patient
	err := query.First(&patient).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &patient, nil
}

func (r *patientRepository) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*entity.Patient, error) {
	var patient entity.Patient
	err := db.WithContext(ctx).Where("email = ?", email).First(&patient).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &patient, nil
}

func (r *patientRepository) Search(ctx context.Context, db *gorm.DB, professionalID uuid.UUID, query string, limit, offset int) ([]entity.Patient, int64, error) {
	base := db.WithContext(ctx).Model(&entity.Patient{}).Where("professional_id = ?", professionalID)
	if query != "" {
		// National-id searches ignore separators the same way creation does.
		if digits := digitsOnly(query); digits != "" {
			base = base.Where("name ILIKE ? OR national_id LIKE ?", "%"+query+"%", "%"+digits+"%")
		} else {
			base = base.Where("name ILIKE ?", "%"+query+"%")
		}
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var patients []entity.Patient
	if err := base.Order("created_at DESC").Limit(limit).Offset(offset).Find(&patients).Error; err != nil {
		return nil, 0, err
	}

	return patients, total, nil
}

func (r *patientRepository) Update(ctx context.Context, db *gorm.DB, patient *entity.Patient) error {
	return db.WithContext(ctx).Save(patient).Error
}

func (r *patientRepository) Delete(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Patient{}).Error
}

func digitsOnly(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			out = append(out, r)
		}
	}
	return string(out)
}
