package usecase

import (
	"context"
	"errors"
	"strings"

	"wound-analysis-service/internal/converter"
	"wound-analysis-service/internal/delivery/dto"
	"wound-analysis-service/internal/delivery/http/middleware"
	"wound-analysis-service/internal/domain/entity"
	"wound-analysis-service/internal/domain/repository"
	"wound-analysis-service/internal/service"
	"wound-analysis-service/pkg/validator"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrProfessionalNotRegistered    = errors.New("professional profile not found")
	ErrProfessionalNationalIDExists = errors.New("national id already registered to another professional")
	ErrProfessionalEmailExists      = errors.New("email already registered to another professional")
)

type ProfessionalUsecase interface {
	// Register creates the profile for the verified subject, or updates
	// it when the subject already registered. The subject id and email
	// always come from the verified credential.
	Register(ctx context.Context, req *dto.ProfessionalRegisterRequest) (*dto.ProfessionalResponse, error)
	GetProfile(ctx context.Context) (*dto.ProfessionalResponse, error)
}

type professionalUsecase struct {
	db               *gorm.DB
	log              *logrus.Logger
	validate         *validator.CustomValidator
	professionalRepo repository.ProfessionalRepository
	auditService     service.AuditService
}

func NewProfessionalUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	validate *validator.CustomValidator,
	professionalRepo repository.ProfessionalRepository,
	auditService service.AuditService,
) ProfessionalUsecase {
	return &professionalUsecase{
		db:               db,
		log:              log,
		validate:         validate,
		professionalRepo: professionalRepo,
		auditService:     auditService,
	}
}

func (u *professionalUsecase) Register(ctx context.Context, req *dto.ProfessionalRegisterRequest) (*dto.ProfessionalResponse, error) {
	claims, ok := middleware.GetClaimsFromContext(ctx)
	if !ok {
		return nil, errors.New("credential not found in context")
	}

	if err := u.validate.Validate(req); err != nil {
		return nil, err
	}

	nationalID := validator.StripNationalID(req.NationalID)

	// Repeat registrations with the same subject update the existing
	// profile instead of conflicting.
	existing, err := u.professionalRepo.FindBySubjectID(ctx, u.db, claims.SubjectID)
	if err != nil {
		u.log.Warnf("Failed to find professional by subject: %+v", err)
		return nil, err
	}

	if existing != nil {
		return u.update(ctx, existing, req, nationalID)
	}

	// The national id must not belong to a different subject.
	byNationalID, err := u.professionalRepo.FindByNationalID(ctx, u.db, nationalID)
	if err != nil {
		u.log.Warnf("Failed to find professional by national id: %+v", err)
		return nil, err
	}
	if byNationalID != nil {
		return nil, ErrProfessionalNationalIDExists
	}

	professional := &entity.Professional{
		SubjectID:      claims.SubjectID,
		Name:           req.Name,
		NationalID:     nationalID,
		Email:          claims.Email,
		Phone:          req.Phone,
		ProfessionType: req.ProfessionType,
		LicenseNumber:  req.LicenseNumber,
	}

	if err := u.professionalRepo.Create(ctx, u.db, professional); err != nil {
		if isDuplicateKeyError(err, "national_id") {
			return nil, ErrProfessionalNationalIDExists
		}
		if isDuplicateKeyError(err, "email") {
			return nil, ErrProfessionalEmailExists
		}
		u.log.Warnf("Failed to create professional: %+v", err)
		return nil, err
	}

	if err := u.auditService.LogCreate(ctx, u.db, &professional.ID, entity.AuditActionProfessionalRegister, "professional", professional.ID.String(), converter.ProfessionalToResponse(professional)); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	return converter.ProfessionalToResponse(professional), nil
}

func (u *professionalUsecase) update(ctx context.Context, professional *entity.Professional, req *dto.ProfessionalRegisterRequest, nationalID string) (*dto.ProfessionalResponse, error) {
	if nationalID != professional.NationalID {
		other, err := u.professionalRepo.FindByNationalID(ctx, u.db, nationalID)
		if err != nil {
			u.log.Warnf("Failed to find professional by national id: %+v", err)
			return nil, err
		}
		if other != nil && other.ID != professional.ID {
			return nil, ErrProfessionalNationalIDExists
		}
	}

	oldValue := converter.ProfessionalToResponse(professional)

	professional.Name = req.Name
	professional.NationalID = nationalID
	professional.Phone = req.Phone
	professional.ProfessionType = req.ProfessionType
	professional.LicenseNumber = req.LicenseNumber

	if err := u.professionalRepo.Update(ctx, u.db, professional); err != nil {
		if isDuplicateKeyError(err, "national_id") {
			return nil, ErrProfessionalNationalIDExists
		}
		u.log.Warnf("Failed to update professional: %+v", err)
		return nil, err
	}

	newValue := converter.ProfessionalToResponse(professional)
	if err := u.auditService.LogUpdate(ctx, u.db, &professional.ID, entity.AuditActionProfessionalUpdate, "professional", professional.ID.String(), oldValue, newValue); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	return newValue, nil
}

func (u *professionalUsecase) GetProfile(ctx context.Context) (*dto.ProfessionalResponse, error) {
	claims, ok := middleware.GetClaimsFromContext(ctx)
	if !ok {
		return nil, errors.New("credential not found in context")
	}

	professional, err := u.professionalRepo.FindBySubjectID(ctx, u.db, claims.SubjectID)
	if err != nil {
		u.log.Warnf("Failed to find professional by subject: %+v", err)
		return nil, err
	}
	if professional == nil {
		return nil, ErrProfessionalNotRegistered
	}

	return converter.ProfessionalToResponse(professional), nil
}

// isDuplicateKeyError checks if the error is a PostgreSQL unique constraint violation
// containing the specified constraint name
func isDuplicateKeyError(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// PostgreSQL error code 23505 = unique_violation
		if pgErr.Code == "23505" && strings.Contains(strings.ToLower(pgErr.ConstraintName), strings.ToLower(constraintName)) {
			return true
		}
	}
	return false
}

// isForeignKeyError checks if the error is a PostgreSQL foreign key violation
// containing the specified constraint name
func isForeignKeyError(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// PostgreSQL error code 23503 = foreign_key_violation
		if pgErr.Code == "23503" && strings.Contains(strings.ToLower(pgErr.ConstraintName), strings.ToLower(constraintName)) {
			return true
		}
	}
	return false
}
