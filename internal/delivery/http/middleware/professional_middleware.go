package middleware

import (
	"context"
	"net/http"

	"wound-analysis-service/internal/domain/entity"
	"wound-analysis-service/internal/domain/repository"
	"wound-analysis-service/pkg/response"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ProfessionalMiddleware resolves the registered professional for the
// verified subject and injects it into the request context. Ownership
// checks downstream always use this record, never client-supplied ids.
type ProfessionalMiddleware struct {
	db               *gorm.DB
	log              *logrus.Logger
	professionalRepo repository.ProfessionalRepository
}

func NewProfessionalMiddleware(db *gorm.DB, log *logrus.Logger, professionalRepo repository.ProfessionalRepository) *ProfessionalMiddleware {
	return &ProfessionalMiddleware{
		db:               db,
		log:              log,
		professionalRepo: professionalRepo,
	}
}

func (m *ProfessionalMiddleware) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := GetClaimsFromContext(r.Context())
		if !ok {
			response.Unauthorized(w, "Credential information not found")
			return
		}

		professional, err := m.professionalRepo.FindBySubjectID(r.Context(), m.db, claims.SubjectID)
		if err != nil {
			m.log.Warnf("Failed to resolve professional: %+v", err)
			response.InternalServerError(w, "Failed to resolve professional")
			return
		}
		if professional == nil {
			response.NotFound(w, "Professional profile not found, complete registration first")
			return
		}

		ctx := context.WithValue(r.Context(), ProfessionalKey, professional)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetProfessionalFromContext extracts the resolved professional from context
func GetProfessionalFromContext(ctx context.Context) (*entity.Professional, bool) {
	professional, ok := ctx.Value(ProfessionalKey).(*entity.Professional)
	return professional, ok
}
