package http

import (
	"net/http"

	"wound-analysis-service/internal/delivery/http/handler"
	"wound-analysis-service/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router                 *mux.Router
	healthHandler          *handler.HealthHandler
	professionalHandler    *handler.ProfessionalHandler
	patientHandler         *handler.PatientHandler
	analysisHandler        *handler.AnalysisHandler
	auditLogHandler        *handler.AuditLogHandler
	authMiddleware         *middleware.AuthMiddleware
	professionalMiddleware *middleware.ProfessionalMiddleware
	corsMiddleware         *middleware.CORSMiddleware
}

func NewRouter(
	healthHandler *handler.HealthHandler,
	professionalHandler *handler.ProfessionalHandler,
	patientHandler *handler.PatientHandler,
	analysisHandler *handler.AnalysisHandler,
	auditLogHandler *handler.AuditLogHandler,
	authMiddleware *middleware.AuthMiddleware,
	professionalMiddleware *middleware.ProfessionalMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
) *Router {
	return &Router{
		router:                 mux.NewRouter(),
		healthHandler:          healthHandler,
		professionalHandler:    professionalHandler,
		patientHandler:         patientHandler,
		analysisHandler:        analysisHandler,
		auditLogHandler:        auditLogHandler,
		authMiddleware:         authMiddleware,
		professionalMiddleware: professionalMiddleware,
		corsMiddleware:         corsMiddleware,
	}
}

func (r *Router) Setup() *mux.Router {
	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health checks (public)
	api.HandleFunc("/health", r.healthHandler.Health).Methods(http.MethodGet)
	api.HandleFunc("/health/inference", r.healthHandler.InferenceHealth).Methods(http.MethodGet)

	// Professional routes: registration only needs a verified credential,
	// everything else also needs a registered professional.
	professionals := api.PathPrefix("/professionals").Subrouter()
	professionals.Use(r.authMiddleware.Authenticate)
	professionals.HandleFunc("/register", r.professionalHandler.Register).Methods(http.MethodPost)
	professionals.HandleFunc("/profile", r.professionalHandler.GetProfile).Methods(http.MethodGet)

	// Patient routes (protected, owner-scoped)
	patients := api.PathPrefix("/patients").Subrouter()
	patients.Use(r.authMiddleware.Authenticate)
	patients.Use(r.professionalMiddleware.Resolve)
	patients.HandleFunc("", r.patientHandler.CreatePatient).Methods(http.MethodPost)
	patients.HandleFunc("", r.patientHandler.GetAllPatients).Methods(http.MethodGet)
	patients.HandleFunc("/{id}", r.patientHandler.GetPatient).Methods(http.MethodGet)
	patients.HandleFunc("/{id}", r.patientHandler.UpdatePatient).Methods(http.MethodPut)
	patients.HandleFunc("/{id}", r.patientHandler.DeletePatient).Methods(http.MethodDelete)
	patients.HandleFunc("/{id}/analyses", r.patientHandler.GetPatientAnalyses).Methods(http.MethodGet)

	// Analysis workflow routes (protected, owner-scoped)
	analyses := api.PathPrefix("/analyses").Subrouter()
	analyses.Use(r.authMiddleware.Authenticate)
	analyses.Use(r.professionalMiddleware.Resolve)
	analyses.HandleFunc("/detect", r.analysisHandler.Detect).Methods(http.MethodPost)
	analyses.HandleFunc("/classify", r.analysisHandler.Classify).Methods(http.MethodPost)
	analyses.HandleFunc("", r.analysisHandler.Save).Methods(http.MethodPost)
	analyses.HandleFunc("/{id}", r.analysisHandler.GetAnalysis).Methods(http.MethodGet)
	analyses.HandleFunc("/{id}/detailed", r.analysisHandler.GetAnalysisDetailed).Methods(http.MethodGet)

	// Audit trail (protected)
	auditLogs := api.PathPrefix("/audit-logs").Subrouter()
	auditLogs.Use(r.authMiddleware.Authenticate)
	auditLogs.Use(r.professionalMiddleware.Resolve)
	auditLogs.HandleFunc("", r.auditLogHandler.GetAllAuditLogs).Methods(http.MethodGet)
	auditLogs.HandleFunc("/{id}", r.auditLogHandler.GetAuditLog).Methods(http.MethodGet)

	// Add CORS middleware
	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}
