// Package api exposes the dashboard over a JSON REST interface.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/rpattn/esgdash/internal/auth"
	"github.com/rpattn/esgdash/internal/export"
	"github.com/rpattn/esgdash/internal/ingestion"
	"github.com/rpattn/esgdash/internal/middleware"
	"github.com/rpattn/esgdash/internal/reports"
	"github.com/rpattn/esgdash/internal/repository"
	"github.com/rpattn/esgdash/internal/storage"
)

// Dependencies are the services and repositories behind the handlers.
type Dependencies struct {
	Employees  repository.EmployeeRepository
	Fleet      repository.FleetRepository
	Routes     repository.RouteRepository
	Bills      repository.BillRepository
	Lookups    repository.LookupRepository
	ImportLogs repository.ImportLogRepository

	Reports   *reports.Service
	Export    *export.Service
	Ingestion *ingestion.Service
	Documents *storage.Documents
	Auth      *auth.Service

	// Ping reports database health for /api/health.
	Ping func(ctx context.Context) error

	AllowedOrigins []string
	MaxUploadBytes int64
	AuthRequired   bool
	MetricsEnabled bool
	MetricsPath    string
	Logger         logrus.FieldLogger
}

// Server holds the HTTP handlers.
type Server struct {
	deps Dependencies
}

// NewRouter builds the full handler: CORS, request id, logging and metrics
// around every route, plus sessions and lookup batching on the data routes.
func NewRouter(deps Dependencies) http.Handler {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	s := &Server{deps: deps}

	router := mux.NewRouter()
	router.Use(middleware.RequestID, middleware.Logging(deps.Logger), middleware.Metrics)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "route not found"})
	})

	if deps.MetricsEnabled {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, promhttp.Handler()).Methods(http.MethodGet)
	}

	router.HandleFunc("/api/health", s.health).Methods(http.MethodGet)
	router.HandleFunc("/api/auth/register", s.register).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", s.login).Methods(http.MethodPost)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.Session(deps.Auth.Tokens(), deps.AuthRequired), middleware.DataLoaderMiddleware(deps.Lookups))

	api.HandleFunc("/lookups/{kind}", s.listLookups).Methods(http.MethodGet)

	api.HandleFunc("/employees", s.listEmployees).Methods(http.MethodGet)
	api.HandleFunc("/employees", s.createEmployee).Methods(http.MethodPost)
	api.HandleFunc("/employees/{id:[0-9]+}", s.getEmployee).Methods(http.MethodGet)
	api.HandleFunc("/employees/{id:[0-9]+}", s.updateEmployee).Methods(http.MethodPut)
	api.HandleFunc("/employees/{id:[0-9]+}", s.deleteEmployee).Methods(http.MethodDelete)
	api.HandleFunc("/employees/{id:[0-9]+}/history", s.employeeHistory).Methods(http.MethodGet)
	api.HandleFunc("/employees/{id:[0-9]+}/attributes", s.employeeAttributes).Methods(http.MethodGet)

	api.HandleFunc("/fleet", s.listVehicles).Methods(http.MethodGet)
	api.HandleFunc("/fleet", s.createVehicle).Methods(http.MethodPost)
	api.HandleFunc("/fleet/{id:[0-9]+}", s.getVehicle).Methods(http.MethodGet)
	api.HandleFunc("/fleet/{id:[0-9]+}", s.updateVehicle).Methods(http.MethodPut)
	api.HandleFunc("/fleet/{id:[0-9]+}", s.deleteVehicle).Methods(http.MethodDelete)
	api.HandleFunc("/fleet/{id:[0-9]+}/history", s.vehicleHistory).Methods(http.MethodGet)

	api.HandleFunc("/routes", s.listRoutes).Methods(http.MethodGet)
	api.HandleFunc("/routes", s.createRoute).Methods(http.MethodPost)
	api.HandleFunc("/routes/{id:[0-9]+}", s.deleteRoute).Methods(http.MethodDelete)

	api.HandleFunc("/bills", s.listBills).Methods(http.MethodGet)
	api.HandleFunc("/bills", s.createBill).Methods(http.MethodPost)
	api.HandleFunc("/bills/{id:[0-9]+}", s.getBill).Methods(http.MethodGet)
	api.HandleFunc("/bills/{id:[0-9]+}", s.updateBill).Methods(http.MethodPut)
	api.HandleFunc("/bills/{id:[0-9]+}", s.deleteBill).Methods(http.MethodDelete)

	api.HandleFunc("/documents", s.uploadDocument).Methods(http.MethodPost)
	api.HandleFunc("/documents/url", s.documentURL).Methods(http.MethodGet)

	api.HandleFunc("/reports/{kind}", s.report).Methods(http.MethodGet)
	api.HandleFunc("/reports/{kind}/export", s.exportReport).Methods(http.MethodGet)

	api.HandleFunc("/import/logs", s.importLogs).Methods(http.MethodGet)
	api.HandleFunc("/import/{target}/preview", s.previewImport).Methods(http.MethodPost)
	api.HandleFunc("/import/{target}", s.runImport).Methods(http.MethodPost)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
	})

	return corsHandler.Handler(router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ping != nil {
		if err := s.deps.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "details": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
