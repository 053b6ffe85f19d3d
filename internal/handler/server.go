// Package handler implements the HTTP handlers for the mileage logbook API.
// Handlers are methods on Server, split into domain-specific files
// (health.go, imports.go, schedule.go, ...) but sharing the same struct so
// they can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/mileage-logbook/internal/domain"
)

// ImportServicer defines the import operations the handlers depend on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the database or service layer.
type ImportServicer interface {
	Preview(fileName string, data []byte) (domain.ImportPreview, error)
	ProcessImport(ctx context.Context, userID uuid.UUID, req domain.ImportRequest) (domain.ImportSummary, error)
	RecentErrors(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ImportErrorLog, error)
}

// ImportEnqueuer queues an import for the background worker.
type ImportEnqueuer interface {
	EnqueueImport(ctx context.Context, userID uuid.UUID, req domain.ImportRequest) (string, error)
}

// ScheduleServicer defines the schedule read/delete operations.
type ScheduleServicer interface {
	List(ctx context.Context, userID uuid.UUID, r domain.DateRange, p domain.PaginationParams) ([]domain.ScheduleEntry, int64, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (domain.ScheduleEntry, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// ExportServicer flattens a user's schedule for download.
type ExportServicer interface {
	Export(ctx context.Context, userID uuid.UUID, r domain.DateRange) ([]domain.ExportRow, error)
}

// SettingsServicer reads and writes per-user settings.
type SettingsServicer interface {
	Get(ctx context.Context, userID uuid.UUID) (domain.UserSettings, error)
	Update(ctx context.Context, s domain.UserSettings) (domain.UserSettings, error)
}

// Deps groups the Server's dependencies. Queue may be nil, in which case
// ?async=true imports are refused with 503.
type Deps struct {
	Imports  ImportServicer
	Queue    ImportEnqueuer
	Schedule ScheduleServicer
	Export   ExportServicer
	Settings SettingsServicer
	OpenAPI  []byte
	Logger   *slog.Logger
}

// Server serves every API endpoint.
type Server struct {
	imports  ImportServicer
	queue    ImportEnqueuer
	schedule ScheduleServicer
	export   ExportServicer
	settings SettingsServicer
	openAPI  []byte
	log      *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(d Deps) *Server {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		imports:  d.Imports,
		queue:    d.Queue,
		schedule: d.Schedule,
		export:   d.Export,
		settings: d.Settings,
		openAPI:  d.OpenAPI,
		log:      log,
	}
}

// Routes returns the API router. auth guards every route except /healthz
// and /openapi.yaml and must place the user ID in the request context.
func (s *Server) Routes(auth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Group(func(r chi.Router) {
		r.Use(auth)

		r.Post("/imports/preview", s.PreviewImport)
		r.Post("/imports", s.CreateImport)
		r.Get("/imports/errors", s.ListImportErrors)

		r.Get("/schedule", s.ListSchedule)
		r.Get("/schedule/export", s.ExportSchedule)
		r.Get("/schedule/{id}", s.GetScheduleEntry)
		r.Delete("/schedule/{id}", s.DeleteScheduleEntry)

		r.Get("/settings", s.GetSettings)
		r.Put("/settings", s.UpdateSettings)
	})
	return r
}
