package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meltforce/reptrack/internal/ingest/csvlog"
	"github.com/meltforce/reptrack/internal/session"
	"github.com/meltforce/reptrack/internal/stats"
	"github.com/meltforce/reptrack/internal/storage"
)

// The repository satisfies every consumer-side store interface.
var (
	_ session.Store = (*storage.DB)(nil)
	_ stats.Store   = (*storage.DB)(nil)
	_ csvlog.Store  = (*storage.DB)(nil)
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	db       *storage.DB
	sessions *session.Manager
	stats    *stats.Service
	csv      *csvlog.Provider
	log      *slog.Logger
	router   chi.Router
}

// New creates a new Server with all routes configured. identity is the
// middleware that stamps requests with a UserInfo (DevIdentity or
// TailscaleIdentity).
func New(db *storage.DB, sessions *session.Manager, statsSvc *stats.Service, csv *csvlog.Provider, identity func(http.Handler) http.Handler, log *slog.Logger) *Server {
	s := &Server{
		db:       db,
		sessions: sessions,
		stats:    statsSvc,
		csv:      csv,
		log:      log,
		router:   chi.NewRouter(),
	}
	s.routes(identity)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes(identity func(http.Handler) http.Handler) {
	s.router.Use(RequestID)
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)
	s.router.Use(identity)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/me", s.handleMe)

		// Session lifecycle
		r.Post("/templates/{id}/start", s.handleStartFromTemplate)
		r.Post("/workouts", s.handleStartBlank)
		r.Get("/workouts/{id}", s.handleGetWorkout)
		r.Post("/workouts/{id}/finish", s.handleFinishWorkout)
		r.Patch("/sets/{id}", s.handleUpdateSet)
		r.Delete("/sets/{id}", s.handleDeleteSet)
		r.Post("/workouts/{id}/exercises", s.handleAddExercise)
		r.Delete("/workouts/{id}/exercises/{exerciseID}", s.handleRemoveExercise)
		r.Post("/workouts/{id}/exercises/{exerciseID}/sets", s.handleAddSet)

		// History editing
		r.Post("/history/{id}/save", s.handleSaveHistoryEdit)

		// Analytics
		r.Get("/stats", s.handleStatsSeries)
		r.Get("/lookback", s.handleLookback)

		// Overview pages
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/history", s.handleHistory)
		r.Get("/profile", s.handleProfile)

		// Planning
		r.Get("/folders", s.handleListFolders)
		r.Post("/folders", s.handleCreateFolder)
		r.Delete("/folders/{id}", s.handleDeleteFolder)
		r.Post("/folders/{id}/templates", s.handleCreateTemplate)
		r.Get("/templates/{id}", s.handleGetTemplate)
		r.Delete("/templates/{id}", s.handleDeleteTemplate)
		r.Post("/templates/{id}/exercises", s.handleAddTemplateExercise)
		r.Put("/templates/{id}/exercises/{lineID}", s.handleUpdateTemplateExercise)
		r.Delete("/templates/{id}/exercises/{lineID}", s.handleDeleteTemplateExercise)

		// Catalog and imports
		r.Get("/exercises", s.handleListExercises)
		r.Post("/import/csv", s.handleCSVImport)
		r.Get("/import/logs", s.handleImportLogs)
	})
}
