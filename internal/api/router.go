package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/subtitle-studio/backend/internal/api/handlers"
	"github.com/subtitle-studio/backend/internal/api/middleware"
	"github.com/subtitle-studio/backend/internal/auth"
	"github.com/subtitle-studio/backend/internal/config"
	"github.com/subtitle-studio/backend/internal/cover"
	"github.com/subtitle-studio/backend/internal/db"
	"github.com/subtitle-studio/backend/internal/speech"
)

func NewRouter(database *db.Database, jwtService *auth.JWTService, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(middleware.CORSOptions(cfg.CORSOrigins)))

	// Collaborator clients; nil when not configured
	var detector cover.Detector
	if cfg.CoverServiceURL != "" {
		detector = cover.NewClient(cfg.CoverServiceURL)
	}
	var synth speech.Synthesizer
	if cfg.SpeechServiceURL != "" {
		synth = speech.NewClient(cfg.SpeechServiceURL)
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(database, jwtService)
	projectsHandler := handlers.NewProjectsHandler(database)
	mediaHandler := handlers.NewMediaHandler(cfg.MediaPath)
	editorHandler := handlers.NewEditorHandler(database, cfg, detector, synth)
	settingsHandler := handlers.NewSettingsHandler(database)
	userHandler := handlers.NewUserHandler(database)

	loginLimiter := middleware.NewRateLimiter(10, time.Minute)

	r.Route("/api", func(r chi.Router) {
		// Auth (public, rate limited)
		r.With(loginLimiter.Handler).Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(jwtService))
			r.Use(middleware.LimitBody(16 << 20))

			// Auth
			r.Get("/auth/me", authHandler.Me)

			// Projects
			r.Get("/projects", projectsHandler.List)
			r.Post("/projects", projectsHandler.Create)
			r.Get("/projects/{id}", projectsHandler.Get)
			r.Put("/projects/{id}", projectsHandler.Update)
			r.Delete("/projects/{id}", projectsHandler.Delete)

			// Live editing session (websocket)
			r.Get("/projects/{id}/session", editorHandler.Session)

			// Per-user playhead memory
			r.Put("/projects/{id}/playhead", userHandler.SavePlayhead)
			r.Get("/projects/{id}/playhead", userHandler.GetPlayhead)

			// Media browsing
			r.Get("/media", mediaHandler.List)
			r.Get("/media/*", mediaHandler.List)

			// Settings (admin only)
			r.With(middleware.RequireRole("admin")).Get("/settings", settingsHandler.GetSettings)
			r.With(middleware.RequireRole("admin")).Put("/settings", settingsHandler.UpdateSettings)
		})
	})

	return r
}
