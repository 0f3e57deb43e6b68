package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ultikits/invbackup/internal/api/handlers"
	"github.com/ultikits/invbackup/internal/auth"
	"github.com/ultikits/invbackup/internal/config"
	"github.com/ultikits/invbackup/internal/players"
	"github.com/ultikits/invbackup/internal/services"
	"github.com/ultikits/invbackup/internal/websocket"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(
	hub *websocket.Hub,
	registry players.Registry,
	backupService services.BackupServiceProvider,
	restoreService services.RestoreServiceProvider,
	eventService services.EventServiceProvider,
	userService services.UserServiceProvider,
	cfg *config.Config,
) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"}, // Adjust for your frontend URL
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	backupHandler := handlers.NewBackupHandler(backupService, restoreService, registry)
	triggerHandler := handlers.NewTriggerHandler(backupService, registry, cfg)
	eventHandler := handlers.NewEventHandler(eventService)
	userHandler := handlers.NewUserHandler(userService)
	wsHandler := handlers.NewWebSocketHandler(hub)

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoint
		r.Post("/auth/login", userHandler.Login)

		// Everything else requires an authenticated operator
		r.Group(func(r chi.Router) {
			r.Use(auth.JWTMiddleware())

			r.Get("/ws", wsHandler.Serve)
			r.Get("/events", eventHandler.GetRecent)
			r.Post("/users", userHandler.Create)

			r.Route("/players/{uuid}/backups", func(r chi.Router) {
				r.Get("/", backupHandler.GetAllForPlayer)
				r.Post("/", backupHandler.Create)
			})

			r.Post("/backups/save-all", backupHandler.SaveAll)
			r.Route("/backups/{backupId}", func(r chi.Router) {
				r.Get("/", backupHandler.Get)
				r.Get("/preview", backupHandler.Preview)
				r.Delete("/", backupHandler.Delete)
				r.Post("/restore", backupHandler.Restore)
				r.Post("/force-restore", backupHandler.ForceRestore)
			})

			r.Route("/triggers", func(r chi.Router) {
				r.Post("/death", triggerHandler.Death)
				r.Post("/quit", triggerHandler.Quit)
			})
		})
	})

	return r
}
