package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ultikits/invbackup/internal/api"
	"github.com/ultikits/invbackup/internal/auth"
	"github.com/ultikits/invbackup/internal/config"
	"github.com/ultikits/invbackup/internal/database"
	"github.com/ultikits/invbackup/internal/logger"
	"github.com/ultikits/invbackup/internal/monitoring"
	"github.com/ultikits/invbackup/internal/players"
	"github.com/ultikits/invbackup/internal/services"
	"github.com/ultikits/invbackup/internal/websocket"
)

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	auth.Init(cfg.Auth.JWTSecret)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create data directory")
	}

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Player presence: a live game server over RCON, or an empty in-memory
	// registry when no server is configured (useful for API-only setups).
	var registry players.Registry
	if cfg.Rcon.Address != "" {
		registry = players.NewRconRegistry(cfg.Rcon.Address, cfg.Rcon.Password)
	} else {
		log.Warn().Msg("No RCON address configured, starting with an empty player registry")
		registry = players.NewMemoryRegistry()
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	eventService := services.NewEventService(db)
	userService := services.NewUserService(db)
	backupService := services.NewBackupService(db, registry, eventService, hub, cfg)
	restoreService := services.NewRestoreService(backupService, eventService, hub)

	bootstrapAdmin(userService)

	// Set up and run the periodic auto backup loop
	autoBackup := monitoring.NewAutoBackup(backupService, cfg)
	go autoBackup.Run()

	router := api.NewRouter(hub, registry, backupService, restoreService, eventService, userService, cfg)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	autoBackup.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}

// bootstrapAdmin creates the initial operator account from the environment
// on first run, so the protected API is reachable at all.
func bootstrapAdmin(userService services.UserServiceProvider) {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return
	}

	if _, err := userService.AuthenticateUser(email, password); err == nil {
		return
	}

	if _, err := userService.CreateUser("admin", email, password); err != nil {
		log.Warn().Err(err).Msg("Failed to bootstrap admin account")
		return
	}
	log.Info().Str("email", email).Msg("Bootstrapped admin account")
}
