package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/ultikits/invbackup/internal/config"
	"github.com/ultikits/invbackup/internal/players"
	"github.com/ultikits/invbackup/internal/services"
)

// TriggerHandler receives backup trigger webhooks from the game server's
// event plumbing: a death fires before drops, a quit fires on disconnect.
// Whether a trigger actually produces a backup is governed by config.
type TriggerHandler struct {
	backups  services.BackupServiceProvider
	registry players.Registry
	cfg      *config.Config
}

// NewTriggerHandler creates a new TriggerHandler.
func NewTriggerHandler(backups services.BackupServiceProvider, registry players.Registry, cfg *config.Config) *TriggerHandler {
	return &TriggerHandler{backups: backups, registry: registry, cfg: cfg}
}

// TriggerPayload is the expected JSON body for trigger webhooks.
type TriggerPayload struct {
	PlayerUUID string `json:"playerUuid"`
}

// Death handles the player-death trigger.
func (h *TriggerHandler) Death(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.cfg.AutoBackup.OnDeath, "DEATH")
}

// Quit handles the player-disconnect trigger.
func (h *TriggerHandler) Quit(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.cfg.AutoBackup.OnQuit, "QUIT")
}

func (h *TriggerHandler) handle(w http.ResponseWriter, r *http.Request, enabled bool, reason string) {
	var payload TriggerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.PlayerUUID == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if !enabled {
		json.NewEncoder(w).Encode(map[string]bool{"created": false})
		return
	}

	player, ok := h.registry.Get(payload.PlayerUUID)
	if !ok {
		http.Error(w, "Player is not online", http.StatusNotFound)
		return
	}

	if _, err := h.backups.CreateBackup(player, reason); err != nil {
		log.Error().Err(err).Str("player_uuid", payload.PlayerUUID).Str("reason", reason).Msg("Triggered backup failed")
		http.Error(w, "Failed to create backup: "+err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]bool{"created": true})
}
