package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/ultikits/invbackup/internal/models"
	"github.com/ultikits/invbackup/internal/players"
	"github.com/ultikits/invbackup/internal/services"
)

// BackupHandler handles HTTP requests related to backups.
type BackupHandler struct {
	backups  services.BackupServiceProvider
	restores services.RestoreServiceProvider
	registry players.Registry
}

// NewBackupHandler creates a new BackupHandler.
func NewBackupHandler(backups services.BackupServiceProvider, restores services.RestoreServiceProvider, registry players.Registry) *BackupHandler {
	return &BackupHandler{backups: backups, restores: restores, registry: registry}
}

// GetAllForPlayer handles the request to list a player's backups, most
// recent first.
func (h *BackupHandler) GetAllForPlayer(w http.ResponseWriter, r *http.Request) {
	playerUUID := chi.URLParam(r, "uuid")
	backups, err := h.backups.GetBackupsForPlayer(playerUUID)
	if err != nil {
		log.Error().Err(err).Str("player_uuid", playerUUID).Msg("Failed to retrieve backups for player")
		http.Error(w, "Failed to retrieve backups: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(backups)
}

// Create handles the request to take a manual backup of an online player.
func (h *BackupHandler) Create(w http.ResponseWriter, r *http.Request) {
	playerUUID := chi.URLParam(r, "uuid")
	player, ok := h.registry.Get(playerUUID)
	if !ok {
		http.Error(w, "Player is not online", http.StatusNotFound)
		return
	}

	backup, err := h.backups.CreateBackup(player, "MANUAL")
	if err != nil {
		log.Error().Err(err).Str("player_uuid", playerUUID).Msg("Failed to create backup")
		http.Error(w, "Failed to create backup: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(backup)
}

// Get handles the request for a single backup record.
func (h *BackupHandler) Get(w http.ResponseWriter, r *http.Request) {
	backup, err := h.backups.GetBackupByID(chi.URLParam(r, "backupId"))
	if err != nil {
		http.Error(w, "Failed to retrieve backup: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if backup == nil {
		http.Error(w, "Backup not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(backup)
}

// Preview handles the request for a backup's decoded cold payload, for
// selection UIs that want to show what would be restored.
func (h *BackupHandler) Preview(w http.ResponseWriter, r *http.Request) {
	backup, err := h.backups.GetBackupByID(chi.URLParam(r, "backupId"))
	if err != nil {
		http.Error(w, "Failed to retrieve backup: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if backup == nil {
		http.Error(w, "Backup not found", http.StatusNotFound)
		return
	}

	content, err := h.backups.LoadContent(backup)
	if err != nil {
		log.Warn().Err(err).Str("backup_id", backup.ID).Msg("Failed to load backup content for preview")
		http.Error(w, "Backup content is missing or unreadable", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"backup":   backup,
		"content":  content,
		"verified": h.backups.VerifyChecksum(backup),
	})
}

// Delete handles the request to delete a backup.
func (h *BackupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	backupID := chi.URLParam(r, "backupId")
	if !h.backups.DeleteBackup(backupID) {
		http.Error(w, "Backup not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Restore handles the checksum-gated restore request.
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.runRestore(w, r, h.restores.Restore)
}

// ForceRestore handles the explicit verification-bypassing restore request.
// The mandatory "are you sure" step belongs to the caller; hitting this
// endpoint is the confirmation.
func (h *BackupHandler) ForceRestore(w http.ResponseWriter, r *http.Request) {
	h.runRestore(w, r, h.restores.ForceRestore)
}

func (h *BackupHandler) runRestore(w http.ResponseWriter, r *http.Request, restore func(players.LiveState, *models.Backup) services.RestoreResult) {
	backup, err := h.backups.GetBackupByID(chi.URLParam(r, "backupId"))
	if err != nil {
		http.Error(w, "Failed to retrieve backup: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if backup == nil {
		http.Error(w, "Backup not found", http.StatusNotFound)
		return
	}

	player, ok := h.registry.Get(backup.PlayerUUID)
	if !ok {
		http.Error(w, "Player is not online", http.StatusConflict)
		return
	}

	result := restore(player, backup)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(restoreStatus(result))
	json.NewEncoder(w).Encode(map[string]string{"result": result.String()})
}

// restoreStatus maps each restore outcome to its HTTP status so clients can
// react deterministically; only CHECKSUM_FAILED invites a forced retry.
func restoreStatus(result services.RestoreResult) int {
	switch result {
	case services.RestoreSuccess:
		return http.StatusOK
	case services.RestoreNotFound:
		return http.StatusNotFound
	case services.RestoreChecksumFailed:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// SaveAll handles the operator request to back up every online player.
func (h *BackupHandler) SaveAll(w http.ResponseWriter, r *http.Request) {
	count := h.backups.BackupAllOnline("ADMIN", nil)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"count": count})
}
