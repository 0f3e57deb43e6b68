package services

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ultikits/invbackup/internal/models"
	"github.com/ultikits/invbackup/internal/players"
	"github.com/ultikits/invbackup/internal/snapshot"
	"github.com/ultikits/invbackup/internal/websocket"
)

// RestoreResult is the terminal outcome of a restore attempt. Every failure
// mode maps to exactly one value so callers can react deterministically --
// in particular, only RestoreChecksumFailed should ever lead a caller to
// offer the forced retry.
type RestoreResult int

const (
	// RestoreSuccess means the snapshot was applied to the player.
	RestoreSuccess RestoreResult = iota
	// RestoreNotFound means there was no backup record to restore.
	RestoreNotFound
	// RestoreChecksumFailed means the cold file failed integrity
	// verification and the restore was refused.
	RestoreChecksumFailed
	// RestoreLoadFailed means the cold file is missing or unreadable.
	RestoreLoadFailed
	// RestoreFailed means applying the snapshot to the player failed.
	RestoreFailed
)

// String returns the stable name of the outcome.
func (r RestoreResult) String() string {
	switch r {
	case RestoreSuccess:
		return "SUCCESS"
	case RestoreNotFound:
		return "NOT_FOUND"
	case RestoreChecksumFailed:
		return "CHECKSUM_FAILED"
	case RestoreLoadFailed:
		return "LOAD_FAILED"
	case RestoreFailed:
		return "RESTORE_FAILED"
	default:
		return "UNKNOWN"
	}
}

// RestoreServiceProvider defines the interface for restore services.
type RestoreServiceProvider interface {
	Restore(player players.LiveState, backup *models.Backup) RestoreResult
	ForceRestore(player players.LiveState, backup *models.Backup) RestoreResult
}

// RestoreService applies backups back onto live players. Restore is the safe
// default: it fails closed on any tamper evidence. ForceRestore is a
// separate operation rather than a flag so that skipping verification is
// always an explicit caller decision with its own confirmation step.
type RestoreService struct {
	backups      BackupServiceProvider
	eventService EventServiceProvider
	hub          *websocket.Hub
}

// NewRestoreService creates a new RestoreService.
func NewRestoreService(backups BackupServiceProvider, eventService EventServiceProvider, hub *websocket.Hub) *RestoreService {
	return &RestoreService{backups: backups, eventService: eventService, hub: hub}
}

// Restore applies a backup after verifying its checksum. On verification
// failure nothing is touched and the player's live state is left as-is.
func (s *RestoreService) Restore(player players.LiveState, backup *models.Backup) RestoreResult {
	if backup == nil {
		return RestoreNotFound
	}

	if !s.backups.VerifyChecksum(backup) {
		log.Warn().Str("backup_id", backup.ID).Msg("Backup failed checksum verification, refusing restore")
		s.eventService.CreateEvent("backup.restore.checksum_failed", "warn",
			fmt.Sprintf("Backup from %s failed integrity verification.", backup.FormattedTime()), &backup.PlayerUUID)
		return RestoreChecksumFailed
	}

	return s.ForceRestore(player, backup)
}

// ForceRestore applies a backup without the checksum gate. Meant for the
// explicit "restore anyway" path on a confirmed-corrupted backup; whatever
// sections still decode are applied.
func (s *RestoreService) ForceRestore(player players.LiveState, backup *models.Backup) RestoreResult {
	if backup == nil {
		return RestoreNotFound
	}

	content, err := s.backups.LoadContent(backup)
	if err != nil {
		log.Warn().Err(err).Str("backup_id", backup.ID).Msg("Failed to load backup content")
		return RestoreLoadFailed
	}

	if err := applySnapshot(player, content, s.backups.IncludeOptions()); err != nil {
		log.Error().Err(err).Str("backup_id", backup.ID).Msg("Failed to restore backup to player")
		s.eventService.CreateEvent("backup.restore.fail", "error",
			fmt.Sprintf("Restoring backup from %s to player '%s' failed.", backup.FormattedTime(), backup.PlayerName), &backup.PlayerUUID)
		return RestoreFailed
	}

	log.Info().Str("backup_id", backup.ID).Str("player", backup.PlayerName).Msg("Restored backup")
	s.eventService.CreateEvent("backup.restore.success", "info",
		fmt.Sprintf("Backup from %s restored to player '%s'.", backup.FormattedTime(), backup.PlayerName), &backup.PlayerUUID)
	s.hub.BroadcastToPlayer(backup.PlayerUUID, "backup_restored", map[string]string{"id": backup.ID, "playerUuid": backup.PlayerUUID})
	return RestoreSuccess
}

// applySnapshot writes the snapshot onto the player, converting any panic
// out of the live-state implementation into an error. Nothing past this
// function may see a raw failure from the apply step.
func applySnapshot(player players.LiveState, content *snapshot.Content, opts players.Options) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while applying snapshot: %v", r)
		}
	}()
	return player.WriteSections(content, opts)
}
