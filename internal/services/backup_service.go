package services

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ultikits/invbackup/internal/config"
	"github.com/ultikits/invbackup/internal/models"
	"github.com/ultikits/invbackup/internal/players"
	"github.com/ultikits/invbackup/internal/snapshot"
	"github.com/ultikits/invbackup/internal/websocket"
)

// BackupServiceProvider defines the interface for backup services.
type BackupServiceProvider interface {
	CreateBackup(player players.LiveState, reason string) (*models.Backup, error)
	GetBackupsForPlayer(playerUUID string) ([]models.Backup, error)
	GetBackupByID(backupID string) (*models.Backup, error)
	DeleteBackup(backupID string) bool
	DeleteBackupRecord(backup *models.Backup) bool
	BackupAllOnline(reason string, eligible func(players.LiveState) bool) int
	VerifyChecksum(backup *models.Backup) bool
	LoadContent(backup *models.Backup) (*snapshot.Content, error)
	IncludeOptions() players.Options
}

// BackupService orchestrates backup creation, listing, deletion and
// rotation. Hot metadata lives in the database; cold payloads are files
// under dataDir written by the snapshot codec.
type BackupService struct {
	db           *sql.DB
	registry     players.Registry
	eventService EventServiceProvider
	hub          *websocket.Hub
	cfg          *config.Config
	dataDir      string

	// Per-player locks serialize create+rotate so concurrent triggers (a
	// death backup racing a quit backup, say) cannot rotate against a
	// stale listing.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewBackupService creates a new BackupService.
func NewBackupService(db *sql.DB, registry players.Registry, eventService EventServiceProvider, hub *websocket.Hub, cfg *config.Config) *BackupService {
	// Ensure the backups directory exists up front.
	if err := os.MkdirAll(filepath.Join(cfg.DataDir, "backups"), 0755); err != nil {
		log.Error().Err(err).Str("data_dir", cfg.DataDir).Msg("Failed to create backups directory")
	}
	return &BackupService{
		db:           db,
		registry:     registry,
		eventService: eventService,
		hub:          hub,
		cfg:          cfg,
		dataDir:      cfg.DataDir,
		locks:        make(map[string]*sync.Mutex),
	}
}

// IncludeOptions returns the configured section inclusion toggles.
func (s *BackupService) IncludeOptions() players.Options {
	return players.Options{
		Armor:      s.cfg.Include.Armor,
		Enderchest: s.cfg.Include.Enderchest,
		Exp:        s.cfg.Include.Exp,
	}
}

func (s *BackupService) playerLock(playerUUID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	if s.locks[playerUUID] == nil {
		s.locks[playerUUID] = &sync.Mutex{}
	}
	return s.locks[playerUUID]
}

// CreateBackup snapshots a player's inventory into a new backup. The cold
// file is written before the metadata row is inserted; a file write failure
// leaves no orphaned row behind.
func (s *BackupService) CreateBackup(player players.LiveState, reason string) (*models.Backup, error) {
	info, err := player.Info()
	if err != nil {
		return nil, fmt.Errorf("could not read player info: %w", err)
	}

	lock := s.playerLock(info.UUID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UnixMilli()
	backup := &models.Backup{
		ID:         uuid.New().String(),
		PlayerUUID: info.UUID,
		PlayerName: info.Name,
		CreatedAt:  now,
		Reason:     reason,
		FilePath:   models.GenerateFilePath(info.UUID, now),
		WorldName:  info.World,
		LocationX:  info.X,
		LocationY:  info.Y,
		LocationZ:  info.Z,
		ExpLevel:   info.ExpLevel,
	}

	content, err := player.ReadSections(s.IncludeOptions())
	if err != nil {
		return nil, fmt.Errorf("could not snapshot player state: %w", err)
	}

	checksum, err := snapshot.WriteFile(filepath.Join(s.dataDir, backup.FilePath), content)
	if err != nil {
		log.Error().Err(err).Str("player", info.Name).Str("file", backup.FilePath).Msg("Failed to write backup file")
		return nil, fmt.Errorf("could not write backup file: %w", err)
	}
	backup.Checksum = checksum

	stmt, err := s.db.Prepare(`
		INSERT INTO backups (id, player_uuid, player_name, created_at, reason, file_path, checksum, world_name, location_x, location_y, location_z, exp_level)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		os.Remove(filepath.Join(s.dataDir, backup.FilePath))
		return nil, err
	}
	defer stmt.Close()

	_, err = stmt.Exec(backup.ID, backup.PlayerUUID, backup.PlayerName, backup.CreatedAt, backup.Reason,
		backup.FilePath, backup.Checksum, backup.WorldName, backup.LocationX, backup.LocationY, backup.LocationZ, backup.ExpLevel)
	if err != nil {
		os.Remove(filepath.Join(s.dataDir, backup.FilePath))
		return nil, err
	}

	s.rotate(info.UUID)

	log.Info().Str("player", info.Name).Str("reason", reason).Str("file", backup.FilePath).Msg("Created backup")
	s.eventService.CreateEvent("backup.create", "info",
		fmt.Sprintf("Backup created for player '%s' (%s).", info.Name, backup.ReasonDisplay()), &backup.PlayerUUID)
	s.hub.BroadcastToPlayer(backup.PlayerUUID, "backup_created", backup)

	return backup, nil
}

// GetBackupsForPlayer retrieves all backups for a player, most recent first.
// The descending order is applied here, not in the query: it is a guarantee
// of the store regardless of what the underlying collaborator returns.
func (s *BackupService) GetBackupsForPlayer(playerUUID string) ([]models.Backup, error) {
	rows, err := s.db.Query(`
		SELECT id, player_uuid, player_name, created_at, reason, file_path, checksum, world_name, location_x, location_y, location_z, exp_level
		FROM backups WHERE player_uuid = ?`, playerUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var backups []models.Backup
	for rows.Next() {
		backup, err := scanBackup(rows)
		if err != nil {
			return nil, err
		}
		backups = append(backups, backup)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt > backups[j].CreatedAt
	})
	return backups, nil
}

// GetBackupByID retrieves a single backup by its ID. A missing record yields
// (nil, nil); ownership checks are the caller's concern.
func (s *BackupService) GetBackupByID(backupID string) (*models.Backup, error) {
	row := s.db.QueryRow(`
		SELECT id, player_uuid, player_name, created_at, reason, file_path, checksum, world_name, location_x, location_y, location_z, exp_level
		FROM backups WHERE id = ?`, backupID)
	backup, err := scanBackup(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &backup, nil
}

// DeleteBackup deletes a backup by ID. Returns false when the ID does not
// resolve to a record, with no side effects.
func (s *BackupService) DeleteBackup(backupID string) bool {
	backup, err := s.GetBackupByID(backupID)
	if err != nil {
		log.Error().Err(err).Str("backup_id", backupID).Msg("Failed to look up backup for deletion")
		return false
	}
	return s.DeleteBackupRecord(backup)
}

// DeleteBackupRecord deletes a backup record and its cold file. The file
// removal hook runs first so cold files never outlive their metadata.
func (s *BackupService) DeleteBackupRecord(backup *models.Backup) bool {
	if backup == nil {
		return false
	}

	backup.RemoveColdFile(s.dataDir)

	if _, err := s.db.Exec("DELETE FROM backups WHERE id = ?", backup.ID); err != nil {
		log.Error().Err(err).Str("backup_id", backup.ID).Msg("Failed to delete backup record")
		return false
	}

	s.eventService.CreateEvent("backup.delete", "warn",
		fmt.Sprintf("Backup from %s for player '%s' was deleted.", backup.FormattedTime(), backup.PlayerName), &backup.PlayerUUID)
	s.hub.BroadcastToPlayer(backup.PlayerUUID, "backup_deleted", map[string]string{"id": backup.ID, "playerUuid": backup.PlayerUUID})
	return true
}

// rotate enforces the per-player retention cap, deleting the oldest backups
// beyond it. Runs as part of every create; a no-op while under the cap.
func (s *BackupService) rotate(playerUUID string) {
	backups, err := s.GetBackupsForPlayer(playerUUID)
	if err != nil {
		log.Error().Err(err).Str("player_uuid", playerUUID).Msg("Rotation: failed to list backups")
		return
	}

	max := s.cfg.MaxBackupsPerPlayer
	for i := max; i < len(backups); i++ {
		s.DeleteBackupRecord(&backups[i])
	}
	if removed := len(backups) - max; removed > 0 {
		log.Info().Str("player_uuid", playerUUID).Int("removed", removed).Msg("Rotated out old backups")
	}
}

// BackupAllOnline backs up every present player that passes the eligibility
// predicate (nil means everyone) and returns the number of successes.
// Individual failures are logged and skipped, never retried.
func (s *BackupService) BackupAllOnline(reason string, eligible func(players.LiveState) bool) int {
	count := 0
	for _, player := range s.registry.Online() {
		if eligible != nil && !eligible(player) {
			continue
		}
		if _, err := s.CreateBackup(player, reason); err != nil {
			log.Warn().Err(err).Msg("Skipping player in bulk backup")
			continue
		}
		count++
	}
	if count > 0 {
		s.hub.BroadcastMessage("backup_sweep", map[string]interface{}{"reason": reason, "count": count})
	}
	return count
}

// VerifyChecksum checks a backup's cold file against its recorded checksum.
// A nil record, an unset file path or a missing file all verify as failed.
func (s *BackupService) VerifyChecksum(backup *models.Backup) bool {
	if backup == nil || backup.FilePath == "" {
		return false
	}
	return snapshot.VerifyFile(filepath.Join(s.dataDir, backup.FilePath), backup.Checksum)
}

// LoadContent loads a backup's cold payload from disk.
func (s *BackupService) LoadContent(backup *models.Backup) (*snapshot.Content, error) {
	if backup == nil || backup.FilePath == "" {
		return nil, fmt.Errorf("backup has no content file")
	}
	return snapshot.ReadFile(filepath.Join(s.dataDir, backup.FilePath))
}

// scanBackup scans a single row into a Backup. The display columns are all
// nullable in the schema; NULL scans to the zero value.
func scanBackup(scanner interface{ Scan(...interface{}) error }) (models.Backup, error) {
	var b models.Backup
	var playerName, reason, filePath, checksum, worldName sql.NullString
	var locX, locY, locZ sql.NullFloat64
	var expLevel sql.NullInt64
	err := scanner.Scan(&b.ID, &b.PlayerUUID, &playerName, &b.CreatedAt, &reason, &filePath, &checksum,
		&worldName, &locX, &locY, &locZ, &expLevel)
	if err != nil {
		return models.Backup{}, err
	}
	b.PlayerName = playerName.String
	b.Reason = reason.String
	b.FilePath = filePath.String
	b.Checksum = checksum.String
	b.WorldName = worldName.String
	b.LocationX = locX.Float64
	b.LocationY = locY.Float64
	b.LocationZ = locZ.Float64
	b.ExpLevel = int(expLevel.Int64)
	return b, nil
}
