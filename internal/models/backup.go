package models

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Backup is the hot metadata row describing one inventory backup. The actual
// serialized inventory (cold data) lives in the file at FilePath, relative to
// the service data directory.
type Backup struct {
	ID         string  `json:"id"`
	PlayerUUID string  `json:"playerUuid"`
	PlayerName string  `json:"playerName"`
	CreatedAt  int64   `json:"createdAt"` // milliseconds since epoch
	Reason     string  `json:"reason"`
	FilePath   string  `json:"-"` // Internal use, not exposed to client
	Checksum   string  `json:"checksum"`
	WorldName  string  `json:"worldName"`
	LocationX  float64 `json:"locationX"`
	LocationY  float64 `json:"locationY"`
	LocationZ  float64 `json:"locationZ"`
	ExpLevel   int     `json:"expLevel"`
}

// GenerateFilePath derives the cold file path for a backup taken for the
// given player at the given time. Called exactly once, at creation; the
// result is immutable afterwards.
func GenerateFilePath(playerUUID string, createdAt int64) string {
	return fmt.Sprintf("backups/%s_%d.yml", playerUUID, createdAt)
}

// RemoveColdFile deletes the backup's cold data file if it exists. It is the
// delete lifecycle hook: every path that removes the metadata row must call
// it first so cold files never outlive their records. It never fails; a
// missing file or unset path is a no-op.
func (b *Backup) RemoveColdFile(dataDir string) {
	if b.FilePath == "" {
		return
	}
	path := filepath.Join(dataDir, b.FilePath)
	if _, err := os.Stat(path); err == nil {
		os.Remove(path)
	}
}

// FormattedTime renders the capture time for display.
func (b *Backup) FormattedTime() string {
	return time.UnixMilli(b.CreatedAt).Format("2006-01-02 15:04:05")
}

// ReasonDisplay returns the raw reason tag, or "UNKNOWN" when none was
// recorded. Reasons are free-form strings (MANUAL, AUTO, DEATH, QUIT, ADMIN,
// ...) and are displayed verbatim.
func (b *Backup) ReasonDisplay() string {
	if b.Reason == "" {
		return "UNKNOWN"
	}
	return b.Reason
}
