package monitoring

import (
	"testing"
	"time"

	"github.com/ultikits/invbackup/internal/config"
	"github.com/ultikits/invbackup/internal/models"
	"github.com/ultikits/invbackup/internal/players"
	"github.com/ultikits/invbackup/internal/services"
	"github.com/ultikits/invbackup/internal/snapshot"
)

// stubBackups counts bulk backup invocations.
type stubBackups struct {
	calls   int
	reasons []string
}

func (s *stubBackups) CreateBackup(players.LiveState, string) (*models.Backup, error) { return nil, nil }
func (s *stubBackups) GetBackupsForPlayer(string) ([]models.Backup, error)            { return nil, nil }
func (s *stubBackups) GetBackupByID(string) (*models.Backup, error)                   { return nil, nil }
func (s *stubBackups) DeleteBackup(string) bool                                       { return false }
func (s *stubBackups) DeleteBackupRecord(*models.Backup) bool                         { return false }
func (s *stubBackups) VerifyChecksum(*models.Backup) bool                             { return false }
func (s *stubBackups) LoadContent(*models.Backup) (*snapshot.Content, error)          { return nil, nil }
func (s *stubBackups) IncludeOptions() players.Options                                { return players.Options{} }

func (s *stubBackups) BackupAllOnline(reason string, eligible func(players.LiveState) bool) int {
	s.calls++
	s.reasons = append(s.reasons, reason)
	return 1
}

func TestRunOnceHonorsEnabledFlag(t *testing.T) {
	stub := &stubBackups{}
	cfg := &config.Config{AutoBackup: config.AutoBackupConfig{Enabled: false, Interval: 30}}
	a := NewAutoBackup(stub, cfg)

	a.runOnce()
	if stub.calls != 0 {
		t.Errorf("BackupAllOnline called %d times while disabled, want 0", stub.calls)
	}

	cfg.AutoBackup.Enabled = true
	a.runOnce()
	if stub.calls != 1 {
		t.Errorf("BackupAllOnline called %d times, want 1", stub.calls)
	}
	if len(stub.reasons) != 1 || stub.reasons[0] != "AUTO" {
		t.Errorf("reasons = %v, want [AUTO]", stub.reasons)
	}
}

func TestNextDelay(t *testing.T) {
	t.Run("uses the configured interval", func(t *testing.T) {
		cfg := &config.Config{AutoBackup: config.AutoBackupConfig{Interval: 15}}
		a := NewAutoBackup(&stubBackups{}, cfg)
		if got := a.nextDelay(); got != 15*time.Minute {
			t.Errorf("nextDelay() = %v, want 15m", got)
		}
	})

	t.Run("a cron expression overrides the interval", func(t *testing.T) {
		cfg := &config.Config{AutoBackup: config.AutoBackupConfig{Interval: 15, Cron: "* * * * *"}}
		a := NewAutoBackup(&stubBackups{}, cfg)
		if a.schedule == nil {
			t.Fatal("schedule = nil for a valid cron expression")
		}
		if got := a.nextDelay(); got > time.Minute {
			t.Errorf("nextDelay() = %v, want at most 1m for an every-minute cron", got)
		}
	})

	t.Run("an invalid cron expression falls back to the interval", func(t *testing.T) {
		cfg := &config.Config{AutoBackup: config.AutoBackupConfig{Interval: 15, Cron: "not a cron"}}
		a := NewAutoBackup(&stubBackups{}, cfg)
		if a.schedule != nil {
			t.Error("schedule != nil for an invalid cron expression")
		}
	})
}

var _ services.BackupServiceProvider = (*stubBackups)(nil)
