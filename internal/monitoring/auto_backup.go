package monitoring

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/ultikits/invbackup/internal/config"
	"github.com/ultikits/invbackup/internal/services"
)

// AutoBackup periodically backs up every online player. The period comes
// from the configured interval, or from a cron expression when one is set.
// The enabled flag is re-read on every firing, so toggling it in config and
// reloading takes effect without restarting the loop.
type AutoBackup struct {
	backupSvc services.BackupServiceProvider
	cfg       *config.Config
	schedule  cron.Schedule
	done      chan bool
}

// NewAutoBackup creates the periodic backup runner.
func NewAutoBackup(backupSvc services.BackupServiceProvider, cfg *config.Config) *AutoBackup {
	a := &AutoBackup{
		backupSvc: backupSvc,
		cfg:       cfg,
		done:      make(chan bool),
	}
	if cfg.AutoBackup.Cron != "" {
		schedule, err := cron.ParseStandard(cfg.AutoBackup.Cron)
		if err != nil {
			log.Error().Err(err).Str("cron", cfg.AutoBackup.Cron).Msg("Invalid auto backup cron expression, falling back to interval")
		} else {
			a.schedule = schedule
		}
	}
	return a
}

// Run starts the backup loop. It blocks; run it in a goroutine.
func (a *AutoBackup) Run() {
	log.Info().Int("interval_minutes", a.cfg.AutoBackup.Interval).Str("cron", a.cfg.AutoBackup.Cron).Msg("Starting auto backup loop")

	timer := time.NewTimer(a.nextDelay())
	defer timer.Stop()

	for {
		select {
		case <-a.done:
			log.Info().Msg("Stopping auto backup loop")
			return
		case <-timer.C:
			a.runOnce()
			timer.Reset(a.nextDelay())
		}
	}
}

// Stop halts the backup loop.
func (a *AutoBackup) Stop() {
	a.done <- true
}

func (a *AutoBackup) nextDelay() time.Duration {
	if a.schedule != nil {
		return time.Until(a.schedule.Next(time.Now()))
	}
	return time.Duration(a.cfg.AutoBackup.Interval) * time.Minute
}

func (a *AutoBackup) runOnce() {
	if !a.cfg.AutoBackup.Enabled {
		return
	}

	count := a.backupSvc.BackupAllOnline("AUTO", nil)
	if count > 0 {
		log.Info().Int("players", count).Msg("Auto backup completed")
	}
}
