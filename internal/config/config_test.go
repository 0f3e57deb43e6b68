package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if !cfg.AutoBackup.Enabled || cfg.AutoBackup.Interval != 30 {
		t.Errorf("AutoBackup = %+v, want enabled with 30 minute interval", cfg.AutoBackup)
	}
	if cfg.MaxBackupsPerPlayer != 10 {
		t.Errorf("MaxBackupsPerPlayer = %d, want 10", cfg.MaxBackupsPerPlayer)
	}
	if !cfg.Include.Armor || !cfg.Include.Enderchest || !cfg.Include.Exp {
		t.Errorf("Include = %+v, want all sections on by default", cfg.Include)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("INVBACKUP_AUTO_BACKUP__ON_DEATH", "false")
	t.Setenv("INVBACKUP_MAX_BACKUPS_PER_PLAYER", "25")
	t.Setenv("INVBACKUP_RCON__ADDRESS", "127.0.0.1:25575")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.AutoBackup.OnDeath {
		t.Error("AutoBackup.OnDeath = true, want env override to false")
	}
	if cfg.MaxBackupsPerPlayer != 25 {
		t.Errorf("MaxBackupsPerPlayer = %d, want 25", cfg.MaxBackupsPerPlayer)
	}
	if cfg.Rcon.Address != "127.0.0.1:25575" {
		t.Errorf("Rcon.Address = %q, want 127.0.0.1:25575", cfg.Rcon.Address)
	}
}

func TestBoundsClamp(t *testing.T) {
	cases := []struct {
		name         string
		interval     int
		maxBackups   int
		wantInterval int
		wantMax      int
	}{
		{"below minimum", 0, 0, 1, 1},
		{"above maximum", 100000, 100000, 1440, 1000},
		{"in range", 45, 50, 45, 50},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{
				AutoBackup:          AutoBackupConfig{Interval: tc.interval},
				MaxBackupsPerPlayer: tc.maxBackups,
			}
			cfg.clamp()
			if cfg.AutoBackup.Interval != tc.wantInterval {
				t.Errorf("Interval = %d, want %d", cfg.AutoBackup.Interval, tc.wantInterval)
			}
			if cfg.MaxBackupsPerPlayer != tc.wantMax {
				t.Errorf("MaxBackupsPerPlayer = %d, want %d", cfg.MaxBackupsPerPlayer, tc.wantMax)
			}
		})
	}
}
