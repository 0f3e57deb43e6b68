package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envPrefix is stripped from environment variables before they are mapped
// onto config paths, e.g. INVBACKUP_AUTO_BACKUP__INTERVAL -> auto_backup.interval.
const envPrefix = "INVBACKUP_"

// Config holds the application configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	DataDir    string           `koanf:"data_dir"`
	Auth       AuthConfig       `koanf:"auth"`
	Rcon       RconConfig       `koanf:"rcon"`
	AutoBackup AutoBackupConfig `koanf:"auto_backup"`

	// MaxBackupsPerPlayer caps retained backups per player; older ones are
	// rotated out after each create. Bounded 1..1000.
	MaxBackupsPerPlayer int `koanf:"max_backups_per_player"`

	Include IncludeConfig `koanf:"include"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port int `koanf:"port"`
}

// DatabaseConfig holds the metadata store settings.
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
}

// RconConfig points at the live game server console.
type RconConfig struct {
	Address  string `koanf:"address"`
	Password string `koanf:"password"`
}

// AutoBackupConfig controls the periodic and event-driven backup triggers.
type AutoBackupConfig struct {
	Enabled bool `koanf:"enabled"`

	// Interval is the periodic backup interval in minutes, bounded 1..1440.
	Interval int `koanf:"interval"`

	// Cron optionally replaces the fixed interval with a standard cron
	// expression (e.g. "0 4 * * *"). Empty means use Interval.
	Cron string `koanf:"cron"`

	OnDeath bool `koanf:"on_death"`
	OnQuit  bool `koanf:"on_quit"`
}

// IncludeConfig selects which optional sections go into a backup.
type IncludeConfig struct {
	Armor      bool `koanf:"armor"`
	Enderchest bool `koanf:"enderchest"`
	Exp        bool `koanf:"exp"`
}

func defaultConfig() Config {
	return Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Path: "./invbackup.db"},
		DataDir:  "./data",
		AutoBackup: AutoBackupConfig{
			Enabled:  true,
			Interval: 30,
			OnDeath:  true,
			OnQuit:   true,
		},
		MaxBackupsPerPlayer: 10,
		Include: IncludeConfig{
			Armor:      true,
			Enderchest: true,
			Exp:        true,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, in ascending precedence.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// INVBACKUP_AUTO_BACKUP__ON_DEATH=false -> auto_backup.on_death.
	// A double underscore separates path segments so that single
	// underscores inside key names survive.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	cfg.clamp()
	return cfg, nil
}

// clamp forces bounded values back into their documented ranges rather than
// rejecting the whole config over a bad knob.
func (c *Config) clamp() {
	c.AutoBackup.Interval = clampInt(c.AutoBackup.Interval, 1, 1440)
	c.MaxBackupsPerPlayer = clampInt(c.MaxBackupsPerPlayer, 1, 1000)
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	if envPath := os.Getenv("INVBACKUP_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range []string{"./config.yml", "./config/backup.yml"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
