package services_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ultikits/invbackup/internal/models"
	"github.com/ultikits/invbackup/internal/services"
)

// setupRestore creates an environment with one online player that already
// has a backup on disk.
func setupRestore(t *testing.T) (*testEnv, *fakePlayer, *models.Backup) {
	t.Helper()
	env := newTestEnv(t)
	player := newFakePlayer("uuid-1", "Steve")
	env.registry.Add("uuid-1", player)

	backup, err := env.backups.CreateBackup(player, "MANUAL")
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}
	return env, player, backup
}

// corruptColdFile appends bytes to the payload region so the checksum no
// longer matches while the file still decodes.
func corruptColdFile(t *testing.T, env *testEnv, backup *models.Backup) {
	t.Helper()
	path := filepath.Join(env.cfg.DataDir, backup.FilePath)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("open cold file: %v", err)
	}
	if _, err := f.WriteString("# sneaky edit\n"); err != nil {
		t.Fatalf("append to cold file: %v", err)
	}
	f.Close()
}

func TestRestoreService_Restore(t *testing.T) {
	t.Run("restores an intact backup", func(t *testing.T) {
		env, player, backup := setupRestore(t)

		if result := env.restores.Restore(player, backup); result != services.RestoreSuccess {
			t.Fatalf("Restore() = %v, want SUCCESS", result)
		}
		if len(player.applied) != 1 {
			t.Fatalf("applied count = %d, want 1", len(player.applied))
		}
		if player.applied[0].Inventory != player.content.Inventory {
			t.Errorf("applied inventory = %q, want %q", player.applied[0].Inventory, player.content.Inventory)
		}
	})

	t.Run("nil record is NOT_FOUND", func(t *testing.T) {
		env, player, _ := setupRestore(t)
		if result := env.restores.Restore(player, nil); result != services.RestoreNotFound {
			t.Errorf("Restore(nil) = %v, want NOT_FOUND", result)
		}
	})

	t.Run("checksum mismatch refuses to touch the player", func(t *testing.T) {
		env, player, backup := setupRestore(t)
		corruptColdFile(t, env, backup)

		if result := env.restores.Restore(player, backup); result != services.RestoreChecksumFailed {
			t.Fatalf("Restore() = %v, want CHECKSUM_FAILED", result)
		}
		if len(player.applied) != 0 {
			t.Error("player state was mutated despite checksum failure")
		}
	})

	t.Run("record without a file path fails the gate", func(t *testing.T) {
		env, player, _ := setupRestore(t)
		orphan := &models.Backup{ID: "orphan", PlayerUUID: "uuid-1"}
		if result := env.restores.Restore(player, orphan); result != services.RestoreChecksumFailed {
			t.Errorf("Restore() = %v, want CHECKSUM_FAILED", result)
		}
	})

	t.Run("missing cold file fails the gate", func(t *testing.T) {
		env, player, backup := setupRestore(t)
		os.Remove(filepath.Join(env.cfg.DataDir, backup.FilePath))

		if result := env.restores.Restore(player, backup); result != services.RestoreChecksumFailed {
			t.Errorf("Restore() = %v, want CHECKSUM_FAILED", result)
		}
	})
}

func TestRestoreService_ForceRestore(t *testing.T) {
	t.Run("applies a corrupted but decodable backup", func(t *testing.T) {
		env, player, backup := setupRestore(t)
		corruptColdFile(t, env, backup)

		if result := env.restores.ForceRestore(player, backup); result != services.RestoreSuccess {
			t.Fatalf("ForceRestore() = %v, want SUCCESS", result)
		}
		if len(player.applied) != 1 {
			t.Fatalf("applied count = %d, want 1", len(player.applied))
		}
		if player.applied[0].Inventory != player.content.Inventory {
			t.Errorf("applied inventory = %q, want %q", player.applied[0].Inventory, player.content.Inventory)
		}
	})

	t.Run("nil record is NOT_FOUND", func(t *testing.T) {
		env, player, _ := setupRestore(t)
		if result := env.restores.ForceRestore(player, nil); result != services.RestoreNotFound {
			t.Errorf("ForceRestore(nil) = %v, want NOT_FOUND", result)
		}
	})

	t.Run("missing cold file is LOAD_FAILED", func(t *testing.T) {
		env, player, backup := setupRestore(t)
		os.Remove(filepath.Join(env.cfg.DataDir, backup.FilePath))

		if result := env.restores.ForceRestore(player, backup); result != services.RestoreLoadFailed {
			t.Errorf("ForceRestore() = %v, want LOAD_FAILED", result)
		}
	})

	t.Run("apply error is RESTORE_FAILED", func(t *testing.T) {
		env, player, backup := setupRestore(t)
		player.writeErr = errors.New("inventory is locked")

		if result := env.restores.ForceRestore(player, backup); result != services.RestoreFailed {
			t.Errorf("ForceRestore() = %v, want RESTORE_FAILED", result)
		}
	})

	t.Run("apply panic is contained as RESTORE_FAILED", func(t *testing.T) {
		env, player, backup := setupRestore(t)
		player.panicOnWrite = true

		if result := env.restores.ForceRestore(player, backup); result != services.RestoreFailed {
			t.Errorf("ForceRestore() = %v, want RESTORE_FAILED", result)
		}
	})
}

func TestRestoreResult_String(t *testing.T) {
	cases := map[services.RestoreResult]string{
		services.RestoreSuccess:        "SUCCESS",
		services.RestoreNotFound:       "NOT_FOUND",
		services.RestoreChecksumFailed: "CHECKSUM_FAILED",
		services.RestoreLoadFailed:     "LOAD_FAILED",
		services.RestoreFailed:         "RESTORE_FAILED",
	}
	for result, want := range cases {
		if result.String() != want {
			t.Errorf("String() = %q, want %q", result.String(), want)
		}
	}
}
