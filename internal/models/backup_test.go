package models_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ultikits/invbackup/internal/models"
)

func TestGenerateFilePath(t *testing.T) {
	got := models.GenerateFilePath("5f3a", 1700000000123)
	want := "backups/5f3a_1700000000123.yml"
	if got != want {
		t.Errorf("GenerateFilePath() = %q, want %q", got, want)
	}
}

func TestReasonDisplay(t *testing.T) {
	t.Run("returns the raw reason verbatim", func(t *testing.T) {
		for _, reason := range []string{"MANUAL", "DEATH", "some custom tag"} {
			b := models.Backup{Reason: reason}
			if b.ReasonDisplay() != reason {
				t.Errorf("ReasonDisplay() = %q, want %q", b.ReasonDisplay(), reason)
			}
		}
	})

	t.Run("falls back to UNKNOWN", func(t *testing.T) {
		b := models.Backup{}
		if b.ReasonDisplay() != "UNKNOWN" {
			t.Errorf("ReasonDisplay() = %q, want UNKNOWN", b.ReasonDisplay())
		}
	})
}

func TestRemoveColdFile(t *testing.T) {
	t.Run("removes an existing file", func(t *testing.T) {
		dataDir := t.TempDir()
		b := models.Backup{FilePath: "backups/p_1.yml"}
		path := filepath.Join(dataDir, b.FilePath)
		os.MkdirAll(filepath.Dir(path), 0755)
		os.WriteFile(path, []byte("payload"), 0644)

		b.RemoveColdFile(dataDir)

		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Error("cold file still exists after RemoveColdFile")
		}
	})

	t.Run("is a no-op for a missing file", func(t *testing.T) {
		b := models.Backup{FilePath: "backups/missing.yml"}
		b.RemoveColdFile(t.TempDir()) // must not panic
	})

	t.Run("is a no-op for an unset path", func(t *testing.T) {
		b := models.Backup{}
		b.RemoveColdFile(t.TempDir())
	})
}

func TestFormattedTime(t *testing.T) {
	b := models.Backup{CreatedAt: 1700000000000}
	if len(b.FormattedTime()) != len("2006-01-02 15:04:05") {
		t.Errorf("FormattedTime() = %q, want yyyy-mm-dd hh:mm:ss shape", b.FormattedTime())
	}
}
