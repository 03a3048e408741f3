package archive

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestArchiveReports(t *testing.T) {
	tmpDir := t.TempDir()

	// Create reports directory with some test files
	reportsDir := filepath.Join(tmpDir, "reports")
	if err := os.MkdirAll(filepath.Join(reportsDir, "subdir"), 0755); err != nil {
		t.Fatalf("Failed to create reports directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(reportsDir, "translation_report.xlsx"), []byte("xlsx"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(reportsDir, "subdir", "report.csv"), []byte("English,Yoruba\n"), 0644); err != nil {
		t.Fatalf("Failed to create sub file: %v", err)
	}

	archivedPath, err := ArchiveReports(reportsDir)
	if err != nil {
		t.Fatalf("ArchiveReports failed: %v", err)
	}

	// Check that reports directory no longer exists
	if _, err := os.Stat(reportsDir); !os.IsNotExist(err) {
		t.Error("Reports directory still exists after archiving")
	}

	archiveDir := filepath.Join(tmpDir, "archive")
	if filepath.Dir(archivedPath) != archiveDir {
		t.Errorf("Archived to %s, want a child of %s", archivedPath, archiveDir)
	}

	// Verify the name (reports-YYYYMMDD-HHMMSS)
	archivedName := filepath.Base(archivedPath)
	if !strings.HasPrefix(archivedName, "reports-") {
		t.Errorf("Archived directory name doesn't start with 'reports-': %s", archivedName)
	}
	if parts := strings.Split(archivedName, "-"); len(parts) < 3 {
		t.Errorf("Invalid archive name format: %s", archivedName)
	}

	// Check that archived files exist
	if _, err := os.Stat(filepath.Join(archivedPath, "translation_report.xlsx")); err != nil {
		t.Error("Report not found in archive")
	}
	if _, err := os.Stat(filepath.Join(archivedPath, "subdir", "report.csv")); err != nil {
		t.Error("Sub file not found in archive")
	}
}

func TestArchiveReports_NothingToArchive(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name  string
		dir   string
		setup func(dir string) error
	}{
		{
			name:  "non-existent directory",
			dir:   filepath.Join(tmpDir, "nonexistent"),
			setup: func(string) error { return nil },
		},
		{
			name:  "empty directory",
			dir:   filepath.Join(tmpDir, "empty"),
			setup: func(dir string) error { return os.MkdirAll(dir, 0755) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.setup(tt.dir); err != nil {
				t.Fatalf("setup failed: %v", err)
			}

			_, err := ArchiveReports(tt.dir)
			if !errors.Is(err, ErrNothingToArchive) {
				t.Errorf("Expected ErrNothingToArchive, got: %v", err)
			}
		})
	}
}

func TestArchiveReports_MultipleArchives(t *testing.T) {
	tmpDir := t.TempDir()

	// Archive twice, likely within the same second
	for i := 0; i < 2; i++ {
		reportsDir := filepath.Join(tmpDir, "reports")
		if err := os.MkdirAll(reportsDir, 0755); err != nil {
			t.Fatalf("Failed to create reports directory: %v", err)
		}
		if err := os.WriteFile(filepath.Join(reportsDir, "report.csv"), []byte{byte('a' + i)}, 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}

		if _, err := ArchiveReports(reportsDir); err != nil {
			t.Fatalf("ArchiveReports failed on iteration %d: %v", i, err)
		}
	}

	entries, err := os.ReadDir(filepath.Join(tmpDir, "archive"))
	if err != nil {
		t.Fatalf("Failed to read archive directory: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries in archive directory, got %d", len(entries))
	}
	if entries[0].Name() == entries[1].Name() {
		t.Error("Archive names are not unique")
	}
}
