// Package archive moves finished bulk reports out of the way.
package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNothingToArchive is returned for a missing or empty reports directory
var ErrNothingToArchive = errors.New("no reports to archive")

// ArchiveReports moves the reports directory into a sibling "archive"
// directory under a timestamped name and returns the new path.
func ArchiveReports(reportsDir string) (string, error) {
	entries, err := os.ReadDir(reportsDir)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("reports directory does not exist: %s: %w", reportsDir, ErrNothingToArchive)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read reports directory: %w", err)
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("reports directory is empty: %s: %w", reportsDir, ErrNothingToArchive)
	}

	archiveDir := filepath.Join(filepath.Dir(reportsDir), "archive")
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	base := filepath.Base(reportsDir)
	now := time.Now()
	archivePath := filepath.Join(archiveDir, fmt.Sprintf("%s-%s", base, now.Format("20060102-150405")))

	// Same second as an earlier archive
	if _, err := os.Stat(archivePath); err == nil {
		archivePath = filepath.Join(archiveDir, fmt.Sprintf("%s-%s", base, now.Format("20060102-150405.000000")))
	}

	if err := os.Rename(reportsDir, archivePath); err != nil {
		return "", fmt.Errorf("failed to archive reports directory: %w", err)
	}

	return archivePath, nil
}
