package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kmiyata/prism/internal/model"
)

// quarantine moves a corrupted workspace file aside so it can be inspected
// later instead of being overwritten.
func quarantine(dataDir, filePath string, now time.Time) (string, error) {
	dir := filepath.Join(dataDir, "quarantine")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create quarantine dir: %w", err)
	}

	name := fmt.Sprintf("%s.%s.corrupt", filepath.Base(filePath), now.Format("20060102T150405"))
	dest := filepath.Join(dir, name)
	if err := os.Rename(filePath, dest); err != nil {
		return "", fmt.Errorf("move to quarantine: %w", err)
	}
	return dest, nil
}

// restoreFromBackup copies the .bak sibling back over the workspace file,
// refusing a backup that is itself unparseable.
func restoreFromBackup(filePath string) error {
	bakPath := filePath + ".bak"
	if _, err := os.Stat(bakPath); os.IsNotExist(err) {
		return fmt.Errorf("no backup file: %s", bakPath)
	}

	content, err := os.ReadFile(bakPath)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	if err := validateYAML(content); err != nil {
		return fmt.Errorf("backup is also corrupted: %w", err)
	}
	if err := os.WriteFile(filePath, content, 0644); err != nil {
		return fmt.Errorf("restore from backup: %w", err)
	}
	return nil
}

// writeSkeleton replaces the workspace file with an empty snapshot. Last
// resort when both the file and its backup are gone.
func writeSkeleton(filePath string) error {
	if err := AtomicWrite(filePath, model.WorkspaceSnapshot{}); err != nil {
		return fmt.Errorf("write skeleton: %w", err)
	}
	return nil
}
