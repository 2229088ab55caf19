// Package setup handles prism project initialization.
package setup

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kmiyata/prism/internal/model"
	"github.com/kmiyata/prism/internal/store"
)

const prismDir = ".prism"

// Run initializes the .prism/ directory next to the workspace it serves.
// It refuses to overwrite an existing one.
func Run(projectDir string) error {
	absDir, err := filepath.Abs(projectDir)
	if err != nil {
		return fmt.Errorf("resolve project dir: %w", err)
	}

	base := filepath.Join(absDir, prismDir)
	if _, err := os.Stat(base); err == nil {
		return fmt.Errorf("%s already exists", base)
	}

	for _, d := range []string{"logs", "quarantine"} {
		if err := os.MkdirAll(filepath.Join(base, d), 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", d, err)
		}
	}

	cfg := model.DefaultConfig()
	cfg.Workspace.Path = filepath.Join(absDir, "workspace.yaml")
	if err := store.SaveConfig(filepath.Join(base, "prism.yaml"), cfg); err != nil {
		return fmt.Errorf("write prism.yaml: %w", err)
	}

	// Seed an empty workspace unless one is already there.
	if _, err := os.Stat(cfg.Workspace.Path); os.IsNotExist(err) {
		if err := store.AtomicWrite(cfg.Workspace.Path, model.WorkspaceSnapshot{}); err != nil {
			return fmt.Errorf("write workspace.yaml: %w", err)
		}
	}
	return nil
}

// Find walks up from the working directory looking for a .prism/ dir.
// Returns "" when none exists.
func Find() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, prismDir)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
