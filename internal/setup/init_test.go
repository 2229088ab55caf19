package setup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmiyata/prism/internal/store"
)

func TestRunCreatesPrismLayout(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Run(dir))

	base := filepath.Join(dir, ".prism")
	for _, d := range []string{"logs", "quarantine"} {
		info, err := os.Stat(filepath.Join(base, d))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	cfg, err := store.LoadConfig(filepath.Join(base, "prism.yaml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "workspace.yaml"), cfg.Workspace.Path)
	assert.Equal(t, 30, cfg.Engine.ScanIntervalSec)

	_, err = os.Stat(cfg.Workspace.Path)
	require.NoError(t, err)
}

func TestRunRefusesExistingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Run(dir))
	err := Run(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestRunKeepsExistingWorkspace(t *testing.T) {
	dir := t.TempDir()
	wsPath := filepath.Join(dir, "workspace.yaml")
	require.NoError(t, os.WriteFile(wsPath, []byte("lists:\n  - id: l1\n    name: Keep me\n    items: []\n"), 0644))

	require.NoError(t, Run(dir))

	content, err := os.ReadFile(wsPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Keep me")
}
