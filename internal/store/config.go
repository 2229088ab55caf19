package store

import (
	"fmt"
	"os"

	yamlv3 "gopkg.in/yaml.v3"

	"github.com/kmiyata/prism/internal/model"
)

// LoadConfig reads prism.yaml from path. A missing file yields the
// defaults; a present file has its unset fields backfilled from them.
func LoadConfig(path string) (model.Config, error) {
	defaults := model.DefaultConfig()

	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return defaults, nil
	}
	if err != nil {
		return model.Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg model.Config
	if err := yamlv3.Unmarshal(content, &cfg); err != nil {
		return model.Config{}, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Workspace.Path == "" {
		cfg.Workspace.Path = defaults.Workspace.Path
	}
	if cfg.Engine.ScanIntervalSec <= 0 {
		cfg.Engine.ScanIntervalSec = defaults.Engine.ScanIntervalSec
	}
	if cfg.Daemon.SocketName == "" {
		cfg.Daemon.SocketName = defaults.Daemon.SocketName
	}
	if cfg.Daemon.ShutdownTimeoutSec <= 0 {
		cfg.Daemon.ShutdownTimeoutSec = defaults.Daemon.ShutdownTimeoutSec
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	return cfg, nil
}

// SaveConfig writes the config atomically, used by setup.
func SaveConfig(path string, cfg model.Config) error {
	return AtomicWrite(path, cfg)
}
