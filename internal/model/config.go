package model

import "time"

// Config is the on-disk configuration for the prism daemon and engine.
type Config struct {
	Workspace WorkspaceConfig `yaml:"workspace"`
	Engine    EngineConfig    `yaml:"engine"`
	Daemon    DaemonConfig    `yaml:"daemon"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type WorkspaceConfig struct {
	// Path to the workspace YAML file the daemon analyses and watches.
	Path string `yaml:"path"`
}

type EngineConfig struct {
	// ScanIntervalSec is the period of the background analysis ticker.
	ScanIntervalSec int `yaml:"scan_interval_sec"`
	// Disabled turns the background engine off entirely; on-demand
	// analysis via the CLI still works.
	Disabled bool `yaml:"disabled"`
}

type DaemonConfig struct {
	SocketName         string `yaml:"socket_name"`
	ShutdownTimeoutSec int    `yaml:"shutdown_timeout_sec"`
	// NotifyCritical enables desktop notifications for critical conflicts.
	NotifyCritical bool `yaml:"notify_critical"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the configuration used when no prism.yaml exists.
func DefaultConfig() Config {
	return Config{
		Workspace: WorkspaceConfig{Path: "workspace.yaml"},
		Engine:    EngineConfig{ScanIntervalSec: 30},
		Daemon:    DaemonConfig{SocketName: "prism.sock", ShutdownTimeoutSec: 30},
		Logging:   LoggingConfig{Level: "info"},
	}
}

// ScanInterval returns the configured ticker period, defaulting to 30s.
func (c EngineConfig) ScanInterval() time.Duration {
	if c.ScanIntervalSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.ScanIntervalSec) * time.Second
}
