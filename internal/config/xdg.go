package config

import (
	"os"
	"path/filepath"
)

const appName = "gyrocall"

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGStateHome returns the XDG state home or a default fallback.
func XDGStateHome() string {
	if v := os.Getenv("XDG_STATE_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "state")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), appName, "config.toml")
}

// DefaultLogPath is where the TUI writes its log while it owns the terminal.
func DefaultLogPath() string {
	return filepath.Join(XDGStateHome(), appName, "gyrocall.log")
}

// DefaultPhrasesDir holds user phrase packs that override the embedded ones.
func DefaultPhrasesDir() string {
	return filepath.Join(XDGConfigHome(), appName, "phrases")
}
