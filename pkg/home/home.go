// Package home manages the application home directory (~/.filecabinet)
// and its configuration file.
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

// Manager handles the application home directory
type Manager struct {
	path string
}

// Subdirectories within home
const (
	LogsDir = "logs"
	TempDir = "temp"
)

// Files within home
const (
	ConfigFile   = "config.yaml"
	DatabaseFile = "filecabinet.db"
)

// NewManager creates a new home directory manager
func NewManager(path string) (*Manager, error) {
	if path == "" {
		path = DefaultHomePath()
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid home path: %w", err)
	}

	return &Manager{path: absPath}, nil
}

// DefaultHomePath returns the default home directory path
func DefaultHomePath() string {
	if path := os.Getenv("FILECABINET_HOME"); path != "" {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ".filecabinet"
	}
	return filepath.Join(home, ".filecabinet")
}

// Path returns the home directory path
func (m *Manager) Path() string {
	return m.path
}

// JoinPath joins a relative path onto the home directory
func (m *Manager) JoinPath(parts ...string) string {
	return filepath.Join(append([]string{m.path}, parts...)...)
}

// ConfigPath returns the path to the config file
func (m *Manager) ConfigPath() string {
	return m.JoinPath(ConfigFile)
}

// DatabasePath returns the path to the database file
func (m *Manager) DatabasePath() string {
	return m.JoinPath(DatabaseFile)
}

// Initialize creates the home directory structure and a default config
// file when one does not exist yet.
func (m *Manager) Initialize() error {
	dirs := []string{"", LogsDir, TempDir}

	for _, dir := range dirs {
		path := m.JoinPath(dir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", path, err)
		}
	}

	if _, err := os.Stat(m.ConfigPath()); os.IsNotExist(err) {
		if err := m.SaveConfig(DefaultConfig()); err != nil {
			return fmt.Errorf("failed to write default config: %w", err)
		}
	}

	return nil
}

// LoadOrDefault loads the config file, falling back to defaults when the
// file is missing. A malformed config file is an error, not a fallback.
func (m *Manager) LoadOrDefault() (*Config, error) {
	cfg, err := m.LoadConfig()
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}
