package home

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Scanner  ScannerConfig  `yaml:"scanner"`
	Matching MatchingConfig `yaml:"matching"`
	Logging  LoggingConfig  `yaml:"logging"`
	Watch    WatchConfig    `yaml:"watch"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// StorageConfig contains the storage root settings
type StorageConfig struct {
	// FallbackPath is used when no drive is configured in the database
	FallbackPath string `yaml:"fallbackPath"`
}

// ScannerConfig contains directory scan settings
type ScannerConfig struct {
	MaxDepth          int      `yaml:"maxDepth"`
	ExtraIgnoredDirs  []string `yaml:"extraIgnoredDirs"`
	ExtraIgnoredFiles []string `yaml:"extraIgnoredFiles"`
}

// MatchingConfig contains matching engine settings
type MatchingConfig struct {
	CacheTTLSeconds int `yaml:"cacheTTLSeconds"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
}

// WatchConfig contains watch pipeline settings
type WatchConfig struct {
	DebounceMillis int `yaml:"debounceMillis"`
	// AutoOrganizeConfidence is the minimum suggestion confidence
	// ("high", "medium", "low") that triggers an automatic move.
	// Empty disables auto-organize; suggestions are only logged.
	AutoOrganizeConfidence string `yaml:"autoOrganizeConfidence"`
}

// LoadConfig loads configuration from config.yaml
func (m *Manager) LoadConfig() (*Config, error) {
	configPath := m.ConfigPath()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// SaveConfig saves configuration to config.yaml
func (m *Manager) SaveConfig(config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := m.ConfigPath()
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: DatabaseFile,
		},
		Storage: StorageConfig{
			FallbackPath: "", // resolved to ~/Documents/FileCabinet at runtime
		},
		Scanner: ScannerConfig{
			MaxDepth: 10,
		},
		Matching: MatchingConfig{
			CacheTTLSeconds: 30,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "filecabinet.log", // placed under the home logs directory
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
		Watch: WatchConfig{
			DebounceMillis:         2000,
			AutoOrganizeConfidence: "",
		},
	}
}
