package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "plotd.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/plotd"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
)

// Environment overrides.
const (
	EnvPort        = "PLOTD_PORT"
	EnvCatalogSeed = "PLOTD_CATALOG_SEED"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger
	home   string
	dir    string
	getenv func(string) string
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	home, _ := os.UserHomeDir()
	dir, _ := os.Getwd()
	return &Loader{logger: logger, home: home, dir: dir, getenv: os.Getenv}
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/plotd/config.yaml)
// 3. Project config (plotd.yaml in current or parent directories)
// 4. Environment variables
//
// An explicit path replaces steps 2 and 3.
func (l *Loader) Load(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		explicit, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded config", slog.String("path", path))
		config.Merge(explicit)
	} else {
		l.mergeLayers(config)
	}

	if err := l.applyEnv(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (l *Loader) mergeLayers(config *Config) {
	if userConfigPath := l.userConfigPath(); userConfigPath != "" {
		if userConfig, err := loadLayer(userConfigPath); err == nil {
			l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
			config.Merge(userConfig)
		} else if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
		}
	}

	projectConfigPath := l.findProjectConfig()
	if projectConfigPath == "" {
		l.logger.Debug("No project config found")
		return
	}
	projectConfig, err := loadLayer(projectConfigPath)
	if err != nil {
		l.logger.Warn("Failed to load project config", slog.String("path", projectConfigPath), slog.String("error", err.Error()))
		return
	}
	l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
	config.Merge(projectConfig)
	// A relative seed path is relative to the project file.
	if seed := projectConfig.Catalog.Seed; seed != "" && !filepath.IsAbs(seed) {
		config.Catalog.Seed = filepath.Join(filepath.Dir(projectConfigPath), seed)
	}
}

func (l *Loader) applyEnv(config *Config) error {
	if v := l.getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		config.Server.Port = port
	}
	if v := l.getenv(EnvCatalogSeed); v != "" {
		config.Catalog.Seed = v
	}
	return nil
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	if l.home == "" {
		return ""
	}
	return filepath.Join(l.home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for plotd.yaml in current and parent directories
func (l *Loader) findProjectConfig() string {
	if l.dir == "" {
		return ""
	}

	dir := l.dir
	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return ""
}

// loadLayer parses a config file without defaults, so Merge only applies
// the fields the file sets.
func loadLayer(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &config, nil
}
