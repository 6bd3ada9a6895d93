package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config file locations.
const (
	appDirName    = "vmdl-extractor"
	localFileName = "vmdlx.yaml"
	fileName      = "config.yaml"

	// EnvConfig names a config file, used when --config is not given.
	EnvConfig = "VMDLX_CONFIG"
)

// Load builds the effective configuration from the defaults, then the first
// config file found, then command-line flags, and validates the result.
func Load() (*Config, error) {
	cfg := Default()

	if path := resolveConfigPath(); path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}

	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveConfigPath returns the config file to read, or "" for none. An
// explicit --config or $VMDLX_CONFIG is returned even if it does not exist
// so that a typo is reported instead of silently ignored.
func resolveConfigPath() string {
	if path := ConfigPath(); path != "" {
		return path
	}
	if path := os.Getenv(EnvConfig); path != "" {
		return path
	}
	return findConfigFile()
}

// findConfigFile returns the first existing file among ./vmdlx.yaml and
// the user config file.
func findConfigFile() string {
	for _, path := range []string{localFileName, DefaultPath()} {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path
		}
	}
	return ""
}

// ConfigDir returns the per-user directory holding config.yaml. It falls
// back to the temp directory when the platform has no user config dir.
func ConfigDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, appDirName)
}

// DefaultPath returns the path Save writes to.
func DefaultPath() string {
	return filepath.Join(ConfigDir(), fileName)
}

// loadFromFile overlays the YAML file at path onto cfg. Keys missing from
// the file keep their current values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
