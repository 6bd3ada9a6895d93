// Package config handles converter configuration loading and management.
package config

import (
	"errors"
	"fmt"
)

// Configuration errors.
var (
	ErrInvalidThreshold = errors.New("merge threshold must be between 0 and 1")
	ErrInvalidSnapSize  = errors.New("snap size must be positive")
)

// Config holds all converter settings.
type Config struct {
	Paths      PathsConfig      `yaml:"paths"`
	Export     ExportConfig     `yaml:"export"`
	Mesh       MeshConfig       `yaml:"mesh"`
	Decompiler DecompilerConfig `yaml:"decompiler"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// PathsConfig holds input and output locations.
type PathsConfig struct {
	GameDir   string `yaml:"game_dir"`   // Game install root containing game/csgo_addons
	OutputDir string `yaml:"output_dir"` // Where .obj artifacts are written
}

// ExportConfig selects which artifacts are produced per model.
type ExportConfig struct {
	Render   bool `yaml:"render"`   // <model>.render.obj
	Physics  bool `yaml:"physics"`  // <model>.physics.obj
	Combined bool `yaml:"combined"` // <model>.combined.obj
}

// MeshConfig holds mesh consolidation settings.
type MeshConfig struct {
	MergeThreshold float64 `yaml:"merge_threshold"` // Normal cosine similarity for coplanar merges
	Snap           bool    `yaml:"snap"`            // Weld vertices to a grid before deduplication
	SnapSize       float64 `yaml:"snap_size"`       // Grid cell size
}

// DecompilerConfig holds settings for the external model decompiler.
type DecompilerConfig struct {
	Path       string   `yaml:"path"`       // Explicit executable path; searched when empty
	Extensions []string `yaml:"extensions"` // Compiled extensions to decompile
	KeepTemp   bool     `yaml:"keep_temp"`  // Keep the temporary working directory
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			OutputDir: ".",
		},
		Export: ExportConfig{
			Render:   false,
			Physics:  false,
			Combined: true,
		},
		Mesh: MeshConfig{
			MergeThreshold: 0.99,
			Snap:           false,
			SnapSize:       0.0625,
		},
		Decompiler: DecompilerConfig{
			Extensions: []string{"vmdl_c"},
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Mesh.MergeThreshold < 0 || c.Mesh.MergeThreshold > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, c.Mesh.MergeThreshold)
	}
	if c.Mesh.SnapSize <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidSnapSize, c.Mesh.SnapSize)
	}
	return nil
}

// AnyExport reports whether at least one artifact kind is enabled.
func (c *Config) AnyExport() bool {
	return c.Export.Render || c.Export.Physics || c.Export.Combined
}
