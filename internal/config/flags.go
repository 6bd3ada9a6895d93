package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagGameDir    = flag.String("game", "", "Game install directory")
	flagOutput     = flag.String("out", "", "Output directory for .obj files")
	flagRender     = flag.Bool("render", false, "Export <model>.render.obj")
	flagPhysics    = flag.Bool("physics", false, "Export <model>.physics.obj")
	flagNoCombined = flag.Bool("no-combined", false, "Skip <model>.combined.obj")
	flagThreshold  = flag.Float64("threshold", -1, "Coplanar merge threshold (0.0 - 1.0)")
	flagSnap       = flag.Bool("snap", false, "Weld vertices to a grid before merging")
	flagSnapSize   = flag.Float64("snap-size", 0, "Snap grid size (default 1/16)")
	flagDecompiler = flag.String("vrf", "", "Path to Source2Viewer-CLI")
	flagKeepTemp   = flag.Bool("keep-temp", false, "Keep the temporary decompile directory")
	flagLogFile    = flag.String("log-file", "", "Also write logs to this file")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the non-flag arguments.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagGameDir != "" {
		cfg.Paths.GameDir = *flagGameDir
	}
	if *flagOutput != "" {
		cfg.Paths.OutputDir = *flagOutput
	}
	if *flagRender {
		cfg.Export.Render = true
	}
	if *flagPhysics {
		cfg.Export.Physics = true
	}
	if *flagNoCombined {
		cfg.Export.Combined = false
	}
	if *flagThreshold >= 0 {
		cfg.Mesh.MergeThreshold = *flagThreshold
	}
	if *flagSnap {
		cfg.Mesh.Snap = true
	}
	if *flagSnapSize > 0 {
		cfg.Mesh.SnapSize = *flagSnapSize
	}
	if *flagDecompiler != "" {
		cfg.Decompiler.Path = *flagDecompiler
	}
	if *flagKeepTemp {
		cfg.Decompiler.KeepTemp = true
	}
}
