package pipeline

import "github.com/Faultbox/vmdl-extractor/internal/config"

// Options controls which artifacts are produced and how meshes are
// consolidated.
type Options struct {
	MergeThreshold float64 // Minimum normal dot product for coplanar merges

	Render   bool // Write <model>.render.obj
	Physics  bool // Write <model>.physics.obj
	Combined bool // Write <model>.combined.obj from physics then render sources

	Snap     bool    // Weld vertices to a grid before deduplication
	SnapSize float64 // Grid cell size
}

// OptionsFromConfig builds Options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MergeThreshold: cfg.Mesh.MergeThreshold,
		Render:         cfg.Export.Render,
		Physics:        cfg.Export.Physics,
		Combined:       cfg.Export.Combined,
		Snap:           cfg.Mesh.Snap,
		SnapSize:       cfg.Mesh.SnapSize,
	}
}

// Enabled reports whether target t is requested.
func (o Options) Enabled(t Target) bool {
	switch t {
	case TargetRender:
		return o.Render
	case TargetPhysics:
		return o.Physics
	case TargetCombined:
		return o.Combined
	}
	return false
}
