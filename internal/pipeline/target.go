package pipeline

import "fmt"

// Target is a kind of exported artifact.
type Target int

const (
	TargetRender Target = iota
	TargetPhysics
	TargetCombined
)

// Targets lists every target in the order they are produced.
var Targets = []Target{TargetRender, TargetPhysics, TargetCombined}

// String returns the target name.
func (t Target) String() string {
	switch t {
	case TargetRender:
		return "render"
	case TargetPhysics:
		return "physics"
	case TargetCombined:
		return "combined"
	default:
		return fmt.Sprintf("Target(%d)", int(t))
	}
}

// Suffix returns the file name suffix placed between the model name and
// the .obj extension.
func (t Target) Suffix() string {
	return "." + t.String()
}

// ArtifactName returns the output file name for a model base name.
func (t Target) ArtifactName(base string) string {
	return base + t.Suffix() + ".obj"
}
