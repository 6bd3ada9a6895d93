// Package pipeline converts model documents into cleaned OBJ artifacts.
//
// For each model the render and physics geometry sources it references are
// turned into meshes, then every requested target is combined, has its
// coplanar triangles merged, is cleaned of subfaces and duplicates, and is
// written through an ArtifactWriter.
package pipeline

import (
	"fmt"
	"path"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/vmdl-extractor/internal/assets"
	"github.com/Faultbox/vmdl-extractor/pkg/formats"
	"github.com/Faultbox/vmdl-extractor/pkg/mesh"
)

// ArtifactWriter receives finished artifacts.
type ArtifactWriter interface {
	WriteArtifact(name string, data []byte) error
}

// Result describes the outcome of converting one model.
type Result struct {
	Model     string   // Model base name
	Artifacts []string // Names of written artifacts
	Skipped   []Target // Requested targets with no contributing sources
}

// Converter turns model documents into OBJ artifacts.
type Converter struct {
	opts    Options
	sources *assets.Manager
	out     ArtifactWriter
	log     *zap.Logger
}

// NewConverter creates a converter reading from sources and writing to out.
func NewConverter(opts Options, sources *assets.Manager, out ArtifactWriter, log *zap.Logger) *Converter {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.SnapSize <= 0 {
		opts.SnapSize = mesh.DefaultSnapSize
	}
	return &Converter{
		opts:    opts,
		sources: sources,
		out:     out,
		log:     log,
	}
}

// ModelBaseName returns the file name of modelPath up to its first dot,
// so "models/ramp.vmdl" and "3_ramp.vmdl_c" become "ramp" and "3_ramp".
func ModelBaseName(modelPath string) string {
	name := path.Base(strings.ReplaceAll(modelPath, "\\", "/"))
	base, _, _ := strings.Cut(name, ".")
	return base
}

// ConvertModel converts a single model document. modelPath names the
// document inside the source manager; geometry sources are looked up by
// base name at the source root and then next to the model.
func (c *Converter) ConvertModel(modelPath string) (*Result, error) {
	base := ModelBaseName(modelPath)
	log := c.log.With(zap.String("model", base))

	data, err := c.sources.Load(modelPath)
	if err != nil {
		return nil, fmt.Errorf("loading model %s: %w", modelPath, err)
	}
	doc, err := formats.ParseVMDL(data)
	if err != nil {
		return nil, fmt.Errorf("parsing model %s: %w", modelPath, err)
	}

	if doc.Empty() {
		log.Warn("model references no geometry sources", zap.String("path", modelPath))
	}
	log.Debug("resolved geometry sources",
		zap.Strings("render", doc.Render),
		zap.Strings("physics", doc.Physics))

	var render, physics [][]byte
	if c.opts.Render || c.opts.Combined {
		render = c.buildSources(log, modelPath, doc.Render, TargetRender)
	}
	if c.opts.Physics || c.opts.Combined {
		physics = c.buildSources(log, modelPath, doc.Physics, TargetPhysics)
	}

	result := &Result{Model: base}
	for _, t := range Targets {
		if !c.opts.Enabled(t) {
			continue
		}

		var texts [][]byte
		switch t {
		case TargetRender:
			texts = render
		case TargetPhysics:
			texts = physics
		case TargetCombined:
			texts = append(append([][]byte{}, physics...), render...)
		}

		if len(texts) == 0 {
			log.Info("no sources for target, nothing written", zap.Stringer("target", t))
			result.Skipped = append(result.Skipped, t)
			continue
		}

		m := c.Consolidate(texts, log.With(zap.Stringer("target", t)))
		name := t.ArtifactName(base)
		if err := m.Validate(); err != nil {
			return result, fmt.Errorf("consolidating %s: %w", name, err)
		}
		if err := c.out.WriteArtifact(name, mesh.EncodeOBJ(m)); err != nil {
			return result, fmt.Errorf("writing %s: %w", name, err)
		}
		result.Artifacts = append(result.Artifacts, name)
	}

	return result, nil
}

// buildSources returns the OBJ text of every usable source. Sources that are
// missing, unparsable, or without positions are logged and skipped.
func (c *Converter) buildSources(log *zap.Logger, modelPath string, names []string, kind Target) [][]byte {
	var texts [][]byte
	for _, name := range names {
		text, err := c.sources.Mesh(c.sourcePath(modelPath, name))
		if err != nil {
			log.Warn("skipping source", zap.String("source", name), zap.Stringer("kind", kind), zap.Error(err))
			continue
		}
		log.Info("generated mesh for source", zap.String("source", name), zap.Stringer("kind", kind))
		texts = append(texts, text)
	}
	return texts
}

// sourcePath resolves a referenced base name to a name in the source manager.
func (c *Converter) sourcePath(modelPath, name string) string {
	if c.sources.Exists(name) {
		return name
	}
	if dir := path.Dir(modelPath); dir != "." {
		if sibling := path.Join(dir, name); c.sources.Exists(sibling) {
			return sibling
		}
	}
	return name
}

// Consolidate combines OBJ texts into one mesh, merges coplanar triangle
// pairs, and removes subfaces and duplicate faces.
func (c *Converter) Consolidate(texts [][]byte, log *zap.Logger) *mesh.Mesh {
	if log == nil {
		log = c.log
	}
	combiner := &mesh.Combiner{Snap: c.opts.Snap, SnapSize: c.opts.SnapSize, Log: log}
	m := combiner.CombineOBJ(texts)
	m = mesh.MergeCoplanar(m, c.opts.MergeThreshold, log)
	return mesh.Clean(m, log)
}

// ConvertAll converts each model in turn. A failing model is logged and does
// not stop the others; all failures are returned together.
func (c *Converter) ConvertAll(modelPaths []string) ([]*Result, error) {
	var (
		results []*Result
		errs    error
	)
	for _, p := range modelPaths {
		res, err := c.ConvertModel(p)
		if err != nil {
			c.log.Error("model conversion failed", zap.String("path", p), zap.Error(err))
			errs = multierr.Append(errs, err)
		}
		if res != nil {
			results = append(results, res)
		}
	}
	return results, errs
}
