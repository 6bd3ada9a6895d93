// Package mesh provides the vertex/face mesh model and the consolidation
// passes applied before export: combining, coplanar merging and cleanup.
package mesh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// Vertex is a 3D position. Vertices compare by exact coordinate equality and
// can be used as map keys.
type Vertex = mgl64.Vec3

// Face is an ordered list of vertex indices.
type Face []int

// Mesh is a list of vertices plus faces that reference them by index.
type Mesh struct {
	Vertices []Vertex
	Faces    []Face
}

// FaceCount returns the number of faces.
func (m *Mesh) FaceCount() int {
	return len(m.Faces)
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// Validate checks that every face has at least 3 indices and references
// existing vertices.
func (m *Mesh) Validate() error {
	for i, f := range m.Faces {
		if len(f) < 3 {
			return fmt.Errorf("face %d: %w", i, ErrShortFace)
		}
		for _, idx := range f {
			if idx < 0 || idx >= len(m.Vertices) {
				return fmt.Errorf("face %d: index %d: %w", i, idx, ErrIndexOutOfRange)
			}
		}
	}
	return nil
}

// corners returns the positions referenced by f.
func (m *Mesh) corners(f Face) []Vertex {
	out := make([]Vertex, len(f))
	for i, idx := range f {
		out[i] = m.Vertices[idx]
	}
	return out
}

// withFaces returns a mesh sharing m's vertices with a new face list.
func (m *Mesh) withFaces(faces []Face) *Mesh {
	return &Mesh{Vertices: m.Vertices, Faces: faces}
}

// FromPositions builds a mesh from raw position tuples and face index lists.
// Tuples with fewer than 3 components are padded with zeros. Faces with fewer
// than 3 indices or with out-of-range indices are dropped and logged.
func FromPositions(positions [][]float64, faces [][]int, log *zap.Logger) *Mesh {
	log = orNop(log)

	m := &Mesh{
		Vertices: make([]Vertex, len(positions)),
		Faces:    make([]Face, 0, len(faces)),
	}
	for i, p := range positions {
		var v Vertex
		copy(v[:], p)
		m.Vertices[i] = v
	}

	for i, f := range faces {
		if len(f) < 3 {
			log.Warn("dropping face with fewer than 3 indices", zap.Int("face", i), zap.Ints("indices", f))
			continue
		}
		valid := true
		for _, idx := range f {
			if idx < 0 || idx >= len(m.Vertices) {
				valid = false
				break
			}
		}
		if !valid {
			log.Warn("dropping face with out-of-range index",
				zap.Int("face", i), zap.Ints("indices", f), zap.Int("vertices", len(m.Vertices)))
			continue
		}
		m.Faces = append(m.Faces, append(Face(nil), f...))
	}
	return m
}

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
