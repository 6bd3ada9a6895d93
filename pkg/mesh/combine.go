package mesh

import (
	"math"

	"go.uber.org/zap"
)

// DefaultSnapSize is the default vertex welding grid: 1/16 unit.
const DefaultSnapSize = 0.0625

// Combiner merges independently indexed meshes into one mesh with shared,
// deduplicated vertices.
type Combiner struct {
	// Snap rounds every component to the nearest multiple of SnapSize
	// before deduplication, welding vertices closer than half a cell.
	Snap     bool
	SnapSize float64

	Log *zap.Logger
}

// SnapVertex rounds each component of v to the nearest multiple of size.
// Halfway values round to even, and negative zero is normalized to zero.
func SnapVertex(v Vertex, size float64) Vertex {
	var out Vertex
	for i, c := range v {
		s := size * math.RoundToEven(c/size)
		if s == 0 {
			s = 0
		}
		out[i] = s
	}
	return out
}

// Combine merges meshes in order. Vertices are deduplicated by (optionally
// snapped) coordinate in first-seen order; faces keep per-mesh and input
// order. Faces referencing a vertex the mesh does not define are dropped.
func (c *Combiner) Combine(meshes []*Mesh) *Mesh {
	log := orNop(c.Log)

	out := &Mesh{}
	index := make(map[Vertex]int)
	totalVertices := 0

	for mi, m := range meshes {
		if m == nil {
			continue
		}
		totalVertices += len(m.Vertices)

		remap := make([]int, len(m.Vertices))
		for i, v := range m.Vertices {
			if c.Snap && c.SnapSize > 0 {
				v = SnapVertex(v, c.SnapSize)
			}
			global, ok := index[v]
			if !ok {
				global = len(out.Vertices)
				index[v] = global
				out.Vertices = append(out.Vertices, v)
			}
			remap[i] = global
		}

	faces:
		for fi, f := range m.Faces {
			if len(f) < 3 {
				log.Warn("face has fewer than 3 indices, skipping",
					zap.Int("mesh", mi), zap.Int("face", fi), zap.Ints("indices", f))
				continue
			}
			face := make(Face, len(f))
			for k, local := range f {
				if local < 0 || local >= len(remap) {
					log.Warn("face references missing vertex index, skipping",
						zap.Int("mesh", mi), zap.Int("face", fi), zap.Int("index", local), zap.Ints("indices", f))
					continue faces
				}
				face[k] = remap[local]
			}
			out.Faces = append(out.Faces, face)
		}
	}

	log.Info("combined meshes",
		zap.Int("inputs", len(meshes)),
		zap.Int("original_vertices", totalVertices),
		zap.Int("combined_vertices", len(out.Vertices)),
		zap.Int("merged_vertices", totalVertices-len(out.Vertices)),
		zap.Int("faces", len(out.Faces)),
	)
	return out
}

// CombineOBJ parses each OBJ text and combines the results. A text that fails
// to parse is logged and left out; the remaining meshes are still combined.
func (c *Combiner) CombineOBJ(texts [][]byte) *Mesh {
	log := orNop(c.Log)

	meshes := make([]*Mesh, 0, len(texts))
	for i, text := range texts {
		m, err := ParseOBJ(text)
		if err != nil {
			log.Warn("skipping unparsable mesh", zap.Int("mesh", i), zap.Error(err))
			continue
		}
		meshes = append(meshes, m)
	}
	return c.Combine(meshes)
}
