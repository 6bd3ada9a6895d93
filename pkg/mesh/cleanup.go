package mesh

import (
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/Faultbox/vmdl-extractor/pkg/geom"
)

// CoplanarTolerance is the largest distance from a face's plane at which a
// point still counts as lying on it.
const CoplanarTolerance = 1e-6

// planarFace is a face projected onto the plane of its first three vertices.
type planarFace struct {
	basis   geom.Basis
	corners []Vertex
	region  geom.Region
	valid   bool
}

func projectFace(m *Mesh, f Face) planarFace {
	pf := planarFace{corners: m.corners(f)}
	if len(f) < 3 {
		return pf
	}
	basis, ok := geom.NewBasis(pf.corners[0], pf.corners[1], pf.corners[2])
	if !ok {
		return pf
	}
	outline := basis.ProjectAll(pf.corners)
	// The first edge is the X axis; drop rounding noise off it.
	outline[1].Y = 0
	region, err := geom.NewRegion(outline)
	if err != nil {
		return pf
	}
	pf.basis = basis
	pf.region = region
	pf.valid = true
	return pf
}

// onPlane reports whether every corner lies within CoplanarTolerance of the plane.
func (pf planarFace) onPlane(corners []Vertex) bool {
	for _, v := range corners {
		if math.Abs(pf.basis.Distance(v)) >= CoplanarTolerance {
			return false
		}
	}
	return true
}

// RemoveSubfaces drops every face that is coplanar with, and lies entirely
// inside, another face.
//
// Each face is projected into the 2D frame of its own first three vertices
// (origin at the first vertex, X along the first edge). Face B is removed
// when all of its corners lie on A's plane and A's outline contains B's
// outline, both taken in their own frames. Faces are compared pairwise in
// order. A face that has been removed is neither used as a container nor
// tested again, so with overlapping duplicates the face that comes first
// survives.
func RemoveSubfaces(m *Mesh, log *zap.Logger) *Mesh {
	log = orNop(log)

	keep := make([]bool, len(m.Faces))
	for i := range keep {
		keep[i] = true
	}
	projected := make([]planarFace, len(m.Faces))
	for i, f := range m.Faces {
		projected[i] = projectFace(m, f)
	}

	for i, a := range m.Faces {
		if !keep[i] || len(a) < 3 {
			continue
		}
		outer := projected[i]
		if !outer.valid {
			continue
		}

		for j, b := range m.Faces {
			if i == j || !keep[j] || len(b) < 3 {
				continue
			}
			inner := projected[j]
			if !outer.onPlane(inner.corners) || !inner.valid {
				continue
			}
			if outer.region.Contains(inner.region) {
				keep[j] = false
			}
		}
	}

	faces := make([]Face, 0, len(m.Faces))
	for i, f := range m.Faces {
		if keep[i] {
			faces = append(faces, f)
		}
	}

	log.Info("removed subfaces",
		zap.Int("original_faces", len(m.Faces)),
		zap.Int("final_faces", len(faces)),
		zap.Int("removed_faces", len(m.Faces)-len(faces)),
	)
	return m.withFaces(faces)
}

// sameFace reports whether a and b reference identical coordinates after
// sorting their indices. Winding is ignored.
func sameFace(m *Mesh, a, b Face) bool {
	if len(a) != len(b) {
		return false
	}
	sa := slices.Clone(a)
	sb := slices.Clone(b)
	slices.Sort(sa)
	slices.Sort(sb)
	for k := range sa {
		if m.Vertices[sa[k]] != m.Vertices[sb[k]] {
			return false
		}
	}
	return true
}

// RemoveDuplicateFaces keeps the first face of every group of faces that
// reference the same coordinates.
func RemoveDuplicateFaces(m *Mesh, log *zap.Logger) *Mesh {
	log = orNop(log)

	unique := make([]Face, 0, len(m.Faces))
	for _, f := range m.Faces {
		dupe := false
		for _, u := range unique {
			if sameFace(m, f, u) {
				dupe = true
				break
			}
		}
		if !dupe {
			unique = append(unique, f)
		}
	}

	log.Info("removed duplicate faces",
		zap.Int("original_faces", len(m.Faces)),
		zap.Int("final_faces", len(unique)),
		zap.Int("duplicate_faces", len(m.Faces)-len(unique)),
	)
	return m.withFaces(unique)
}

// Clean removes subfaces and then duplicate faces.
func Clean(m *Mesh, log *zap.Logger) *Mesh {
	return RemoveDuplicateFaces(RemoveSubfaces(m, log), log)
}
