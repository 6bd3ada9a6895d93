package mesh

import "go.uber.org/zap"

// DefaultMergeThreshold is the default cosine similarity two triangle
// normals need to be merged into a quad.
const DefaultMergeThreshold = 0.99

// minNormalLength is the cross product magnitude at or below which a face
// normal is left unnormalized.
const minNormalLength = 1e-6

// FaceNormal returns the unit normal of the triangle v0, v1, v2. Degenerate
// triangles get their raw, unnormalized cross product.
func FaceNormal(v0, v1, v2 Vertex) Vertex {
	n := v1.Sub(v0).Cross(v2.Sub(v0))
	if l := n.Len(); l > minNormalLength {
		return n.Mul(1 / l)
	}
	return n
}

// sharedIndices returns the number of distinct indices present in both faces.
func sharedIndices(a, b Face) int {
	seen := make(map[int]struct{}, len(a))
	for _, idx := range a {
		seen[idx] = struct{}{}
	}
	count := 0
	for _, idx := range b {
		if _, ok := seen[idx]; ok {
			count++
			delete(seen, idx)
		}
	}
	return count
}

// unionIndices concatenates a and b keeping the first occurrence of each index.
func unionIndices(a, b Face) Face {
	seen := make(map[int]struct{}, len(a)+len(b))
	out := make(Face, 0, len(a)+len(b))
	for _, f := range [2]Face{a, b} {
		for _, idx := range f {
			if _, ok := seen[idx]; ok {
				continue
			}
			seen[idx] = struct{}{}
			out = append(out, idx)
		}
	}
	return out
}

// MergeCoplanar merges pairs of adjacent triangles whose normals have a dot
// product of at least threshold into quads.
//
// The pass is greedy and runs once in face order: each unconsumed triangle is
// paired with the first later unconsumed triangle that shares exactly two
// indices, has a close enough normal, and forms a 4-index union. Faces that
// are not triangles are passed through. The result depends on face order.
func MergeCoplanar(m *Mesh, threshold float64, log *zap.Logger) *Mesh {
	log = orNop(log)

	merged := make([]Face, 0, len(m.Faces))
	used := make([]bool, len(m.Faces))

	for i, f1 := range m.Faces {
		if used[i] {
			continue
		}
		if len(f1) != 3 {
			merged = append(merged, f1)
			used[i] = true
			continue
		}
		n1 := FaceNormal(m.Vertices[f1[0]], m.Vertices[f1[1]], m.Vertices[f1[2]])

		found := false
		for j := i + 1; j < len(m.Faces); j++ {
			if used[j] {
				continue
			}
			f2 := m.Faces[j]
			if len(f2) != 3 || sharedIndices(f1, f2) != 2 {
				continue
			}

			n2 := FaceNormal(m.Vertices[f2[0]], m.Vertices[f2[1]], m.Vertices[f2[2]])
			if n1.Dot(n2) < threshold {
				continue
			}

			quad := unionIndices(f1, f2)
			if len(quad) != 4 {
				continue
			}
			merged = append(merged, quad)
			used[i], used[j] = true, true
			found = true
			break
		}

		if !found {
			merged = append(merged, f1)
		}
	}

	log.Info("merged coplanar triangles",
		zap.Int("original_faces", len(m.Faces)),
		zap.Int("final_faces", len(merged)),
		zap.Int("merged_faces", len(m.Faces)-len(merged)),
	)
	return m.withFaces(merged)
}
