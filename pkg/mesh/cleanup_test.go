package mesh

import (
	"reflect"
	"testing"
)

// quadWithTriangle is a 4x4 quad in z=0 and a small triangle inside it.
func quadWithTriangle() *Mesh {
	return &Mesh{
		Vertices: []Vertex{
			{0, 0, 0}, {4, 0, 0}, {4, 4, 0}, {0, 4, 0},
			{1, 1, 0}, {2, 1, 0}, {1, 2, 0},
		},
		Faces: []Face{{0, 1, 2, 3}, {4, 5, 6}},
	}
}

func TestRemoveSubfaces_ContainedTriangle(t *testing.T) {
	got := RemoveSubfaces(quadWithTriangle(), nil)

	want := []Face{{0, 1, 2, 3}}
	if !reflect.DeepEqual(got.Faces, want) {
		t.Errorf("faces = %v, want %v", got.Faces, want)
	}
}

func TestRemoveSubfaces_ContainerAfterSubface(t *testing.T) {
	m := quadWithTriangle()
	m.Faces = []Face{{4, 5, 6}, {0, 1, 2, 3}}

	got := RemoveSubfaces(m, nil)
	want := []Face{{0, 1, 2, 3}}
	if !reflect.DeepEqual(got.Faces, want) {
		t.Errorf("faces = %v, want %v", got.Faces, want)
	}
}

func TestRemoveSubfaces_TiltedPlane(t *testing.T) {
	// The same configuration on the plane x + y + z = 0, with the inner
	// triangle starting from a different corner than the quad.
	u := Vertex{1, -1, 0}
	v := Vertex{1, 1, -2}
	at := func(a, b float64) Vertex { return u.Mul(a).Add(v.Mul(b)) }

	m := &Mesh{
		Vertices: []Vertex{
			at(0, 0), at(4, 0), at(4, 4), at(0, 4),
			at(2, 1), at(1, 2), at(1, 1),
		},
		Faces: []Face{{0, 1, 2, 3}, {4, 5, 6}},
	}

	got := RemoveSubfaces(m, nil)
	if len(got.Faces) != 1 {
		t.Errorf("expected the tilted triangle to be removed, got %v", got.Faces)
	}
}

func TestRemoveSubfaces_KeepsNonCoplanar(t *testing.T) {
	m := quadWithTriangle()
	m.Vertices[4][2] = 0.5

	got := RemoveSubfaces(m, nil)
	if len(got.Faces) != 2 {
		t.Errorf("expected both faces kept, got %v", got.Faces)
	}
}

func TestRemoveSubfaces_KeepsPartialOverlap(t *testing.T) {
	m := quadWithTriangle()
	m.Vertices[5] = Vertex{6, 1, 0}

	got := RemoveSubfaces(m, nil)
	if len(got.Faces) != 2 {
		t.Errorf("expected both faces kept, got %v", got.Faces)
	}
}

func TestRemoveSubfaces_SkipsDegenerateFaces(t *testing.T) {
	m := &Mesh{
		Vertices: []Vertex{
			{0, 0, 0}, {4, 0, 0}, {4, 4, 0}, {0, 4, 0},
			{1, 1, 0}, {2, 1, 0}, {3, 1, 0},
		},
		Faces: []Face{{0, 1, 2, 3}, {4, 5, 6}},
	}

	// The collinear triangle has no valid projection and is left alone.
	got := RemoveSubfaces(m, nil)
	if len(got.Faces) != 2 {
		t.Errorf("expected degenerate face to be skipped, got %v", got.Faces)
	}
}

func TestRemoveSubfaces_OverlappingCopiesKeepFirst(t *testing.T) {
	vertices := []Vertex{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
	}
	a := Face{0, 1, 2}
	b := Face{3, 4, 5}

	tests := []struct {
		name  string
		faces []Face
		want  []Face
	}{
		{"a first", []Face{a, b}, []Face{a}},
		{"b first", []Face{b, a}, []Face{b}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RemoveSubfaces(&Mesh{Vertices: vertices, Faces: tt.faces}, nil)
			if !reflect.DeepEqual(got.Faces, tt.want) {
				t.Errorf("faces = %v, want %v", got.Faces, tt.want)
			}
		})
	}
}

func TestRemoveSubfaces_InnerUsesOwnFrame(t *testing.T) {
	// Each outline is anchored at its own first vertex, so a small
	// coplanar triangle far from the quad still fits inside it, while
	// the same triangle scaled past the quad's size does not.
	m := &Mesh{
		Vertices: []Vertex{
			{0, 0, 0}, {8, 0, 0}, {8, 8, 0}, {0, 8, 0},
			{20, 20, 0}, {21, 20, 0}, {20, 21, 0},
			{30, 30, 0}, {40, 30, 0}, {30, 40, 0},
		},
		Faces: []Face{{0, 1, 2, 3}, {4, 5, 6}, {7, 8, 9}},
	}

	got := RemoveSubfaces(m, nil)
	want := []Face{{0, 1, 2, 3}, {7, 8, 9}}
	if !reflect.DeepEqual(got.Faces, want) {
		t.Errorf("faces = %v, want %v", got.Faces, want)
	}
}

func TestRemoveSubfaces_NestedFaces(t *testing.T) {
	big := Face{0, 1, 2, 3}
	mid := Face{4, 5, 6}
	small := Face{7, 8, 9}
	vertices := []Vertex{
		{0, 0, 0}, {8, 0, 0}, {8, 8, 0}, {0, 8, 0},
		{1, 1, 0}, {6, 1, 0}, {1, 6, 0},
		{2, 2, 0}, {3, 2, 0}, {2, 3, 0},
	}

	tests := []struct {
		name  string
		faces []Face
	}{
		{"largest first", []Face{big, mid, small}},
		{"smallest first", []Face{small, mid, big}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RemoveSubfaces(&Mesh{Vertices: vertices, Faces: tt.faces}, nil)
			want := []Face{big}
			if !reflect.DeepEqual(got.Faces, want) {
				t.Errorf("faces = %v, want %v", got.Faces, want)
			}
		})
	}
}

func TestRemoveDuplicateFaces(t *testing.T) {
	m := &Mesh{
		Vertices: []Vertex{
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
			{0, 0, 1},
		},
		Faces: []Face{
			{0, 1, 2},
			{2, 1, 0},    // reversed winding
			{5, 4, 3},    // same coordinates through other indices
			{0, 1, 6},    // different face
			{0, 1, 2, 6}, // different size
		},
	}

	got := RemoveDuplicateFaces(m, nil)
	want := []Face{{0, 1, 2}, {0, 1, 6}, {0, 1, 2, 6}}
	if !reflect.DeepEqual(got.Faces, want) {
		t.Errorf("faces = %v, want %v", got.Faces, want)
	}
}

func TestClean(t *testing.T) {
	m := quadWithTriangle()
	m.Faces = append(m.Faces, Face{3, 2, 1, 0}, Face{0, 4, 6})

	got := Clean(m, nil)
	// The reversed quad is contained by the first one; the thin triangle
	// touching the quad corner is inside it as well.
	want := []Face{{0, 1, 2, 3}}
	if !reflect.DeepEqual(got.Faces, want) {
		t.Errorf("faces = %v, want %v", got.Faces, want)
	}
}
