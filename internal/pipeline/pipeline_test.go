package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"testing/fstest"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/vmdl-extractor/internal/assets"
	"github.com/Faultbox/vmdl-extractor/internal/config"
	"github.com/Faultbox/vmdl-extractor/internal/logger"
	"github.com/Faultbox/vmdl-extractor/pkg/mesh"
)

// memWriter collects artifacts in memory.
type memWriter struct {
	files map[string][]byte
	err   error
}

func newMemWriter() *memWriter {
	return &memWriter{files: make(map[string][]byte)}
}

func (w *memWriter) WriteArtifact(name string, data []byte) error {
	if w.err != nil {
		return w.err
	}
	w.files[name] = data
	return nil
}

func (w *memWriter) names() []string {
	var names []string
	for name := range w.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// dmxSource renders a minimal keyvalues2 geometry document.
func dmxSource(positions [][3]float64, faces [][]int) string {
	var b strings.Builder
	b.WriteString("<!-- dmx encoding keyvalues2 1 format model 22 -->\n")
	b.WriteString("\"DmeVertexData\"\n{\n")
	b.WriteString("\t\"vertexFormat\" \"string_array\" [ \"position$0\" ]\n")
	b.WriteString("\t\"position$0\" \"vector3_array\" [\n")
	for i, p := range positions {
		sep := ","
		if i == len(positions)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "\t\t\"%g %g %g\"%s\n", p[0], p[1], p[2], sep)
	}
	b.WriteString("\t]\n\t\"position$0Indices\" \"int_array\" [")
	for i := range positions {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, " \"%d\"", i)
	}
	b.WriteString(" ]\n\t\"faces\" \"int_array\" [")
	first := true
	for _, f := range faces {
		for _, idx := range append(append([]int{}, f...), -1) {
			if !first {
				b.WriteString(",")
			}
			first = false
			fmt.Fprintf(&b, " \"%d\"", idx)
		}
	}
	b.WriteString(" ]\n}\n")
	return b.String()
}

// vmdlSource renders a model document referencing the given DMX files.
func vmdlSource(render, physics []string) string {
	var b strings.Builder
	b.WriteString("{\n\trootNode =\n\t{\n\t\tchildren =\n\t\t[\n")
	for _, r := range render {
		fmt.Fprintf(&b, "\t\t\t{\n\t\t\t\t_class = \"RenderMeshFile\"\n\t\t\t\tfilename = \"models/%s\"\n\t\t\t},\n", r)
	}
	for _, p := range physics {
		fmt.Fprintf(&b, "\t\t\t{\n\t\t\t\t_class = \"PhysicsHullFile\"\n\t\t\t\tfilename = \"models/%s\"\n\t\t\t},\n", p)
	}
	b.WriteString("\t\t]\n\t}\n}\n")
	return b.String()
}

// Unit square in the XY plane split into two triangles.
var floorDMX = dmxSource(
	[][3]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
	[][]int{{0, 1, 2}, {0, 2, 3}},
)

// Upright triangle sharing the floor's first edge.
var wallDMX = dmxSource(
	[][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 0, 1}},
	[][]int{{0, 1, 2}},
)

// Corners listed out of order, shared through position$0Indices.
const indexedFloorDMX = `<!-- dmx encoding keyvalues2 1 format model 22 -->
"DmeVertexData"
{
	"vertexFormat" "string_array" [ "position$0" ]
	"position$0" "vector3_array"
	[
		"1 1 0",
		"0 0 0",
		"1 0 0",
		"0 1 0"
	]
	"position$0Indices" "int_array" [ "1", "2", "0", "1", "0", "3" ]
	"faces" "int_array" [ "0", "1", "2", "-1", "3", "4", "5", "-1" ]
}
`

func defaultOptions() Options {
	return Options{
		MergeThreshold: mesh.DefaultMergeThreshold,
		Combined:       true,
		SnapSize:       mesh.DefaultSnapSize,
	}
}

func newSources(t *testing.T, files map[string]string) *assets.Manager {
	t.Helper()
	root := fstest.MapFS{}
	for name, content := range files {
		root[name] = &fstest.MapFile{Data: []byte(content)}
	}
	m := assets.NewManager(nil)
	m.AddRoot(root)
	return m
}

func parseArtifact(t *testing.T, w *memWriter, name string) *mesh.Mesh {
	t.Helper()
	data, ok := w.files[name]
	if !ok {
		t.Fatalf("artifact %s was not written", name)
	}
	m, err := mesh.ParseOBJ(data)
	if err != nil {
		t.Fatalf("artifact %s does not parse: %v", name, err)
	}
	return m
}

func TestConvertModelRenderAndCombined(t *testing.T) {
	sources := newSources(t, map[string]string{
		"ramp.vmdl":  vmdlSource([]string{"floor.dmx"}, []string{"wall.dmx"}),
		"floor.dmx":  floorDMX,
		"wall.dmx":   wallDMX,
		"unused.dmx": floorDMX,
	})
	w := newMemWriter()

	opts := defaultOptions()
	opts.Render = true
	opts.Physics = false
	opts.Combined = true
	// Each enabled target gets its own artifact; physics is not written.
	conv := NewConverter(opts, sources, w, nil)

	res, err := conv.ConvertModel("ramp.vmdl")
	if err != nil {
		t.Fatalf("ConvertModel failed: %v", err)
	}
	if res.Model != "ramp" {
		t.Errorf("Model = %q, want ramp", res.Model)
	}

	want := []string{"ramp.combined.obj", "ramp.render.obj"}
	if got := w.names(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("artifacts = %v, want %v", got, want)
	}

	combined := parseArtifact(t, w, "ramp.combined.obj")
	// 4 floor corners plus the wall apex; the shared edge is welded.
	if combined.VertexCount() != 5 {
		t.Errorf("combined vertices = %d, want 5", combined.VertexCount())
	}
	// Floor triangles merge into a quad; the wall stays a triangle.
	if combined.FaceCount() != 2 {
		t.Errorf("combined faces = %d, want 2", combined.FaceCount())
	}
	// Physics sources come first.
	if combined.Vertices[2] != (mesh.Vertex{0, 0, 1}) {
		t.Errorf("expected physics vertices first, got %v", combined.Vertices)
	}
	if len(combined.Faces[0]) != 3 || len(combined.Faces[1]) != 4 {
		t.Errorf("unexpected faces %v", combined.Faces)
	}
}

func TestConvertModelEndToEnd(t *testing.T) {
	sources := newSources(t, map[string]string{
		"ramp.vmdl": vmdlSource([]string{"floor.dmx"}, []string{"wall.dmx"}),
		"floor.dmx": floorDMX,
		"wall.dmx":  wallDMX,
	})
	w := newMemWriter()

	opts := defaultOptions()
	opts.Render = false
	opts.Physics = false
	opts.Combined = true
	conv := NewConverter(opts, sources, w, nil)

	res, err := conv.ConvertModel("ramp.vmdl")
	if err != nil {
		t.Fatalf("ConvertModel failed: %v", err)
	}

	if got := w.names(); len(got) != 1 || got[0] != "ramp.combined.obj" {
		t.Fatalf("artifacts = %v, want only ramp.combined.obj", got)
	}
	if len(res.Artifacts) != 1 || len(res.Skipped) != 0 {
		t.Errorf("unexpected result %+v", res)
	}
	if got := parseArtifact(t, w, "ramp.combined.obj").VertexCount(); got != 5 {
		t.Errorf("combined vertices = %d, want 5", got)
	}
}

func TestConvertModelResolvesPositionIndices(t *testing.T) {
	sources := newSources(t, map[string]string{
		"tile.vmdl": vmdlSource([]string{"tile.dmx"}, nil),
		"tile.dmx":  indexedFloorDMX,
	})
	w := newMemWriter()

	// A threshold above 1 keeps both triangles as written.
	conv := NewConverter(Options{MergeThreshold: 2, Render: true}, sources, w, nil)
	if _, err := conv.ConvertModel("tile.vmdl"); err != nil {
		t.Fatalf("ConvertModel failed: %v", err)
	}

	m := parseArtifact(t, w, "tile.render.obj")
	// Six corners collapse onto the four shared positions.
	if m.VertexCount() != 4 {
		t.Errorf("vertices = %d, want 4", m.VertexCount())
	}

	want := [][]mesh.Vertex{
		{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}},
		{{0, 0, 0}, {1, 1, 0}, {0, 1, 0}},
	}
	if len(m.Faces) != len(want) {
		t.Fatalf("faces = %v, want %d faces", m.Faces, len(want))
	}
	for i, f := range m.Faces {
		if len(f) != len(want[i]) {
			t.Errorf("face %d = %v, want %d corners", i, f, len(want[i]))
			continue
		}
		for j, idx := range f {
			if m.Vertices[idx] != want[i][j] {
				t.Errorf("face %d corner %d = %v, want %v", i, j, m.Vertices[idx], want[i][j])
			}
		}
	}
}

func TestConvertModelWarnsOnEmptyModel(t *testing.T) {
	sources := newSources(t, map[string]string{
		"empty.vmdl": vmdlSource(nil, nil),
	})
	w := newMemWriter()

	core, logs := observer.New(zapcore.WarnLevel)
	conv := NewConverter(defaultOptions(), sources, w, zap.New(core))

	res, err := conv.ConvertModel("empty.vmdl")
	if err != nil {
		t.Fatalf("ConvertModel failed: %v", err)
	}
	if n := logs.FilterMessage("model references no geometry sources").Len(); n != 1 {
		t.Errorf("expected 1 empty model warning, got %d", n)
	}
	if len(w.files) != 0 {
		t.Errorf("expected no artifacts, got %v", w.names())
	}
	if len(res.Skipped) != 1 || res.Skipped[0] != TargetCombined {
		t.Errorf("Skipped = %v, want [combined]", res.Skipped)
	}
}

func TestConvertModelSkipsEmptyTargets(t *testing.T) {
	sources := newSources(t, map[string]string{
		"crate.vmdl": vmdlSource([]string{"floor.dmx"}, nil),
		"floor.dmx":  floorDMX,
	})
	w := newMemWriter()

	core, logs := observer.New(zapcore.InfoLevel)
	opts := Options{MergeThreshold: 0.99, Render: true, Physics: true}
	conv := NewConverter(opts, sources, w, zap.New(core))

	res, err := conv.ConvertModel("crate.vmdl")
	if err != nil {
		t.Fatalf("ConvertModel failed: %v", err)
	}

	if got := w.names(); len(got) != 1 || got[0] != "crate.render.obj" {
		t.Errorf("artifacts = %v, want only crate.render.obj", got)
	}
	if len(res.Skipped) != 1 || res.Skipped[0] != TargetPhysics {
		t.Errorf("Skipped = %v, want [physics]", res.Skipped)
	}
	if n := logs.FilterMessage("no sources for target, nothing written").Len(); n != 1 {
		t.Errorf("expected 1 no-op notice, got %d", n)
	}
}

func TestConvertModelLineSink(t *testing.T) {
	sources := newSources(t, map[string]string{
		"ramp.vmdl": vmdlSource([]string{"floor.dmx"}, nil),
		"floor.dmx": floorDMX,
	})

	var lines []string
	log := logger.NewLineLogger(func(line string) { lines = append(lines, line) }, "info")
	conv := NewConverter(defaultOptions(), sources, newMemWriter(), log)

	if _, err := conv.ConvertModel("ramp.vmdl"); err != nil {
		t.Fatalf("ConvertModel failed: %v", err)
	}

	want := []string{"generated mesh for source", "combined meshes", "merged coplanar triangles", "removed subfaces", "removed duplicate faces"}
	for _, msg := range want {
		found := false
		for _, line := range lines {
			if strings.Contains(line, msg) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("no log line contains %q; got %q", msg, lines)
		}
	}
}

func TestConvertModelSkipsBadSources(t *testing.T) {
	sources := newSources(t, map[string]string{
		"box.vmdl":   vmdlSource([]string{"floor.dmx", "missing.dmx", "broken.dmx", "nopos.dmx"}, nil),
		"floor.dmx":  floorDMX,
		"broken.dmx": `"DmeVertexData" { "faces" "int_array" [ "0", `,
		"nopos.dmx":  `"DmeVertexData" { "faces" "int_array" [ "0", "1", "2", "-1" ] }`,
	})
	w := newMemWriter()

	core, logs := observer.New(zapcore.WarnLevel)
	conv := NewConverter(Options{MergeThreshold: 0.99, Render: true}, sources, w, zap.New(core))

	if _, err := conv.ConvertModel("box.vmdl"); err != nil {
		t.Fatalf("ConvertModel failed: %v", err)
	}

	if n := logs.FilterMessage("skipping source").Len(); n != 3 {
		t.Errorf("expected 3 skipped sources, got %d", n)
	}
	if got := parseArtifact(t, w, "box.render.obj").VertexCount(); got != 4 {
		t.Errorf("render vertices = %d, want 4", got)
	}
}

func TestConvertModelFindsSiblingSources(t *testing.T) {
	sources := newSources(t, map[string]string{
		"models/props/ramp.vmdl": vmdlSource([]string{"floor.dmx"}, nil),
		"models/props/floor.dmx": floorDMX,
	})
	w := newMemWriter()
	conv := NewConverter(Options{MergeThreshold: 0.99, Render: true}, sources, w, nil)

	res, err := conv.ConvertModel("models/props/ramp.vmdl")
	if err != nil {
		t.Fatalf("ConvertModel failed: %v", err)
	}
	if len(res.Artifacts) != 1 || res.Artifacts[0] != "ramp.render.obj" {
		t.Errorf("Artifacts = %v", res.Artifacts)
	}
}

func TestConvertModelErrors(t *testing.T) {
	sources := newSources(t, map[string]string{
		"bad.vmdl": "{ filename = \"unterminated",
	})

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"missing model", "nope.vmdl", assets.ErrNotFound},
		{"malformed model", "bad.vmdl", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := NewConverter(defaultOptions(), sources, newMemWriter(), nil)
			_, err := conv.ConvertModel(tt.path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConvertModelWriteError(t *testing.T) {
	sources := newSources(t, map[string]string{
		"ramp.vmdl": vmdlSource([]string{"floor.dmx"}, nil),
		"floor.dmx": floorDMX,
	})
	w := newMemWriter()
	w.err = errors.New("disk full")

	conv := NewConverter(defaultOptions(), sources, w, nil)
	if _, err := conv.ConvertModel("ramp.vmdl"); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("expected write error, got %v", err)
	}
}

func TestConvertAll(t *testing.T) {
	sources := newSources(t, map[string]string{
		"a.vmdl":    vmdlSource([]string{"floor.dmx"}, nil),
		"b.vmdl":    vmdlSource([]string{"floor.dmx"}, []string{"wall.dmx"}),
		"floor.dmx": floorDMX,
		"wall.dmx":  wallDMX,
	})
	w := newMemWriter()
	conv := NewConverter(defaultOptions(), sources, w, nil)

	results, err := conv.ConvertAll([]string{"a.vmdl", "missing.vmdl", "b.vmdl"})
	if err == nil {
		t.Fatal("expected an error for the missing model")
	}
	if n := len(multierr.Errors(err)); n != 1 {
		t.Errorf("expected 1 aggregated error, got %d", n)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	want := []string{"a.combined.obj", "b.combined.obj"}
	if got := w.names(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("artifacts = %v, want %v", got, want)
	}

	// floor.dmx is shared by both models and built once.
	if hits, _ := sources.Stats(); hits == 0 {
		t.Error("expected source cache hits")
	}
}

func TestConsolidateSnap(t *testing.T) {
	texts := [][]byte{
		[]byte("v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3"),
		[]byte("v 0.01 0 0\nv 1 0 0.01\nv 0 -1 0\nf 1 2 3"),
	}

	tests := []struct {
		name string
		snap bool
		want int
	}{
		{"no snap", false, 6},
		{"snap", true, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := defaultOptions()
			opts.Snap = tt.snap
			conv := NewConverter(opts, assets.NewManager(nil), newMemWriter(), nil)

			m := conv.Consolidate(texts, nil)
			if m.VertexCount() != tt.want {
				t.Errorf("vertices = %d, want %d", m.VertexCount(), tt.want)
			}
		})
	}
}

func TestModelBaseName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"ramp.vmdl", "ramp"},
		{"models/props/ramp.vmdl", "ramp"},
		{"3_ramp.vmdl_c", "3_ramp"},
		{"ramp.v2.vmdl", "ramp"},
		{`models\props\ramp.vmdl`, "ramp"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := ModelBaseName(tt.path); got != tt.want {
				t.Errorf("ModelBaseName(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestTarget(t *testing.T) {
	tests := []struct {
		target Target
		name   string
		file   string
	}{
		{TargetRender, "render", "ramp.render.obj"},
		{TargetPhysics, "physics", "ramp.physics.obj"},
		{TargetCombined, "combined", "ramp.combined.obj"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.target.String() != tt.name {
				t.Errorf("String() = %q, want %q", tt.target.String(), tt.name)
			}
			if got := tt.target.ArtifactName("ramp"); got != tt.file {
				t.Errorf("ArtifactName = %q, want %q", got, tt.file)
			}
		})
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Export.Physics = true
	cfg.Mesh.MergeThreshold = 0.5
	cfg.Mesh.Snap = true
	cfg.Mesh.SnapSize = 0.25

	opts := OptionsFromConfig(cfg)
	want := Options{
		MergeThreshold: 0.5,
		Physics:        true,
		Combined:       true,
		Snap:           true,
		SnapSize:       0.25,
	}
	if opts != want {
		t.Errorf("OptionsFromConfig = %+v, want %+v", opts, want)
	}
	if !opts.Enabled(TargetPhysics) || opts.Enabled(TargetRender) {
		t.Errorf("unexpected Enabled results for %+v", opts)
	}
}
