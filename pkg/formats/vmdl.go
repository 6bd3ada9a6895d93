// VMDL (KV3 text) model description reader.
package formats

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/Faultbox/vmdl-extractor/pkg/encoding"
)

// VMDL format errors.
var (
	ErrMalformedVMDL = errors.New("malformed VMDL data")
)

// Model document node classes that reference geometry files.
const (
	ClassRenderMeshFile  = "RenderMeshFile"
	ClassPhysicsHullFile = "PhysicsHullFile"
)

// VMDL lists the geometry files referenced by a model document.
type VMDL struct {
	Render  []string // Base names of render mesh DMX files
	Physics []string // Base names of physics hull DMX files
}

// Empty reports whether the model references no geometry.
func (v *VMDL) Empty() bool {
	return len(v.Render) == 0 && len(v.Physics) == 0
}

// LoadVMDL reads and parses a VMDL file from disk.
func LoadVMDL(path string) (*VMDL, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading VMDL file: %w", err)
	}
	return ParseVMDL(data)
}

// ParseVMDL extracts the DMX files referenced by RenderMeshFile and
// PhysicsHullFile nodes. Each class marker claims the next
// `filename = "....dmx"` assignment that follows it; a later marker takes
// over an unclaimed one. Only the base name of each file is kept.
func ParseVMDL(data []byte) (*VMDL, error) {
	tokens, err := tokenize(encoding.DecodeText(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedVMDL, err)
	}

	v := &VMDL{}
	pending := ""
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.kind == tokString && (tok.text == ClassRenderMeshFile || tok.text == ClassPhysicsHullFile) {
			pending = tok.text
			continue
		}

		if pending == "" || tok.kind != tokIdent || tok.text != "filename" || i+2 >= len(tokens) {
			continue
		}
		if tokens[i+1].kind != tokEquals || tokens[i+2].kind != tokString {
			continue
		}
		file := tokens[i+2].text
		if !strings.HasSuffix(strings.ToLower(file), ".dmx") {
			continue
		}

		name := path.Base(strings.ReplaceAll(file, "\\", "/"))
		switch pending {
		case ClassRenderMeshFile:
			v.Render = append(v.Render, name)
		case ClassPhysicsHullFile:
			v.Physics = append(v.Physics, name)
		}
		pending = ""
		i += 2
	}
	return v, nil
}
