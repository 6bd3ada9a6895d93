// DMX (keyvalues2 text) geometry description parser.
package formats

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/vmdl-extractor/pkg/encoding"
)

// DMX format errors.
var (
	ErrMalformedDMX = errors.New("malformed DMX data")
)

// DMX attribute names and types used for geometry extraction.
const (
	dmxVertexFormat  = "vertexFormat"
	dmxFaces         = "faces"
	dmxStringArray   = "string_array"
	dmxIntArray      = "int_array"
	dmxIndicesSuffix = "Indices"

	// faceSentinel terminates each face in a faces array.
	faceSentinel = -1
)

// DMElement is an element in a keyvalues2 document: a class name followed by
// a block of typed attributes.
type DMElement struct {
	Class      string
	Attributes []*DMAttribute
}

// DMAttribute is a single `"name" "type" value` entry. Exactly one of the
// value fields is set depending on the shape of the value.
type DMAttribute struct {
	Name string
	Type string

	Value    string       // Scalar value
	Array    []string     // Array of scalar values
	Element  *DMElement   // Inline element
	Elements []*DMElement // Inline elements inside an array
}

// IsArray reports whether the attribute value was written as [ ... ].
func (a *DMAttribute) IsArray() bool {
	return strings.HasSuffix(a.Type, "_array")
}

// VertexAttribute is one per-vertex data stream (position, texcoord, ...).
type VertexAttribute struct {
	Name    string      // Base name without the $N suffix
	Values  [][]float64 // One tuple per value entry
	Indices []int       // Per-vertex indices into Values
}

// Resolve returns one tuple per vertex by following Indices into Values.
// When there are no indices, or any index is out of range, Values is
// returned as-is.
func (a *VertexAttribute) Resolve() [][]float64 {
	if len(a.Indices) == 0 {
		return a.Values
	}
	out := make([][]float64, len(a.Indices))
	for i, idx := range a.Indices {
		if idx < 0 || idx >= len(a.Values) {
			return a.Values
		}
		out[i] = a.Values[idx]
	}
	return out
}

// AttributeBlock maps a base attribute name to its data.
type AttributeBlock map[string]*VertexAttribute

// DMX is a parsed geometry description.
type DMX struct {
	Elements []*DMElement // Top-level elements in document order

	// Formats lists the base attribute names declared by the first
	// vertexFormat array, in declaration order. Names may repeat when
	// several streams share a base name (texcoord$0, texcoord$1).
	Formats []string

	Attributes AttributeBlock
	Faces      [][]int // Faces split on the -1 sentinel, in document order

	// Warnings describes attributes and faces dropped because their
	// entries could not be parsed.
	Warnings []string
}

// Position returns the resolved position stream, or nil if absent.
func (d *DMX) Position() [][]float64 {
	attr, ok := d.Attributes["position"]
	if !ok {
		return nil
	}
	return attr.Resolve()
}

// HasPosition reports whether position data was found.
func (d *DMX) HasPosition() bool {
	_, ok := d.Attributes["position"]
	return ok
}

// LoadDMX reads and parses a DMX file from disk.
func LoadDMX(path string) (*DMX, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading DMX file: %w", err)
	}
	return ParseDMX(data)
}

// ParseDMX parses a keyvalues2 text document and extracts its vertex
// attribute streams and face topology. A document without a vertexFormat
// declaration yields an empty attribute block, not an error.
func ParseDMX(data []byte) (*DMX, error) {
	tokens, err := tokenize(encoding.DecodeText(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDMX, err)
	}

	p := &dmxParser{tokens: tokens}
	elements, err := p.document()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDMX, err)
	}

	dmx := &DMX{
		Elements:   elements,
		Attributes: make(AttributeBlock),
	}
	dmx.extract()
	return dmx, nil
}

// walk visits every attribute depth-first in document order.
func (d *DMX) walk(fn func(*DMAttribute)) {
	var visit func(e *DMElement)
	visit = func(e *DMElement) {
		for _, attr := range e.Attributes {
			fn(attr)
			if attr.Element != nil {
				visit(attr.Element)
			}
			for _, child := range attr.Elements {
				visit(child)
			}
		}
	}
	for _, e := range d.Elements {
		visit(e)
	}
}

// Find returns the first attribute with the given name, optionally
// restricted to a type ("" matches any array type).
func (d *DMX) Find(name, typ string) *DMAttribute {
	var found *DMAttribute
	d.walk(func(a *DMAttribute) {
		if found != nil || a.Name != name {
			return
		}
		if (typ == "" && a.IsArray()) || a.Type == typ {
			found = a
		}
	})
	return found
}

// FindAll returns every attribute with the given name and type.
func (d *DMX) FindAll(name, typ string) []*DMAttribute {
	var found []*DMAttribute
	d.walk(func(a *DMAttribute) {
		if a.Name == name && a.Type == typ {
			found = append(found, a)
		}
	})
	return found
}

func (d *DMX) warnf(format string, args ...any) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}

// extract collects vertex attributes and faces from the parsed elements.
// An attribute with an unparsable entry is omitted and a face with an
// unparsable index is dropped; both are recorded in Warnings.
func (d *DMX) extract() {
	if format := d.Find(dmxVertexFormat, dmxStringArray); format != nil {
		for _, entry := range format.Array {
			base, _, _ := strings.Cut(entry, "$")
			d.Formats = append(d.Formats, base)
		}
	}

	for _, base := range d.Formats {
		if _, done := d.Attributes[base]; done {
			continue
		}
		values := d.Find(base+"$0", "")
		indices := d.Find(base+"$0"+dmxIndicesSuffix, dmxIntArray)
		if values == nil || indices == nil {
			continue
		}
		attr, err := parseAttribute(base, values, indices)
		if err != nil {
			d.warnf("dropping attribute %s: %v", base, err)
			continue
		}
		d.Attributes[base] = attr
	}

	for _, block := range d.FindAll(dmxFaces, dmxIntArray) {
		var current []int
		bad := false
		for _, entry := range block.Array {
			idx, err := strconv.Atoi(strings.TrimSpace(entry))
			if err != nil {
				d.warnf("dropping face %d: index %q: %v", len(d.Faces), entry, err)
				bad = true
				continue
			}
			if idx == faceSentinel {
				if len(current) > 0 && !bad {
					d.Faces = append(d.Faces, current)
				}
				current = nil
				bad = false
				continue
			}
			current = append(current, idx)
		}
	}
}

func parseAttribute(base string, values, indices *DMAttribute) (*VertexAttribute, error) {
	attr := &VertexAttribute{Name: base}
	for _, entry := range values.Array {
		tuple, err := parseFloats(entry)
		if err != nil {
			return nil, fmt.Errorf("%s value %q: %w", values.Name, entry, err)
		}
		attr.Values = append(attr.Values, tuple)
	}
	for _, entry := range indices.Array {
		idx, err := strconv.Atoi(strings.TrimSpace(entry))
		if err != nil {
			return nil, fmt.Errorf("%s index %q: %w", indices.Name, entry, err)
		}
		attr.Indices = append(attr.Indices, idx)
	}
	return attr, nil
}

func parseFloats(s string) ([]float64, error) {
	fields := strings.Fields(s)
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// dmxParser is a recursive-descent parser for the keyvalues2 grammar:
//
//	document  = { element }
//	element   = STRING "{" { attribute } "}"
//	attribute = STRING STRING value
//	value     = STRING | "{" { attribute } "}" | "[" [ item { "," item } ] "]"
//	item      = STRING [ "{" { attribute } "}" ]
type dmxParser struct {
	tokens []token
	pos    int
}

func (p *dmxParser) peek() token {
	return p.tokens[p.pos]
}

func (p *dmxParser) advance() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *dmxParser) expect(kind tokenKind) (token, error) {
	tok := p.advance()
	if tok.kind != kind {
		return tok, fmt.Errorf("line %d: expected %s, got %s %q", tok.line, kind, tok.kind, tok.text)
	}
	return tok, nil
}

func (p *dmxParser) document() ([]*DMElement, error) {
	var elements []*DMElement
	for p.peek().kind != tokEOF {
		class, err := p.expect(tokString)
		if err != nil {
			return nil, err
		}
		e, err := p.elementBody(class.text)
		if err != nil {
			return nil, err
		}
		elements = append(elements, e)
	}
	return elements, nil
}

func (p *dmxParser) elementBody(class string) (*DMElement, error) {
	if _, err := p.expect(tokLBrace); err != nil {
		return nil, err
	}
	e := &DMElement{Class: class}
	for {
		switch p.peek().kind {
		case tokRBrace:
			p.advance()
			return e, nil
		case tokEOF:
			return nil, fmt.Errorf("line %d: unterminated element %q", p.peek().line, class)
		}
		attr, err := p.attribute()
		if err != nil {
			return nil, err
		}
		e.Attributes = append(e.Attributes, attr)
	}
}

func (p *dmxParser) attribute() (*DMAttribute, error) {
	name, err := p.expect(tokString)
	if err != nil {
		return nil, err
	}
	typ, err := p.expect(tokString)
	if err != nil {
		return nil, err
	}
	attr := &DMAttribute{Name: name.text, Type: typ.text}

	switch tok := p.peek(); tok.kind {
	case tokString:
		attr.Value = p.advance().text
	case tokLBrace:
		// Inline element: the type slot holds its class name.
		attr.Element, err = p.elementBody(typ.text)
		if err != nil {
			return nil, err
		}
	case tokLBracket:
		if err := p.array(attr); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("line %d: attribute %q: unexpected %s", tok.line, name.text, tok.kind)
	}
	return attr, nil
}

func (p *dmxParser) array(attr *DMAttribute) error {
	p.advance() // [
	attr.Array = []string{}
	for {
		tok := p.advance()
		switch tok.kind {
		case tokRBracket:
			return nil
		case tokComma:
			continue
		case tokString:
			if p.peek().kind == tokLBrace {
				e, err := p.elementBody(tok.text)
				if err != nil {
					return err
				}
				attr.Elements = append(attr.Elements, e)
				continue
			}
			attr.Array = append(attr.Array, tok.text)
		case tokEOF:
			return fmt.Errorf("line %d: unterminated array %q", tok.line, attr.Name)
		default:
			return fmt.Errorf("line %d: array %q: unexpected %s", tok.line, attr.Name, tok.kind)
		}
	}
}
