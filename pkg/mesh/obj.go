package mesh

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// EncodeOBJ serializes m as Wavefront OBJ text: one "v x y z" line per vertex
// followed by one "f i1 i2 ... ik" line per face with 1-based indices.
// Lines are newline separated without a trailing newline.
func EncodeOBJ(m *Mesh) []byte {
	var buf bytes.Buffer
	// bytes.Buffer writes never fail.
	_ = WriteOBJ(&buf, m)
	return buf.Bytes()
}

// WriteOBJ writes m to w in the format produced by EncodeOBJ.
func WriteOBJ(w io.Writer, m *Mesh) error {
	bw := bufio.NewWriter(w)
	line := make([]byte, 0, 64)
	first := true

	next := func() {
		if !first {
			line = append(line, '\n')
		}
		first = false
	}

	for _, v := range m.Vertices {
		next()
		line = append(line, 'v')
		for _, c := range v {
			line = append(line, ' ')
			line = strconv.AppendFloat(line, c, 'g', -1, 64)
		}
		if _, err := bw.Write(line); err != nil {
			return err
		}
		line = line[:0]
	}

	for _, f := range m.Faces {
		next()
		line = append(line, 'f')
		for _, idx := range f {
			line = append(line, ' ')
			line = strconv.AppendInt(line, int64(idx+1), 10)
		}
		if _, err := bw.Write(line); err != nil {
			return err
		}
		line = line[:0]
	}

	return bw.Flush()
}

// ParseOBJ parses vertex positions and faces from OBJ text. Face tokens may
// carry "/"-separated texture and normal indices, which are dropped. Lines
// other than "v " and "f " lines are ignored.
func ParseOBJ(data []byte) (*Mesh, error) {
	m := &Mesh{}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "v "):
			fields := strings.Fields(line)
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: vertex needs 3 components: %w", lineNo, ErrMalformedOBJ)
			}
			var v Vertex
			for i := 0; i < 3; i++ {
				c, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w: %v", lineNo, ErrMalformedOBJ, err)
				}
				v[i] = c
			}
			m.Vertices = append(m.Vertices, v)

		case strings.HasPrefix(line, "f "):
			fields := strings.Fields(line)[1:]
			face := make(Face, len(fields))
			for i, tok := range fields {
				if slash := strings.IndexByte(tok, '/'); slash >= 0 {
					tok = tok[:slash]
				}
				idx, err := strconv.Atoi(tok)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w: %v", lineNo, ErrMalformedOBJ, err)
				}
				face[i] = idx - 1
			}
			m.Faces = append(m.Faces, face)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading OBJ: %w", err)
	}

	return m, nil
}
