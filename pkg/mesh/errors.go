package mesh

import "errors"

// Mesh errors.
var (
	ErrMalformedOBJ    = errors.New("malformed OBJ data")
	ErrShortFace       = errors.New("face has fewer than 3 indices")
	ErrIndexOutOfRange = errors.New("face index out of range")
)
