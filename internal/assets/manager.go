// Package assets handles source file loading and caching.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/vmdl-extractor/pkg/formats"
	"github.com/Faultbox/vmdl-extractor/pkg/mesh"
)

// Source errors.
var (
	ErrNotFound   = errors.New("source not found")
	ErrNoPosition = errors.New("source has no position data")
)

// Manager resolves source files against one or more file system roots.
type Manager struct {
	roots  []fs.FS
	files  *Cache
	meshes *Cache
	log    *zap.Logger
	mu     sync.RWMutex
}

// NewManager creates a new source manager.
func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		files:  NewCache(),
		meshes: NewCache(),
		log:    log,
	}
}

// AddRoot adds a file system root to the manager.
// Roots are searched in reverse order (last added = highest priority).
func (m *Manager) AddRoot(root fs.FS) {
	m.mu.Lock()
	m.roots = append(m.roots, root)
	m.mu.Unlock()
}

// AddDir adds a directory on disk as a root.
func (m *Manager) AddDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("opening source dir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("opening source dir %s: not a directory", dir)
	}
	m.AddRoot(os.DirFS(dir))
	return nil
}

// Load loads a file from the roots. Names are slash-separated and relative
// to a root.
func (m *Manager) Load(name string) ([]byte, error) {
	// Check cache first
	if data, ok := m.files.Get(name); ok {
		return data, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	// Search roots in reverse order
	for i := len(m.roots) - 1; i >= 0; i-- {
		data, err := fs.ReadFile(m.roots[i], name)
		if err == nil {
			m.files.Set(name, data)
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Exists reports whether any root holds name.
func (m *Manager) Exists(name string) bool {
	if _, ok := m.files.Peek(name); ok {
		return true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.roots) - 1; i >= 0; i-- {
		if info, err := fs.Stat(m.roots[i], name); err == nil && info.Mode().IsRegular() {
			return true
		}
	}
	return false
}

// Mesh returns the OBJ text built from a DMX source: resolved vertex
// positions plus its faces. The result is cached so a source shared by
// several export targets is parsed once.
func (m *Manager) Mesh(name string) ([]byte, error) {
	if text, ok := m.meshes.Get(name); ok {
		return text, nil
	}

	data, err := m.Load(name)
	if err != nil {
		return nil, err
	}

	dmx, err := formats.ParseDMX(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	for _, w := range dmx.Warnings {
		m.log.Warn("recovered malformed source data", zap.String("source", name), zap.String("detail", w))
	}
	if !dmx.HasPosition() {
		return nil, fmt.Errorf("%w: %s", ErrNoPosition, name)
	}

	msh := mesh.FromPositions(dmx.Position(), dmx.Faces, m.log.With(zap.String("source", name)))
	text := mesh.EncodeOBJ(msh)

	m.log.Debug("built mesh from source",
		zap.String("source", name),
		zap.Int("vertices", msh.VertexCount()),
		zap.Int("faces", msh.FaceCount()))

	m.meshes.Set(name, text)
	return text, nil
}

// Stats returns combined hit/miss counts of the file and mesh caches.
func (m *Manager) Stats() (hits, misses int) {
	fh, fm := m.files.Stats()
	mh, mm := m.meshes.Stats()
	return fh + mh, fm + mm
}

// Close drops all roots and cached data.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.roots = nil
	m.files.Clear()
	m.meshes.Clear()
}
