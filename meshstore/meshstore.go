// Package meshstore is an in-memory mesh store holding shape keys the
// way a host application does: float32 vertex buffers, one basis key
// followed by relative shape keys with a weight, mute flag and vertex
// group mask each.
package meshstore

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms2"
	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/shapekey/compose"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	ErrNoMesh   = errors.New("meshstore: mesh not found")
	ErrNoTarget = errors.New("meshstore: shape not found")
	ErrExists   = errors.New("meshstore: mesh already exists")
	ErrLength   = errors.New("meshstore: point count differs from vertex count")
)

// BasisName is the name given to the basis key.
const BasisName = "Basis"

type key struct {
	name   string
	co     []ms3.Vec
	value  float32
	mute   bool
	vgroup string
}

// Mesh is a mesh held by a Store.
type Mesh struct {
	name      string
	keys      []*key // keys[0] is the basis.
	active    int
	faces     [][]int
	loopVerts []int
	loopUVs   []ms2.Vec
	groups    map[string][]float32
	rules     []compose.Rule
}

// Store holds meshes by name. It is not safe for concurrent use.
type Store struct {
	meshes map[string]*Mesh
}

// New returns an empty Store.
func New() *Store {
	return &Store{meshes: make(map[string]*Mesh)}
}

// AddMesh adds a mesh with the given basis positions and polygons.
func (s *Store) AddMesh(name string, basis []r3.Vec, faces [][]int) (*Mesh, error) {
	if _, ok := s.meshes[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrExists, name)
	}
	m := &Mesh{
		name:   name,
		keys:   []*key{{name: BasisName, co: toMS3(basis)}},
		faces:  faces,
		groups: make(map[string][]float32),
	}
	s.meshes[name] = m
	return m, nil
}

// Mesh returns the mesh named name.
func (s *Store) Mesh(name string) (*Mesh, error) {
	m, ok := s.meshes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoMesh, name)
	}
	return m, nil
}

// Name returns the mesh name.
func (m *Mesh) Name() string { return m.name }

// VertexCount returns the amount of vertices of the mesh.
func (m *Mesh) VertexCount() int { return len(m.keys[0].co) }

// AddShape adds a shape key with absolute coordinates points and returns its
// name, which gets a numeric suffix if name is taken.
func (m *Mesh) AddShape(name string, points []r3.Vec) (string, error) {
	if len(points) != m.VertexCount() {
		return "", ErrLength
	}
	name = m.uniqueName(name)
	m.keys = append(m.keys, &key{name: name, co: toMS3(points)})
	return name, nil
}

// SetActive sets the active shape key.
func (m *Mesh) SetActive(name string) error {
	i := m.find(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrNoTarget, name)
	}
	m.active = i
	return nil
}

// SetUVLoops sets the UV coordinate of each face corner. loopVerts holds
// the vertex index of each corner.
func (m *Mesh) SetUVLoops(loopVerts []int, uvs []r2.Vec) error {
	if len(loopVerts) != len(uvs) {
		return errors.New("meshstore: loop vertex and UV counts differ")
	}
	m.loopVerts = append([]int(nil), loopVerts...)
	m.loopUVs = make([]ms2.Vec, len(uvs))
	for i, uv := range uvs {
		m.loopUVs[i] = ms2.Vec{X: float32(uv.X), Y: float32(uv.Y)}
	}
	return nil
}

// SetFaceUVs sets loops from the mesh faces using one UV per face corner,
// in face order.
func (m *Mesh) SetFaceUVs(uvs []r2.Vec) error {
	var loopVerts []int
	for _, f := range m.faces {
		loopVerts = append(loopVerts, f...)
	}
	return m.SetUVLoops(loopVerts, uvs)
}

// SetVertexGroup sets the per vertex weights of a vertex group.
// Weights are clamped to [0,1].
func (m *Mesh) SetVertexGroup(name string, weights []float64) error {
	if len(weights) != m.VertexCount() {
		return ErrLength
	}
	w := make([]float32, len(weights))
	for i, v := range weights {
		w[i] = math32.Max(0, math32.Min(1, float32(v)))
	}
	m.groups[name] = w
	return nil
}

func (m *Mesh) find(name string) int {
	for i, k := range m.keys {
		if k.name == name {
			return i
		}
	}
	return -1
}

func (m *Mesh) uniqueName(name string) string {
	if m.find(name) < 0 {
		return name
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s.%03d", name, i)
		if m.find(candidate) < 0 {
			return candidate
		}
	}
}

// target returns a non basis key.
func (m *Mesh) target(name string) (*key, error) {
	i := m.find(name)
	if i <= 0 {
		return nil, fmt.Errorf("%w: %q on mesh %q", ErrNoTarget, name, m.name)
	}
	return m.keys[i], nil
}

func toMS3(points []r3.Vec) []ms3.Vec {
	out := make([]ms3.Vec, len(points))
	for i, p := range points {
		out[i] = ms3.Vec{X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z)}
	}
	return out
}

func toR3(points []ms3.Vec) []r3.Vec {
	out := make([]r3.Vec, len(points))
	for i, p := range points {
		out[i] = r3.Vec{X: float64(p.X), Y: float64(p.Y), Z: float64(p.Z)}
	}
	return out
}
