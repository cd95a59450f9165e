package meshstore

import (
	"fmt"

	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/shapekey/compose"
	"github.com/soypat/shapekey/correspond"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Basis returns the basis positions of mesh.
func (s *Store) Basis(mesh string) ([]r3.Vec, error) {
	m, err := s.Mesh(mesh)
	if err != nil {
		return nil, err
	}
	return toR3(m.keys[0].co), nil
}

// Target returns the absolute coordinates of a shape.
func (s *Store) Target(mesh, name string) ([]r3.Vec, error) {
	m, err := s.Mesh(mesh)
	if err != nil {
		return nil, err
	}
	k, err := m.target(name)
	if err != nil {
		return nil, err
	}
	return toR3(k.co), nil
}

// TargetNames returns the shape names of mesh in key order, basis excluded.
func (s *Store) TargetNames(mesh string) ([]string, error) {
	m, err := s.Mesh(mesh)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(m.keys)-1)
	for _, k := range m.keys[1:] {
		names = append(names, k.name)
	}
	return names, nil
}

// ActiveTarget returns the name of the active shape. It is the basis name
// if the basis is active.
func (s *Store) ActiveTarget(mesh string) (string, error) {
	m, err := s.Mesh(mesh)
	if err != nil {
		return "", err
	}
	return m.keys[m.active].name, nil
}

// CreateTarget adds a shape and makes it active. It returns the name given
// to the shape which differs from name if name was taken.
func (s *Store) CreateTarget(mesh, name string, points []r3.Vec) (string, error) {
	m, err := s.Mesh(mesh)
	if err != nil {
		return "", err
	}
	name, err = m.AddShape(name, points)
	if err != nil {
		return "", err
	}
	m.active = len(m.keys) - 1
	return name, nil
}

// WriteTarget overwrites the coordinates of an existing shape.
func (s *Store) WriteTarget(mesh, name string, points []r3.Vec) error {
	m, err := s.Mesh(mesh)
	if err != nil {
		return err
	}
	k, err := m.target(name)
	if err != nil {
		return err
	}
	if len(points) != len(k.co) {
		return ErrLength
	}
	k.co = toMS3(points)
	return nil
}

// TargetState returns the weight, mute flag and mask of a shape.
func (s *Store) TargetState(mesh, name string) (compose.State, error) {
	k, err := s.key(mesh, name)
	if err != nil {
		return compose.State{}, err
	}
	return compose.State{Value: float64(k.value), Mute: k.mute, Mask: k.vgroup}, nil
}

func (s *Store) key(mesh, name string) (*key, error) {
	m, err := s.Mesh(mesh)
	if err != nil {
		return nil, err
	}
	return m.target(name)
}

// SetTargetWeight sets the blend weight of a shape.
func (s *Store) SetTargetWeight(mesh, name string, value float64) error {
	k, err := s.key(mesh, name)
	if err != nil {
		return err
	}
	k.value = float32(value)
	return nil
}

// SetTargetMute mutes or unmutes a shape.
func (s *Store) SetTargetMute(mesh, name string, mute bool) error {
	k, err := s.key(mesh, name)
	if err != nil {
		return err
	}
	k.mute = mute
	return nil
}

// SetTargetMask sets the vertex group masking a shape. An empty group removes the mask.
func (s *Store) SetTargetMask(mesh, name, group string) error {
	k, err := s.key(mesh, name)
	if err != nil {
		return err
	}
	k.vgroup = group
	return nil
}

// EvaluateMix returns the basis plus the weighted deltas of every unmuted shape.
// Masked shapes scale their delta by the vertex group weight. A mask naming a
// missing vertex group has no effect.
func (s *Store) EvaluateMix(mesh string) ([]r3.Vec, error) {
	m, err := s.Mesh(mesh)
	if err != nil {
		return nil, err
	}
	basis := m.keys[0].co
	mix := make([]ms3.Vec, len(basis))
	copy(mix, basis)
	for _, k := range m.keys[1:] {
		if k.mute || k.value == 0 {
			continue
		}
		var mask []float32
		if k.vgroup != "" {
			mask = m.groups[k.vgroup]
		}
		for i := range mix {
			w := k.value
			if mask != nil {
				w *= mask[i]
			}
			if w == 0 {
				continue
			}
			mix[i] = ms3.Add(mix[i], ms3.Scale(w, ms3.Sub(k.co[i], basis[i])))
		}
	}
	return toR3(mix), nil
}

// UVPerVertex returns the UV of each vertex averaged over the face corners
// using it. It returns nil if the mesh has no UV layer.
func (s *Store) UVPerVertex(mesh string) ([]r2.Vec, error) {
	m, err := s.Mesh(mesh)
	if err != nil {
		return nil, err
	}
	if m.loopUVs == nil {
		return nil, nil
	}
	uvs := make([]r2.Vec, len(m.loopUVs))
	for i, uv := range m.loopUVs {
		uvs[i] = r2.Vec{X: float64(uv.X), Y: float64(uv.Y)}
	}
	return correspond.AverageLoopUVs(m.VertexCount(), m.loopVerts, uvs)
}

// Faces returns the polygons of mesh as vertex index lists.
func (s *Store) Faces(mesh string) ([][]int, error) {
	m, err := s.Mesh(mesh)
	if err != nil {
		return nil, err
	}
	return m.faces, nil
}

// VertexGroupWeights returns the per vertex weights of a vertex group.
func (s *Store) VertexGroupWeights(mesh, group string) ([]float64, error) {
	m, err := s.Mesh(mesh)
	if err != nil {
		return nil, err
	}
	w, ok := m.groups[group]
	if !ok {
		return nil, fmt.Errorf("meshstore: vertex group %q not found on mesh %q", group, mesh)
	}
	out := make([]float64, len(w))
	for i, v := range w {
		out[i] = float64(v)
	}
	return out, nil
}

// Rules returns the composition rules stored with mesh.
func (s *Store) Rules(mesh string) ([]compose.Rule, error) {
	m, err := s.Mesh(mesh)
	if err != nil {
		return nil, err
	}
	out := make([]compose.Rule, len(m.rules))
	copy(out, m.rules)
	return out, nil
}

// SetRules replaces the composition rules stored with mesh.
func (s *Store) SetRules(mesh string, rules []compose.Rule) error {
	m, err := s.Mesh(mesh)
	if err != nil {
		return err
	}
	m.rules = append([]compose.Rule(nil), rules...)
	return nil
}
