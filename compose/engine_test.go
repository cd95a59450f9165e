package compose_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/soypat/shapekey/compose"
	"github.com/soypat/shapekey/meshstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// float32 storage.
const tol = 1e-5

func assertPoints(t *testing.T, want, got []r3.Vec) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDeltaf(t, 0, r3.Norm(r3.Sub(want[i], got[i])), tol, "vertex %d: got %v want %v", i, got[i], want[i])
	}
}

func newMesh(t *testing.T, basis []r3.Vec) (*meshstore.Store, *meshstore.Mesh) {
	t.Helper()
	s := meshstore.New()
	m, err := s.AddMesh("Face", basis, nil)
	require.NoError(t, err)
	return s, m
}

func addShape(t *testing.T, m *meshstore.Mesh, name string, points []r3.Vec) {
	t.Helper()
	got, err := m.AddShape(name, points)
	require.NoError(t, err)
	require.Equal(t, name, got)
}

func copyRule(name string, sources ...string) compose.Rule {
	r := compose.Rule{Name: name, Enabled: true, Type: compose.Copy}
	for _, s := range sources {
		r.Sources = append(r.Sources, compose.Source{Name: s, Value: 1})
	}
	return r
}

func TestComposeCopyIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	basis := make([]r3.Vec, 100)
	blink := make([]r3.Vec, 100)
	for i := range basis {
		basis[i] = r3.Vec{X: rng.Float64()*2 - 1, Y: rng.Float64()*2 - 1, Z: rng.Float64()}
		blink[i] = r3.Add(basis[i], r3.Vec{Y: rng.Float64() * 0.1, Z: -rng.Float64() * 0.1})
	}
	s, m := newMesh(t, basis)
	addShape(t, m, "Blink", blink)
	addShape(t, m, "Blink_Copy", basis)

	e := compose.Engine{Store: s}
	rules := []compose.Rule{copyRule("Blink_Copy", "Blink")}
	for i := 0; i < 2; i++ {
		rep, err := e.Compose("Face", rules, compose.ScopeAll, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"Blink_Copy"}, rep.Applied)
		got, err := s.Target("Face", "Blink_Copy")
		require.NoError(t, err)
		assertPoints(t, blink, got)
	}
}

func TestComposeMirror(t *testing.T) {
	var basis, left, want []r3.Vec
	for i := 0; i < 5; i++ {
		y := float64(i)
		basis = append(basis, r3.Vec{X: 1 + y, Y: y}, r3.Vec{X: -1 - y, Y: y})
		left = append(left, r3.Vec{X: 1.1 + y, Y: y + 0.2}, r3.Vec{X: -1 - y, Y: y})
		want = append(want, r3.Vec{X: 1 + y, Y: y}, r3.Vec{X: -1.1 - y, Y: y + 0.2})
	}
	s, m := newMesh(t, basis)
	addShape(t, m, "Smile_L", left)
	addShape(t, m, "Smile_R", basis)

	e := compose.Engine{Store: s}
	rules := []compose.Rule{{Name: "Smile_R", Enabled: true, Type: compose.Mirror,
		Sources: []compose.Source{{Name: "Smile_L", Value: 1}}}}
	_, err := e.Compose("Face", rules, compose.ScopeActive, "Smile_R")
	require.NoError(t, err)
	got, _ := s.Target("Face", "Smile_R")
	assertPoints(t, want, got)
}

func TestComposeHemisphereCenter(t *testing.T) {
	basis := []r3.Vec{{X: -1}, {X: 0}, {X: 1}}
	up := []r3.Vec{{X: -1, Z: 1}, {X: 0, Z: 1}, {X: 1, Z: 1}}
	s, m := newMesh(t, basis)
	addShape(t, m, "Brow", up)
	addShape(t, m, "Brow_R", basis)
	e := compose.Engine{Store: s}
	rules := []compose.Rule{{Name: "Brow_R", Enabled: true, Type: compose.PlusX,
		Sources: []compose.Source{{Name: "Brow", Value: 1}}}}
	_, err := e.Compose("Face", rules, compose.ScopeAll, "")
	require.NoError(t, err)
	got, _ := s.Target("Face", "Brow_R")
	assertPoints(t, []r3.Vec{{X: -1}, {Z: 0.5}, {X: 1, Z: 1}}, got)
}

func TestComposeCycle(t *testing.T) {
	basis := []r3.Vec{{X: 1}, {X: 2}}
	s, m := newMesh(t, basis)
	moved := []r3.Vec{{X: 1, Y: 1}, {X: 2, Y: 1}}
	addShape(t, m, "Base", moved)
	for _, name := range []string{"A", "B", "C"} {
		addShape(t, m, name, basis)
	}
	e := compose.Engine{Store: s}
	rules := []compose.Rule{copyRule("A", "B"), copyRule("B", "A"), copyRule("C", "Base")}
	rep, err := e.Compose("Face", rules, compose.ScopeAll, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, rep.Cyclic)
	assert.Equal(t, []string{"C"}, rep.Applied)
	a, _ := s.Target("Face", "A")
	assertPoints(t, basis, a)
	c, _ := s.Target("Face", "C")
	assertPoints(t, moved, c)
}

func TestComposeMissingSource(t *testing.T) {
	basis := []r3.Vec{{X: 1}, {X: 2}}
	s, m := newMesh(t, basis)
	moved := []r3.Vec{{X: 1, Z: 1}, {X: 2, Z: 1}}
	addShape(t, m, "Base", moved)
	addShape(t, m, "Half", basis)
	addShape(t, m, "Orphan", basis)
	e := compose.Engine{Store: s}
	rules := []compose.Rule{
		{Name: "Half", Enabled: true, Sources: []compose.Source{{Name: "Gone", Value: 1}, {Name: "Base", Value: 0.5}}},
		copyRule("Orphan", "Gone"),
		copyRule("NoShape", "Base"),
	}
	rep, err := e.Compose("Face", rules, compose.ScopeAll, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Half"}, rep.Applied)
	assert.ElementsMatch(t, []string{"Orphan", "NoShape"}, rep.Excluded)
	got, _ := s.Target("Face", "Half")
	assertPoints(t, []r3.Vec{{X: 1, Z: 0.5}, {X: 2, Z: 0.5}}, got)
}

// failingStore fails writes to one shape.
type failingStore struct {
	*meshstore.Store
	fail string
}

var errWrite = errors.New("write refused")

func (f failingStore) WriteTarget(mesh, name string, points []r3.Vec) error {
	if name == f.fail {
		return errWrite
	}
	return f.Store.WriteTarget(mesh, name, points)
}

func TestComposeRestoresState(t *testing.T) {
	basis := []r3.Vec{{X: 1}, {X: 2}}
	s, m := newMesh(t, basis)
	addShape(t, m, "Base", []r3.Vec{{X: 1, Z: 1}, {X: 2, Z: 1}})
	addShape(t, m, "Derived", basis)
	require.NoError(t, m.SetVertexGroup("Lips", []float64{1, 0.5}))
	require.NoError(t, s.SetTargetWeight("Face", "Base", 0.3))
	require.NoError(t, s.SetTargetMask("Face", "Base", "Lips"))
	require.NoError(t, s.SetTargetWeight("Face", "Derived", 0.7))
	require.NoError(t, s.SetTargetMute("Face", "Derived", true))
	want := map[string]compose.State{
		"Base":    {Value: 0.3, Mask: "Lips"},
		"Derived": {Value: 0.7, Mute: true},
	}
	check := func() {
		t.Helper()
		for name, w := range want {
			got, err := s.TargetState("Face", name)
			require.NoError(t, err)
			assert.InDelta(t, w.Value, got.Value, 1e-6, name)
			assert.Equal(t, w.Mute, got.Mute, name)
			assert.Equal(t, w.Mask, got.Mask, name)
		}
	}
	rules := []compose.Rule{copyRule("Derived", "Base")}

	e := compose.Engine{Store: s}
	_, err := e.Compose("Face", rules, compose.ScopeAll, "")
	require.NoError(t, err)
	check()
	got, _ := s.Target("Face", "Derived")
	assertPoints(t, []r3.Vec{{X: 1, Z: 1}, {X: 2, Z: 1}}, got)

	e.Store = failingStore{Store: s, fail: "Derived"}
	_, err = e.Compose("Face", rules, compose.ScopeAll, "")
	assert.ErrorIs(t, err, errWrite)
	check()
}

func TestComposeMaskedSource(t *testing.T) {
	basis := []r3.Vec{{X: 1}, {X: 2}}
	s, m := newMesh(t, basis)
	addShape(t, m, "Base", []r3.Vec{{X: 1, Z: 1}, {X: 2, Z: 1}})
	addShape(t, m, "Lips_Only", basis)
	require.NoError(t, m.SetVertexGroup("Lips", []float64{1, 0.5}))

	e := compose.Engine{Store: s}
	rules := []compose.Rule{{Name: "Lips_Only", Enabled: true, Type: compose.Copy,
		Sources: []compose.Source{{Name: "Base", Value: 1, Mask: "Lips"}}}}
	rep, err := e.Compose("Face", rules, compose.ScopeAll, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Lips_Only"}, rep.Applied)
	got, _ := s.Target("Face", "Lips_Only")
	assertPoints(t, []r3.Vec{{X: 1, Z: 1}, {X: 2, Z: 0.5}}, got)

	state, err := s.TargetState("Face", "Base")
	require.NoError(t, err)
	assert.Empty(t, state.Mask)
}
