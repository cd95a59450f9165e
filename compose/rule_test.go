package compose

import (
	"bytes"
	"strings"
	"testing"

	"github.com/soypat/shapekey/mirror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func rule(name string, sources ...string) Rule {
	r := Rule{Name: name, Enabled: true, Type: Copy}
	for _, s := range sources {
		r.Sources = append(r.Sources, Source{Name: s, Value: 1})
	}
	return r
}

func names(rules []Rule) []string {
	out := make([]string, len(rules))
	for i := range rules {
		out[i] = rules[i].Name
	}
	return out
}

func TestOrderChain(t *testing.T) {
	// C depends on B depends on A, given in reverse.
	rules := []Rule{rule("C", "B"), rule("B", "A"), rule("A", "Smile")}
	ordered, cyclic := Order(rules, OrderTopological)
	assert.Empty(t, cyclic)
	assert.Equal(t, []string{"A", "B", "C"}, names(ordered))
}

func TestOrderParentCount(t *testing.T) {
	rules := []Rule{rule("X", "A"), rule("Y", "A", "B"), rule("A", "Smile"), rule("B", "Smile")}
	ordered, cyclic := Order(rules, OrderParentCount)
	assert.Empty(t, cyclic)
	// A is used twice, B once, X and Y never.
	assert.Equal(t, []string{"A", "B", "X", "Y"}, names(ordered))
}

func TestOrderCycle(t *testing.T) {
	rules := []Rule{rule("A", "B"), rule("B", "A"), rule("C", "A"), rule("D", "Smile"), rule("E", "E")}
	ordered, cyclic := Order(rules, OrderTopological)
	assert.Equal(t, []string{"A", "B", "C"}, cyclic)
	assert.ElementsMatch(t, []string{"D", "E"}, names(ordered))
}

func TestSelect(t *testing.T) {
	disabled := rule("Off", "Smile")
	disabled.Enabled = false
	rules := []Rule{
		rule("Smile", "Lips"),
		rule("Lips", "Jaw"),
		rule("Grin", "Smile"),
		rule("Other", "Blink"),
		disabled,
	}
	assert.Equal(t, []string{"Smile"}, names(Select(rules, ScopeActive, "Smile")))
	assert.Equal(t, []string{"Smile", "Lips", "Grin"}, names(Select(rules, ScopeDependent, "Smile")))
	assert.Equal(t, []string{"Smile", "Lips", "Grin", "Other"}, names(Select(rules, ScopeAll, "")))
	assert.Empty(t, Select(rules, ScopeActive, "Off"))
}

func TestReadRulesDefaults(t *testing.T) {
	const doc = `{"version":1,"name":"Face","rules":[
		{"name":"Smile_R","type":"MIRROR","source":[{"name":"Smile_L","value":0.5,"mask":"Lips"}]},
		{"name":"Grin","source":[{"name":"Smile_L"}]}
	]}`
	rules, err := ReadRules(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, Rule{Name: "Smile_R", Enabled: true, Type: Mirror,
		Sources: []Source{{Name: "Smile_L", Value: 0.5, Mask: "Lips"}}}, rules[0])
	assert.Equal(t, Copy, rules[1].Type)
	assert.Equal(t, 1.0, rules[1].Sources[0].Value)
}

func TestReadRulesInvalid(t *testing.T) {
	for _, doc := range []string{
		`{"version":2,"rules":[]}`,
		`{"version":1,"rules":[{"name":"","source":[]}]}`,
		`{"version":1,"rules":[{"name":"A","source":[{"name":"B","value":1.5}]}]}`,
		`{"version":1,"rules":[{"name":"A","type":"SIDEWAYS","source":[]}]}`,
		`not json`,
	} {
		_, err := ReadRules(strings.NewReader(doc))
		assert.ErrorIs(t, err, ErrFormat, doc)
	}
}

func TestWriteRulesRoundTrip(t *testing.T) {
	off := rule("Off", "Smile")
	off.Enabled = false
	rules := []Rule{
		{Name: "Smile_R", Enabled: true, Type: Mirror, Sources: []Source{{Name: "Smile_L", Value: 0.25, Mask: "Lips"}}},
		{Name: "Frown", Enabled: true, Type: Invert, Sources: []Source{{Name: "Smile_L", Value: 1}}},
		off,
	}
	var buf bytes.Buffer
	require.NoError(t, WriteRules(&buf, "Face", rules))
	assert.Contains(t, buf.String(), `"type":"MIRROR"`)
	assert.Contains(t, buf.String(), `"version":1`)
	got, err := ReadRules(&buf)
	require.NoError(t, err)
	assert.Equal(t, rules[:2], got)
}

func TestFilter(t *testing.T) {
	rules := []Rule{rule("A", "B", "Missing"), rule("Missing", "B"), rule("C", "Missing")}
	got := Filter(rules, []string{"A", "B", "C"})
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Name)
	assert.Equal(t, []Source{{Name: "B", Value: 1}}, got[0].Sources)
	assert.Equal(t, "C", got[1].Name)
	assert.Empty(t, got[1].Sources)
}

func TestFromWeights(t *testing.T) {
	r := FromWeights("Combo", []string{"A", "Combo", "B", "C"}, []float64{0.5, 1, 0, 1})
	assert.Equal(t, []Source{{Name: "A", Value: 0.5}, {Name: "C", Value: 1}}, r.Sources)
	assert.True(t, r.Enabled)
}

func TestTransform(t *testing.T) {
	basis := []r3.Vec{{X: -1}, {X: 0}, {X: 1}}
	mix := []r3.Vec{{X: -1, Z: 1}, {X: 0, Z: 1}, {X: 1, Z: 1}}

	got, err := Transform(PlusX, basis, mix, nil)
	require.NoError(t, err)
	assert.Equal(t, []r3.Vec{{X: -1}, {Z: 0.5}, {X: 1, Z: 1}}, got)

	got, err = Transform(MinusX, basis, mix, nil)
	require.NoError(t, err)
	assert.Equal(t, []r3.Vec{{X: -1, Z: 1}, {Z: 0.5}, {X: 1}}, got)

	got, err = Transform(Invert, basis, mix, nil)
	require.NoError(t, err)
	assert.Equal(t, []r3.Vec{{X: -1, Z: -1}, {Z: -1}, {X: 1, Z: -1}}, got)

	_, err = Transform(Mirror, basis, mix, nil)
	assert.Error(t, err)
	p := mirror.Resolve(basis, mirror.PosX, mirror.DefaultTolerance)
	_, err = Transform(Mirror, basis, mix, &p)
	assert.NoError(t, err)

	_, err = Transform(Copy, basis, mix[:2], nil)
	assert.Error(t, err)
}
