// Package compose evaluates composition rules: declarative definitions
// of a shape as a transform of a weighted mix of other shapes.
package compose

import (
	"fmt"
)

// Type is the transform applied to a rule's weighted mix.
type Type int

const (
	// Copy uses the mix as is.
	Copy Type = iota
	// Mirror reflects the mix's delta across the X=0 plane.
	Mirror
	// PlusX keeps the mix on the +X half of the basis.
	PlusX
	// MinusX keeps the mix on the -X half of the basis.
	MinusX
	// Invert reflects the mix's delta through the basis: basis - (mix - basis).
	Invert
)

// typeNames are the interchange literals. Copy is stored as "ALL".
var typeNames = [...]string{"ALL", "MIRROR", "+X", "-X", "INVERT"}

func (t Type) valid() bool { return t >= Copy && t <= Invert }

func (t Type) String() string {
	if !t.valid() {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if !t.valid() {
		return nil, fmt.Errorf("invalid rule type %d", int(t))
	}
	return []byte(typeNames[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Literals are case sensitive.
func (t *Type) UnmarshalText(b []byte) error {
	for i, name := range typeNames {
		if name == string(b) {
			*t = Type(i)
			return nil
		}
	}
	return fmt.Errorf("unknown rule type %q", string(b))
}

// Source is a weighted input of a rule.
type Source struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	// Mask is a vertex group name scaling the source per vertex.
	// Empty means no mask.
	Mask string `json:"mask,omitempty"`
}

// Rule defines the shape Name as Type applied to the mix of Sources.
type Rule struct {
	Name    string
	Enabled bool
	Type    Type
	Sources []Source
}

// Uses reports whether name is one of the rule's sources.
func (r *Rule) Uses(name string) bool {
	for _, s := range r.Sources {
		if s.Name == name {
			return true
		}
	}
	return false
}

// FromWeights returns an enabled Copy rule for name whose sources are the
// shapes with a non-zero weight, excluding name itself. names and values
// are parallel.
func FromWeights(name string, names []string, values []float64) Rule {
	r := Rule{Name: name, Enabled: true, Type: Copy}
	for i, n := range names {
		if n == name || values[i] == 0 {
			continue
		}
		r.Sources = append(r.Sources, Source{Name: n, Value: values[i]})
	}
	return r
}

// Find returns the rule named name.
func Find(rules []Rule, name string) (*Rule, bool) {
	for i := range rules {
		if rules[i].Name == name {
			return &rules[i], true
		}
	}
	return nil, false
}
