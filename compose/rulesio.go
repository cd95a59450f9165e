package compose

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// FormatVersion is the rule interchange document version written by WriteRules.
const FormatVersion = 1

// ErrFormat is returned when a rule document fails validation.
var ErrFormat = errors.New("compose: invalid rule document")

type document struct {
	Version int        `json:"version"`
	Name    string     `json:"name"`
	Rules   []ruleJSON `json:"rules"`
}

type ruleJSON struct {
	Name   string       `json:"name"`
	Type   *Type        `json:"type,omitempty"`
	Source []sourceJSON `json:"source"`
}

type sourceJSON struct {
	Name  string   `json:"name"`
	Value *float64 `json:"value,omitempty"`
	Mask  string   `json:"mask,omitempty"`
}

// ReadRules decodes a rule interchange document. Rules without a type are
// Copy rules and sources without a value have weight 1. Rules read are enabled.
func ReadRules(r io.Reader) ([]Rule, error) {
	var doc document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if doc.Version > FormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrFormat, doc.Version)
	}
	rules := make([]Rule, 0, len(doc.Rules))
	for i, rj := range doc.Rules {
		if rj.Name == "" {
			return nil, fmt.Errorf("%w: rule %d has no name", ErrFormat, i)
		}
		rule := Rule{Name: rj.Name, Enabled: true, Type: Copy}
		if rj.Type != nil {
			rule.Type = *rj.Type
		}
		for _, sj := range rj.Source {
			src := Source{Name: sj.Name, Value: 1, Mask: sj.Mask}
			if sj.Value != nil {
				src.Value = *sj.Value
			}
			if src.Value < 0 || src.Value > 1 {
				return nil, fmt.Errorf("%w: rule %q source %q weight %g outside [0,1]", ErrFormat, rj.Name, sj.Name, src.Value)
			}
			rule.Sources = append(rule.Sources, src)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// WriteRules encodes the enabled rules as an interchange document titled name.
func WriteRules(w io.Writer, name string, rules []Rule) error {
	doc := document{
		Version: FormatVersion,
		Name:    name,
		Rules:   []ruleJSON{},
	}
	for i := range rules {
		r := &rules[i]
		if !r.Enabled {
			continue
		}
		typ := r.Type
		if !typ.valid() {
			return fmt.Errorf("compose: rule %q has invalid type %d", r.Name, int(typ))
		}
		rj := ruleJSON{Name: r.Name, Type: &typ, Source: make([]sourceJSON, len(r.Sources))}
		for j, s := range r.Sources {
			v := s.Value
			rj.Source[j] = sourceJSON{Name: s.Name, Value: &v, Mask: s.Mask}
		}
		doc.Rules = append(doc.Rules, rj)
	}
	return json.NewEncoder(w).Encode(doc)
}

// Filter keeps the rules whose name is in names, dropping sources not in
// names. A rule left without sources is kept with none.
func Filter(rules []Rule, names []string) []Rule {
	exists := make(map[string]bool, len(names))
	for _, n := range names {
		exists[n] = true
	}
	var out []Rule
	for _, r := range rules {
		if !exists[r.Name] {
			continue
		}
		var sources []Source
		for _, s := range r.Sources {
			if exists[s.Name] {
				sources = append(sources, s)
			}
		}
		r.Sources = sources
		out = append(out, r)
	}
	return out
}
