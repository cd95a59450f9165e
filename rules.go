package shapekey

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/soypat/shapekey/compose"
)

// Compose evaluates the stored rules of mesh within scope, relative to the
// active shape, and writes the composed shapes.
func Compose(store MeshStore, rules RuleStore, mesh string, scope compose.Scope, cfg Config) (compose.Report, error) {
	set, err := rules.Rules(mesh)
	if err != nil {
		return compose.Report{}, err
	}
	var active string
	if scope != compose.ScopeAll {
		if active, err = activeShape(store, mesh); err != nil {
			return compose.Report{}, err
		}
	}
	e := compose.Engine{
		Store:           store,
		Logger:          cfg.logger(),
		Ordering:        cfg.Ordering,
		MirrorTolerance: cfg.MirrorTolerance,
	}
	return e.Compose(mesh, set, scope, active)
}

// CreateRuleFromMix stores a Copy rule for shape name whose sources are
// the shapes currently blended with a non-zero weight.
func CreateRuleFromMix(store MeshStore, rules RuleStore, mesh, name string) (compose.Rule, error) {
	names, err := store.TargetNames(mesh)
	if err != nil {
		return compose.Rule{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	values := make([]float64, len(names))
	found := false
	for i, n := range names {
		found = found || n == name
		s, err := store.TargetState(mesh, n)
		if err != nil {
			return compose.Rule{}, err
		}
		if !s.Mute {
			values[i] = s.Value
		}
	}
	if !found {
		return compose.Rule{}, configErr("shape %q not found on %q", name, mesh)
	}
	rule := compose.FromWeights(name, names, values)
	if len(rule.Sources) == 0 {
		return rule, configErr("no shapes blended on %q", mesh)
	}
	return rule, putRule(rules, mesh, rule)
}

// ImportRules reads a rule document and merges it into the rules of mesh.
// Rules naming shapes missing from mesh are dropped, as are sources naming
// missing shapes. An imported rule replaces the stored rule of the same name;
// if none of its sources exist the stored rule is left without sources. It
// returns the amount of rules imported with at least one source.
func ImportRules(store MeshStore, rules RuleStore, mesh string, r io.Reader, cfg Config) (int, error) {
	read, err := compose.ReadRules(r)
	if err != nil {
		return 0, err
	}
	names, err := store.TargetNames(mesh)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	kept := compose.Filter(read, names)
	if dropped := len(read) - len(kept); dropped > 0 {
		cfg.logger().Debug("dropped rules for missing shapes", slog.String("mesh", mesh), slog.Int("rules", dropped))
	}
	set, err := rules.Rules(mesh)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, rule := range kept {
		if len(rule.Sources) == 0 {
			if stored, ok := compose.Find(set, rule.Name); ok {
				stored.Sources = nil
			}
			continue
		}
		set = mergeRule(set, rule)
		n++
	}
	if err := rules.SetRules(mesh, set); err != nil {
		return 0, err
	}
	return n, nil
}

// ExportRules writes the enabled rules of mesh as a rule document. If only is
// not empty just the rules named in it are written.
func ExportRules(rules RuleStore, mesh string, w io.Writer, only []string) error {
	set, err := rules.Rules(mesh)
	if err != nil {
		return err
	}
	if len(only) > 0 {
		keep := make(map[string]bool, len(only))
		for _, n := range only {
			keep[n] = true
		}
		var filtered []compose.Rule
		for _, r := range set {
			if keep[r.Name] {
				filtered = append(filtered, r)
			}
		}
		set = filtered
	}
	return compose.WriteRules(w, mesh, set)
}

func putRule(rules RuleStore, mesh string, rule compose.Rule) error {
	set, err := rules.Rules(mesh)
	if err != nil {
		return err
	}
	return rules.SetRules(mesh, mergeRule(set, rule))
}

func mergeRule(set []compose.Rule, rule compose.Rule) []compose.Rule {
	if r, ok := compose.Find(set, rule.Name); ok {
		*r = rule
		return set
	}
	return append(set, rule)
}
