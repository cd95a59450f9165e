package compose

import "fmt"

// Scope selects which rules a composition evaluates.
type Scope int

const (
	// ScopeActive evaluates the active shape's rule only.
	ScopeActive Scope = iota
	// ScopeDependent evaluates the active shape's rule, the rules using the
	// active shape as a source and the rules those depend on.
	ScopeDependent
	// ScopeAll evaluates every rule.
	ScopeAll
)

func (s Scope) String() string {
	switch s {
	case ScopeActive:
		return "ACTIVE"
	case ScopeDependent:
		return "DEPENDENT"
	case ScopeAll:
		return "ALL"
	}
	return fmt.Sprintf("Scope(%d)", int(s))
}

// Select returns the enabled rules of scope relative to the active shape.
// The relative order of rules is preserved.
func Select(rules []Rule, scope Scope, active string) []Rule {
	pick := make([]bool, len(rules))
	switch scope {
	case ScopeAll:
		for i := range pick {
			pick[i] = true
		}
	case ScopeActive:
		for i := range rules {
			pick[i] = rules[i].Name == active
		}
	case ScopeDependent:
		for i := range rules {
			pick[i] = rules[i].Name == active || rules[i].Uses(active)
		}
		// Add the sources of the rules selected so far.
		current := make([]bool, len(pick))
		copy(current, pick)
		for i := range rules {
			for j := range rules {
				if current[j] && rules[j].Uses(rules[i].Name) {
					pick[i] = true
					break
				}
			}
		}
	}
	var out []Rule
	for i := range rules {
		if pick[i] && rules[i].Enabled {
			out = append(out, rules[i])
		}
	}
	return out
}
