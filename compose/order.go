package compose

import (
	"fmt"
	"sort"
)

// Ordering selects how rules are sequenced so shapes used as sources
// are composed before the shapes built from them.
type Ordering int

const (
	// OrderTopological sorts rules with Kahn's algorithm. Among rules ready
	// to be evaluated those used most often as a source go first, then
	// rule order.
	OrderTopological Ordering = iota
	// OrderParentCount sorts rules by how often they are used as a source,
	// most used first. It is only exact for dependency chains up to two
	// rules long.
	OrderParentCount
)

var orderingNames = [...]string{"topological", "parent_count"}

func (o Ordering) String() string {
	if o < 0 || int(o) >= len(orderingNames) {
		return fmt.Sprintf("Ordering(%d)", int(o))
	}
	return orderingNames[o]
}

// MarshalText implements encoding.TextMarshaler.
func (o Ordering) MarshalText() ([]byte, error) {
	if o < 0 || int(o) >= len(orderingNames) {
		return nil, fmt.Errorf("invalid ordering %d", int(o))
	}
	return []byte(orderingNames[o]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Ordering) UnmarshalText(b []byte) error {
	for i, name := range orderingNames {
		if name == string(b) {
			*o = Ordering(i)
			return nil
		}
	}
	return fmt.Errorf("unknown ordering %q", string(b))
}

// parentCounts returns how many times each name is used as a source by rules.
func parentCounts(rules []Rule) map[string]int {
	count := make(map[string]int)
	for i := range rules {
		for _, s := range rules[i].Sources {
			count[s.Name]++
		}
	}
	return count
}

// Order returns rules in evaluation order. Rules that are part of a dependency
// cycle, or depend on one, cannot be ordered and are returned in cyclic instead.
// Self references are ignored. Rules are identified by name; dependencies on
// shapes without a rule in the set do not constrain the order.
func Order(rules []Rule, ordering Ordering) (ordered []Rule, cyclic []string) {
	byName := make(map[string]int, len(rules))
	for i := range rules {
		byName[rules[i].Name] = i
	}
	count := parentCounts(rules)
	// Edges go from a source rule to the rules using it.
	dependents := make([][]int, len(rules))
	indegree := make([]int, len(rules))
	for i := range rules {
		seen := make(map[int]bool)
		for _, s := range rules[i].Sources {
			j, ok := byName[s.Name]
			if !ok || j == i || seen[j] {
				continue
			}
			seen[j] = true
			dependents[j] = append(dependents[j], i)
			indegree[i]++
		}
	}
	before := func(a, b int) bool {
		ca, cb := count[rules[a].Name], count[rules[b].Name]
		if ca != cb {
			return ca > cb
		}
		return a < b
	}
	var ready, kahn []int
	for i, d := range indegree {
		if d == 0 {
			ready = append(ready, i)
		}
	}
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return before(ready[i], ready[j]) })
		next := ready[0]
		ready = ready[1:]
		kahn = append(kahn, next)
		for _, dep := range dependents[next] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}
	resolved := make([]bool, len(rules))
	for _, i := range kahn {
		resolved[i] = true
	}
	for i := range rules {
		if !resolved[i] {
			cyclic = append(cyclic, rules[i].Name)
		}
	}
	if ordering == OrderParentCount {
		sort.Ints(kahn)
		sort.SliceStable(kahn, func(i, j int) bool {
			return count[rules[kahn[i]].Name] > count[rules[kahn[j]].Name]
		})
	}
	ordered = make([]Rule, len(kahn))
	for i, idx := range kahn {
		ordered[i] = rules[idx]
	}
	return ordered, cyclic
}
