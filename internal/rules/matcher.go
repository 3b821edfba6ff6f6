// Package rules loads pattern->category rule tables and resolves raw
// entity strings against them by substring containment.
package rules

import (
	"sort"
	"strings"

	"talous/internal/core"
)

// Normalize lowercases, trims and collapses internal whitespace runs to
// single spaces. Hyphens and other punctuation are preserved, so
// "S-Market  KAMPPI " normalizes to "s-market kamppi".
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// AmbiguityPolicy decides what happens when more than one rule pattern is
// contained in the needle.
type AmbiguityPolicy string

const (
	// AmbiguityReject treats multiple matches as no match, routing the
	// entity to human review instead of guessing. This is the default:
	// it requires rule maintainers to keep patterns non-overlapping but
	// never auto-posts on an ambiguous name.
	AmbiguityReject AmbiguityPolicy = "reject"
	// AmbiguityPreferLongest always returns the match with the longest
	// pattern, on the theory that the most specific pattern wins.
	AmbiguityPreferLongest AmbiguityPolicy = "preferLongest"
)

// Valid reports whether p is a known policy.
func (p AmbiguityPolicy) Valid() bool {
	return p == AmbiguityReject || p == AmbiguityPreferLongest
}

// Matcher resolves normalized entity strings to at most one rule.
// Immutable after construction; safe for concurrent use.
type Matcher struct {
	rules  []core.Rule
	policy AmbiguityPolicy
}

// NewMatcher builds a matcher over the given rules. Rules with empty
// patterns are dropped. Under AmbiguityPreferLongest the rules are kept
// sorted by descending pattern length so the first containment hit is the
// longest one.
func NewMatcher(rules []core.Rule, policy AmbiguityPolicy) *Matcher {
	if !policy.Valid() {
		policy = AmbiguityReject
	}
	kept := make([]core.Rule, 0, len(rules))
	for _, r := range rules {
		r.Pattern = Normalize(r.Pattern)
		if r.Pattern == "" {
			continue
		}
		kept = append(kept, r)
	}
	if policy == AmbiguityPreferLongest {
		sort.SliceStable(kept, func(i, j int) bool {
			return len(kept[i].Pattern) > len(kept[j].Pattern)
		})
	}
	return &Matcher{rules: kept, policy: policy}
}

// Find resolves needle (normalized internally) to a rule. The second
// return value is false when zero rules match, or when more than one
// matches under AmbiguityReject.
func (m *Matcher) Find(needle string) (core.Rule, bool) {
	needle = Normalize(needle)
	if needle == "" {
		return core.Rule{}, false
	}

	if m.policy == AmbiguityPreferLongest {
		for _, r := range m.rules {
			if strings.Contains(needle, r.Pattern) {
				return r, true
			}
		}
		return core.Rule{}, false
	}

	var found core.Rule
	n := 0
	for _, r := range m.rules {
		if strings.Contains(needle, r.Pattern) {
			found = r
			n++
			if n > 1 {
				return core.Rule{}, false
			}
		}
	}
	if n == 1 {
		return found, true
	}
	return core.Rule{}, false
}

// Len returns the number of loaded rules.
func (m *Matcher) Len() int {
	return len(m.rules)
}
