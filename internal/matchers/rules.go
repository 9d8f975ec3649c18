package matchers

import (
	"sort"
	"strings"

	"github.com/prasenjit/go-pact/internal/pactspec"
)

// MatchingRules is the set of categories attached to a request or response
type MatchingRules struct {
	categories map[string]*MatchingRuleCategory
	order      []string
}

// NewMatchingRules creates an empty rule set
func NewMatchingRules() *MatchingRules {
	return &MatchingRules{categories: make(map[string]*MatchingRuleCategory)}
}

// AddCategory returns the category called name, creating it when missing
func (r *MatchingRules) AddCategory(name string) *MatchingRuleCategory {
	if c, ok := r.categories[name]; ok {
		return c
	}
	c := NewCategory(name)
	r.categories[name] = c
	r.order = append(r.order, name)
	return c
}

// Category returns the category called name. Missing categories (and a nil
// receiver) yield an empty category so lookups never need a nil check.
func (r *MatchingRules) Category(name string) *MatchingRuleCategory {
	if r == nil {
		return NewCategory(name)
	}
	if c, ok := r.categories[name]; ok {
		return c
	}
	return NewCategory(name)
}

// HasCategory reports whether a non-empty category called name exists
func (r *MatchingRules) HasCategory(name string) bool {
	if r == nil {
		return false
	}
	c, ok := r.categories[name]
	return ok && !c.IsEmpty()
}

// Names returns the category names in insertion order
func (r *MatchingRules) Names() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}

// IsEmpty reports whether no category holds a rule
func (r *MatchingRules) IsEmpty() bool {
	if r == nil {
		return true
	}
	for _, c := range r.categories {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

// ToMap serialises the rule set. V2 and older use the flat
// "$.body.x"/"$.headers.x" shape with one rule per path; V3 and newer use
// the nested category shape.
func (r *MatchingRules) ToMap(version pactspec.Version) map[string]any {
	if r == nil {
		return map[string]any{}
	}
	if version.AtLeast(pactspec.V3) {
		result := make(map[string]any)
		for _, name := range r.order {
			c := r.categories[name]
			if c.IsEmpty() {
				continue
			}
			result[name] = c.ToMap(version)
		}
		return result
	}
	return r.toV2Map()
}

func (r *MatchingRules) toV2Map() map[string]any {
	result := make(map[string]any)
	for _, name := range r.order {
		c := r.categories[name]
		for _, e := range c.entries {
			if e.group.IsEmpty() {
				continue
			}
			key, ok := v2Key(name, e.key)
			if !ok {
				continue
			}
			result[key] = e.group.Rules[0].ToMap(pactspec.V2)
		}
	}
	return result
}

func v2Key(category, key string) (string, bool) {
	switch category {
	case CategoryBody:
		return "$.body" + strings.TrimPrefix(key, "$"), true
	case CategoryHeader:
		return "$.headers." + key, true
	case CategoryQuery:
		return "$.query." + key, true
	case CategoryPath:
		return "$.path", true
	}
	return "", false
}

// Validate collects the version diagnostics of every category, sorted by
// category name
func (r *MatchingRules) Validate(version pactspec.Version) []string {
	if r == nil {
		return nil
	}
	names := r.Names()
	sort.Strings(names)
	var errs []string
	for _, name := range names {
		errs = append(errs, r.categories[name].Validate(version)...)
	}
	return errs
}

// Copy returns a shallow copy whose categories can be extended without
// affecting r. Rule groups are shared.
func (r *MatchingRules) Copy() *MatchingRules {
	out := NewMatchingRules()
	if r == nil {
		return out
	}
	for _, name := range r.order {
		src := r.categories[name]
		dst := out.AddCategory(name)
		for _, e := range src.entries {
			dst.SetRules(e.key, e.group)
		}
	}
	return out
}
