package matchers

import (
	"strings"

	"github.com/ohler55/ojg/jp"

	"github.com/prasenjit/go-pact/internal/pactspec"
)

// Category names
const (
	CategoryMethod   = "method"
	CategoryPath     = "path"
	CategoryHeader   = "header"
	CategoryQuery    = "query"
	CategoryBody     = "body"
	CategoryStatus   = "status"
	CategoryMetadata = "metadata"
)

// IsUnkeyed reports whether a category holds a single group under the empty
// key
func IsUnkeyed(category string) bool {
	return category == CategoryPath || category == CategoryStatus || category == CategoryMethod
}

// RuleLogic is how the rules of a group combine
type RuleLogic int

const (
	And RuleLogic = iota
	Or
)

func (l RuleLogic) String() string {
	if l == Or {
		return "OR"
	}
	return "AND"
}

// ParseRuleLogic parses "AND"/"OR", defaulting to And
func ParseRuleLogic(s string) RuleLogic {
	if strings.EqualFold(s, "OR") {
		return Or
	}
	return And
}

// MatchingRuleGroup is an ordered list of rules and how they combine
type MatchingRuleGroup struct {
	Rules     []MatchingRule
	RuleLogic RuleLogic
}

// NewGroup creates a group
func NewGroup(logic RuleLogic, rules ...MatchingRule) *MatchingRuleGroup {
	return &MatchingRuleGroup{Rules: rules, RuleLogic: logic}
}

// Add appends a rule to the group
func (g *MatchingRuleGroup) Add(rule MatchingRule) {
	g.Rules = append(g.Rules, rule)
}

// IsEmpty reports whether the group has no rules
func (g *MatchingRuleGroup) IsEmpty() bool {
	return g == nil || len(g.Rules) == 0
}

// Has reports whether any rule satisfies pred
func (g *MatchingRuleGroup) Has(pred func(MatchingRule) bool) bool {
	if g == nil {
		return false
	}
	for _, r := range g.Rules {
		if pred(r) {
			return true
		}
	}
	return false
}

// ToMap serialises the group in the V3+ shape
func (g *MatchingRuleGroup) ToMap(version pactspec.Version) map[string]any {
	rules := make([]any, len(g.Rules))
	for i, r := range g.Rules {
		rules[i] = r.ToMap(version)
	}
	return map[string]any{"matchers": rules, "combine": g.RuleLogic.String()}
}

// ValidateForVersion collects the diagnostics of every rule
func (g *MatchingRuleGroup) ValidateForVersion(version pactspec.Version) []string {
	return validateRules(g.Rules, version)
}

type categoryEntry struct {
	key   string
	group *MatchingRuleGroup
	expr  jp.Expr
	// set when key could not be parsed as a path expression
	invalid bool
}

// MatchingRuleCategory holds the rule groups of one category keyed by path
// or name, in insertion order
type MatchingRuleCategory struct {
	Name    string
	entries []*categoryEntry
	index   map[string]int
}

// NewCategory creates an empty category
func NewCategory(name string) *MatchingRuleCategory {
	return &MatchingRuleCategory{Name: name, index: make(map[string]int)}
}

func (c *MatchingRuleCategory) normalise(key string) string {
	if IsUnkeyed(c.Name) {
		return ""
	}
	if c.Name == CategoryBody && key == "" {
		return "$"
	}
	return key
}

// AddRule appends rule to the group at key, creating it with logic And when
// it does not exist. Unkeyed categories ignore key.
func (c *MatchingRuleCategory) AddRule(key string, rule MatchingRule) *MatchingRuleCategory {
	key = c.normalise(key)
	if i, ok := c.index[key]; ok {
		c.entries[i].group.Add(rule)
		return c
	}
	return c.SetRules(key, NewGroup(And, rule))
}

// SetRules replaces the group at key
func (c *MatchingRuleCategory) SetRules(key string, group *MatchingRuleGroup) *MatchingRuleCategory {
	key = c.normalise(key)
	if i, ok := c.index[key]; ok {
		c.entries[i].group = group
		return c
	}

	entry := &categoryEntry{key: key, group: group}
	if c.Name == CategoryBody {
		expr, err := jp.ParseString(key)
		if err != nil {
			entry.invalid = true
		} else {
			entry.expr = expr
		}
	}
	c.index[key] = len(c.entries)
	c.entries = append(c.entries, entry)
	return c
}

// Get returns the group stored under exactly key
func (c *MatchingRuleCategory) Get(key string) (*MatchingRuleGroup, bool) {
	if c == nil {
		return nil, false
	}
	i, ok := c.index[c.normalise(key)]
	if !ok {
		return nil, false
	}
	return c.entries[i].group, true
}

// Keys returns the stored keys in insertion order
func (c *MatchingRuleCategory) Keys() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, len(c.entries))
	for i, e := range c.entries {
		keys[i] = e.key
	}
	return keys
}

// Len returns the number of stored groups
func (c *MatchingRuleCategory) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// IsEmpty reports whether the category has no rules at all
func (c *MatchingRuleCategory) IsEmpty() bool {
	if c == nil {
		return true
	}
	for _, e := range c.entries {
		if !e.group.IsEmpty() {
			return false
		}
	}
	return true
}

// Filter returns a new category holding the entries whose key satisfies pred
func (c *MatchingRuleCategory) Filter(pred func(key string) bool) *MatchingRuleCategory {
	out := NewCategory(c.Name)
	for _, e := range c.entries {
		if pred(e.key) {
			out.SetRules(e.key, e.group)
		}
	}
	return out
}

// ToMap serialises the category in the V3+ nested shape. Unkeyed categories
// serialise their single group directly.
func (c *MatchingRuleCategory) ToMap(version pactspec.Version) map[string]any {
	if IsUnkeyed(c.Name) {
		if g, ok := c.Get(""); ok {
			return g.ToMap(version)
		}
		return map[string]any{}
	}
	result := make(map[string]any, len(c.entries))
	for _, e := range c.entries {
		result[e.key] = e.group.ToMap(version)
	}
	return result
}

// Validate collects version diagnostics for every group
func (c *MatchingRuleCategory) Validate(version pactspec.Version) []string {
	if c == nil {
		return nil
	}
	var errs []string
	for _, e := range c.entries {
		prefix := c.Name
		if e.key != "" {
			prefix += " " + e.key
		}
		for _, msg := range e.group.ValidateForVersion(version) {
			errs = append(errs, prefix+": "+msg)
		}
	}
	return errs
}
