package matchers

import (
	"strconv"
	"strings"

	"github.com/ohler55/ojg/jp"
)

// Resolution is the rule group chosen for a concrete path
type Resolution struct {
	Key    string
	Group  *MatchingRuleGroup
	Weight int
	// Inherited is set when the winning expression addresses an ancestor of
	// the path rather than the path itself
	Inherited bool
}

// Resolve returns the rule group that best matches path. Body categories
// select the highest weighted path expression (first inserted wins a tie);
// every other category compares keys directly.
func (c *MatchingRuleCategory) Resolve(path []string) (*MatchingRuleGroup, bool) {
	res, ok := c.ResolveMatch(path)
	if !ok {
		return nil, false
	}
	return res.Group, true
}

// ResolveMatch is Resolve with the details of the winning entry
func (c *MatchingRuleCategory) ResolveMatch(path []string) (Resolution, bool) {
	if c == nil || len(c.entries) == 0 {
		return Resolution{}, false
	}
	if c.Name != CategoryBody {
		return c.resolveKey(path)
	}

	var best Resolution
	found := false
	for _, e := range c.entries {
		if e.invalid {
			continue
		}
		weight, length := exprWeight(e.expr, path)
		if weight > 0 && (!found || weight > best.Weight) {
			best = Resolution{Key: e.key, Group: e.group, Weight: weight, Inherited: length < len(path)}
			found = true
		}
	}
	return best, found
}

func (c *MatchingRuleCategory) resolveKey(path []string) (Resolution, bool) {
	key := ""
	if len(path) > 0 && !IsUnkeyed(c.Name) {
		key = path[len(path)-1]
	}
	for _, e := range c.entries {
		if e.key == key || (c.caseInsensitive() && strings.EqualFold(e.key, key)) {
			return Resolution{Key: e.key, Group: e.group, Weight: 1}, true
		}
	}
	return Resolution{}, false
}

func (c *MatchingRuleCategory) caseInsensitive() bool {
	return c.Name == CategoryHeader || c.Name == CategoryMetadata
}

// MatcherDefined reports whether any rule applies to path
func (c *MatchingRuleCategory) MatcherDefined(path []string) bool {
	_, ok := c.ResolveMatch(path)
	return ok
}

// WildcardMatcherDefined reports whether a rule ending in a wildcard
// addresses path exactly, which allows arbitrary keys at that level
func (c *MatchingRuleCategory) WildcardMatcherDefined(path []string) bool {
	if c == nil || c.Name != CategoryBody {
		return false
	}
	for _, e := range c.entries {
		if e.invalid {
			continue
		}
		frags := pathFragments(e.expr)
		if len(frags) != len(path) || len(frags) == 0 {
			continue
		}
		if _, ok := frags[len(frags)-1].(jp.Wildcard); !ok {
			continue
		}
		if w, _ := exprWeight(e.expr, path); w > 0 {
			return true
		}
	}
	return false
}

// TypeMatcherDefined reports whether the rules resolved for path include a
// type-family rule
func (c *MatchingRuleCategory) TypeMatcherDefined(path []string) bool {
	g, ok := c.Resolve(path)
	return ok && g.Has(IsTypeMatcher)
}

// PathWeight scores how well the path expression expr addresses path. Zero
// means it does not apply.
func PathWeight(expr string, path []string) int {
	parsed, err := jp.ParseString(expr)
	if err != nil {
		return 0
	}
	w, _ := exprWeight(parsed, path)
	return w
}

// exprWeight returns the product of the per-token scores and the number of
// tokens compared. An expression may be shorter than path, in which case it
// applies to the descendants of the node it addresses.
func exprWeight(expr jp.Expr, path []string) (int, int) {
	frags := pathFragments(expr)
	if len(frags) == 0 || len(frags) > len(path) {
		return 0, 0
	}
	weight := 1
	for i, f := range frags {
		weight *= fragWeight(f, path[i])
		if weight == 0 {
			return 0, 0
		}
	}
	return weight, len(frags)
}

func pathFragments(expr jp.Expr) []jp.Frag {
	frags := make([]jp.Frag, 0, len(expr))
	for _, f := range expr {
		if _, ok := f.(jp.Bracket); ok {
			continue
		}
		frags = append(frags, f)
	}
	return frags
}

func fragWeight(f jp.Frag, token string) int {
	switch frag := f.(type) {
	case jp.Root:
		if token == "$" {
			return 2
		}
	case jp.Child:
		if string(frag) == token {
			return 2
		}
		if string(frag) == "*" {
			return 1
		}
	case jp.Nth:
		if token == strconv.Itoa(int(frag)) {
			return 2
		}
	case jp.Wildcard:
		return 1
	case jp.Slice:
		idx, err := strconv.Atoi(token)
		if err != nil {
			return 0
		}
		if inSlice(frag, idx) {
			return 1
		}
	case jp.Union:
		for _, k := range frag {
			switch key := k.(type) {
			case string:
				if key == token {
					return 2
				}
			case int64:
				if strconv.FormatInt(key, 10) == token {
					return 2
				}
			}
		}
	}
	return 0
}

func inSlice(s jp.Slice, idx int) bool {
	start := 0
	if len(s) > 0 {
		start = s[0]
	}
	if start < 0 {
		return true
	}
	if idx < start {
		return false
	}
	if len(s) > 1 && s[1] >= 0 && idx >= s[1] {
		return false
	}
	return true
}
