package matching

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/prasenjit/go-pact/internal/matchers"
	"github.com/prasenjit/go-pact/internal/models"
)

// MatchBody compares an actual body with the expected one. A missing
// expected body is not checked. Responses allow keys the contract does not
// mention; requests do not.
func MatchBody(expected, actual models.Body, expectedType, actualType string, rules *matchers.MatchingRuleCategory, allowUnexpectedKeys bool) []Mismatch {
	switch expected.State {
	case models.BodyMissing:
		return nil
	case models.BodyEmpty:
		if actual.IsPresent() && len(bytes.TrimSpace(actual.Content)) > 0 && !allowUnexpectedKeys {
			return []Mismatch{{Kind: BodyMismatch, Path: "$", Actual: actual.String(), Message: "Expected an empty body but received '" + truncate(actual.String()) + "'"}}
		}
		return nil
	case models.BodyNull:
		if actual.IsPresent() && string(bytes.TrimSpace(actual.Content)) != "null" {
			return []Mismatch{{Kind: BodyMismatch, Path: "$", Actual: actual.String(), Message: "Expected a null body but received '" + truncate(actual.String()) + "'"}}
		}
		return nil
	}

	if !actual.IsPresent() {
		return []Mismatch{{Kind: BodyMismatch, Path: "$", Expected: expected.String(), Message: "Expected a body of '" + truncate(expected.String()) + "' but the actual body was empty"}}
	}

	expectedMedia := models.MediaType(expectedType)
	actualMedia := models.MediaType(actualType)
	if expectedMedia != "" && actualMedia != "" && expectedMedia != actualMedia &&
		!(models.IsJSON(expectedMedia) && models.IsJSON(actualMedia)) &&
		!(models.IsXML(expectedMedia) && models.IsXML(actualMedia)) {
		return []Mismatch{{
			Kind:     BodyTypeMismatch,
			Expected: expectedMedia,
			Actual:   actualMedia,
			Message:  fmt.Sprintf("Expected a body of type '%s' but received '%s'", expectedMedia, actualMedia),
		}}
	}

	switch {
	case models.IsJSON(expectedMedia):
		return matchJSONBody(expected, actual, rules, allowUnexpectedKeys)
	case models.IsXML(expectedMedia):
		return matchXMLBody(expected, actual, rules, allowUnexpectedKeys)
	}
	return matchTextBody(expected, actual, rules)
}

func matchJSONBody(expected, actual models.Body, rules *matchers.MatchingRuleCategory, allowUnexpectedKeys bool) []Mismatch {
	ev, err := expected.JSONValue()
	if err != nil {
		return []Mismatch{{Kind: BodyMismatch, Path: "$", Message: "Failed to parse the expected body: " + err.Error()}}
	}
	av, err := actual.JSONValue()
	if err != nil {
		return []Mismatch{{Kind: BodyMismatch, Path: "$", Actual: actual.String(), Message: "Failed to parse the actual body: " + err.Error()}}
	}
	b := &bodyMatcher{rules: rules, allowUnexpectedKeys: allowUnexpectedKeys}
	return b.compare([]string{"$"}, ev, av)
}

func matchTextBody(expected, actual models.Body, rules *matchers.MatchingRuleCategory) []Mismatch {
	root := []string{"$"}
	if group, ok := rules.Resolve(root); ok {
		return MatchGroup(root, expected.String(), actual.String(), group, BodyMismatches)
	}
	if !bytes.Equal(expected.Content, actual.Content) {
		return []Mismatch{{
			Kind:     BodyMismatch,
			Path:     "$",
			Expected: expected.String(),
			Actual:   actual.String(),
			Message:  fmt.Sprintf("Expected body '%s' to match '%s' using equality but did not match", truncate(actual.String()), truncate(expected.String())),
		}}
	}
	return nil
}

func truncate(s string) string {
	if len(s) > 120 {
		return s[:117] + "..."
	}
	return s
}

// bodyMatcher walks decoded JSON values side by side
type bodyMatcher struct {
	rules               *matchers.MatchingRuleCategory
	allowUnexpectedKeys bool
}

func (b *bodyMatcher) compare(path []string, expected, actual any) []Mismatch {
	switch ev := expected.(type) {
	case map[string]any:
		return b.compareMap(path, ev, actual)
	case []any:
		return b.compareList(path, ev, actual)
	}
	return b.compareLeaf(path, expected, actual)
}

// containerRules returns the rules that apply to a map or list node.
// Rules inherited from an ancestor only contribute their type check.
func (b *bodyMatcher) containerRules(path []string) *matchers.MatchingRuleGroup {
	res, ok := b.rules.ResolveMatch(path)
	if !ok {
		return nil
	}
	if !res.Inherited {
		return res.Group
	}
	if res.Group.Has(matchers.IsTypeMatcher) {
		return matchers.NewGroup(matchers.And, matchers.TypeMatcher{})
	}
	return nil
}

// leafRules returns the rules for a scalar node. Inherited size bounds are
// reduced to a type check and structural rules are dropped.
func (b *bodyMatcher) leafRules(path []string) *matchers.MatchingRuleGroup {
	res, ok := b.rules.ResolveMatch(path)
	if !ok {
		return nil
	}
	out := matchers.NewGroup(res.Group.RuleLogic)
	for _, rule := range res.Group.Rules {
		switch {
		case matchers.IsContainerRule(rule):
		case res.Inherited && matchers.IsTypeMatcher(rule):
			out.Add(matchers.TypeMatcher{})
		default:
			out.Add(rule)
		}
	}
	if out.IsEmpty() {
		return nil
	}
	return out
}

func (b *bodyMatcher) compareLeaf(path []string, expected, actual any) []Mismatch {
	group := b.leafRules(path)
	if group == nil {
		return MatchValue(path, expected, actual, matchers.EqualityMatcher{}, BodyMismatches)
	}
	return MatchGroup(path, expected, actual, group, BodyMismatches)
}

// checkContainer applies the non-structural rules of group to a container
// and verifies the actual value has the expected shape
func checkContainer(path []string, expected, actual any, group *matchers.MatchingRuleGroup) []Mismatch {
	var result []Mismatch
	if group != nil {
		plain := matchers.NewGroup(group.RuleLogic)
		for _, rule := range group.Rules {
			if !matchers.IsContainerRule(rule) {
				plain.Add(rule)
			}
		}
		if !plain.IsEmpty() {
			result = MatchGroup(path, expected, actual, plain, BodyMismatches)
		}
	}
	if len(result) == 0 && !sameType(expected, actual) {
		result = MatchValue(path, expected, actual, matchers.TypeMatcher{}, BodyMismatches)
	}
	return result
}

func ruleOf[T matchers.MatchingRule](group *matchers.MatchingRuleGroup) (T, bool) {
	var zero T
	if group == nil {
		return zero, false
	}
	for _, rule := range group.Rules {
		if r, ok := rule.(T); ok {
			return r, true
		}
	}
	return zero, false
}

func child(path []string, token string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, token)
}

func (b *bodyMatcher) compareMap(path []string, expected map[string]any, actual any) []Mismatch {
	group := b.containerRules(path)
	result := checkContainer(path, expected, actual, group)
	am, ok := actual.(map[string]any)
	if !ok {
		return result
	}

	eachKey, hasEachKey := ruleOf[matchers.EachKeyMatcher](group)
	eachValue, hasEachValue := ruleOf[matchers.EachValueMatcher](group)
	if hasEachKey || hasEachValue {
		for _, k := range sortedKeys(am) {
			p := child(path, k)
			if hasEachKey {
				result = append(result, b.applyDefinition(p, eachKey.Definition, k)...)
			}
			if hasEachValue {
				result = append(result, b.applyDefinition(p, eachValue.Definition, am[k])...)
			}
		}
		return result
	}

	if _, ok := ruleOf[matchers.ValuesMatcher](group); ok {
		first, hasFirst := firstValue(expected)
		for _, k := range sortedKeys(am) {
			ev, ok := expected[k]
			if !ok {
				if !hasFirst {
					continue
				}
				ev = first
			}
			result = append(result, b.compare(child(path, k), ev, am[k])...)
		}
		return result
	}

	for _, k := range sortedKeys(expected) {
		p := child(path, k)
		av, ok := am[k]
		if !ok {
			result = append(result, BodyMismatches(expected[k], nil, fmt.Sprintf("Expected a key '%s' but it was missing", k), p))
			continue
		}
		result = append(result, b.compare(p, expected[k], av)...)
	}

	for _, k := range sortedKeys(am) {
		if _, ok := expected[k]; ok {
			continue
		}
		p := child(path, k)
		if b.rules.WildcardMatcherDefined(p) {
			if ev, ok := firstValue(expected); ok {
				result = append(result, b.compare(p, ev, am[k])...)
			} else if g := b.leafRules(p); g != nil {
				result = append(result, MatchGroup(p, nil, am[k], g, BodyMismatches)...)
			}
			continue
		}
		if !b.allowUnexpectedKeys {
			result = append(result, BodyMismatches(nil, am[k], fmt.Sprintf("Unexpected key '%s' with value %s", k, render(am[k])), p))
		}
	}
	return result
}

func (b *bodyMatcher) applyDefinition(path []string, def matchers.Definition, actual any) []Mismatch {
	if len(def.Rules) == 0 {
		if def.Value == nil {
			return nil
		}
		return b.compare(path, def.Value, actual)
	}
	group := matchers.NewGroup(matchers.And, def.Rules...)
	return MatchGroup(path, def.Value, actual, group, BodyMismatches)
}

func (b *bodyMatcher) compareList(path []string, expected []any, actual any) []Mismatch {
	group := b.containerRules(path)
	result := checkContainer(path, expected, actual, group)
	al, ok := actual.([]any)
	if !ok {
		return result
	}

	if ac, ok := ruleOf[matchers.ArrayContainsMatcher](group); ok {
		return append(result, b.arrayContains(path, expected, al, ac)...)
	}

	if ev, ok := ruleOf[matchers.EachValueMatcher](group); ok {
		for i, item := range al {
			result = append(result, b.applyDefinition(child(path, strconv.Itoa(i)), ev.Definition, item)...)
		}
		return result
	}

	if _, ok := ruleOf[matchers.IgnoreOrderMatcher](group); ok {
		return append(result, b.ignoreOrder(path, expected, al, group.Has(matchers.IsTypeMatcher))...)
	}

	if group != nil && group.Has(matchers.IsTypeMatcher) {
		if len(expected) == 0 {
			return result
		}
		for i, item := range al {
			ev := expected[0]
			if i < len(expected) {
				ev = expected[i]
			}
			result = append(result, b.compare(child(path, strconv.Itoa(i)), ev, item)...)
		}
		return result
	}

	if len(expected) != len(al) {
		result = append(result, BodyMismatches(expected, al,
			fmt.Sprintf("Expected a List with %d elements but received %d elements", len(expected), len(al)), path))
	}
	for i := 0; i < len(expected) && i < len(al); i++ {
		result = append(result, b.compare(child(path, strconv.Itoa(i)), expected[i], al[i])...)
	}
	return result
}

// ignoreOrder pairs each expected element with a distinct actual element
func (b *bodyMatcher) ignoreOrder(path []string, expected, actual []any, typed bool) []Mismatch {
	var result []Mismatch
	used := make([]bool, len(actual))
	for i, ev := range expected {
		found := false
		for j, av := range actual {
			if used[j] {
				continue
			}
			if len(b.compare(child(path, strconv.Itoa(j)), ev, av)) == 0 {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			result = append(result, BodyMismatches(ev, actual,
				fmt.Sprintf("Expected %s (index %d) to be present in the list in any order", render(ev), i), path))
		}
	}
	if !typed && len(actual) > len(expected) {
		result = append(result, BodyMismatches(expected, actual,
			fmt.Sprintf("Expected a List with %d elements but received %d elements", len(expected), len(actual)), path))
	}
	return result
}

func (b *bodyMatcher) arrayContains(path []string, expected, actual []any, ac matchers.ArrayContainsMatcher) []Mismatch {
	var result []Mismatch
	for _, variant := range ac.Variants {
		if variant.Index < 0 || variant.Index >= len(expected) {
			result = append(result, BodyMismatches(nil, actual, fmt.Sprintf("Variant at index %d has no expected value", variant.Index), path))
			continue
		}
		ev := expected[variant.Index]
		rules := variant.Rules
		if rules == nil {
			rules = matchers.NewCategory(matchers.CategoryBody)
		}
		sub := &bodyMatcher{rules: rules, allowUnexpectedKeys: true}
		found := false
		for _, av := range actual {
			if len(sub.compare([]string{"$"}, ev, av)) == 0 {
				found = true
				break
			}
		}
		if !found {
			result = append(result, BodyMismatches(ev, actual,
				fmt.Sprintf("Variant at index %d (%s) was not found in the actual list", variant.Index, render(ev)), path))
		}
	}
	return result
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func firstValue(m map[string]any) (any, bool) {
	keys := sortedKeys(m)
	if len(keys) == 0 {
		return nil, false
	}
	return m[keys[0]], true
}
