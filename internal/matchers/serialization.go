package matchers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// FromJSON loads the "matchingRules" block of a request or response. Both the
// flat V2 shape (keys starting with "$") and the nested V3+ shape are
// accepted. A decoded map carries no key order, so rule keys are added in
// sorted order; use FromRawJSON to keep the order of a document.
func FromJSON(raw map[string]any) (*MatchingRules, error) {
	return load(raw, sortedKeys(raw), func(_ string, block map[string]any) []string {
		return sortedKeys(block)
	})
}

// FromRawJSON loads an encoded "matchingRules" block. Rule keys are added
// in the order they appear in data, which decides ties between equally
// specific body paths.
func FromRawJSON(data []byte) (*MatchingRules, error) {
	if len(bytes.TrimSpace(data)) == 0 || string(bytes.TrimSpace(data)) == "null" {
		return NewMatchingRules(), nil
	}
	keys, values, err := orderedObject(data)
	if err != nil {
		return nil, err
	}

	raw := make(map[string]any, len(values))
	blockKeys := make(map[string][]string, len(values))
	for _, key := range keys {
		dec := json.NewDecoder(bytes.NewReader(values[key]))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		raw[key] = v
		if _, ok := v.(map[string]any); ok {
			if blockKeys[key], _, err = orderedObject(values[key]); err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
		}
	}

	return load(raw, keys, func(name string, block map[string]any) []string {
		if keys, ok := blockKeys[name]; ok {
			return keys
		}
		return sortedKeys(block)
	})
}

func load(raw map[string]any, keys []string, blockOrder func(name string, block map[string]any) []string) (*MatchingRules, error) {
	rules := NewMatchingRules()
	if len(raw) == 0 {
		return rules, nil
	}

	if slices.ContainsFunc(keys, func(k string) bool { return strings.HasPrefix(k, "$") }) {
		return rules, loadV2(rules, raw, keys)
	}

	for _, name := range keys {
		block, ok := raw[name].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("matching rules for category %q must be an object", name)
		}
		category := rules.AddCategory(name)
		if err := loadCategory(category, block, blockOrder(name, block)); err != nil {
			return nil, fmt.Errorf("category %s: %w", name, err)
		}
	}
	return rules, nil
}

// orderedObject splits a JSON object into its keys, in document order, and
// their encoded values. A repeated key keeps its first position and its
// last value, as encoding/json does.
func orderedObject(data []byte) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected an object")
	}

	var keys []string
	values := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected an object key, got %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", key, err)
		}
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = value
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, values, nil
}

func loadCategory(category *MatchingRuleCategory, block map[string]any, keys []string) error {
	if IsUnkeyed(category.Name) {
		if _, ok := block["matchers"]; ok {
			group, err := groupFromJSON(block)
			if err != nil {
				return err
			}
			category.SetRules("", group)
			return nil
		}
	}

	for _, key := range keys {
		groupMap, ok := block[key].(map[string]any)
		if !ok {
			return fmt.Errorf("rules at %q must be an object", key)
		}
		group, err := groupFromJSON(groupMap)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		category.SetRules(key, group)
	}
	return nil
}

func loadV2(rules *MatchingRules, raw map[string]any, keys []string) error {
	for _, key := range keys {
		ruleMap, ok := raw[key].(map[string]any)
		if !ok {
			return fmt.Errorf("matching rule at %q must be an object", key)
		}

		var group *MatchingRuleGroup
		if _, ok := ruleMap["matchers"]; ok {
			g, err := groupFromJSON(ruleMap)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			group = g
		} else {
			rule, err := RuleFromJSON(ruleMap)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			group = NewGroup(And, rule)
		}

		name, path, err := splitV2Key(key)
		if err != nil {
			return err
		}
		rules.AddCategory(name).SetRules(path, group)
	}
	return nil
}

func splitV2Key(key string) (string, string, error) {
	rest := strings.TrimPrefix(key, "$.")
	switch {
	case rest == "body":
		return CategoryBody, "$", nil
	case strings.HasPrefix(rest, "body"):
		return CategoryBody, "$" + strings.TrimPrefix(rest, "body"), nil
	case rest == "path":
		return CategoryPath, "", nil
	case strings.HasPrefix(rest, "headers."), strings.HasPrefix(rest, "header."):
		return CategoryHeader, rest[strings.Index(rest, ".")+1:], nil
	case strings.HasPrefix(rest, "headers["), strings.HasPrefix(rest, "header["):
		return CategoryHeader, unbracket(rest[strings.Index(rest, "["):]), nil
	case strings.HasPrefix(rest, "query."):
		return CategoryQuery, strings.TrimPrefix(rest, "query."), nil
	case strings.HasPrefix(rest, "query["):
		return CategoryQuery, unbracket(strings.TrimPrefix(rest, "query")), nil
	}
	return "", "", fmt.Errorf("unrecognised V2 matching rule path %q", key)
}

func unbracket(s string) string {
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	return strings.Trim(s, `'"`)
}

func groupFromJSON(m map[string]any) (*MatchingRuleGroup, error) {
	logic := And
	if combine, ok := m["combine"].(string); ok {
		logic = ParseRuleLogic(combine)
	}

	list, ok := m["matchers"].([]any)
	if !ok {
		if _, single := m["match"]; single {
			rule, err := RuleFromJSON(m)
			if err != nil {
				return nil, err
			}
			return NewGroup(logic, rule), nil
		}
		return nil, fmt.Errorf("missing matchers list")
	}

	group := NewGroup(logic)
	for _, item := range list {
		ruleMap, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("matcher definition must be an object")
		}
		rule, err := RuleFromJSON(ruleMap)
		if err != nil {
			return nil, err
		}
		group.Add(rule)
	}
	return group, nil
}

// RuleFromJSON decodes one {"match": ...} record. Records without a "match"
// attribute are recognised by their parameters as older pact files do.
func RuleFromJSON(m map[string]any) (MatchingRule, error) {
	match, _ := m["match"].(string)
	if match == "" {
		switch {
		case has(m, "regex"):
			match = KindRegex
		case has(m, "min"), has(m, "max"):
			match = KindType
		case has(m, "timestamp"):
			match = KindTimestamp
		case has(m, "date"):
			match = KindDate
		case has(m, "time"):
			match = KindTime
		default:
			return nil, fmt.Errorf("matcher definition has no match type: %v", m)
		}
	}

	switch match {
	case KindEquality:
		return EqualityMatcher{}, nil
	case KindRegex:
		re, _ := m["regex"].(string)
		return RegexMatcher{Regex: re}, nil
	case KindType, "min", "max":
		minV, hasMin := intValue(m["min"])
		maxV, hasMax := intValue(m["max"])
		switch {
		case hasMin && hasMax:
			return MinMaxTypeMatcher{Min: minV, Max: maxV}, nil
		case hasMin:
			return MinTypeMatcher{Min: minV}, nil
		case hasMax:
			return MaxTypeMatcher{Max: maxV}, nil
		}
		if match != KindType {
			return nil, fmt.Errorf("%s matcher requires a %s attribute", match, match)
		}
		return TypeMatcher{}, nil
	case KindNumber:
		return NumberTypeMatcher{NumberType: Number}, nil
	case KindInteger:
		return NumberTypeMatcher{NumberType: Integer}, nil
	case KindDecimal, "real":
		return NumberTypeMatcher{NumberType: Decimal}, nil
	case KindDate:
		return DateMatcher{Format: formatOf(m, "date")}, nil
	case KindTime:
		return TimeMatcher{Format: formatOf(m, "time")}, nil
	case KindTimestamp, "datetime":
		return TimestampMatcher{Format: formatOf(m, "timestamp")}, nil
	case KindInclude:
		return IncludeMatcher{Value: fmt.Sprint(m["value"])}, nil
	case KindNull:
		return NullMatcher{}, nil
	case KindNotEmpty:
		return NotEmptyMatcher{}, nil
	case KindValues:
		return ValuesMatcher{}, nil
	case KindIgnoreOrder:
		return IgnoreOrderMatcher{}, nil
	case KindSemver:
		return SemverMatcher{}, nil
	case KindBoolean:
		return BooleanMatcher{}, nil
	case KindStatusCode:
		return statusCodeFromJSON(m["status"])
	case KindEachKey:
		def, err := definitionFromJSON(m)
		if err != nil {
			return nil, err
		}
		return EachKeyMatcher{Definition: def}, nil
	case KindEachValue:
		def, err := definitionFromJSON(m)
		if err != nil {
			return nil, err
		}
		return EachValueMatcher{Definition: def}, nil
	case KindArrayContains:
		return arrayContainsFromJSON(m["variants"])
	}
	return nil, fmt.Errorf("unknown matcher type %q", match)
}

func formatOf(m map[string]any, legacy string) string {
	if f, ok := m["format"].(string); ok {
		return f
	}
	f, _ := m[legacy].(string)
	return f
}

func statusCodeFromJSON(raw any) (MatchingRule, error) {
	switch v := raw.(type) {
	case string:
		status, err := ParseHTTPStatus(v)
		if err != nil {
			return nil, err
		}
		return StatusCodeMatcher{Status: status}, nil
	case []any:
		codes := make([]int, 0, len(v))
		for _, c := range v {
			code, ok := intValue(c)
			if !ok {
				return nil, fmt.Errorf("invalid status code %v", c)
			}
			codes = append(codes, code)
		}
		return StatusCodeMatcher{Status: StatusCodes, Codes: codes}, nil
	}
	return nil, fmt.Errorf("statusCode matcher requires a status class or a list of codes")
}

func definitionFromJSON(m map[string]any) (Definition, error) {
	def := Definition{Value: m["value"]}
	list, _ := m["rules"].([]any)
	for _, item := range list {
		ruleMap, ok := item.(map[string]any)
		if !ok {
			return Definition{}, fmt.Errorf("%s rules must be objects", m["match"])
		}
		rule, err := RuleFromJSON(ruleMap)
		if err != nil {
			return Definition{}, err
		}
		def.Rules = append(def.Rules, rule)
	}
	return def, nil
}

func arrayContainsFromJSON(raw any) (MatchingRule, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("arrayContains matcher requires a variants list")
	}
	matcher := ArrayContainsMatcher{}
	for i, item := range list {
		vm, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("arrayContains variant %d must be an object", i)
		}
		variant := ArrayContainsVariant{Index: i, Rules: NewCategory(CategoryBody)}
		if idx, ok := intValue(vm["index"]); ok {
			variant.Index = idx
		}
		if rm, ok := vm["rules"].(map[string]any); ok {
			if err := loadCategory(variant.Rules, rm, sortedKeys(rm)); err != nil {
				return nil, fmt.Errorf("arrayContains variant %d: %w", i, err)
			}
		}
		if gm, ok := vm["generators"].(map[string]any); ok {
			variant.Generators = gm
		}
		matcher.Variants = append(matcher.Variants, variant)
	}
	return matcher, nil
}

func has(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
