package matching

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/prasenjit/go-pact/internal/javatime"
	"github.com/prasenjit/go-pact/internal/matchers"
)

// MatchGroup applies every rule of group. And groups report all mismatches;
// Or groups pass when any rule passes.
func MatchGroup(path []string, expected, actual any, group *matchers.MatchingRuleGroup, mf MismatchFactory) []Mismatch {
	if group.IsEmpty() {
		return MatchValue(path, expected, actual, matchers.EqualityMatcher{}, mf)
	}

	var all []Mismatch
	for _, rule := range group.Rules {
		mismatches := MatchValue(path, expected, actual, rule, mf)
		if group.RuleLogic == matchers.Or && len(mismatches) == 0 {
			return nil
		}
		all = append(all, mismatches...)
	}
	return all
}

// MatchValue applies one rule to a value. Rules that only describe the
// structure of maps and lists (values, ignore-order, eachKey, eachValue,
// arrayContains) are applied by the body comparison and always pass here.
func MatchValue(path []string, expected, actual any, rule matchers.MatchingRule, mf MismatchFactory) []Mismatch {
	fail := func(format string, args ...any) []Mismatch {
		return []Mismatch{mf(expected, actual, fmt.Sprintf(format, args...), path)}
	}

	switch r := rule.(type) {
	case matchers.EqualityMatcher:
		if !valuesEqual(expected, actual) {
			return fail("Expected %s (%s) to be equal to %s (%s)", render(actual), typeName(actual), render(expected), typeName(expected))
		}

	case matchers.RegexMatcher:
		re, err := matchers.FullMatch(r.Regex)
		if err != nil {
			return fail("Invalid regex '%s': %v", r.Regex, err)
		}
		if actual == nil || !re.MatchString(stringify(actual)) {
			return fail("Expected %s to match '%s'", render(actual), r.Regex)
		}

	case matchers.TypeMatcher:
		return matchType(expected, actual, fail)

	case matchers.MinTypeMatcher:
		if m := matchType(expected, actual, fail); m != nil {
			return m
		}
		if n, ok := length(actual); ok && n < r.Min {
			return fail("Expected %s (size %d) to have minimum size of %d", render(actual), n, r.Min)
		}

	case matchers.MaxTypeMatcher:
		if m := matchType(expected, actual, fail); m != nil {
			return m
		}
		if n, ok := length(actual); ok && n > r.Max {
			return fail("Expected %s (size %d) to have maximum size of %d", render(actual), n, r.Max)
		}

	case matchers.MinMaxTypeMatcher:
		if m := matchType(expected, actual, fail); m != nil {
			return m
		}
		if n, ok := length(actual); ok {
			if n < r.Min {
				return fail("Expected %s (size %d) to have minimum size of %d", render(actual), n, r.Min)
			}
			if n > r.Max {
				return fail("Expected %s (size %d) to have maximum size of %d", render(actual), n, r.Max)
			}
		}

	case matchers.NumberTypeMatcher:
		if !matchesNumberType(actual, r.NumberType) {
			return fail("Expected %s (%s) to be %s", render(actual), typeName(actual), article(r.NumberType))
		}

	case matchers.DateMatcher:
		return matchTime(actual, r.Format, javatime.DefaultDate, "date", fail)

	case matchers.TimeMatcher:
		return matchTime(actual, r.Format, javatime.DefaultTime, "time", fail)

	case matchers.TimestampMatcher:
		return matchTime(actual, r.Format, "", "timestamp", fail)

	case matchers.IncludeMatcher:
		if actual == nil || !strings.Contains(stringify(actual), r.Value) {
			return fail("Expected %s to include '%s'", render(actual), r.Value)
		}

	case matchers.NullMatcher:
		if actual != nil {
			return fail("Expected %s (%s) to be null", render(actual), typeName(actual))
		}

	case matchers.NotEmptyMatcher:
		if isEmpty(actual) {
			return fail("Expected %s (%s) to not be empty", render(actual), typeName(actual))
		}

	case matchers.SemverMatcher:
		if !isSemver(stringify(actual)) {
			return fail("%s is not a valid semantic version", render(actual))
		}

	case matchers.BooleanMatcher:
		switch v := actual.(type) {
		case bool:
		case string:
			if v != "true" && v != "false" {
				return fail("Expected %s to match a boolean", render(actual))
			}
		default:
			return fail("Expected %s (%s) to match a boolean", render(actual), typeName(actual))
		}

	case matchers.StatusCodeMatcher:
		code, ok := toInt(actual)
		if !ok {
			return fail("Expected status code but got %s", render(actual))
		}
		if r.Status == matchers.StatusCodes {
			if !slices.Contains(r.Codes, code) {
				return fail("Expected status code %d to be one of %v", code, r.Codes)
			}
		} else if !r.Status.Matches(code) {
			return fail("Expected status code %d to be a %s status", code, r.Status)
		}

	case matchers.ValuesMatcher, matchers.IgnoreOrderMatcher, matchers.EachKeyMatcher,
		matchers.EachValueMatcher, matchers.ArrayContainsMatcher:
		// applied structurally by the body comparison

	default:
		return fail("Unsupported matcher %T", rule)
	}
	return nil
}

func article(n matchers.NumberType) string {
	switch n {
	case matchers.Integer:
		return "an integer"
	case matchers.Decimal:
		return "a decimal number"
	}
	return "a number"
}

func matchType(expected, actual any, fail func(string, ...any) []Mismatch) []Mismatch {
	if sameType(expected, actual) {
		return nil
	}
	return fail("Expected %s (%s) to be the same type as %s (%s)", render(actual), typeName(actual), render(expected), typeName(expected))
}

func sameType(expected, actual any) bool {
	switch expected.(type) {
	case nil:
		return actual == nil
	case bool:
		_, ok := actual.(bool)
		return ok
	case string:
		_, ok := actual.(string)
		return ok
	case []any:
		_, ok := actual.([]any)
		return ok
	case map[string]any:
		_, ok := actual.(map[string]any)
		return ok
	}
	if isNumber(expected) {
		return isNumber(actual)
	}
	return reflect.TypeOf(expected) == reflect.TypeOf(actual)
}

func isNumber(v any) bool {
	switch v.(type) {
	case json.Number, int, int64, int32, float64, float32:
		return true
	}
	return false
}

func isIntegerNumber(n json.Number) bool {
	return !strings.ContainsAny(string(n), ".eE")
}

func matchesNumberType(actual any, nt matchers.NumberType) bool {
	var s string
	switch v := actual.(type) {
	case json.Number:
		s = string(v)
	case int, int64, int32:
		s = fmt.Sprint(v)
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		s = v
	default:
		return false
	}

	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return false
	}
	integral := !strings.ContainsAny(s, ".eE")
	switch nt {
	case matchers.Integer:
		return integral
	case matchers.Decimal:
		return !integral
	}
	return true
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC1123,
	time.RFC1123Z,
}

func matchTime(actual any, format, defaultFormat, what string, fail func(string, ...any) []Mismatch) []Mismatch {
	s, ok := actual.(string)
	if !ok {
		return fail("Expected %s (%s) to be a %s string", render(actual), typeName(actual), what)
	}

	if format == "" && defaultFormat == "" {
		for _, layout := range timestampLayouts {
			if _, err := time.Parse(layout, s); err == nil {
				return nil
			}
		}
		return fail("Expected %s to match a %s in ISO format", render(actual), what)
	}

	if format == "" {
		format = defaultFormat
	}
	if _, err := javatime.Parse(format, s); err != nil {
		return fail("Expected %s to match a %s of '%s': %v", render(actual), what, format, err)
	}
	return nil
}

func isSemver(s string) bool {
	if s == "" {
		return false
	}
	v := "v" + strings.TrimPrefix(s, "v")
	if !semver.IsValid(v) {
		return false
	}
	core := strings.SplitN(strings.SplitN(v, "-", 2)[0], "+", 2)[0]
	return strings.Count(core, ".") == 2
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	}
	return false
}

func length(v any) (int, bool) {
	switch val := v.(type) {
	case []any:
		return len(val), true
	case map[string]any:
		return len(val), true
	case string:
		return len([]rune(val)), true
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}

// stringify converts a scalar to the text it would have in a document
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return string(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []any, map[string]any:
		data, _ := json.Marshal(val)
		return string(data)
	}
	return fmt.Sprint(v)
}

// valuesEqual is deep equality where numbers compare by value
func valuesEqual(a, b any) bool {
	if isNumber(a) && isNumber(b) {
		x, ok1 := new(big.Rat).SetString(stringify(a))
		y, ok2 := new(big.Rat).SetString(stringify(b))
		if ok1 && ok2 {
			return x.Cmp(y) == 0
		}
	}
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			w, ok := bv[k]
			if !ok || !valuesEqual(v, w) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}
