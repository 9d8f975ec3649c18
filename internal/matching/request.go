package matching

import (
	"fmt"
	"mime"
	"slices"
	"strings"

	"github.com/prasenjit/go-pact/internal/matchers"
	"github.com/prasenjit/go-pact/internal/models"
)

// RequestMatchResult holds the mismatches found comparing a received request
// with an expected one
type RequestMatchResult struct {
	Mismatches []Mismatch
}

// IsFullMatch reports whether the request matched in every respect
func (r RequestMatchResult) IsFullMatch() bool {
	return len(r.Mismatches) == 0
}

// IsPartialMatch reports whether method and path matched but something else
// did not
func (r RequestMatchResult) IsPartialMatch() bool {
	if r.IsFullMatch() {
		return false
	}
	for _, m := range r.Mismatches {
		if m.Kind == MethodMismatch || m.Kind == PathMismatch {
			return false
		}
	}
	return true
}

// Count returns the number of mismatches
func (r RequestMatchResult) Count() int {
	return len(r.Mismatches)
}

// MatchRequest compares a received request with an expected one
func MatchRequest(expected, actual *models.Request) RequestMatchResult {
	var result []Mismatch
	rules := expected.MatchingRules

	if !strings.EqualFold(expected.Method, actual.Method) {
		result = append(result, MethodMismatches(expected.Method, actual.Method,
			fmt.Sprintf("Expected method %s but received %s", expected.Method, actual.Method), nil))
	}
	result = append(result, matchPath(expected.Path, actual.Path, rules.Category(matchers.CategoryPath))...)
	result = append(result, matchQuery(expected.Query, actual.Query, rules.Category(matchers.CategoryQuery))...)
	result = append(result, matchHeaders(expected.Headers, actual.Headers, rules.Category(matchers.CategoryHeader))...)
	result = append(result, MatchBody(expected.Body, actual.Body, expected.ContentType(), actual.ContentType(),
		rules.Category(matchers.CategoryBody), false)...)

	return RequestMatchResult{Mismatches: result}
}

func matchPath(expected, actual string, rules *matchers.MatchingRuleCategory) []Mismatch {
	if group, ok := rules.Resolve(nil); ok {
		return MatchGroup(nil, expected, actual, group, PathMismatches)
	}
	if expected != actual {
		return []Mismatch{PathMismatches(expected, actual, fmt.Sprintf("Expected path '%s' but received '%s'", expected, actual), nil)}
	}
	return nil
}

func matchQuery(expected, actual map[string][]string, rules *matchers.MatchingRuleCategory) []Mismatch {
	var result []Mismatch
	for _, name := range sortedNames(expected) {
		want := expected[name]
		got, ok := actual[name]
		if !ok {
			result = append(result, QueryMismatches(want, nil,
				fmt.Sprintf("Expected query parameter '%s' but was missing", name), []string{name}))
			continue
		}
		result = append(result, matchValues(name, want, got, rules, QueryMismatches, "query parameter")...)
	}
	for _, name := range sortedNames(actual) {
		if _, ok := expected[name]; !ok {
			result = append(result, QueryMismatches(nil, actual[name],
				fmt.Sprintf("Unexpected query parameter '%s' received", name), []string{name}))
		}
	}
	return result
}

// matchValues compares multi-valued query parameters. Rules apply to each
// received value against the expected value at the same position, or the
// first expected value when there are more received values.
func matchValues(name string, want, got []string, rules *matchers.MatchingRuleCategory, mf MismatchFactory, what string) []Mismatch {
	path := []string{name}
	if group, ok := rules.Resolve(path); ok {
		var result []Mismatch
		if len(want) == 0 {
			return nil
		}
		for i, v := range got {
			ev := want[0]
			if i < len(want) {
				ev = want[i]
			}
			result = append(result, MatchGroup(path, ev, v, group, mf)...)
		}
		return result
	}
	if !slices.Equal(want, got) {
		return []Mismatch{mf(want, got, fmt.Sprintf("Expected %s '%s' with value %s but received %s",
			what, name, listString(want), listString(got)), path)}
	}
	return nil
}

func matchHeaders(expected, actual map[string][]string, rules *matchers.MatchingRuleCategory) []Mismatch {
	var result []Mismatch
	for _, name := range sortedNames(expected) {
		want := strings.Join(expected[name], ", ")
		got, ok := lookupHeader(actual, name)
		if !ok {
			result = append(result, HeaderMismatches(want, nil,
				fmt.Sprintf("Expected a header '%s' but was missing", name), []string{name}))
			continue
		}
		result = append(result, matchHeader(name, want, got, rules)...)
	}
	return result
}

func matchHeader(name, want, got string, rules *matchers.MatchingRuleCategory) []Mismatch {
	path := []string{name}
	if group, ok := rules.Resolve(path); ok {
		return MatchGroup(path, want, got, group, HeaderMismatches)
	}

	if strings.EqualFold(name, "Content-Type") {
		if contentTypeEqual(want, got) {
			return nil
		}
	} else if slices.Equal(splitHeader(want), splitHeader(got)) {
		return nil
	}
	return []Mismatch{HeaderMismatches(want, got,
		fmt.Sprintf("Expected header '%s' to have value '%s' but was '%s'", name, want, got), path)}
}

// contentTypeEqual compares media types and the parameters the expected
// value declares
func contentTypeEqual(want, got string) bool {
	wt, wp, err1 := mime.ParseMediaType(want)
	gt, gp, err2 := mime.ParseMediaType(got)
	if err1 != nil || err2 != nil {
		return strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(got))
	}
	if wt != gt {
		return false
	}
	for k, v := range wp {
		if !strings.EqualFold(gp[k], v) {
			return false
		}
	}
	return true
}

func splitHeader(v string) []string {
	parts := strings.Split(v, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func lookupHeader(headers map[string][]string, name string) (string, bool) {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.Join(v, ", "), true
		}
	}
	return "", false
}

func sortedNames(m map[string][]string) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

func listString(values []string) string {
	return "['" + strings.Join(values, "', '") + "']"
}
