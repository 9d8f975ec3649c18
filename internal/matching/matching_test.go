package matching

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prasenjit/go-pact/internal/matchers"
	"github.com/prasenjit/go-pact/internal/models"
)

func jsonRequest(method, path, body string) *models.Request {
	req := models.NewRequest(method, path)
	if body != "" {
		req.Headers["Content-Type"] = []string{"application/json"}
		req.Body = models.NewBody([]byte(body), "application/json")
	}
	return req
}

func bodyRules(req *models.Request) *matchers.MatchingRuleCategory {
	return req.MatchingRules.AddCategory(matchers.CategoryBody)
}

func TestMatchRequestReplayIsFullMatch(t *testing.T) {
	expected := jsonRequest("POST", "/users", `{"name":"ann","tags":["a","b"],"age":30}`)
	expected.Query["page"] = []string{"1"}
	expected.Headers["X-Trace"] = []string{"abc"}

	actual := jsonRequest("post", "/users", `{"age":30,"tags":["a","b"],"name":"ann"}`)
	actual.Query["page"] = []string{"1"}
	actual.Headers["x-trace"] = []string{"abc"}

	result := MatchRequest(expected, actual)
	assert.True(t, result.IsFullMatch(), "%v", result.Mismatches)
	assert.False(t, result.IsPartialMatch())
}

func TestTypeMismatchNamesPathAndTypes(t *testing.T) {
	expected := jsonRequest("POST", "/users", `{"user":{"id":1}}`)
	bodyRules(expected).AddRule("$.user.id", matchers.TypeMatcher{})

	actual := jsonRequest("POST", "/users", `{"user":{"id":"x"}}`)
	result := MatchRequest(expected, actual)

	require.True(t, result.IsPartialMatch())
	require.Len(t, result.Mismatches, 1)
	m := result.Mismatches[0]
	assert.Equal(t, BodyMismatch, m.Kind)
	assert.Equal(t, "$.user.id", m.Path)
	assert.Contains(t, m.Message, "String")
	assert.Contains(t, m.Message, "Integer")
}

func TestMethodAndPathMismatchesAreNotPartial(t *testing.T) {
	result := MatchRequest(jsonRequest("GET", "/a", ""), jsonRequest("DELETE", "/a", ""))
	assert.False(t, result.IsPartialMatch())
	require.Len(t, result.Mismatches, 1)
	assert.Equal(t, MethodMismatch, result.Mismatches[0].Kind)

	result = MatchRequest(jsonRequest("GET", "/a", ""), jsonRequest("GET", "/b", ""))
	assert.False(t, result.IsPartialMatch())
	assert.Equal(t, PathMismatch, result.Mismatches[0].Kind)
}

func TestPathRegexRule(t *testing.T) {
	expected := jsonRequest("GET", "/users/1", "")
	expected.MatchingRules.AddCategory(matchers.CategoryPath).AddRule("", matchers.RegexMatcher{Regex: `/users/\d+`})

	assert.True(t, MatchRequest(expected, jsonRequest("GET", "/users/42", "")).IsFullMatch())
	assert.False(t, MatchRequest(expected, jsonRequest("GET", "/users/abc", "")).IsFullMatch())
}

func TestQueryAndHeaderMismatches(t *testing.T) {
	expected := jsonRequest("GET", "/items", "")
	expected.Query["q"] = []string{"x"}
	expected.Headers["Accept"] = []string{"application/json"}

	actual := jsonRequest("GET", "/items", "")
	actual.Query["other"] = []string{"1"}

	result := MatchRequest(expected, actual)
	assert.True(t, result.IsPartialMatch())

	kinds := map[MismatchKind]int{}
	for _, m := range result.Mismatches {
		kinds[m.Kind]++
	}
	assert.Equal(t, 2, kinds[QueryMismatch])
	assert.Equal(t, 1, kinds[HeaderMismatch])
}

func TestHeaderRulesAndContentTypeParameters(t *testing.T) {
	expected := jsonRequest("GET", "/", "")
	expected.Headers["Content-Type"] = []string{"application/json"}
	expected.Headers["X-Id"] = []string{"00000000-0000-0000-0000-000000000000"}
	expected.MatchingRules.AddCategory(matchers.CategoryHeader).AddRule("x-id", matchers.RegexMatcher{Regex: matchers.UUIDRegex})

	actual := jsonRequest("GET", "/", "")
	actual.Headers["content-type"] = []string{"application/json; charset=utf-8"}
	actual.Headers["X-ID"] = []string{"3f0a6cbe-1b8e-4e4a-9a1c-5b2f6e0c9d11"}

	result := MatchRequest(expected, actual)
	assert.True(t, result.IsFullMatch(), "%v", result.Mismatches)
}

func TestRequestRejectsUnexpectedKeysResponseAllowsThem(t *testing.T) {
	expected := jsonRequest("POST", "/", `{"a":1}`)
	actual := jsonRequest("POST", "/", `{"a":1,"b":2}`)
	result := MatchRequest(expected, actual)
	require.Len(t, result.Mismatches, 1)
	assert.Equal(t, "$.b", result.Mismatches[0].Path)

	resp := models.NewResponse(200)
	resp.Body = models.NewBody([]byte(`{"a":1}`), "application/json")
	got := models.NewResponse(200)
	got.Body = models.NewBody([]byte(`{"a":1,"b":2}`), "application/json")
	assert.Empty(t, MatchResponse(resp, got))
}

func TestWildcardAllowsUnknownKeys(t *testing.T) {
	expected := jsonRequest("POST", "/", `{"a":1}`)
	bodyRules(expected).AddRule("$.*", matchers.TypeMatcher{})

	assert.True(t, MatchRequest(expected, jsonRequest("POST", "/", `{"a":2,"b":3}`)).IsFullMatch())
	assert.False(t, MatchRequest(expected, jsonRequest("POST", "/", `{"a":2,"b":"x"}`)).IsFullMatch())
}

func TestMinTypeCascadesToElements(t *testing.T) {
	expected := jsonRequest("POST", "/", `{"items":[{"id":1}]}`)
	bodyRules(expected).AddRule("$.items", matchers.MinTypeMatcher{Min: 2})

	assert.True(t, MatchRequest(expected, jsonRequest("POST", "/", `{"items":[{"id":5},{"id":6}]}`)).IsFullMatch())

	result := MatchRequest(expected, jsonRequest("POST", "/", `{"items":[{"id":5}]}`))
	require.Len(t, result.Mismatches, 1)
	assert.Equal(t, "$.items", result.Mismatches[0].Path)
	assert.Contains(t, result.Mismatches[0].Message, "minimum size of 2")

	result = MatchRequest(expected, jsonRequest("POST", "/", `{"items":[{"id":5},{"id":"six"}]}`))
	require.Len(t, result.Mismatches, 1)
	assert.Equal(t, "$.items.1.id", result.Mismatches[0].Path)
}

func TestListLengthWithoutRules(t *testing.T) {
	expected := jsonRequest("POST", "/", `[1,2]`)
	result := MatchRequest(expected, jsonRequest("POST", "/", `[1,2,3]`))
	require.Len(t, result.Mismatches, 1)
	assert.Contains(t, result.Mismatches[0].Message, "2 elements but received 3")
}

func TestEachValueAndValuesRules(t *testing.T) {
	expected := jsonRequest("POST", "/", `{"scores":{"a":1}}`)
	bodyRules(expected).AddRule("$.scores", matchers.EachValueMatcher{
		Definition: matchers.Definition{Value: 1, Rules: []matchers.MatchingRule{matchers.NumberTypeMatcher{NumberType: matchers.Integer}}},
	})
	assert.True(t, MatchRequest(expected, jsonRequest("POST", "/", `{"scores":{"x":3,"y":4}}`)).IsFullMatch())
	assert.False(t, MatchRequest(expected, jsonRequest("POST", "/", `{"scores":{"x":3.5}}`)).IsFullMatch())

	values := jsonRequest("POST", "/", `{"m":{"k":{"n":1}}}`)
	bodyRules(values).AddRule("$.m", matchers.ValuesMatcher{}).AddRule("$.m.*.n", matchers.TypeMatcher{})
	assert.True(t, MatchRequest(values, jsonRequest("POST", "/", `{"m":{"p":{"n":2},"q":{"n":3}}}`)).IsFullMatch())
}

func TestArrayContainsIgnoresOrderAndExtras(t *testing.T) {
	expected := jsonRequest("POST", "/", `{"items":[{"type":"a"},{"type":"b"}]}`)
	bodyRules(expected).AddRule("$.items", matchers.ArrayContainsMatcher{Variants: []matchers.ArrayContainsVariant{
		{Index: 0, Rules: matchers.NewCategory(matchers.CategoryBody)},
		{Index: 1, Rules: matchers.NewCategory(matchers.CategoryBody)},
	}})

	ok := jsonRequest("POST", "/", `{"items":[{"type":"c"},{"type":"b","x":1},{"type":"a"}]}`)
	assert.True(t, MatchRequest(expected, ok).IsFullMatch())

	result := MatchRequest(expected, jsonRequest("POST", "/", `{"items":[{"type":"a"}]}`))
	require.Len(t, result.Mismatches, 1)
	assert.Contains(t, result.Mismatches[0].Message, "index 1")
}

func TestIgnoreOrder(t *testing.T) {
	expected := jsonRequest("POST", "/", `[1,2,3]`)
	bodyRules(expected).AddRule("$", matchers.IgnoreOrderMatcher{})
	assert.True(t, MatchRequest(expected, jsonRequest("POST", "/", `[3,1,2]`)).IsFullMatch())
	assert.False(t, MatchRequest(expected, jsonRequest("POST", "/", `[3,1,1]`)).IsFullMatch())
}

func TestBodyPresenceAndType(t *testing.T) {
	expected := jsonRequest("POST", "/", `{"a":1}`)
	empty := jsonRequest("POST", "/", "")
	empty.Headers["Content-Type"] = []string{"application/json"}
	result := MatchRequest(expected, empty)
	require.Len(t, result.Mismatches, 1)
	assert.Equal(t, BodyMismatch, result.Mismatches[0].Kind)

	text := jsonRequest("POST", "/", "")
	text.Headers["Content-Type"] = []string{"text/plain"}
	text.Body = models.NewBody([]byte("hello"), "text/plain")
	result = MatchRequest(expected, text)
	require.Len(t, result.Mismatches, 2)
	assert.Equal(t, BodyTypeMismatch, result.Mismatches[1].Kind)

	result = MatchRequest(jsonRequest("POST", "/", ""), jsonRequest("POST", "/", `{"anything":true}`))
	assert.True(t, result.IsFullMatch())
}

func TestXMLBody(t *testing.T) {
	xmlRequest := func(body string) *models.Request {
		req := models.NewRequest("POST", "/")
		req.Headers["Content-Type"] = []string{"application/xml"}
		req.Body = models.NewBody([]byte(body), "application/xml")
		return req
	}
	expected := xmlRequest(`<order id="1"><item>apple</item></order>`)
	bodyRules(expected).
		AddRule("$.order['@id']", matchers.RegexMatcher{Regex: `\d+`}).
		AddRule("$.order.item", matchers.MinTypeMatcher{Min: 1})

	assert.True(t, MatchRequest(expected, xmlRequest(`<order id="7"><item>pear</item><item>fig</item></order>`)).IsFullMatch())

	result := MatchRequest(expected, xmlRequest(`<order id="x"></order>`))
	require.Len(t, result.Mismatches, 2)
	assert.Equal(t, "$.order.@id", result.Mismatches[0].Path)
}

func TestMatchResponseStatusRules(t *testing.T) {
	expected := models.NewResponse(200)
	got := models.NewResponse(201)
	require.Len(t, MatchResponse(expected, got), 1)
	assert.Equal(t, StatusMismatch, MatchResponse(expected, got)[0].Kind)

	expected.MatchingRules.AddCategory(matchers.CategoryStatus).AddRule("", matchers.StatusCodeMatcher{Status: matchers.StatusSuccess})
	assert.Empty(t, MatchResponse(expected, got))
	assert.NotEmpty(t, MatchResponse(expected, models.NewResponse(404)))
}

func TestMatchValueExecutors(t *testing.T) {
	tests := []struct {
		name     string
		rule     matchers.MatchingRule
		expected any
		actual   any
		ok       bool
	}{
		{"equality numbers", matchers.EqualityMatcher{}, json.Number("1.0"), json.Number("1"), true},
		{"equality strings", matchers.EqualityMatcher{}, "a", "b", false},
		{"regex", matchers.RegexMatcher{Regex: `[a-z]+`}, "", "abc", true},
		{"regex is anchored", matchers.RegexMatcher{Regex: `[a-z]+`}, "", "abc1", false},
		{"type", matchers.TypeMatcher{}, json.Number("1"), json.Number("2.5"), true},
		{"type mismatch", matchers.TypeMatcher{}, "a", json.Number("1"), false},
		{"integer", matchers.NumberTypeMatcher{NumberType: matchers.Integer}, nil, json.Number("12"), true},
		{"integer rejects decimal", matchers.NumberTypeMatcher{NumberType: matchers.Integer}, nil, json.Number("1.5"), false},
		{"decimal", matchers.NumberTypeMatcher{NumberType: matchers.Decimal}, nil, json.Number("1.5"), true},
		{"number accepts numeric string", matchers.NumberTypeMatcher{NumberType: matchers.Number}, nil, "42", true},
		{"date", matchers.DateMatcher{Format: "yyyy-MM-dd"}, nil, "2024-02-29", true},
		{"date invalid", matchers.DateMatcher{Format: "yyyy-MM-dd"}, nil, "2024-13-01", false},
		{"time default", matchers.TimeMatcher{}, nil, "10:11:12", true},
		{"timestamp iso", matchers.TimestampMatcher{}, nil, "2020-01-01T10:00:00Z", true},
		{"timestamp garbage", matchers.TimestampMatcher{}, nil, "yesterday", false},
		{"include", matchers.IncludeMatcher{Value: "ell"}, nil, "hello", true},
		{"null", matchers.NullMatcher{}, nil, nil, true},
		{"not null", matchers.NullMatcher{}, nil, "x", false},
		{"not empty", matchers.NotEmptyMatcher{}, nil, []any{}, false},
		{"semver", matchers.SemverMatcher{}, nil, "1.2.3-beta.1", true},
		{"semver short", matchers.SemverMatcher{}, nil, "1.2", false},
		{"boolean string", matchers.BooleanMatcher{}, nil, "true", true},
		{"boolean", matchers.BooleanMatcher{}, nil, json.Number("1"), false},
		{"status codes", matchers.StatusCodeMatcher{Status: matchers.StatusCodes, Codes: []int{200, 204}}, nil, 204, true},
		{"min size", matchers.MinTypeMatcher{Min: 2}, []any{}, []any{"a"}, false},
		{"max size", matchers.MaxTypeMatcher{Max: 2}, []any{}, []any{"a", "b"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchValue([]string{"$", "v"}, tt.expected, tt.actual, tt.rule, BodyMismatches)
			assert.Equal(t, tt.ok, len(got) == 0, "%v", got)
		})
	}
}

func TestMatchGroupLogic(t *testing.T) {
	or := matchers.NewGroup(matchers.Or, matchers.NullMatcher{}, matchers.NumberTypeMatcher{NumberType: matchers.Integer})
	assert.Empty(t, MatchGroup(nil, nil, json.Number("3"), or, BodyMismatches))
	assert.Len(t, MatchGroup(nil, nil, "x", or, BodyMismatches), 2)

	and := matchers.NewGroup(matchers.And, matchers.IncludeMatcher{Value: "a"}, matchers.IncludeMatcher{Value: "b"})
	assert.Len(t, MatchGroup(nil, nil, "c", and, BodyMismatches), 2)
}

func TestMismatchString(t *testing.T) {
	m := BodyMismatches(1, "x", "boom", []string{"$", "a"})
	assert.True(t, strings.HasPrefix(m.String(), "BodyMismatch at $.a"))
	assert.Equal(t, "$", PathString(nil))
}
