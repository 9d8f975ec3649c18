package matchers

import (
	"fmt"

	"github.com/prasenjit/go-pact/internal/pactspec"
)

// MatchingRule is one relaxation of exact equality. The set of
// implementations is closed; consumers switch on the concrete type.
type MatchingRule interface {
	// Name is the value of the "match" attribute in a pact file
	Name() string
	// ToMap serialises the rule for the given specification version
	ToMap(version pactspec.Version) map[string]any
	// ValidateForVersion returns diagnostics when the rule is not
	// supported by version
	ValidateForVersion(version pactspec.Version) []string

	matchingRule()
}

// Rule kind names as they appear in pact files
const (
	KindEquality      = "equality"
	KindRegex         = "regex"
	KindType          = "type"
	KindNumber        = "number"
	KindInteger       = "integer"
	KindDecimal       = "decimal"
	KindDate          = "date"
	KindTime          = "time"
	KindTimestamp     = "timestamp"
	KindInclude       = "include"
	KindNull          = "null"
	KindNotEmpty      = "notEmpty"
	KindValues        = "values"
	KindIgnoreOrder   = "ignore-order"
	KindSemver        = "semver"
	KindBoolean       = "boolean"
	KindStatusCode    = "statusCode"
	KindEachKey       = "eachKey"
	KindEachValue     = "eachValue"
	KindArrayContains = "arrayContains"
)

// NumberType selects the numeric sub-kind checked by NumberTypeMatcher
type NumberType int

const (
	Number NumberType = iota
	Integer
	Decimal
)

func (n NumberType) String() string {
	switch n {
	case Integer:
		return KindInteger
	case Decimal:
		return KindDecimal
	default:
		return KindNumber
	}
}

// HTTPStatus is a named class of HTTP status codes
type HTTPStatus string

const (
	StatusInformation HTTPStatus = "info"
	StatusSuccess     HTTPStatus = "success"
	StatusRedirect    HTTPStatus = "redirect"
	StatusClientError HTTPStatus = "clientError"
	StatusServerError HTTPStatus = "serverError"
	StatusCodes       HTTPStatus = "statusCodes"
	StatusNonError    HTTPStatus = "nonError"
	StatusError       HTTPStatus = "error"
)

// Matches reports whether code belongs to the class
func (s HTTPStatus) Matches(code int) bool {
	switch s {
	case StatusInformation:
		return code >= 100 && code <= 199
	case StatusSuccess:
		return code >= 200 && code <= 299
	case StatusRedirect:
		return code >= 300 && code <= 399
	case StatusClientError:
		return code >= 400 && code <= 499
	case StatusServerError:
		return code >= 500 && code <= 599
	case StatusNonError:
		return code < 400
	case StatusError:
		return code >= 400
	}
	return false
}

// ParseHTTPStatus parses a status class name
func ParseHTTPStatus(s string) (HTTPStatus, error) {
	switch HTTPStatus(s) {
	case StatusInformation, StatusSuccess, StatusRedirect, StatusClientError,
		StatusServerError, StatusCodes, StatusNonError, StatusError:
		return HTTPStatus(s), nil
	}
	return "", fmt.Errorf("unknown HTTP status class: %s", s)
}

func requiresV4(name string, version pactspec.Version) []string {
	if version.AtLeast(pactspec.V4) {
		return nil
	}
	return []string{fmt.Sprintf("%s matchers can only be used with Pact specification versions >= V4", name)}
}

// EqualityMatcher requires deep equality with the expected value
type EqualityMatcher struct{}

// RegexMatcher requires the stringified actual value to fully match Regex
type RegexMatcher struct {
	Regex   string
	Example string
}

// TypeMatcher requires the actual value to have the expected JSON type
type TypeMatcher struct{}

// MinTypeMatcher is a type match with a lower bound on length
type MinTypeMatcher struct {
	Min int
}

// MaxTypeMatcher is a type match with an upper bound on length
type MaxTypeMatcher struct {
	Max int
}

// MinMaxTypeMatcher is a type match with both length bounds
type MinMaxTypeMatcher struct {
	Min int
	Max int
}

// NumberTypeMatcher requires a number of the given sub-kind
type NumberTypeMatcher struct {
	NumberType NumberType
}

// DateMatcher requires a value parseable with Format
type DateMatcher struct {
	Format string
}

// TimeMatcher requires a value parseable with Format
type TimeMatcher struct {
	Format string
}

// TimestampMatcher requires a value parseable with Format
type TimestampMatcher struct {
	Format string
}

// IncludeMatcher requires the stringified value to contain Value
type IncludeMatcher struct {
	Value string
}

// NullMatcher requires a null value
type NullMatcher struct{}

// NotEmptyMatcher requires a present, non-empty value
type NotEmptyMatcher struct{}

// ValuesMatcher ignores map keys and matches values only
type ValuesMatcher struct{}

// IgnoreOrderMatcher compares lists without regard to element order
type IgnoreOrderMatcher struct{}

// SemverMatcher requires a semantic version string
type SemverMatcher struct{}

// BooleanMatcher requires a boolean or a "true"/"false" string
type BooleanMatcher struct{}

// StatusCodeMatcher requires the status to fall in Status, or in Codes when
// Status is StatusCodes
type StatusCodeMatcher struct {
	Status HTTPStatus
	Codes  []int
}

// Definition is the nested rule set carried by EachKey and EachValue
type Definition struct {
	Value any
	Rules []MatchingRule
}

// EachKeyMatcher applies Definition to every key of a map
type EachKeyMatcher struct {
	Definition Definition
}

// EachValueMatcher applies Definition to every value of a map or list
type EachValueMatcher struct {
	Definition Definition
}

// ArrayContainsVariant is one element that must be present in an array.
// Rules are keyed relative to the element.
type ArrayContainsVariant struct {
	Index      int
	Rules      *MatchingRuleCategory
	Generators map[string]any
}

// ArrayContainsMatcher requires every variant to match some element
type ArrayContainsMatcher struct {
	Variants []ArrayContainsVariant
}

func (EqualityMatcher) matchingRule()      {}
func (RegexMatcher) matchingRule()         {}
func (TypeMatcher) matchingRule()          {}
func (MinTypeMatcher) matchingRule()       {}
func (MaxTypeMatcher) matchingRule()       {}
func (MinMaxTypeMatcher) matchingRule()    {}
func (NumberTypeMatcher) matchingRule()    {}
func (DateMatcher) matchingRule()          {}
func (TimeMatcher) matchingRule()          {}
func (TimestampMatcher) matchingRule()     {}
func (IncludeMatcher) matchingRule()       {}
func (NullMatcher) matchingRule()          {}
func (NotEmptyMatcher) matchingRule()      {}
func (ValuesMatcher) matchingRule()        {}
func (IgnoreOrderMatcher) matchingRule()   {}
func (SemverMatcher) matchingRule()        {}
func (BooleanMatcher) matchingRule()       {}
func (StatusCodeMatcher) matchingRule()    {}
func (EachKeyMatcher) matchingRule()       {}
func (EachValueMatcher) matchingRule()     {}
func (ArrayContainsMatcher) matchingRule() {}

func (EqualityMatcher) Name() string      { return KindEquality }
func (RegexMatcher) Name() string         { return KindRegex }
func (TypeMatcher) Name() string          { return KindType }
func (MinTypeMatcher) Name() string       { return KindType }
func (MaxTypeMatcher) Name() string       { return KindType }
func (MinMaxTypeMatcher) Name() string    { return KindType }
func (m NumberTypeMatcher) Name() string  { return m.NumberType.String() }
func (DateMatcher) Name() string          { return KindDate }
func (TimeMatcher) Name() string          { return KindTime }
func (TimestampMatcher) Name() string     { return KindTimestamp }
func (IncludeMatcher) Name() string       { return KindInclude }
func (NullMatcher) Name() string          { return KindNull }
func (NotEmptyMatcher) Name() string      { return KindNotEmpty }
func (ValuesMatcher) Name() string        { return KindValues }
func (IgnoreOrderMatcher) Name() string   { return KindIgnoreOrder }
func (SemverMatcher) Name() string        { return KindSemver }
func (BooleanMatcher) Name() string       { return KindBoolean }
func (StatusCodeMatcher) Name() string    { return KindStatusCode }
func (EachKeyMatcher) Name() string       { return KindEachKey }
func (EachValueMatcher) Name() string     { return KindEachValue }
func (ArrayContainsMatcher) Name() string { return KindArrayContains }

func (m EqualityMatcher) ToMap(pactspec.Version) map[string]any {
	return map[string]any{"match": m.Name()}
}

func (m RegexMatcher) ToMap(pactspec.Version) map[string]any {
	return map[string]any{"match": m.Name(), "regex": m.Regex}
}

func (m TypeMatcher) ToMap(pactspec.Version) map[string]any {
	return map[string]any{"match": m.Name()}
}

func (m MinTypeMatcher) ToMap(pactspec.Version) map[string]any {
	return map[string]any{"match": m.Name(), "min": m.Min}
}

func (m MaxTypeMatcher) ToMap(pactspec.Version) map[string]any {
	return map[string]any{"match": m.Name(), "max": m.Max}
}

func (m MinMaxTypeMatcher) ToMap(pactspec.Version) map[string]any {
	return map[string]any{"match": m.Name(), "min": m.Min, "max": m.Max}
}

func (m NumberTypeMatcher) ToMap(pactspec.Version) map[string]any {
	return map[string]any{"match": m.Name()}
}

func (m DateMatcher) ToMap(pactspec.Version) map[string]any {
	return map[string]any{"match": m.Name(), "format": m.Format}
}

func (m TimeMatcher) ToMap(pactspec.Version) map[string]any {
	return map[string]any{"match": m.Name(), "format": m.Format}
}

func (m TimestampMatcher) ToMap(pactspec.Version) map[string]any {
	return map[string]any{"match": m.Name(), "format": m.Format}
}

func (m IncludeMatcher) ToMap(pactspec.Version) map[string]any {
	return map[string]any{"match": m.Name(), "value": m.Value}
}

func (m NullMatcher) ToMap(pactspec.Version) map[string]any {
	return map[string]any{"match": m.Name()}
}

func (m NotEmptyMatcher) ToMap(pactspec.Version) map[string]any {
	return map[string]any{"match": m.Name()}
}

func (m ValuesMatcher) ToMap(pactspec.Version) map[string]any {
	return map[string]any{"match": m.Name()}
}

func (m IgnoreOrderMatcher) ToMap(pactspec.Version) map[string]any {
	return map[string]any{"match": m.Name()}
}

func (m SemverMatcher) ToMap(pactspec.Version) map[string]any {
	return map[string]any{"match": m.Name()}
}

func (m BooleanMatcher) ToMap(pactspec.Version) map[string]any {
	return map[string]any{"match": m.Name()}
}

func (m StatusCodeMatcher) ToMap(pactspec.Version) map[string]any {
	if m.Status == StatusCodes {
		codes := make([]any, len(m.Codes))
		for i, c := range m.Codes {
			codes[i] = c
		}
		return map[string]any{"match": m.Name(), "status": codes}
	}
	return map[string]any{"match": m.Name(), "status": string(m.Status)}
}

func (m EachKeyMatcher) ToMap(version pactspec.Version) map[string]any {
	return definitionToMap(m.Name(), m.Definition, version)
}

func (m EachValueMatcher) ToMap(version pactspec.Version) map[string]any {
	return definitionToMap(m.Name(), m.Definition, version)
}

func definitionToMap(name string, def Definition, version pactspec.Version) map[string]any {
	rules := make([]any, len(def.Rules))
	for i, r := range def.Rules {
		rules[i] = r.ToMap(version)
	}
	result := map[string]any{"match": name, "rules": rules}
	if def.Value != nil {
		result["value"] = def.Value
	}
	return result
}

func (m ArrayContainsMatcher) ToMap(version pactspec.Version) map[string]any {
	variants := make([]any, len(m.Variants))
	for i, v := range m.Variants {
		entry := map[string]any{"index": v.Index}
		if v.Rules != nil {
			entry["rules"] = v.Rules.ToMap(version)
		} else {
			entry["rules"] = map[string]any{}
		}
		if len(v.Generators) > 0 {
			entry["generators"] = v.Generators
		}
		variants[i] = entry
	}
	return map[string]any{"match": m.Name(), "variants": variants}
}

func (EqualityMatcher) ValidateForVersion(pactspec.Version) []string    { return nil }
func (RegexMatcher) ValidateForVersion(pactspec.Version) []string       { return nil }
func (TypeMatcher) ValidateForVersion(pactspec.Version) []string        { return nil }
func (MinTypeMatcher) ValidateForVersion(pactspec.Version) []string     { return nil }
func (MaxTypeMatcher) ValidateForVersion(pactspec.Version) []string     { return nil }
func (MinMaxTypeMatcher) ValidateForVersion(pactspec.Version) []string  { return nil }
func (NumberTypeMatcher) ValidateForVersion(pactspec.Version) []string  { return nil }
func (DateMatcher) ValidateForVersion(pactspec.Version) []string        { return nil }
func (TimeMatcher) ValidateForVersion(pactspec.Version) []string        { return nil }
func (TimestampMatcher) ValidateForVersion(pactspec.Version) []string   { return nil }
func (IncludeMatcher) ValidateForVersion(pactspec.Version) []string     { return nil }
func (NullMatcher) ValidateForVersion(pactspec.Version) []string        { return nil }
func (ValuesMatcher) ValidateForVersion(pactspec.Version) []string      { return nil }
func (IgnoreOrderMatcher) ValidateForVersion(pactspec.Version) []string { return nil }

func (m NotEmptyMatcher) ValidateForVersion(v pactspec.Version) []string {
	return requiresV4(m.Name(), v)
}

func (m SemverMatcher) ValidateForVersion(v pactspec.Version) []string {
	return requiresV4(m.Name(), v)
}

func (m BooleanMatcher) ValidateForVersion(v pactspec.Version) []string {
	return requiresV4(m.Name(), v)
}

func (m StatusCodeMatcher) ValidateForVersion(v pactspec.Version) []string {
	return requiresV4(m.Name(), v)
}

func (m EachKeyMatcher) ValidateForVersion(v pactspec.Version) []string {
	return append(requiresV4(m.Name(), v), validateRules(m.Definition.Rules, v)...)
}

func (m EachValueMatcher) ValidateForVersion(v pactspec.Version) []string {
	return append(requiresV4(m.Name(), v), validateRules(m.Definition.Rules, v)...)
}

func (m ArrayContainsMatcher) ValidateForVersion(v pactspec.Version) []string {
	errs := requiresV4(m.Name(), v)
	for _, variant := range m.Variants {
		if variant.Rules != nil {
			errs = append(errs, variant.Rules.Validate(v)...)
		}
	}
	return errs
}

func validateRules(rules []MatchingRule, v pactspec.Version) []string {
	var errs []string
	for _, r := range rules {
		errs = append(errs, r.ValidateForVersion(v)...)
	}
	return errs
}

// IsTypeMatcher reports whether rule is one of the type-family rules that
// cascade to list elements
func IsTypeMatcher(rule MatchingRule) bool {
	switch rule.(type) {
	case TypeMatcher, MinTypeMatcher, MaxTypeMatcher, MinMaxTypeMatcher:
		return true
	}
	return false
}

// IsContainerRule reports whether rule only makes sense against a map or list
func IsContainerRule(rule MatchingRule) bool {
	switch rule.(type) {
	case ValuesMatcher, IgnoreOrderMatcher, EachKeyMatcher, EachValueMatcher, ArrayContainsMatcher:
		return true
	}
	return false
}
