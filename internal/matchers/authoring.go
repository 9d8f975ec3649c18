package matchers

import (
	"fmt"
	"regexp"
)

// UUIDRegex matches a hyphenated UUID in either case
const UUIDRegex = `[0-9a-fA-F]{8}(-[0-9a-fA-F]{4}){3}-[0-9a-fA-F]{12}`

// FullMatch compiles pattern anchored at both ends
func FullMatch(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(`^(?:` + pattern + `)$`)
}

// NewRegexMatcher builds a regex rule and checks that the example conforms.
// A contract whose example contradicts its own rule is rejected here rather
// than when the provider is verified.
func NewRegexMatcher(pattern, example string) (RegexMatcher, error) {
	re, err := FullMatch(pattern)
	if err != nil {
		return RegexMatcher{}, fmt.Errorf("invalid regex %q: %w", pattern, err)
	}
	if example != "" && !re.MatchString(example) {
		return RegexMatcher{}, fmt.Errorf("example %q does not match regular expression %q", example, pattern)
	}
	return RegexMatcher{Regex: pattern, Example: example}, nil
}

// NewUUIDMatcher builds a UUID regex rule, validating example when given
func NewUUIDMatcher(example string) (RegexMatcher, error) {
	m, err := NewRegexMatcher(UUIDRegex, example)
	if err != nil {
		return RegexMatcher{}, fmt.Errorf("example %q is not a valid UUID", example)
	}
	return m, nil
}
