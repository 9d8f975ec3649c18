package matching

import (
	"fmt"

	"github.com/prasenjit/go-pact/internal/matchers"
	"github.com/prasenjit/go-pact/internal/models"
)

// MatchResponse compares an actual response with the expected one. Headers
// and body keys the contract does not mention are allowed.
func MatchResponse(expected, actual *models.Response) []Mismatch {
	var result []Mismatch
	rules := expected.MatchingRules

	statusRules := rules.Category(matchers.CategoryStatus)
	if group, ok := statusRules.Resolve(nil); ok {
		result = append(result, MatchGroup(nil, expected.Status, actual.Status, group, StatusMismatches)...)
	} else if expected.Status != actual.Status {
		result = append(result, StatusMismatches(expected.Status, actual.Status,
			fmt.Sprintf("Expected status %d but was %d", expected.Status, actual.Status), nil))
	}

	result = append(result, matchHeaders(expected.Headers, actual.Headers, rules.Category(matchers.CategoryHeader))...)
	result = append(result, MatchBody(expected.Body, actual.Body, expected.ContentType(), actual.ContentType(),
		rules.Category(matchers.CategoryBody), true)...)
	return result
}
