package verification

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prasenjit/go-pact/internal/matchers"
	"github.com/prasenjit/go-pact/internal/models"
	"github.com/prasenjit/go-pact/internal/session"
)

func newInteraction(desc, path string) *models.Interaction {
	return &models.Interaction{
		Description: desc,
		Request:     models.NewRequest("GET", path),
		Response:    models.NewResponse(200),
	}
}

func TestFromResultsPass(t *testing.T) {
	a := newInteraction("a", "/a")
	s := session.New([]*models.Interaction{a})
	s.ReceiveRequest(context.Background(), models.NewRequest("GET", "/a"))
	results, err := s.RemainingResults(context.Background())
	require.NoError(t, err)

	v := FromResults(results)
	assert.True(t, v.Passed)
	assert.Equal(t, 1, v.Matched)
	assert.True(t, strings.HasPrefix(v.Description(), "Verification passed"))
}

func TestPartialMatchAlwaysFails(t *testing.T) {
	a := newInteraction("a", "/a")
	a.Request.Query["q"] = []string{"1"}
	s := session.New([]*models.Interaction{a})

	// a partial match followed by the correct request
	bad := models.NewRequest("GET", "/a")
	bad.Query["q"] = []string{"2"}
	s.ReceiveRequest(context.Background(), bad)
	good := models.NewRequest("GET", "/a")
	good.Query["q"] = []string{"1"}
	s.ReceiveRequest(context.Background(), good)

	results, err := s.RemainingResults(context.Background())
	require.NoError(t, err)
	require.True(t, results.AllMatched())

	v := FromResults(results)
	assert.False(t, v.Passed)
	require.Len(t, v.Failures, 1)
	assert.Equal(t, PartialMismatch, v.Failures[0].Kind)
	assert.Contains(t, v.Description(), "QueryMismatch")
}

func TestFromResultsMissingAndUnexpected(t *testing.T) {
	a := newInteraction("a", "/a")
	b := newInteraction("b", "/b")
	b.Pending = true
	s := session.New([]*models.Interaction{a, b})
	s.ReceiveRequest(context.Background(), models.NewRequest("POST", "/zzz"))
	results, err := s.RemainingResults(context.Background())
	require.NoError(t, err)

	v := FromResults(results)
	assert.False(t, v.Passed)
	kinds := []FailureKind{}
	for _, f := range v.Failures {
		kinds = append(kinds, f.Kind)
	}
	assert.Equal(t, []FailureKind{UnexpectedRequest, ExpectedButNotReceived}, kinds)
	require.Len(t, v.Pending, 1)
	assert.Equal(t, "b", v.Pending[0].Interaction)
}

func TestVerifyResponse(t *testing.T) {
	in := newInteraction("a", "/a")
	in.Response.Headers["Content-Type"] = []string{"application/json"}
	in.Response.Body = models.NewBody([]byte(`{"id":1,"name":"x"}`), "application/json")
	in.Response.MatchingRules.AddCategory(matchers.CategoryBody).AddRule("$.id", matchers.NumberTypeMatcher{NumberType: matchers.Integer})

	actual := models.NewResponse(200)
	actual.Headers["Content-Type"] = []string{"application/json; charset=utf-8"}
	actual.Body = models.NewBody([]byte(`{"id":99,"name":"x","extra":true}`), "application/json")
	assert.True(t, VerifyResponse(in, actual).Passed)

	actual.Status = 404
	v := VerifyResponse(in, actual)
	assert.False(t, v.Passed)
	require.Len(t, v.Failures, 1)
	assert.Equal(t, ResponseMismatch, v.Failures[0].Kind)
}
