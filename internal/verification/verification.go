// Package verification turns session results and provider responses into a
// pass or fail verdict.
package verification

import (
	"fmt"
	"strings"

	"github.com/prasenjit/go-pact/internal/matching"
	"github.com/prasenjit/go-pact/internal/models"
	"github.com/prasenjit/go-pact/internal/session"
)

// FailureKind classifies a verification failure
type FailureKind string

const (
	PartialMismatch        FailureKind = "PartialMismatch"
	UnexpectedRequest      FailureKind = "UnexpectedRequest"
	ExpectedButNotReceived FailureKind = "ExpectedButNotReceived"
	ResponseMismatch       FailureKind = "ResponseMismatch"
	Error                  FailureKind = "Error"
)

// Failure is one reason a verification failed
type Failure struct {
	Kind        FailureKind         `json:"kind"`
	Interaction string              `json:"interaction,omitempty"`
	Request     string              `json:"request,omitempty"`
	Mismatches  []matching.Mismatch `json:"mismatches,omitempty"`
	Message     string              `json:"message,omitempty"`
}

func (f Failure) String() string {
	var b strings.Builder
	switch f.Kind {
	case PartialMismatch:
		fmt.Fprintf(&b, "request %s did not match interaction '%s'", f.Request, f.Interaction)
	case UnexpectedRequest:
		fmt.Fprintf(&b, "unexpected request %s", f.Request)
	case ExpectedButNotReceived:
		fmt.Fprintf(&b, "expected request for interaction '%s' was not received", f.Interaction)
	case ResponseMismatch:
		fmt.Fprintf(&b, "response for interaction '%s' did not match", f.Interaction)
	default:
		fmt.Fprintf(&b, "error handling %s: %s", f.Request, f.Message)
	}
	for _, m := range f.Mismatches {
		b.WriteString("\n    - ")
		b.WriteString(m.String())
	}
	return b.String()
}

// Result is the verdict of a run
type Result struct {
	Passed   bool      `json:"passed"`
	Matched  int       `json:"matched"`
	Failures []Failure `json:"failures,omitempty"`
	// Pending lists failing interactions marked pending; they do not fail
	// the run
	Pending []Failure `json:"pending,omitempty"`
}

// Description renders the verdict for humans
func (r Result) Description() string {
	var b strings.Builder
	if r.Passed {
		fmt.Fprintf(&b, "Verification passed: %d interaction(s) matched", r.Matched)
	} else {
		fmt.Fprintf(&b, "Verification failed with %d failure(s)", len(r.Failures))
	}
	for i, f := range r.Failures {
		fmt.Fprintf(&b, "\n  %d) %s", i+1, f)
	}
	if len(r.Pending) > 0 {
		fmt.Fprintf(&b, "\n  %d pending interaction(s) failed and were ignored", len(r.Pending))
	}
	return b.String()
}

// FromResults builds the verdict for a finished session. Partial matches
// always fail the run even though the session considers them neither
// missing nor unexpected.
func FromResults(results session.Results) Result {
	r := Result{Matched: len(results.Matched)}
	add := func(f Failure, in *models.Interaction) {
		if in != nil && in.Pending {
			r.Pending = append(r.Pending, f)
			return
		}
		r.Failures = append(r.Failures, f)
	}

	for _, pm := range results.AlmostMatched {
		add(Failure{
			Kind:        PartialMismatch,
			Interaction: pm.Interaction.Description,
			Request:     pm.Request.Describe(),
			Mismatches:  pm.Mismatches,
		}, pm.Interaction)
	}
	for _, req := range results.Unexpected {
		add(Failure{Kind: UnexpectedRequest, Request: req.Describe()}, nil)
	}
	for _, in := range results.Missing {
		add(Failure{Kind: ExpectedButNotReceived, Interaction: in.Description}, in)
	}
	for _, e := range results.Errors {
		add(Failure{Kind: Error, Request: e.Request.Describe(), Message: e.Error}, nil)
	}

	r.Passed = len(r.Failures) == 0
	return r
}

// VerifyResponse compares a provider's actual response with the expected
// response of an interaction
func VerifyResponse(in *models.Interaction, actual *models.Response) Result {
	mismatches := matching.MatchResponse(in.Response, actual)
	if len(mismatches) == 0 {
		return Result{Passed: true, Matched: 1}
	}
	f := Failure{Kind: ResponseMismatch, Interaction: in.Description, Mismatches: mismatches}
	if in.Pending {
		return Result{Passed: true, Pending: []Failure{f}}
	}
	return Result{Failures: []Failure{f}}
}
