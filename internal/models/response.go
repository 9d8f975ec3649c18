package models

import (
	"github.com/prasenjit/go-pact/internal/generators"
	"github.com/prasenjit/go-pact/internal/matchers"
)

// Response is an expected or received HTTP response
type Response struct {
	Status        int
	Headers       map[string][]string
	Body          Body
	MatchingRules *matchers.MatchingRules
	Generators    *generators.Generators
}

// NewResponse creates a response with empty rule and generator sets
func NewResponse(status int) *Response {
	return &Response{
		Status:        status,
		Headers:       map[string][]string{},
		MatchingRules: matchers.NewMatchingRules(),
		Generators:    generators.New(),
	}
}

// Header returns the comma-joined values of a header, matched
// case-insensitively
func (r *Response) Header(name string) (string, bool) {
	return headerValue(r.Headers, name)
}

// ContentType returns the declared content type, falling back to the body
// and then to sniffing the content
func (r *Response) ContentType() string {
	if ct, ok := r.Header("Content-Type"); ok {
		return ct
	}
	if r.Body.ContentType != "" {
		return r.Body.ContentType
	}
	return DetectContentType(r.Body.Content)
}

// HeaderNames returns the header names sorted
func (r *Response) HeaderNames() []string {
	return sortedNames(r.Headers)
}
