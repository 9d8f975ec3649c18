package models

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/prasenjit/go-pact/internal/generators"
	"github.com/prasenjit/go-pact/internal/matchers"
)

// Request is an expected or received HTTP request
type Request struct {
	Method        string
	Path          string
	Query         map[string][]string
	Headers       map[string][]string
	Body          Body
	MatchingRules *matchers.MatchingRules
	Generators    *generators.Generators
}

// NewRequest creates a request with empty rule and generator sets
func NewRequest(method, path string) *Request {
	return &Request{
		Method:        strings.ToUpper(method),
		Path:          path,
		Query:         map[string][]string{},
		Headers:       map[string][]string{},
		MatchingRules: matchers.NewMatchingRules(),
		Generators:    generators.New(),
	}
}

// Header returns the comma-joined values of a header, matched
// case-insensitively
func (r *Request) Header(name string) (string, bool) {
	return headerValue(r.Headers, name)
}

// ContentType returns the declared content type, falling back to the body
// and then to sniffing the content
func (r *Request) ContentType() string {
	if ct, ok := r.Header("Content-Type"); ok {
		return ct
	}
	if r.Body.ContentType != "" {
		return r.Body.ContentType
	}
	return DetectContentType(r.Body.Content)
}

// QueryString encodes the query parameters with keys in sorted order
func (r *Request) QueryString() string {
	if len(r.Query) == 0 {
		return ""
	}
	return url.Values(r.Query).Encode()
}

// Describe returns "METHOD path" for log and error messages
func (r *Request) Describe() string {
	return fmt.Sprintf("%s %s", r.Method, r.Path)
}

// HeaderNames returns the header names sorted
func (r *Request) HeaderNames() []string {
	return sortedNames(r.Headers)
}

func sortedNames(m map[string][]string) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
