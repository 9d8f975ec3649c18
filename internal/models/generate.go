package models

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/prasenjit/go-pact/internal/generators"
	"github.com/prasenjit/go-pact/internal/matchers"
)

// Generate returns a copy of the response with its generators applied for
// ctx.Mode. Generators that fail leave the example value in place; their
// errors are joined into the returned error.
func (r *Response) Generate(ctx *generators.Context, handlers generators.HandlerTable) (*Response, error) {
	out := &Response{
		Status:        r.Status,
		Headers:       cloneValues(r.Headers),
		Body:          r.Body,
		MatchingRules: r.MatchingRules,
		Generators:    r.Generators,
	}
	var errs []error

	if gen, ok := r.Generators.Category(matchers.CategoryStatus, ctx.Mode)[""]; ok {
		v, err := gen.Generate(ctx, r.Status)
		if err != nil {
			errs = append(errs, fmt.Errorf("status: %w", err))
		} else if status, err := strconv.Atoi(fmt.Sprint(v)); err == nil {
			out.Status = status
		}
	}

	errs = append(errs, generateValues(out.Headers, r.Generators.Category(matchers.CategoryHeader, ctx.Mode), ctx, "header")...)

	if out.Body.IsPresent() {
		body, err := generators.ApplyBodyGenerators(r.Body.Content, r.ContentType(),
			r.Generators.Category(matchers.CategoryBody, ctx.Mode), ctx, handlers)
		if err != nil {
			errs = append(errs, fmt.Errorf("body: %w", err))
		}
		out.Body.Content = body
	}

	return out, errors.Join(errs...)
}

// Generate returns a copy of the request with its generators applied for
// ctx.Mode
func (r *Request) Generate(ctx *generators.Context, handlers generators.HandlerTable) (*Request, error) {
	out := &Request{
		Method:        r.Method,
		Path:          r.Path,
		Query:         cloneValues(r.Query),
		Headers:       cloneValues(r.Headers),
		Body:          r.Body,
		MatchingRules: r.MatchingRules,
		Generators:    r.Generators,
	}
	var errs []error

	if gen, ok := r.Generators.Category(matchers.CategoryPath, ctx.Mode)[""]; ok {
		v, err := gen.Generate(ctx, r.Path)
		if err != nil {
			errs = append(errs, fmt.Errorf("path: %w", err))
		} else {
			out.Path = fmt.Sprint(v)
		}
	}

	errs = append(errs, generateValues(out.Headers, r.Generators.Category(matchers.CategoryHeader, ctx.Mode), ctx, "header")...)
	errs = append(errs, generateValues(out.Query, r.Generators.Category(matchers.CategoryQuery, ctx.Mode), ctx, "query")...)

	if out.Body.IsPresent() {
		body, err := generators.ApplyBodyGenerators(r.Body.Content, r.ContentType(),
			r.Generators.Category(matchers.CategoryBody, ctx.Mode), ctx, handlers)
		if err != nil {
			errs = append(errs, fmt.Errorf("body: %w", err))
		}
		out.Body.Content = body
	}

	return out, errors.Join(errs...)
}

func generateValues(values map[string][]string, gens map[string]generators.Generator, ctx *generators.Context, what string) []error {
	var errs []error
	keys := slices.Sorted(maps.Keys(gens))
	for _, key := range keys {
		var example any
		if existing := values[key]; len(existing) > 0 {
			example = existing[0]
		}
		v, err := gens[key].Generate(ctx, example)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", what, key, err))
			continue
		}
		values[key] = []string{fmt.Sprint(v)}
	}
	return errs
}

func cloneValues(m map[string][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = slices.Clone(v)
	}
	return out
}
