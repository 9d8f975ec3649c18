// Package parser loads pact files and reports the features they use that
// their specification version does not support.
package parser

import (
	"fmt"
	"os"

	"github.com/prasenjit/go-pact/internal/generators"
	"github.com/prasenjit/go-pact/internal/models"
	"github.com/prasenjit/go-pact/internal/pactspec"
)

// Parser handles pact file parsing
type Parser struct {
	registry *generators.Registry
	target   pactspec.Version
}

// Option configures a Parser
type Option func(*Parser)

// WithRegistry resolves generator types through registry
func WithRegistry(registry *generators.Registry) Option {
	return func(p *Parser) { p.registry = registry }
}

// WithTargetVersion checks rules against version instead of the version the
// file declares
func WithTargetVersion(version pactspec.Version) Option {
	return func(p *Parser) { p.target = version }
}

// NewParser creates a new pact parser
func NewParser(opts ...Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseResult contains the parsed pact and its diagnostics
type ParseResult struct {
	Pact *models.Pact
	// Version is the version the rules were checked against
	Version pactspec.Version
	// Warnings are skipped or suspicious content
	Warnings []string
	// Diagnostics are rules not supported by Version
	Diagnostics []string
}

// Valid reports whether every rule is supported by the checked version
func (r *ParseResult) Valid() bool {
	return len(r.Diagnostics) == 0
}

// Parse decodes a pact document
func (p *Parser) Parse(data []byte) (*ParseResult, error) {
	pact, warnings, err := models.DecodePact(data, p.registry)
	if err != nil {
		return nil, err
	}

	version := p.target
	if version == pactspec.Unknown {
		version = pact.Version
	}
	result := &ParseResult{
		Pact:     pact,
		Version:  version,
		Warnings: warnings,
	}

	if pact.Consumer == "" {
		result.Warnings = append(result.Warnings, "pact has no consumer name")
	}
	if pact.Provider == "" {
		result.Warnings = append(result.Warnings, "pact has no provider name")
	}

	seen := make(map[string]string, len(pact.Interactions))
	for _, i := range pact.Interactions {
		key := i.UniqueKey()
		if prev, ok := seen[key]; ok {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("interaction %q duplicates %q, the first one wins", i.Description, prev))
		}
		seen[key] = i.Description

		if i.Request != nil {
			for _, d := range i.Request.MatchingRules.Validate(version) {
				result.Diagnostics = append(result.Diagnostics, fmt.Sprintf("interaction %q request: %s", i.Description, d))
			}
		}
		if i.Response != nil {
			for _, d := range i.Response.MatchingRules.Validate(version) {
				result.Diagnostics = append(result.Diagnostics, fmt.Sprintf("interaction %q response: %s", i.Description, d))
			}
		}
	}

	return result, nil
}

// ParseFile reads and parses the pact file at path
func (p *Parser) ParseFile(path string) (*ParseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pact file: %w", err)
	}
	result, err := p.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return result, nil
}
