package generators

import (
	"fmt"
	"sort"

	"github.com/prasenjit/go-pact/internal/matchers"
	"github.com/prasenjit/go-pact/internal/pactspec"
)

// Generators holds the generators of a request or response by category and
// key. Method, path and status generators use the empty key.
type Generators struct {
	categories map[string]map[string]Generator
}

// New creates an empty set
func New() *Generators {
	return &Generators{categories: make(map[string]map[string]Generator)}
}

// Add registers g for key in category. Unkeyed categories ignore key.
func (g *Generators) Add(category, key string, gen Generator) *Generators {
	if matchers.IsUnkeyed(category) {
		key = ""
	}
	if g.categories[category] == nil {
		g.categories[category] = make(map[string]Generator)
	}
	g.categories[category][key] = gen
	return g
}

// Get returns the generator for key in category
func (g *Generators) Get(category, key string) (Generator, bool) {
	if g == nil {
		return nil, false
	}
	gen, ok := g.categories[category][key]
	return gen, ok
}

// Category returns the generators of a category that apply in mode
func (g *Generators) Category(category string, mode Mode) map[string]Generator {
	result := make(map[string]Generator)
	if g == nil {
		return result
	}
	for key, gen := range g.categories[category] {
		if gen.CorrespondsToMode(mode) {
			result[key] = gen
		}
	}
	return result
}

// IsEmpty reports whether no generator is registered
func (g *Generators) IsEmpty() bool {
	if g == nil {
		return true
	}
	for _, c := range g.categories {
		if len(c) > 0 {
			return false
		}
	}
	return true
}

// ToMap serialises the set in the pact file shape
func (g *Generators) ToMap(version pactspec.Version) map[string]any {
	result := make(map[string]any)
	if g == nil {
		return result
	}
	for category, gens := range g.categories {
		if len(gens) == 0 {
			continue
		}
		if matchers.IsUnkeyed(category) {
			if gen, ok := gens[""]; ok {
				result[category] = gen.ToMap(version)
			}
			continue
		}
		entries := make(map[string]any, len(gens))
		for key, gen := range gens {
			entries[key] = gen.ToMap(version)
		}
		result[category] = entries
	}
	return result
}

// FromJSON loads a "generators" block using registry to resolve type tags
func FromJSON(raw map[string]any, registry *Registry) (*Generators, error) {
	if registry == nil {
		registry = DefaultRegistry()
	}
	g := New()

	categories := make([]string, 0, len(raw))
	for c := range raw {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	for _, category := range categories {
		block, ok := raw[category].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("generators for %q must be an object", category)
		}

		if _, typed := block["type"]; typed {
			gen, err := registry.Build(block)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", category, err)
			}
			g.Add(category, "", gen)
			continue
		}

		for key, v := range block {
			attrs, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s %s: generator must be an object", category, key)
			}
			gen, err := registry.Build(attrs)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", category, key, err)
			}
			g.Add(category, key, gen)
		}
	}
	return g, nil
}
