package generators

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Factory builds a generator from its pact file attributes
type Factory func(attrs map[string]any) (Generator, error)

// Registry maps generator type tags to factories
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry holding every built-in generator type
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(TypeRandomInt, func(m map[string]any) (Generator, error) {
		return RandomIntGenerator{Min: intAttr(m, "min", 0), Max: intAttr(m, "max", 2147483647)}, nil
	})
	r.Register(TypeRandomDecimal, func(m map[string]any) (Generator, error) {
		return RandomDecimalGenerator{Digits: intAttr(m, "digits", 10)}, nil
	})
	r.Register(TypeRandomHexadecimal, func(m map[string]any) (Generator, error) {
		return RandomHexadecimalGenerator{Digits: intAttr(m, "digits", 10)}, nil
	})
	r.Register(TypeRandomString, func(m map[string]any) (Generator, error) {
		return RandomStringGenerator{Size: intAttr(m, "size", 10)}, nil
	})
	r.Register(TypeRegex, func(m map[string]any) (Generator, error) {
		re, ok := m["regex"].(string)
		if !ok {
			return nil, fmt.Errorf("Regex generator requires a regex attribute")
		}
		return RegexGenerator{Regex: re}, nil
	})
	r.Register(TypeUUID, func(m map[string]any) (Generator, error) {
		format, _ := m["format"].(string)
		return UUIDGenerator{Format: UUIDFormat(format)}, nil
	})
	r.Register(TypeDate, func(m map[string]any) (Generator, error) {
		return DateGenerator{Format: strAttr(m, "format"), Expression: strAttr(m, "expression")}, nil
	})
	r.Register(TypeTime, func(m map[string]any) (Generator, error) {
		return TimeGenerator{Format: strAttr(m, "format"), Expression: strAttr(m, "expression")}, nil
	})
	r.Register(TypeDateTime, func(m map[string]any) (Generator, error) {
		return DateTimeGenerator{Format: strAttr(m, "format"), Expression: strAttr(m, "expression")}, nil
	})
	r.Register(TypeRandomBoolean, func(map[string]any) (Generator, error) {
		return RandomBooleanGenerator{}, nil
	})
	r.Register(TypeProviderState, func(m map[string]any) (Generator, error) {
		expression, ok := m["expression"].(string)
		if !ok {
			return nil, fmt.Errorf("ProviderState generator requires an expression attribute")
		}
		dataType := DataTypeRaw
		if dt, ok := m["dataType"].(string); ok && dt != "" {
			dataType = DataType(dt)
		}
		return ProviderStateGenerator{Expression: expression, DataType: dataType}, nil
	})
	r.Register(TypeMockServerURL, func(m map[string]any) (Generator, error) {
		return MockServerURLGenerator{Example: strAttr(m, "example"), Regex: strAttr(m, "regex")}, nil
	})
	return r
}

// Register adds or replaces the factory for typ
func (r *Registry) Register(typ string, f Factory) {
	r.factories[typ] = f
}

// Types returns the registered type tags, sorted
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Build creates a generator from a {"type": ...} record
func (r *Registry) Build(attrs map[string]any) (Generator, error) {
	typ, _ := attrs["type"].(string)
	if typ == "" {
		return nil, fmt.Errorf("generator definition has no type: %v", attrs)
	}
	f, ok := r.factories[typ]
	if !ok {
		return nil, fmt.Errorf("unknown generator type %q", typ)
	}
	return f(attrs)
}

func strAttr(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func intAttr(m map[string]any, key string, def int) int {
	switch n := m[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return def
}
