package generators

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/tidwall/gjson"

	"github.com/prasenjit/go-pact/internal/pactspec"
)

// DataType is the type a provider state value is converted to
type DataType string

const (
	DataTypeString  DataType = "STRING"
	DataTypeInteger DataType = "INTEGER"
	DataTypeDecimal DataType = "DECIMAL"
	DataTypeFloat   DataType = "FLOAT"
	DataTypeBoolean DataType = "BOOLEAN"
	DataTypeRaw     DataType = "RAW"
)

// ProviderStateGenerator replaces a value with one supplied by the
// provider state setup. Only used when verifying a provider.
type ProviderStateGenerator struct {
	Expression string
	DataType   DataType
}

func (ProviderStateGenerator) generator()   {}
func (ProviderStateGenerator) Type() string { return TypeProviderState }

func (ProviderStateGenerator) CorrespondsToMode(m Mode) bool { return m == Provider }

var placeholder = regexp.MustCompile(`\$\{([^}]+)\}`)

// Generate resolves Expression against the context's provider state. An
// expression containing ${...} placeholders is interpolated; otherwise it
// names a single state value.
func (g ProviderStateGenerator) Generate(ctx *Context, _ any) (any, error) {
	var state map[string]any
	if ctx != nil {
		state = ctx.ProviderState
	}

	var value any
	if placeholder.MatchString(g.Expression) {
		v, err := interpolate(g.Expression, state)
		if err != nil {
			return nil, err
		}
		value = v
	} else {
		v, ok := lookup(g.Expression, state)
		if !ok {
			return nil, fmt.Errorf("provider state has no value for %q", g.Expression)
		}
		value = v
	}

	return convert(value, g.DataType)
}

func interpolate(expression string, state map[string]any) (any, error) {
	matches := placeholder.FindAllStringSubmatchIndex(expression, -1)

	// a lone placeholder keeps the type of the value it resolves to
	if len(matches) == 1 && matches[0][0] == 0 && matches[0][1] == len(expression) {
		return resolvePlaceholder(expression[matches[0][2]:matches[0][3]], state)
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(expression[last:m[0]])
		v, err := resolvePlaceholder(expression[m[2]:m[3]], state)
		if err != nil {
			return nil, err
		}
		b.WriteString(fmt.Sprint(v))
		last = m[1]
	}
	b.WriteString(expression[last:])
	return b.String(), nil
}

// resolvePlaceholder evaluates name as an expression over the state map,
// falling back to a JSON path lookup for names expr cannot resolve
func resolvePlaceholder(name string, state map[string]any) (any, error) {
	name = strings.TrimSpace(name)
	if v, ok := state[name]; ok {
		return v, nil
	}
	if v, err := expr.Eval(name, state); err == nil && v != nil {
		return v, nil
	}
	if v, ok := lookup(name, state); ok {
		return v, nil
	}
	return nil, fmt.Errorf("provider state has no value for ${%s}", name)
}

func lookup(key string, state map[string]any) (any, bool) {
	if v, ok := state[key]; ok {
		return v, true
	}
	if len(state) == 0 {
		return nil, false
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil, false
	}
	res := gjson.GetBytes(data, key)
	if !res.Exists() {
		return nil, false
	}
	return res.Value(), true
}

func convert(value any, dataType DataType) (any, error) {
	switch dataType {
	case DataTypeString:
		return fmt.Sprint(value), nil
	case DataTypeInteger:
		switch v := value.(type) {
		case int, int64:
			return v, nil
		case float64:
			return int64(v), nil
		}
		i, err := strconv.ParseInt(fmt.Sprint(value), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %v to INTEGER", value)
		}
		return i, nil
	case DataTypeDecimal, DataTypeFloat:
		if f, ok := value.(float64); ok {
			return f, nil
		}
		f, err := strconv.ParseFloat(fmt.Sprint(value), 64)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %v to %s", value, dataType)
		}
		return f, nil
	case DataTypeBoolean:
		if b, ok := value.(bool); ok {
			return b, nil
		}
		b, err := strconv.ParseBool(fmt.Sprint(value))
		if err != nil {
			return nil, fmt.Errorf("cannot convert %v to BOOLEAN", value)
		}
		return b, nil
	}
	return value, nil
}

func (g ProviderStateGenerator) ToMap(pactspec.Version) map[string]any {
	m := map[string]any{"type": g.Type(), "expression": g.Expression}
	if g.DataType != "" {
		m["dataType"] = string(g.DataType)
	}
	return m
}
