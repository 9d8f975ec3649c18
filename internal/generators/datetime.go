package generators

import (
	"fmt"
	"time"

	"github.com/prasenjit/go-pact/internal/expressions"
	"github.com/prasenjit/go-pact/internal/javatime"
	"github.com/prasenjit/go-pact/internal/pactspec"
)

// DateGenerator produces a date from the context base adjusted by
// Expression and formatted with Format
type DateGenerator struct {
	Format     string
	Expression string
}

// TimeGenerator produces a time of day
type TimeGenerator struct {
	Format     string
	Expression string
}

// DateTimeGenerator produces a timestamp
type DateTimeGenerator struct {
	Format     string
	Expression string
}

func (DateGenerator) generator()     {}
func (TimeGenerator) generator()     {}
func (DateTimeGenerator) generator() {}

func (DateGenerator) Type() string     { return TypeDate }
func (TimeGenerator) Type() string     { return TypeTime }
func (DateTimeGenerator) Type() string { return TypeDateTime }

func (DateGenerator) CorrespondsToMode(m Mode) bool     { return allModes(m) }
func (TimeGenerator) CorrespondsToMode(m Mode) bool     { return allModes(m) }
func (DateTimeGenerator) CorrespondsToMode(m Mode) bool { return allModes(m) }

func (g DateGenerator) Generate(ctx *Context, _ any) (any, error) {
	return generateTime(ctx.baseDate(), g.Expression, g.Format, javatime.DefaultDate, expressions.ExecuteDateExpression)
}

func (g TimeGenerator) Generate(ctx *Context, _ any) (any, error) {
	return generateTime(ctx.baseTime(), g.Expression, g.Format, javatime.DefaultTime, expressions.ExecuteTimeExpression)
}

func (g DateTimeGenerator) Generate(ctx *Context, _ any) (any, error) {
	return generateTime(ctx.baseDateTime(), g.Expression, g.Format, javatime.DefaultDateTime, expressions.ExecuteDateTimeExpression)
}

func generateTime(base time.Time, expression, format, defaultFormat string,
	eval func(time.Time, string) (time.Time, error)) (any, error) {
	t := base
	if expression != "" {
		adjusted, err := eval(base, expression)
		if err != nil {
			return nil, fmt.Errorf("invalid expression %q: %w", expression, err)
		}
		t = adjusted
	}
	if format == "" {
		format = defaultFormat
	}
	return javatime.Format(t, format)
}

func (g DateGenerator) ToMap(pactspec.Version) map[string]any {
	return timeGeneratorMap(g.Type(), g.Format, g.Expression)
}

func (g TimeGenerator) ToMap(pactspec.Version) map[string]any {
	return timeGeneratorMap(g.Type(), g.Format, g.Expression)
}

func (g DateTimeGenerator) ToMap(pactspec.Version) map[string]any {
	return timeGeneratorMap(g.Type(), g.Format, g.Expression)
}

func timeGeneratorMap(typ, format, expression string) map[string]any {
	m := map[string]any{"type": typ}
	if format != "" {
		m["format"] = format
	}
	if expression != "" {
		m["expression"] = expression
	}
	return m
}
