package generators

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/prasenjit/go-pact/internal/pactspec"
)

// MockServerURLGenerator rewrites a URL in the example so that it points at
// the running mock server. Regex must capture the part of the example that
// is kept.
type MockServerURLGenerator struct {
	Example string
	Regex   string
}

func (MockServerURLGenerator) generator()   {}
func (MockServerURLGenerator) Type() string { return TypeMockServerURL }

func (MockServerURLGenerator) CorrespondsToMode(m Mode) bool { return m == Consumer }

func (g MockServerURLGenerator) Generate(ctx *Context, example any) (any, error) {
	if ctx == nil || ctx.MockServerURL == "" {
		return nil, fmt.Errorf("MockServerURL: no mock server URL in context")
	}
	re, err := regexp.Compile(g.Regex)
	if err != nil {
		return nil, fmt.Errorf("MockServerURL: invalid regex %q: %w", g.Regex, err)
	}

	source := g.Example
	if s, ok := example.(string); ok && s != "" {
		source = s
	}
	m := re.FindStringSubmatch(source)
	if len(m) < 2 {
		return nil, fmt.Errorf("MockServerURL: %q does not match %q", source, g.Regex)
	}
	return strings.TrimSuffix(ctx.MockServerURL, "/") + m[1], nil
}

func (g MockServerURLGenerator) ToMap(pactspec.Version) map[string]any {
	return map[string]any{"type": g.Type(), "example": g.Example, "regex": g.Regex}
}
