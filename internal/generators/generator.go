// Package generators produces replacement values for the variable parts of
// a contract when a mock response or a provider request is built.
package generators

import (
	"time"

	"github.com/prasenjit/go-pact/internal/pactspec"
)

// Mode is the side of the contract test a value is generated for
type Mode int

const (
	// Consumer is mock-server mode, generating responses
	Consumer Mode = iota
	// Provider is verification mode, generating requests
	Provider
)

func (m Mode) String() string {
	if m == Provider {
		return "provider"
	}
	return "consumer"
}

// Generator type tags as they appear in pact files
const (
	TypeRandomInt         = "RandomInt"
	TypeRandomDecimal     = "RandomDecimal"
	TypeRandomHexadecimal = "RandomHexadecimal"
	TypeRandomString      = "RandomString"
	TypeRegex             = "Regex"
	TypeUUID              = "Uuid"
	TypeDate              = "Date"
	TypeTime              = "Time"
	TypeDateTime          = "DateTime"
	TypeRandomBoolean     = "RandomBoolean"
	TypeProviderState     = "ProviderState"
	TypeMockServerURL     = "MockServerURL"
)

// Generator produces a value, optionally derived from the example value it
// replaces. The set of implementations is closed.
type Generator interface {
	// Type is the value of the "type" attribute in a pact file
	Type() string
	Generate(ctx *Context, example any) (any, error)
	ToMap(version pactspec.Version) map[string]any
	// CorrespondsToMode reports whether the generator applies in mode
	CorrespondsToMode(mode Mode) bool

	generator()
}

// Context carries the inputs shared by every generator applied to one
// document
type Context struct {
	Mode Mode
	// Now is sampled once so that every timestamp in a document agrees
	Now          time.Time
	BaseDate     time.Time
	BaseTime     time.Time
	BaseDateTime time.Time
	// ProviderState holds the parameters returned by provider state setup
	ProviderState map[string]any
	// MockServerURL is the base URL of the running mock server
	MockServerURL string
}

// NewContext creates a context for mode with Now set to the current time
func NewContext(mode Mode) *Context {
	return &Context{Mode: mode, Now: time.Now()}
}

func (c *Context) now() time.Time {
	if c == nil || c.Now.IsZero() {
		return time.Now()
	}
	return c.Now
}

func (c *Context) baseDate() time.Time {
	if c != nil && !c.BaseDate.IsZero() {
		return c.BaseDate
	}
	return c.now()
}

func (c *Context) baseTime() time.Time {
	if c != nil && !c.BaseTime.IsZero() {
		return c.BaseTime
	}
	return c.now()
}

func (c *Context) baseDateTime() time.Time {
	if c != nil && !c.BaseDateTime.IsZero() {
		return c.BaseDateTime
	}
	return c.now()
}

func allModes(Mode) bool { return true }
