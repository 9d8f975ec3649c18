package generators

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lucasjones/reggen"

	"github.com/prasenjit/go-pact/internal/pactspec"
)

// RandomIntGenerator produces an integer in [Min, Max)
type RandomIntGenerator struct {
	Min int
	Max int
}

// RandomDecimalGenerator produces a decimal with exactly Digits significant
// digits
type RandomDecimalGenerator struct {
	Digits int
}

// RandomHexadecimalGenerator produces Digits lower-case hex characters
type RandomHexadecimalGenerator struct {
	Digits int
}

// RandomStringGenerator produces Size alphanumeric characters
type RandomStringGenerator struct {
	Size int
}

// RegexGenerator produces a string matching Regex
type RegexGenerator struct {
	Regex string
}

// UUIDFormat selects the textual form of a generated UUID
type UUIDFormat string

const (
	UUIDSimple              UUIDFormat = "simple"
	UUIDLowerCaseHyphenated UUIDFormat = "lower-case-hyphenated"
	UUIDUpperCaseHyphenated UUIDFormat = "upper-case-hyphenated"
	UUIDURN                 UUIDFormat = "URN"
)

// UUIDGenerator produces a random UUID
type UUIDGenerator struct {
	Format UUIDFormat
}

// RandomBooleanGenerator produces true or false
type RandomBooleanGenerator struct{}

func (RandomIntGenerator) generator()         {}
func (RandomDecimalGenerator) generator()     {}
func (RandomHexadecimalGenerator) generator() {}
func (RandomStringGenerator) generator()      {}
func (RegexGenerator) generator()             {}
func (UUIDGenerator) generator()              {}
func (RandomBooleanGenerator) generator()     {}

func (RandomIntGenerator) Type() string         { return TypeRandomInt }
func (RandomDecimalGenerator) Type() string     { return TypeRandomDecimal }
func (RandomHexadecimalGenerator) Type() string { return TypeRandomHexadecimal }
func (RandomStringGenerator) Type() string      { return TypeRandomString }
func (RegexGenerator) Type() string             { return TypeRegex }
func (UUIDGenerator) Type() string              { return TypeUUID }
func (RandomBooleanGenerator) Type() string     { return TypeRandomBoolean }

func (RandomIntGenerator) CorrespondsToMode(m Mode) bool         { return allModes(m) }
func (RandomDecimalGenerator) CorrespondsToMode(m Mode) bool     { return allModes(m) }
func (RandomHexadecimalGenerator) CorrespondsToMode(m Mode) bool { return allModes(m) }
func (RandomStringGenerator) CorrespondsToMode(m Mode) bool      { return allModes(m) }
func (RegexGenerator) CorrespondsToMode(m Mode) bool             { return allModes(m) }
func (UUIDGenerator) CorrespondsToMode(m Mode) bool              { return allModes(m) }
func (RandomBooleanGenerator) CorrespondsToMode(m Mode) bool     { return allModes(m) }

func (g RandomIntGenerator) Generate(*Context, any) (any, error) {
	if g.Max <= g.Min {
		return nil, fmt.Errorf("RandomInt: max (%d) must be greater than min (%d)", g.Max, g.Min)
	}
	return g.Min + rand.IntN(g.Max-g.Min), nil
}

func (g RandomIntGenerator) ToMap(pactspec.Version) map[string]any {
	return map[string]any{"type": g.Type(), "min": g.Min, "max": g.Max}
}

// Generate returns a json.Number so the digits survive serialisation as
// written. A single digit is returned without a fractional part.
func (g RandomDecimalGenerator) Generate(*Context, any) (any, error) {
	if g.Digits < 1 {
		return nil, fmt.Errorf("RandomDecimal: digits must be at least 1, got %d", g.Digits)
	}
	if g.Digits == 1 {
		return json.Number(strconv.Itoa(rand.IntN(10))), nil
	}

	var b strings.Builder
	b.WriteByte(byte('1' + rand.IntN(9)))
	for i := 1; i < g.Digits; i++ {
		b.WriteByte(byte('0' + rand.IntN(10)))
	}
	digits := b.String()
	point := 1 + rand.IntN(g.Digits-1)
	return json.Number(digits[:point] + "." + digits[point:]), nil
}

func (g RandomDecimalGenerator) ToMap(pactspec.Version) map[string]any {
	return map[string]any{"type": g.Type(), "digits": g.Digits}
}

const hexChars = "0123456789abcdef"

func (g RandomHexadecimalGenerator) Generate(*Context, any) (any, error) {
	if g.Digits < 0 {
		return nil, fmt.Errorf("RandomHexadecimal: digits must not be negative, got %d", g.Digits)
	}
	return randomFrom(hexChars, g.Digits), nil
}

func (g RandomHexadecimalGenerator) ToMap(pactspec.Version) map[string]any {
	return map[string]any{"type": g.Type(), "digits": g.Digits}
}

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func (g RandomStringGenerator) Generate(*Context, any) (any, error) {
	if g.Size < 0 {
		return nil, fmt.Errorf("RandomString: size must not be negative, got %d", g.Size)
	}
	return randomFrom(alphanumeric, g.Size), nil
}

func (g RandomStringGenerator) ToMap(pactspec.Version) map[string]any {
	return map[string]any{"type": g.Type(), "size": g.Size}
}

func randomFrom(chars string, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = chars[rand.IntN(len(chars))]
	}
	return string(b)
}

// regexLimit bounds the repetition of unbounded quantifiers
const regexLimit = 10

func (g RegexGenerator) Generate(*Context, any) (any, error) {
	s, err := reggen.Generate(strings.TrimSuffix(strings.TrimPrefix(g.Regex, "^"), "$"), regexLimit)
	if err != nil {
		return nil, fmt.Errorf("Regex: invalid expression %q: %w", g.Regex, err)
	}
	return s, nil
}

func (g RegexGenerator) ToMap(pactspec.Version) map[string]any {
	return map[string]any{"type": g.Type(), "regex": g.Regex}
}

func (g UUIDGenerator) Generate(*Context, any) (any, error) {
	id := uuid.New()
	switch g.Format {
	case UUIDSimple:
		return strings.ReplaceAll(id.String(), "-", ""), nil
	case UUIDUpperCaseHyphenated:
		return strings.ToUpper(id.String()), nil
	case UUIDURN:
		return id.URN(), nil
	default:
		return id.String(), nil
	}
}

func (g UUIDGenerator) ToMap(pactspec.Version) map[string]any {
	m := map[string]any{"type": g.Type()}
	if g.Format != "" {
		m["format"] = string(g.Format)
	}
	return m
}

func (RandomBooleanGenerator) Generate(*Context, any) (any, error) {
	return rand.IntN(2) == 1, nil
}

func (g RandomBooleanGenerator) ToMap(pactspec.Version) map[string]any {
	return map[string]any{"type": g.Type()}
}
