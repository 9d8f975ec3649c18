// Package matching compares actual HTTP traffic against the expected
// requests and responses of a contract.
package matching

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MismatchKind identifies which part of a request or response differed
type MismatchKind string

const (
	MethodMismatch   MismatchKind = "MethodMismatch"
	PathMismatch     MismatchKind = "PathMismatch"
	QueryMismatch    MismatchKind = "QueryMismatch"
	HeaderMismatch   MismatchKind = "HeaderMismatch"
	BodyTypeMismatch MismatchKind = "BodyTypeMismatch"
	BodyMismatch     MismatchKind = "BodyMismatch"
	StatusMismatch   MismatchKind = "StatusMismatch"
)

// Mismatch describes one difference between expected and actual values
type Mismatch struct {
	Kind MismatchKind `json:"type"`
	// Path is the JSON path for body mismatches and the parameter or header
	// name for query and header mismatches
	Path     string `json:"path,omitempty"`
	Expected any    `json:"expected,omitempty"`
	Actual   any    `json:"actual,omitempty"`
	Message  string `json:"mismatch"`
}

func (m Mismatch) String() string {
	if m.Path == "" {
		return fmt.Sprintf("%s: %s", m.Kind, m.Message)
	}
	return fmt.Sprintf("%s at %s: %s", m.Kind, m.Path, m.Message)
}

// MismatchFactory builds the mismatch reported by a rule so the same
// executors serve bodies, headers, query parameters and status codes
type MismatchFactory func(expected, actual any, message string, path []string) Mismatch

// BodyMismatches reports body mismatches at the JSON path
func BodyMismatches(expected, actual any, message string, path []string) Mismatch {
	return Mismatch{Kind: BodyMismatch, Path: PathString(path), Expected: expected, Actual: actual, Message: message}
}

// HeaderMismatches reports header mismatches for the named header
func HeaderMismatches(expected, actual any, message string, path []string) Mismatch {
	return Mismatch{Kind: HeaderMismatch, Path: lastOf(path), Expected: expected, Actual: actual, Message: message}
}

// QueryMismatches reports query parameter mismatches
func QueryMismatches(expected, actual any, message string, path []string) Mismatch {
	return Mismatch{Kind: QueryMismatch, Path: lastOf(path), Expected: expected, Actual: actual, Message: message}
}

// PathMismatches reports request path mismatches
func PathMismatches(expected, actual any, message string, _ []string) Mismatch {
	return Mismatch{Kind: PathMismatch, Expected: expected, Actual: actual, Message: message}
}

// MethodMismatches reports request method mismatches
func MethodMismatches(expected, actual any, message string, _ []string) Mismatch {
	return Mismatch{Kind: MethodMismatch, Expected: expected, Actual: actual, Message: message}
}

// StatusMismatches reports response status mismatches
func StatusMismatches(expected, actual any, message string, _ []string) Mismatch {
	return Mismatch{Kind: StatusMismatch, Expected: expected, Actual: actual, Message: message}
}

func lastOf(path []string) string {
	if len(path) == 0 {
		return ""
	}
	return path[len(path)-1]
}

// PathString renders path tokens as "$.a.0.b"
func PathString(path []string) string {
	if len(path) == 0 {
		return "$"
	}
	return strings.Join(path, ".")
}

// typeName names the JSON type of a decoded value for messages
func typeName(v any) string {
	switch n := v.(type) {
	case nil:
		return "Null"
	case bool:
		return "Boolean"
	case json.Number:
		if isIntegerNumber(n) {
			return "Integer"
		}
		return "Decimal"
	case int, int64, int32:
		return "Integer"
	case float64, float32:
		return "Decimal"
	case string:
		return "String"
	case []any:
		return "List"
	case map[string]any:
		return "Map"
	}
	return fmt.Sprintf("%T", v)
}

// render formats a value for messages; strings are quoted
func render(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return "'" + val + "'"
	case []any, map[string]any:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
	return fmt.Sprint(v)
}
