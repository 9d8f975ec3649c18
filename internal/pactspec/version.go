package pactspec

import (
	"fmt"
	"strings"
)

// Version is the pact specification version a contract file is written in
type Version int

// Supported specification versions. Unknown is the zero value.
const (
	Unknown Version = iota
	V1
	V1_1
	V2
	V3
	V4
)

// Default is the version used when a contract does not declare one
const Default = V3

var versionNames = map[Version]string{
	V1:   "1.0.0",
	V1_1: "1.1.0",
	V2:   "2.0.0",
	V3:   "3.0.0",
	V4:   "4.0",
}

// String returns the version as it is written into pact metadata
func (v Version) String() string {
	if name, ok := versionNames[v]; ok {
		return name
	}
	return "unknown"
}

// AtLeast reports whether v is the same as or newer than other
func (v Version) AtLeast(other Version) bool {
	return v >= other
}

// Parse parses a version string such as "3.0.0", "v4", "V2" or "4.0"
func Parse(s string) (Version, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.ToLower(s), "v"))
	if s == "" {
		return Unknown, fmt.Errorf("empty pact specification version")
	}

	switch {
	case s == "1.1" || strings.HasPrefix(s, "1.1."):
		return V1_1, nil
	case s == "1" || strings.HasPrefix(s, "1."):
		return V1, nil
	case s == "2" || strings.HasPrefix(s, "2."):
		return V2, nil
	case s == "3" || strings.HasPrefix(s, "3."):
		return V3, nil
	case s == "4" || strings.HasPrefix(s, "4."):
		return V4, nil
	}

	return Unknown, fmt.Errorf("unsupported pact specification version: %s", s)
}

// FromMetadata extracts the specification version from a pact file metadata
// block. Both the V3+ "pactSpecification" and the older "pact-specification"
// keys are recognised. Missing or malformed metadata yields Default.
func FromMetadata(metadata map[string]any) Version {
	for _, key := range []string{"pactSpecification", "pact-specification"} {
		block, ok := metadata[key].(map[string]any)
		if !ok {
			continue
		}
		if s, ok := block["version"].(string); ok {
			if v, err := Parse(s); err == nil {
				return v
			}
		}
	}
	if s, ok := metadata["pactSpecificationVersion"].(string); ok {
		if v, err := Parse(s); err == nil {
			return v
		}
	}
	return Default
}
