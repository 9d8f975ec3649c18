package pactspec

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		expected Version
		wantErr  bool
	}{
		{"1.0.0", V1, false},
		{"1.1.0", V1_1, false},
		{"2.0.0", V2, false},
		{"v3", V3, false},
		{"V4", V4, false},
		{"4.0", V4, false},
		{"", Unknown, true},
		{"9.0.0", Unknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v != tt.expected {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, v, tt.expected)
			}
		})
	}
}

func TestFromMetadata(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]any
		expected Version
	}{
		{"v3 key", map[string]any{"pactSpecification": map[string]any{"version": "3.0.0"}}, V3},
		{"legacy key", map[string]any{"pact-specification": map[string]any{"version": "2.0.0"}}, V2},
		{"v4", map[string]any{"pactSpecification": map[string]any{"version": "4.0"}}, V4},
		{"missing", map[string]any{}, Default},
		{"nil", nil, Default},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromMetadata(tt.metadata); got != tt.expected {
				t.Errorf("FromMetadata() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAtLeast(t *testing.T) {
	if !V4.AtLeast(V4) {
		t.Error("V4 should be at least V4")
	}
	if V3.AtLeast(V4) {
		t.Error("V3 should not be at least V4")
	}
	if V4.String() != "4.0" {
		t.Errorf("unexpected V4 string %q", V4.String())
	}
}
