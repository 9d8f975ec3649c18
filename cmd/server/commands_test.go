package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/prasenjit/go-pact/internal/config"
)

const pactWithBooleanRule = `{
  "consumer": {"name": "web"},
  "provider": {"name": "users"},
  "interactions": [
    {"description": "get flag", "request": {"method": "GET", "path": "/flag"},
     "response": {"status": 200, "body": {"on": true},
       "matchingRules": {"body": {"$.on": {"matchers": [{"match": "boolean"}]}}}}}
  ],
  "metadata": {"pactSpecification": {"version": "3.0.0"}}
}`

func testCommand() (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	return cmd, out
}

func TestRunValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "web-users.json")
	if err := os.WriteFile(path, []byte(pactWithBooleanRule), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		version string
		wantErr bool
		want    string
	}{
		{"declared version", "", true, "error: interaction \"get flag\" response:"},
		{"checked against V4", "4.0", false, ": ok (web -> users, 4.0, 1 interactions)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validateVersion = tt.version
			defer func() { validateVersion = "" }()

			cmd, out := testCommand()
			err := runValidate(cmd, []string{path})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("Expected output to contain %q, got:\n%s", tt.want, out.String())
			}
		})
	}
}

func TestRunValidate_MissingFile(t *testing.T) {
	cmd, out := testCommand()
	err := runValidate(cmd, []string{filepath.Join(t.TempDir(), "nope.json")})
	if err == nil {
		t.Fatal("Expected an error")
	}
	if !strings.Contains(out.String(), "nope.json") {
		t.Errorf("Expected the file to be reported, got %s", out.String())
	}
}

func TestRunInit(t *testing.T) {
	dir := t.TempDir()
	initPath, initForce = dir, false
	defer func() { initPath, initForce = ".", false }()

	cmd, _ := testCommand()
	if err := runInit(cmd, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	cfg, err := config.Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("generated config is invalid: %v", err)
	}
	if cfg.Server.ReadTimeout != config.Default().Server.ReadTimeout {
		t.Errorf("Expected default read timeout, got %v", cfg.Server.ReadTimeout)
	}
	for _, sub := range []string{"pacts", "data"} {
		if _, err := os.Stat(filepath.Join(dir, sub)); err != nil {
			t.Errorf("Expected %s to be created: %v", sub, err)
		}
	}

	if err := runInit(cmd, nil); err == nil {
		t.Error("Expected an error when config.yaml exists")
	}
	initForce = true
	if err := runInit(cmd, nil); err != nil {
		t.Errorf("Expected --force to overwrite: %v", err)
	}
}
