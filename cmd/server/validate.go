package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prasenjit/go-pact/internal/pactspec"
	"github.com/prasenjit/go-pact/internal/parser"
)

var validateCmd = &cobra.Command{
	Use:   "validate <pact-file>...",
	Short: "Check pact files for rules their specification version does not support",
	Long: `Parses each pact file and reports warnings (skipped message interactions,
duplicate interactions, missing participant names) and matching rules that
the pact's specification version does not support.

Use --spec-version to check against another version than the one the file
declares, for example before writing it out as V3.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

var validateVersion string

func init() {
	validateCmd.Flags().StringVar(&validateVersion, "spec-version", "", "check against this specification version")
}

func runValidate(cmd *cobra.Command, args []string) error {
	var opts []parser.Option
	if validateVersion != "" {
		v, err := pactspec.Parse(validateVersion)
		if err != nil {
			return err
		}
		opts = append(opts, parser.WithTargetVersion(v))
	}
	p := parser.NewParser(opts...)

	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		result, err := p.ParseFile(path)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", path, err)
			failed++
			continue
		}

		status := "ok"
		if !result.Valid() {
			status = "invalid"
			failed++
		}
		fmt.Fprintf(out, "%s: %s (%s -> %s, %s, %d interactions)\n", path, status,
			result.Pact.Consumer, result.Pact.Provider, result.Version, len(result.Pact.Interactions))
		for _, w := range result.Warnings {
			fmt.Fprintf(out, "  warning: %s\n", w)
		}
		for _, d := range result.Diagnostics {
			fmt.Fprintf(out, "  error: %s\n", d)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d pact file(s) failed validation", failed, len(args))
	}
	return nil
}
