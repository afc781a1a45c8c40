package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"fleetgrid/warden/pkg/policy/source"
	"fleetgrid/warden/pkg/policy/validator"
)

var lintFlags struct {
	file   string
	dir    string
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate policy files",
	Long: `Validate Warden policy YAML files offline.

The lint command parses policy files and runs the same write-time validation
the policy store applies:
  - YAML syntax validation
  - Condition tree structure (combinator arity, tree depth)
  - Operator, mode, polarity, and severity enums
  - Action shape

Examples:
  # Lint a single file
  warden lint --file policies.yaml

  # Lint a directory
  warden lint --dir policies/

  # JSON output for CI
  warden lint --dir policies/ --format json`,
	RunE: lintPolicies,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFlags.file, "file", "f", "", "policy file to validate")
	lintCmd.Flags().StringVarP(&lintFlags.dir, "dir", "d", "", "directory of policy files")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
}

// lintResult is the validation outcome for one policy file.
type lintResult struct {
	File     string   `json:"file"`
	Valid    bool     `json:"valid"`
	Policies int      `json:"policies"`
	Errors   []string `json:"errors,omitempty"`
}

func lintPolicies(cmd *cobra.Command, args []string) error {
	if lintFlags.file == "" && lintFlags.dir == "" {
		return fmt.Errorf("either --file or --dir must be specified")
	}

	var files []string
	if lintFlags.file != "" {
		files = append(files, lintFlags.file)
	}
	if lintFlags.dir != "" {
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(lintFlags.dir, pattern))
			if err != nil {
				return fmt.Errorf("failed to list policy files: %w", err)
			}
			files = append(files, matches...)
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no policy files found")
	}

	results := make([]lintResult, 0, len(files))
	for _, file := range files {
		results = append(results, lintFile(file))
	}

	if lintFlags.format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(results); err != nil {
			return err
		}
		return lintExitStatus(results)
	}

	for _, result := range results {
		fmt.Printf("Validating %s...\n", result.File)
		if result.Valid {
			fmt.Printf("✓ %d policy(ies) valid\n", result.Policies)
		}
		for _, msg := range result.Errors {
			fmt.Printf("✗ Error: %s\n", msg)
		}
		fmt.Println()
	}
	return lintExitStatus(results)
}

func lintFile(path string) lintResult {
	result := lintResult{File: path, Valid: true}

	policies, err := source.LoadFile(path)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	result.Policies = len(policies)

	for _, p := range policies {
		// Versions are assigned by the store, not authored in files.
		if p.Version == 0 {
			p.Version = 1
		}
		if err := validator.Validate(p); err != nil {
			result.Valid = false
			var verr *validator.ValidationError
			if errors.As(err, &verr) {
				for _, msg := range verr.Errors {
					result.Errors = append(result.Errors, fmt.Sprintf("policy %s: %s", p.ID, msg))
				}
			} else {
				result.Errors = append(result.Errors, err.Error())
			}
		}
	}
	return result
}

func lintExitStatus(results []lintResult) error {
	total := 0
	for _, r := range results {
		total += len(r.Errors)
	}
	if total > 0 {
		return fmt.Errorf("validation failed: %d error(s)", total)
	}
	return nil
}
