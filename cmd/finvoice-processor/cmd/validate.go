package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/finvoice-processor/internal/finvoice/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Validate Finvoice files against the XSD",
	Long: `Validate one or more Finvoice XML files against the embedded
Finvoice XML Schema Definition for their declared version.

Examples:
  finvoice-processor validate invoice.xml
  finvoice-processor validate *.xml -f table`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to validate")
	}

	validator := schema.NewValidator()
	results := make([]*ValidationResult, 0, len(files))
	allValid := true

	for _, file := range files {
		result := &ValidationResult{File: file}

		data, err := os.ReadFile(file)
		if err != nil {
			result.Violations = []string{fmt.Sprintf("failed to read file: %v", err)}
		} else {
			sr := validator.ValidateBytes(data)
			result.Valid = sr.Valid
			result.Version = sr.Version
			result.Violations = sr.Violations
		}

		if !result.Valid {
			allValid = false
		}
		results = append(results, result)
	}

	if outputFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Valid {
				fmt.Printf("✓ %s: VALID (Finvoice %s)\n", r.File, r.Version)
			} else {
				fmt.Printf("✗ %s: INVALID\n", r.File)
				for _, v := range r.Violations {
					fmt.Printf("  - %s\n", v)
				}
			}
		}
	}

	if !allValid {
		return fmt.Errorf("validation failed for some files")
	}
	return nil
}

// ValidationResult holds the result of validating a single file
type ValidationResult struct {
	File       string   `json:"file"`
	Valid      bool     `json:"valid"`
	Version    string   `json:"version,omitempty"`
	Violations []string `json:"violations,omitempty"`
}
