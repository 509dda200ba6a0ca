package main

import (
	"encoding/json"
	"fmt"
	"os"

	"peoplebox/internal/people"
	"peoplebox/internal/policy"
	"peoplebox/internal/textclean"

	"github.com/spf13/cobra"
)

var (
	lintOut      string
	lintCSV      string
	lintPolicy   string
	lintPreclean bool
)

var lintCmd = &cobra.Command{
	Use:   "lint <input.json>",
	Short: "Clean and validate a dossier file",
	Long: `Clean and validate a people dossier from a local file.

The input may be a raw agent paste (code fences, markdown links, smart
quotes); pass --preclean to repair it before the first decode attempt.
An aggressive repair pass runs automatically when decoding fails. On
pass the cleaned dossier is written to --out and a validation report is
printed. On fail the report is printed and no files are written.`,
	Args: cobra.ExactArgs(1),
	RunE: runLint,
}

func init() {
	lintCmd.Flags().StringVarP(&lintOut, "out", "o", "", "Path for the cleaned JSON output (required)")
	lintCmd.Flags().StringVar(&lintCSV, "csv", "", "Optional path for the pivoted review CSV")
	lintCmd.Flags().StringVar(&lintPolicy, "policy", "", "Path to peoplebox.yaml policy file")
	lintCmd.Flags().BoolVar(&lintPreclean, "preclean", false, "Repair raw text before the first decode attempt")
	_ = lintCmd.MarkFlagRequired("out")
}

func runLint(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	pol := policy.Default()
	if lintPolicy != "" {
		pol, err = policy.Load(lintPolicy)
		if err != nil {
			return fmt.Errorf("failed to load policy: %w", err)
		}
	}

	obj, err := textclean.Decode(string(raw), lintPreclean)
	if err != nil {
		return fmt.Errorf("failed to decode dossier: %w", err)
	}

	cleaned := people.Clean(obj, pol)
	people.Renumber(cleaned)
	report := people.Validate(cleaned, pol)

	printReport(report)

	if !report.Passed() {
		os.Exit(1)
	}

	out, err := json.MarshalIndent(cleaned, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cleaned dossier: %w", err)
	}
	if err := os.WriteFile(lintOut, append(out, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write cleaned dossier: %w", err)
	}
	fmt.Printf("Wrote cleaned dossier to %s\n", lintOut)

	if lintCSV != "" {
		csvText, err := people.Pivot(cleaned)
		if err != nil {
			return fmt.Errorf("failed to pivot CSV: %w", err)
		}
		if err := os.WriteFile(lintCSV, []byte(csvText), 0644); err != nil {
			return fmt.Errorf("failed to write CSV: %w", err)
		}
		fmt.Printf("Wrote review CSV to %s\n", lintCSV)
	}

	return nil
}

func printReport(report *people.Report) {
	fmt.Printf("Status: %s (%d people)\n", report.Status, report.PeopleCount)
	for _, e := range report.Errors {
		fmt.Printf("  error: %s\n", e)
	}
	for _, w := range report.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}
