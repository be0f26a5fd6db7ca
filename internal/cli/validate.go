package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/volition/internal/harness"
)

// ErrCodeScenarioInvalid is the error code for scenario validation failures.
const ErrCodeScenarioInvalid = "E_SCENARIO_INVALID"

// ScenarioIssue describes one invalid scenario file.
type ScenarioIssue struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool            `json:"valid"`
	Checked int             `json:"checked"`
	Errors  []ScenarioIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenarios-dir>",
		Short: "Validate scenarios without running them",
		Long: `Validate scenario files against the scenario schema without executing them.

Performs YAML parsing, schema validation, and reference checks (every
wish, bootstrap entry, and follow-up must name a scripted action).
Faster than test for development feedback.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, scenariosDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	files, err := findScenarioFiles(scenariosDir, "")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	var issues []ScenarioIssue
	if len(files) == 0 {
		issues = append(issues, ScenarioIssue{
			File:    scenariosDir,
			Message: "no scenario files found",
		})
	}

	for _, file := range files {
		formatter.VerboseLog("Validating scenario: %s", file)
		if _, err := harness.LoadScenario(file); err != nil {
			issues = append(issues, ScenarioIssue{
				File:    filepath.Base(file),
				Message: err.Error(),
			})
		}
	}

	if len(issues) > 0 {
		return outputValidationErrors(formatter, len(files), issues)
	}

	return outputValidateSuccess(formatter, len(files))
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, checked int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Checked: checked})
	}

	fmt.Fprintf(formatter.Writer, "✓ All scenarios valid (%d checked)\n", checked)
	return nil
}

// outputValidationErrors outputs validation failures.
func outputValidationErrors(formatter *OutputFormatter, checked int, issues []ScenarioIssue) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:   false,
				Checked: checked,
				Errors:  issues,
			},
			Error: &CLIError{
				Code:    ErrCodeScenarioInvalid,
				Message: issues[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, issue := range issues {
		fmt.Fprintf(formatter.Writer, "%s\n", issue.File)
		fmt.Fprintf(formatter.Writer, "  %s\n\n", issue.Message)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
}
