package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/entsync/internal/schema"
	"github.com/roach88/entsync/internal/transform"
)

const (
	markPass = "\u2713"
	markFail = "\u2717"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                     `json:"valid"`
	Entities []string                 `json:"entities,omitempty"`
	Errors   []schema.ValidationError `json:"errors,omitempty"`
	Warnings []schema.ValidationError `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [schema-dir]",
		Short: "Validate entity declarations",
		Long: `Validate the CUE and YAML entity declarations in a directory.

Reports declaration errors (unknown targets, duplicate fields, bad
cardinality) and warnings (unknown transformers, relationships that can
never be resolved). Warnings do not fail validation.

The directory defaults to --schema.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := rootOpts.Schema
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				return NewExitError(ExitCommandError, "schema directory required (argument or --schema)")
			}
			return runValidate(rootOpts, dir, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loadResult, loadErrors := schema.LoadDir(dir, schema.LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *schema.LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputValidateError(formatter, schema.ErrCodeGeneric, loadErrors[0].Error())
	}

	formatter.VerboseLog("Found %d CUE and %d YAML file(s) in %s",
		len(loadResult.CUEFiles), len(loadResult.YAMLFiles), dir)

	issues := schema.Validate(loadResult.Decls, transform.Default())
	for _, err := range loadErrors {
		issue := schema.ValidationError{
			Field:    "load",
			Message:  err.Error(),
			Code:     schema.ErrCodeGeneric,
			Severity: schema.SeverityError,
		}
		var loadErr *schema.LoadError
		if errors.As(err, &loadErr) {
			issue.Message = loadErr.Message
			issue.Code = loadErr.Code
			if loadErr.Pos.IsValid() {
				issue.Line = loadErr.Pos.Line()
			}
		}
		issues = append(issues, issue)
	}

	result := ValidationResult{
		Errors:   schema.Errors(issues),
		Warnings: schema.Warnings(issues),
	}
	result.Valid = len(result.Errors) == 0
	for _, decl := range loadResult.Decls {
		result.Entities = append(result.Entities, decl.Name)
		formatter.VerboseLog("Validated entity: %s", decl.Name)
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "%s %d entities valid\n", markPass, len(result.Entities))
	printIssues(formatter, "warning", result.Warnings)
	return nil
}

// outputValidateError outputs an error that stopped loading. These are
// command errors (exit code 2).
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs declaration errors. Validation failures
// exit with code 1.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))

	if formatter.JSON() {
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    result.Errors[0].Code,
				Message: result.Errors[0].Message,
			},
		}); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintf(formatter.Writer, "%s Validation failed\n\n", markFail)
	printIssues(formatter, "error", result.Errors)
	printIssues(formatter, "warning", result.Warnings)
	return failure
}

func printIssues(formatter *OutputFormatter, kind string, issues []schema.ValidationError) {
	for _, issue := range issues {
		if issue.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", issue.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s %s: %s: %s\n", kind, issue.Code, issue.Field, issue.Message)
	}
}
