package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rina-forks/gtirb/internal/codec"
	"github.com/rina-forks/gtirb/internal/ir"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	InputFormat string
}

// ValidationIssue is one problem found in a document.
type ValidationIssue struct {
	Code    string `json:"code"`
	Path    string `json:"path,omitempty"`
	Pos     string `json:"pos,omitempty"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Modules  int               `json:"modules,omitempty"`
	Entities int               `json:"entities,omitempty"`
	Errors   []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check an IR file without converting it",
		Long: `Validate an IR file.

The document is checked against the IR schema (field names, types and enum
values), decoded, and rebuilt so that every identifier is unique and every
reference resolves.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.InputFormat, "input-format", "", "input encoding (cbor|json|yaml), inferred from the extension by default")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	in, err := readFile(formatter, path, opts.InputFormat)
	if err != nil {
		return err
	}

	if err := codec.Validate(in.data, in.format); err != nil {
		var se *codec.SchemaError
		if errors.As(err, &se) {
			issues := make([]ValidationIssue, len(se.Issues))
			for i, is := range se.Issues {
				issues[i] = ValidationIssue{Code: ErrCodeSchema, Path: is.Path, Pos: is.Pos, Message: is.Message}
			}
			return outputValidationErrors(formatter, issues)
		}
		return outputValidationErrors(formatter, []ValidationIssue{{Code: ErrCodeDecodeFailed, Message: err.Error()}})
	}
	formatter.VerboseLog("schema check passed")

	msg, err := codec.Decode(in.format, in.data)
	if err != nil {
		return outputValidationErrors(formatter, []ValidationIssue{{Code: ErrCodeDecodeFailed, Message: err.Error()}})
	}
	x, err := ir.IRFromWire(ir.NewContext(), msg)
	if err != nil {
		return outputValidationErrors(formatter, []ValidationIssue{{Code: ErrCodeLoadFailed, Message: err.Error()}})
	}

	result := ValidationResult{Valid: true, Modules: len(x.Modules()), Entities: x.Context().Len()}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ %s is valid (%d modules, %d entities)\n", path, result.Modules, result.Entities)
	return nil
}

// outputValidationErrors outputs validation failures and returns the
// failure exit error.
func outputValidationErrors(formatter *OutputFormatter, issues []ValidationIssue) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: issues},
			Error: &CLIError{
				Code:    issues[0].Code,
				Message: issues[0].Message,
			},
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, is := range issues {
		if is.Pos != "" {
			fmt.Fprintln(formatter.Writer, is.Pos)
		}
		if is.Path != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", is.Code, is.Path, is.Message)
			continue
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", is.Code, is.Message)
	}
	return failure
}
