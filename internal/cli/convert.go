package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rina-forks/gtirb/internal/codec"
)

// ConvertOptions holds flags for the convert command.
type ConvertOptions struct {
	*RootOptions
	Output      string
	To          string
	InputFormat string
}

// ConvertResult is the JSON payload of convert.
type ConvertResult struct {
	Input  string `json:"input"`
	Output string `json:"output"`
	From   string `json:"from"`
	To     string `json:"to"`
	Digest string `json:"digest"`
}

func (r ConvertResult) String() string {
	return fmt.Sprintf("converted %s (%s) -> %s (%s)", r.Input, r.From, r.Output, r.To)
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConvertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "convert <input>",
		Short: "Re-encode an IR file",
		Long: `Convert an IR file between CBOR, JSON and YAML.

The input is fully rebuilt before it is written, so references that do not
resolve are reported instead of copied. The output encoding is taken from
--to, or from the extension of --output.

Example:
  gtirb convert hello.gtirb -o hello.yaml
  gtirb convert hello.json -o hello.out --to cbor`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (required)")
	cmd.Flags().StringVar(&opts.To, "to", "", "output encoding (cbor|json|yaml)")
	cmd.Flags().StringVar(&opts.InputFormat, "input-format", "", "input encoding (cbor|json|yaml), inferred from the extension by default")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runConvert(opts *ConvertOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	to, err := resolveFormat(opts.Output, opts.To)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeUnknownFormat,
			fmt.Sprintf("cannot determine output format for %s", opts.Output), err)
	}

	in, err := readInput(formatter, path, opts.InputFormat)
	if err != nil {
		return err
	}
	x, err := in.build(formatter, ExitCommandError)
	if err != nil {
		return err
	}

	msg := x.ToWire()
	if err := writeOutput(formatter, opts.Output, to, msg); err != nil {
		return err
	}
	digest, err := codec.Digest(msg)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "cannot digest output", err)
	}

	return formatter.Success(ConvertResult{
		Input:  path,
		Output: opts.Output,
		From:   string(in.format),
		To:     string(to),
		Digest: digest,
	})
}
