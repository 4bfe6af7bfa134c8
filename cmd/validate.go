// File: cmd/validate.go
package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/calm-cli/internal/jsonvalue"
	"github.com/xkilldash9x/calm-cli/internal/reporting"
	"github.com/xkilldash9x/calm-cli/internal/validation"
)

// ErrValidationFailed is returned when the outcome contains errors, or
// warnings in strict mode. The report has been written by then.
var ErrValidationFailed = errors.New("validation failed")

type validateOptions struct {
	architecture string
	pattern      string
	format       string
	output       string
	strict       bool
	debug        bool
}

func newValidateCmd() *cobra.Command {
	opts := &validateOptions{}
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate an architecture against a pattern, or either on its own",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, opts)
		},
	}
	flags := validateCmd.Flags()
	flags.StringVarP(&opts.architecture, "architecture", "a", "", "path or URL of the architecture to validate")
	flags.StringVarP(&opts.pattern, "pattern", "p", "", "path or URL of the pattern to validate against")
	flags.StringVarP(&opts.format, "format", "f", "json", "output format: "+strings.Join(reporting.Formats, ", "))
	flags.StringVarP(&opts.output, "output", "o", "", "write the report to this file instead of stdout")
	flags.BoolVar(&opts.strict, "strict", false, "treat warnings as failures")
	flags.BoolVar(&opts.debug, "debug", false, "log every finding while validating")
	return validateCmd
}

func runValidate(cmd *cobra.Command, opts *validateOptions) error {
	if opts.architecture == "" && opts.pattern == "" {
		return fmt.Errorf("%w: pass --architecture, --pattern or both", validation.ErrNothingToValidate)
	}
	a, err := appFrom(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	logger := a.logger.Named("validate")

	dir, cleanup, err := newDirectory(ctx, a)
	if err != nil {
		return err
	}
	defer cleanup()

	var architecture, pattern *jsonvalue.Value
	if opts.pattern != "" {
		if pattern, err = readDocument(ctx, dir, opts.pattern); err != nil {
			return fmt.Errorf("loading pattern: %w", err)
		}
	}
	if opts.architecture != "" {
		if architecture, err = readDocument(ctx, dir, opts.architecture); err != nil {
			return fmt.Errorf("loading architecture: %w", err)
		}
	}

	outcome, err := validation.NewService(dir, a.logger).Validate(ctx, architecture, pattern, opts.debug)
	if err != nil {
		return err
	}

	if err := writeReport(cmd, opts.format, opts.output, outcome); err != nil {
		return err
	}

	strict := opts.strict || a.cfg.Validation().FailOnWarnings
	if outcome.Failed(strict) {
		logger.Info("Validation reported failures",
			zap.String("run_id", outcome.RunID),
			zap.Bool("has_errors", outcome.HasErrors),
			zap.Bool("has_warnings", outcome.HasWarnings),
			zap.Bool("strict", strict))
		return ErrValidationFailed
	}
	return nil
}

func writeReport(cmd *cobra.Command, format, output string, outcome *validation.Outcome) error {
	var (
		rep reporting.Reporter
		err error
	)
	if output == "" {
		rep, err = reporting.NewWithWriter(format, reporting.NopWriteCloser(cmd.OutOrStdout()))
	} else {
		rep, err = reporting.New(format, output)
	}
	if err != nil {
		return err
	}
	if err := rep.Write(outcome); err != nil {
		_ = rep.Close()
		return err
	}
	return rep.Close()
}
