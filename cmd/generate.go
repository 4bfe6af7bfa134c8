// File: cmd/generate.go
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/calm-cli/internal/instantiate"
	"github.com/xkilldash9x/calm-cli/internal/jsonvalue"
)

type generateOptions struct {
	pattern string
	output  string
	debug   bool
}

func newGenerateCmd() *cobra.Command {
	opts := &generateOptions{}
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an architecture skeleton from a pattern",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts)
		},
	}
	flags := generateCmd.Flags()
	flags.StringVarP(&opts.pattern, "pattern", "p", "", "path or URL of the pattern to instantiate")
	flags.StringVarP(&opts.output, "output", "o", "", "write the architecture to this file instead of stdout")
	flags.BoolVar(&opts.debug, "debug", false, "trace every emitted field")
	_ = generateCmd.MarkFlagRequired("pattern")
	return generateCmd
}

func runGenerate(cmd *cobra.Command, opts *generateOptions) error {
	a, err := appFrom(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	dir, cleanup, err := newDirectory(ctx, a)
	if err != nil {
		return err
	}
	defer cleanup()

	pattern, err := readDocument(ctx, dir, opts.pattern)
	if err != nil {
		return fmt.Errorf("loading pattern: %w", err)
	}
	architecture, err := instantiate.Instantiate(ctx, pattern, dir, a.logger, opts.debug)
	if err != nil {
		return err
	}

	data := append(jsonvalue.MarshalIndent(architecture, "  "), '\n')
	if opts.output == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if dirName := filepath.Dir(opts.output); dirName != "." {
		if err := os.MkdirAll(dirName, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", opts.output, err)
	}
	a.logger.Info("Architecture written", zap.String("path", opts.output))
	return nil
}
