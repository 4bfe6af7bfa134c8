// File: internal/reporting/reporter.go
package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/xkilldash9x/calm-cli/internal/validation"
)

// Reporter renders validation outcomes to an output.
type Reporter interface {
	// Write renders one outcome. Reporters that produce a single document
	// may buffer until Close.
	Write(outcome *validation.Outcome) error
	// Close finalizes the report and closes the underlying writer.
	Close() error
}

// Formats lists the supported output formats.
var Formats = []string{"json", "junit", "pretty"}

type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// NopWriteCloser lets a reporter write to w without closing it.
func NopWriteCloser(w io.Writer) io.WriteCloser {
	return &nopWriteCloser{w}
}

// New creates a reporter for format writing to outputPath. An empty path or
// "stdout" writes to standard output.
func New(format, outputPath string) (Reporter, error) {
	switch format {
	case "json", "junit", "pretty":
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		writer = NopWriteCloser(os.Stdout)
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}
	return NewWithWriter(format, writer)
}

// NewWithWriter creates a reporter that takes ownership of writer.
func NewWithWriter(format string, writer io.WriteCloser) (Reporter, error) {
	switch format {
	case "json":
		return NewJSONReporter(writer), nil
	case "junit":
		return NewJUnitReporter(writer), nil
	case "pretty":
		return NewPrettyReporter(writer), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
