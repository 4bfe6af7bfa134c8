// File: internal/reporting/pretty_reporter.go
package reporting

import (
	"fmt"
	"io"
	"strconv"
	"sync"
	"text/tabwriter"

	"github.com/xkilldash9x/calm-cli/internal/validation"
)

// PrettyReporter prints a human readable table per validation stage followed
// by a summary line.
type PrettyReporter struct {
	mu     sync.Mutex
	writer io.WriteCloser
}

func NewPrettyReporter(writer io.WriteCloser) *PrettyReporter {
	return &PrettyReporter{writer: writer}
}

func (r *PrettyReporter) Write(outcome *validation.Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tw := tabwriter.NewWriter(r.writer, 0, 4, 2, ' ', 0)
	writeSection(tw, "JSON schema validation", outcome.JSONSchemaOutputs)
	writeSection(tw, "Rule validation", outcome.RuleOutputs)

	errs, warns := 0, 0
	for _, out := range outcome.AllOutputs() {
		if out.Severity == validation.SeverityError {
			errs++
		} else {
			warns++
		}
	}
	fmt.Fprintf(tw, "%d error(s), %d warning(s)\n", errs, warns)
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func writeSection(w io.Writer, title string, outputs []validation.Output) {
	fmt.Fprintf(w, "%s\n", title)
	if len(outputs) == 0 {
		fmt.Fprint(w, "  no issues found\n\n")
		return
	}
	fmt.Fprint(w, "  SEVERITY\tCODE\tPATH\tLINE\tMESSAGE\n")
	for _, out := range outputs {
		line := "-"
		if out.Range != nil {
			line = strconv.Itoa(out.Range.Start.Line)
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n", out.Severity, out.Code, out.Path, line, out.Message)
	}
	fmt.Fprint(w, "\n")
}

func (r *PrettyReporter) Close() error {
	return r.writer.Close()
}
