// File: internal/reporting/json_reporter.go
package reporting

import (
	"fmt"
	"io"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/calm-cli/internal/validation"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONReporter writes each outcome as an indented JSON document.
type JSONReporter struct {
	mu     sync.Mutex
	writer io.WriteCloser
}

func NewJSONReporter(writer io.WriteCloser) *JSONReporter {
	return &JSONReporter{writer: writer}
}

func (r *JSONReporter) Write(outcome *validation.Outcome) error {
	data, err := jsonAPI.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding outcome %s: %w", outcome.RunID, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing outcome %s: %w", outcome.RunID, err)
	}
	return nil
}

func (r *JSONReporter) Close() error {
	return r.writer.Close()
}
