// File: internal/validation/outcome.go
package validation

import (
	"github.com/xkilldash9x/calm-cli/internal/jsonvalue"
	"github.com/xkilldash9x/calm-cli/internal/validation/rules"
)

// Severity of an Output.
type Severity = rules.Severity

const (
	SeverityError   = rules.SeverityError
	SeverityWarning = rules.SeverityWarning
)

// CodeJSONSchema is the code of every structural finding.
const CodeJSONSchema = "json-schema"

// Source names the document a finding was raised against.
type Source string

const (
	SourceArchitecture Source = "architecture"
	SourcePattern      Source = "pattern"
)

// Output is one validation finding.
type Output struct {
	Code       string           `json:"code"`
	Severity   Severity         `json:"severity"`
	Message    string           `json:"message"`
	Path       string           `json:"path"`
	SchemaPath string           `json:"schemaPath,omitempty"`
	Source     Source           `json:"source,omitempty"`
	Range      *jsonvalue.Range `json:"range,omitempty"`
}

// Outcome aggregates the findings of one validation run.
type Outcome struct {
	RunID             string   `json:"runId"`
	JSONSchemaOutputs []Output `json:"jsonSchemaValidationOutputs"`
	RuleOutputs       []Output `json:"ruleValidationOutputs"`
	HasErrors         bool     `json:"hasErrors"`
	HasWarnings       bool     `json:"hasWarnings"`
}

func newOutcome(runID string, structural, semantic []Output) *Outcome {
	o := &Outcome{
		RunID:             runID,
		JSONSchemaOutputs: nonNil(structural),
		RuleOutputs:       nonNil(semantic),
	}
	for _, out := range o.AllOutputs() {
		switch out.Severity {
		case SeverityError:
			o.HasErrors = true
		case SeverityWarning:
			o.HasWarnings = true
		}
	}
	return o
}

func nonNil(outputs []Output) []Output {
	if outputs == nil {
		return []Output{}
	}
	return outputs
}

// AllOutputs returns structural findings followed by rule findings.
func (o *Outcome) AllOutputs() []Output {
	all := make([]Output, 0, len(o.JSONSchemaOutputs)+len(o.RuleOutputs))
	all = append(all, o.JSONSchemaOutputs...)
	return append(all, o.RuleOutputs...)
}

// Failed reports whether the run should be treated as a failure. With strict set,
// warnings fail the run as well.
func (o *Outcome) Failed(strict bool) bool {
	return o.HasErrors || (strict && o.HasWarnings)
}
