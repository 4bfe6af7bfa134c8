// File: internal/reporting/junit_reporter.go
package reporting

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/beevik/etree"

	"github.com/xkilldash9x/calm-cli/internal/validation"
)

const (
	junitRootName = "calm"
	schemaSuite   = "JSON Schema Validation"
	ruleSuite     = "Rule Validation"
	passingCase   = "No issues found"
)

// JUnitReporter renders outcomes as a JUnit XML document with one suite per
// validation stage. The document is written on Close.
type JUnitReporter struct {
	mu       sync.Mutex
	writer   io.WriteCloser
	outcomes []*validation.Outcome
}

func NewJUnitReporter(writer io.WriteCloser) *JUnitReporter {
	return &JUnitReporter{writer: writer}
}

func (r *JUnitReporter) Write(outcome *validation.Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
	return nil
}

func (r *JUnitReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.writer.Close()

	doc := r.document()
	if _, err := doc.WriteTo(r.writer); err != nil {
		return fmt.Errorf("writing junit report: %w", err)
	}
	return nil
}

func (r *JUnitReporter) document() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("testsuites")
	root.CreateAttr("name", junitRootName)

	tests, failures := 0, 0
	for _, o := range r.outcomes {
		for _, s := range []struct {
			name    string
			id      string
			outputs []validation.Output
		}{
			{schemaSuite, o.RunID + "/json-schema", o.JSONSchemaOutputs},
			{ruleSuite, o.RunID + "/rules", o.RuleOutputs},
		} {
			t, f := addSuite(root, s.name, s.id, s.outputs)
			tests += t
			failures += f
		}
	}
	root.CreateAttr("tests", strconv.Itoa(tests))
	root.CreateAttr("failures", strconv.Itoa(failures))
	doc.Indent(2)
	return doc
}

// addSuite appends a testsuite with one failing case per output, or a single
// passing case when there are none.
func addSuite(parent *etree.Element, name, id string, outputs []validation.Output) (tests, failures int) {
	suite := parent.CreateElement("testsuite")
	suite.CreateAttr("name", name)
	suite.CreateAttr("id", id)

	if len(outputs) == 0 {
		tc := suite.CreateElement("testcase")
		tc.CreateAttr("name", passingCase)
		tc.CreateAttr("classname", name)
		tests = 1
	}
	for _, out := range outputs {
		tc := suite.CreateElement("testcase")
		tc.CreateAttr("name", fmt.Sprintf("%s at %s", out.Code, out.Path))
		tc.CreateAttr("classname", name)
		failure := tc.CreateElement("failure")
		failure.CreateAttr("message", out.Message)
		failure.CreateAttr("type", string(out.Severity))
		failure.SetText(describe(out))
		tests++
		failures++
	}
	suite.CreateAttr("tests", strconv.Itoa(tests))
	suite.CreateAttr("failures", strconv.Itoa(failures))
	return tests, failures
}

func describe(out validation.Output) string {
	text := fmt.Sprintf("%s: %s (path %s", out.Severity, out.Message, out.Path)
	if out.SchemaPath != "" {
		text += ", schema path " + out.SchemaPath
	}
	if out.Range != nil {
		text += fmt.Sprintf(", line %d", out.Range.Start.Line)
	}
	return text + ")"
}
