// internal/reporting/reporter_test.go
package reporting_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/calm-cli/internal/jsonvalue"
	"github.com/xkilldash9x/calm-cli/internal/reporting"
	"github.com/xkilldash9x/calm-cli/internal/validation"
)

// bufferCloser records whether the reporter closed it.
type bufferCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufferCloser) Close() error {
	b.closed = true
	return nil
}

func sampleOutcome() *validation.Outcome {
	return &validation.Outcome{
		RunID: "7f1c2d1e-0000-4000-8000-000000000001",
		JSONSchemaOutputs: []validation.Output{{
			Code:       validation.CodeJSONSchema,
			Severity:   validation.SeverityError,
			Message:    "missing property 'node-type'",
			Path:       "/nodes/1",
			SchemaPath: "/properties/nodes/prefixItems/1/required",
			Source:     validation.SourceArchitecture,
		}},
		RuleOutputs: []validation.Output{{
			Code:     "architecture-nodes-must-be-referenced",
			Severity: validation.SeverityWarning,
			Message:  "Node with ID 'db' is not referenced by any relationships.",
			Path:     "/nodes/2/unique-id",
			Source:   validation.SourceArchitecture,
			Range:    &jsonvalue.Range{Start: jsonvalue.Position{Line: 14, Column: 20}, End: jsonvalue.Position{Line: 14, Column: 24}},
		}},
		HasErrors:   true,
		HasWarnings: true,
	}
}

func cleanOutcome() *validation.Outcome {
	return &validation.Outcome{
		RunID:             "7f1c2d1e-0000-4000-8000-000000000002",
		JSONSchemaOutputs: []validation.Output{},
		RuleOutputs:       []validation.Output{},
	}
}

// -- Constructor Tests --

func TestNew_Stdout(t *testing.T) {
	for _, format := range reporting.Formats {
		t.Run(format, func(t *testing.T) {
			r, err := reporting.New(format, "stdout")
			require.NoError(t, err)
			assert.NotNil(t, r)
		})
	}
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outcome.json")

	r, err := reporting.New("json", path)
	require.NoError(t, err)
	require.NoError(t, r.Write(cleanOutcome()))
	require.NoError(t, r.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"runId": "7f1c2d1e-0000-4000-8000-000000000002"`)
}

func TestNew_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outcome.sarif")
	r, err := reporting.New("sarif", path)
	assert.Error(t, err)
	assert.Nil(t, r)
	assert.Contains(t, err.Error(), "unsupported output format: sarif")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no file is created for an unsupported format")
}

func TestNew_UncreatableFile(t *testing.T) {
	_, err := reporting.New("json", filepath.Join(t.TempDir(), "missing", "out.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create output file")
}

// -- JSON Reporter Tests --

func TestJSONReporter(t *testing.T) {
	buf := &bufferCloser{}
	r := reporting.NewJSONReporter(buf)
	require.NoError(t, r.Write(sampleOutcome()))
	require.NoError(t, r.Close())
	assert.True(t, buf.closed)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, true, decoded["hasErrors"])
	assert.Equal(t, true, decoded["hasWarnings"])

	schemaOutputs := decoded["jsonSchemaValidationOutputs"].([]any)
	require.Len(t, schemaOutputs, 1)
	first := schemaOutputs[0].(map[string]any)
	assert.Equal(t, "json-schema", first["code"])
	assert.Equal(t, "/nodes/1", first["path"])
	assert.NotContains(t, first, "range")

	ruleOutputs := decoded["ruleValidationOutputs"].([]any)
	require.Len(t, ruleOutputs, 1)
	rng := ruleOutputs[0].(map[string]any)["range"].(map[string]any)
	assert.Equal(t, float64(14), rng["start"].(map[string]any)["line"])
}

func TestJSONReporter_EmptyOutputsAreArrays(t *testing.T) {
	buf := &bufferCloser{}
	r := reporting.NewJSONReporter(buf)
	require.NoError(t, r.Write(cleanOutcome()))
	assert.Contains(t, buf.String(), `"jsonSchemaValidationOutputs": []`)
	assert.Contains(t, buf.String(), `"ruleValidationOutputs": []`)
}

// -- JUnit Reporter Tests --

func TestJUnitReporter(t *testing.T) {
	buf := &bufferCloser{}
	r := reporting.NewJUnitReporter(buf)
	require.NoError(t, r.Write(sampleOutcome()))
	assert.Zero(t, buf.Len(), "the document is written on close")
	require.NoError(t, r.Close())
	assert.True(t, buf.closed)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(buf.Bytes()))

	root := doc.SelectElement("testsuites")
	require.NotNil(t, root)
	assert.Equal(t, "2", root.SelectAttrValue("tests", ""))
	assert.Equal(t, "2", root.SelectAttrValue("failures", ""))

	suites := root.SelectElements("testsuite")
	require.Len(t, suites, 2)
	assert.Equal(t, "JSON Schema Validation", suites[0].SelectAttrValue("name", ""))
	assert.Equal(t, "7f1c2d1e-0000-4000-8000-000000000001/json-schema", suites[0].SelectAttrValue("id", ""))

	failure := suites[1].FindElement("testcase/failure")
	require.NotNil(t, failure)
	assert.Equal(t, "warning", failure.SelectAttrValue("type", ""))
	assert.Contains(t, failure.Text(), "line 14")
}

func TestJUnitReporter_CleanOutcomePasses(t *testing.T) {
	buf := &bufferCloser{}
	r := reporting.NewJUnitReporter(buf)
	require.NoError(t, r.Write(cleanOutcome()))
	require.NoError(t, r.Close())

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(buf.Bytes()))
	root := doc.SelectElement("testsuites")
	assert.Equal(t, "2", root.SelectAttrValue("tests", ""))
	assert.Equal(t, "0", root.SelectAttrValue("failures", ""))
	assert.Empty(t, doc.FindElements("//failure"))
	assert.Len(t, doc.FindElements("//testcase[@name='No issues found']"), 2)
}

// -- Pretty Reporter Tests --

func TestPrettyReporter(t *testing.T) {
	buf := &bufferCloser{}
	r := reporting.NewPrettyReporter(buf)
	require.NoError(t, r.Write(sampleOutcome()))
	require.NoError(t, r.Close())

	out := buf.String()
	assert.Contains(t, out, "JSON schema validation")
	assert.Contains(t, out, "Rule validation")
	assert.Contains(t, out, "SEVERITY")
	assert.Contains(t, out, "missing property 'node-type'")
	assert.True(t, strings.HasSuffix(out, "1 error(s), 1 warning(s)\n"))

	lines := strings.Split(out, "\n")
	var ruleLine string
	for _, l := range lines {
		if strings.Contains(l, "architecture-nodes-must-be-referenced") {
			ruleLine = l
		}
	}
	assert.Contains(t, ruleLine, " 14 ")
}

func TestPrettyReporter_Clean(t *testing.T) {
	buf := &bufferCloser{}
	r := reporting.NewPrettyReporter(buf)
	require.NoError(t, r.Write(cleanOutcome()))
	assert.Equal(t, 2, strings.Count(buf.String(), "no issues found"))
	assert.Contains(t, buf.String(), "0 error(s), 0 warning(s)")
}
