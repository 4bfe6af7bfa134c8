// File: internal/validation/service_test.go
package validation

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/calm-cli/internal/document"
	"github.com/xkilldash9x/calm-cli/internal/jsonvalue"
	"github.com/xkilldash9x/calm-cli/internal/schemadir"
)

const coreSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://calm.example/core.json",
  "$defs": {
    "node": {
      "type": "object",
      "required": ["unique-id", "node-type", "name"],
      "properties": {
        "unique-id": {"type": "string"},
        "node-type": {"type": "string"},
        "name": {"type": "string"}
      }
    }
  }
}`

const pairPattern = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://calm.example/patterns/pair.json",
  "type": "object",
  "properties": {
    "nodes": {"type": "array", "minItems": 2, "prefixItems": [
      {"$ref": "https://calm.example/core.json#/$defs/node", "properties": {"unique-id": {"const": "web"}}},
      {"$ref": "https://calm.example/core.json#/$defs/node", "properties": {"unique-id": {"const": "api"}}}
    ]},
    "relationships": {"type": "array", "prefixItems": [
      {"properties": {
        "unique-id": {"const": "web-api"},
        "relationship-type": {"const": {"connects": {"source": {"node": "web"}, "destination": {"node": "api"}}}}
      }}
    ]}
  },
  "required": ["nodes", "relationships"]
}`

const pairArchitecture = `{
  "$schema": "https://calm.example/patterns/pair.json",
  "nodes": [
    {"unique-id": "web", "node-type": "webclient", "name": "Web"},
    {"unique-id": "api", "node-type": "service", "name": "API"}
  ],
  "relationships": [
    {"unique-id": "web-api", "relationship-type": {"connects": {"source": {"node": "web"}, "destination": {"node": "api"}}}}
  ]
}`

type mapLoader struct {
	mu    sync.Mutex
	docs  map[string]string
	calls map[string]int
}

func newMapLoader(docs map[string]string) *mapLoader {
	return &mapLoader{docs: docs, calls: map[string]int{}}
}

func (l *mapLoader) Initialise(context.Context, document.Store) error { return nil }

func (l *mapLoader) LoadMissingDocument(_ context.Context, id string, docType document.Type) (*document.Document, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[id]++
	raw, ok := l.docs[id]
	if !ok {
		return nil, document.NewLoadError(document.CodeUnknown, nil, "no document %s", id)
	}
	return &document.Document{ID: id, Type: docType, Body: jsonvalue.MustParse(raw)}, nil
}

func newTestService(t *testing.T, logger *zap.Logger) (*Service, *mapLoader) {
	t.Helper()
	loader := newMapLoader(map[string]string{
		"https://calm.example/core.json":          coreSchema,
		"https://calm.example/patterns/pair.json": pairPattern,
	})
	return NewService(schemadir.New(loader, logger), logger), loader
}

func outputsFor(outputs []Output, code string) []Output {
	var out []Output
	for _, o := range outputs {
		if o.Code == code {
			out = append(out, o)
		}
	}
	return out
}

func TestValidate_NothingToValidate(t *testing.T) {
	svc, _ := newTestService(t, zaptest.NewLogger(t))
	_, err := svc.Validate(context.Background(), nil, nil, false)
	assert.ErrorIs(t, err, ErrNothingToValidate)
}

func TestValidate_ConformingArchitecture(t *testing.T) {
	svc, _ := newTestService(t, zaptest.NewLogger(t))

	outcome, err := svc.Validate(context.Background(),
		jsonvalue.MustParse(pairArchitecture), jsonvalue.MustParse(pairPattern), true)
	require.NoError(t, err)

	_, err = uuid.Parse(outcome.RunID)
	assert.NoError(t, err)
	assert.Empty(t, outcome.JSONSchemaOutputs)
	assert.Empty(t, outcome.RuleOutputs)
	assert.False(t, outcome.HasErrors)
	assert.False(t, outcome.HasWarnings)
	assert.False(t, outcome.Failed(true))
}

func TestValidate_StructuralFailures(t *testing.T) {
	svc, _ := newTestService(t, zaptest.NewLogger(t))
	arch := jsonvalue.MustParse(pairArchitecture)
	second, _ := jsonvalue.Pointer(arch, "/nodes/1")
	second.Set("unique-id", jsonvalue.String("apx"))
	second.Delete("name")

	outcome, err := svc.Validate(context.Background(), arch, jsonvalue.MustParse(pairPattern), false)
	require.NoError(t, err)
	require.True(t, outcome.HasErrors)
	require.NotEmpty(t, outcome.JSONSchemaOutputs)

	var sawConst, sawRequired bool
	for _, out := range outcome.JSONSchemaOutputs {
		assert.Equal(t, CodeJSONSchema, out.Code)
		assert.Equal(t, SeverityError, out.Severity)
		assert.Equal(t, SourceArchitecture, out.Source)
		assert.Nil(t, out.Range, "structural findings carry no range")
		assert.NotEmpty(t, out.Message)
		if out.Path == "/nodes/1/unique-id" && strings.HasSuffix(out.SchemaPath, "/const") {
			sawConst = true
		}
		if out.Path == "/nodes/1" && strings.HasSuffix(out.SchemaPath, "/required") {
			sawRequired = true
		}
	}
	assert.True(t, sawConst, "const violation from the pattern")
	assert.True(t, sawRequired, "required violation from the referenced core schema")

	// The renamed node breaks the relationship as well.
	broken := outputsFor(outcome.RuleOutputs, "relationship-references-existing-nodes-in-architecture")
	require.Len(t, broken, 1)
	assert.Equal(t, "/relationships/0/relationship-type/connects/destination/node", broken[0].Path)
	assert.NotNil(t, broken[0].Range)
}

func TestValidate_PatternCompileFailureIsAFinding(t *testing.T) {
	svc, _ := newTestService(t, zaptest.NewLogger(t))
	pattern := jsonvalue.MustParse(`{
	  "$schema": "https://json-schema.org/draft/2020-12/schema",
	  "type": "object",
	  "properties": {"nodes": {"$ref": "https://calm.example/missing.json#/$defs/nodes"}}
	}`)

	outcome, err := svc.Validate(context.Background(), jsonvalue.MustParse(pairArchitecture), pattern, false)
	require.NoError(t, err)

	require.Len(t, outcome.JSONSchemaOutputs, 1)
	failure := outcome.JSONSchemaOutputs[0]
	assert.Equal(t, CodeJSONSchema, failure.Code)
	assert.Equal(t, SourcePattern, failure.Source)
	assert.Equal(t, SeverityError, failure.Severity)
	assert.True(t, outcome.HasErrors)
}

func TestValidate_PatternOnly(t *testing.T) {
	svc, loader := newTestService(t, zaptest.NewLogger(t))
	pattern := jsonvalue.MustParse(pairPattern)
	nodes, _ := jsonvalue.Pointer(pattern, "/properties/nodes/prefixItems")
	nodes.Append(jsonvalue.MustParse(`{"$ref": "", "properties": {"unique-id": {"const": "{{ NODE_ID }}"}}}`))

	outcome, err := svc.Validate(context.Background(), nil, pattern, false)
	require.NoError(t, err)

	empty := outputsFor(outcome.RuleOutputs, "pattern-has-no-empty-properties")
	require.Len(t, empty, 1)
	// Reference members are renamed before the rules run.
	assert.Equal(t, "/properties/nodes/prefixItems/2/ref", empty[0].Path)
	assert.Equal(t, SourcePattern, empty[0].Source)

	require.Len(t, outputsFor(outcome.RuleOutputs, "pattern-has-no-placeholder-properties-string"), 1)
	assert.True(t, outcome.HasErrors)
	assert.True(t, outcome.HasWarnings)

	// The pattern was compiled, which pulled in the core schema it references.
	assert.Equal(t, 1, loader.calls["https://calm.example/core.json"])
	registered, ok := svc.dir.Lookup(schemadir.PatternUnderValidationID)
	require.True(t, ok)
	assert.Same(t, pattern, registered)
}

func TestValidate_ArchitectureOnlySkipsStructuralValidation(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	svc, loader := newTestService(t, zap.New(core))

	arch := jsonvalue.MustParse(pairArchitecture)
	second, _ := jsonvalue.Pointer(arch, "/nodes/1")
	second.Delete("name")

	outcome, err := svc.Validate(context.Background(), arch, nil, false)
	require.NoError(t, err)

	assert.Empty(t, outcome.JSONSchemaOutputs)
	assert.Empty(t, outcome.RuleOutputs)
	assert.False(t, outcome.HasErrors)
	assert.Equal(t, 1, loader.calls["https://calm.example/patterns/pair.json"], "declared pattern is resolved")
	assert.Equal(t, 1, logs.FilterMessage("Resolved the architecture's declared pattern").Len())
}

func TestValidate_ArchitectureOnlyUnresolvablePatternWarns(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	svc, _ := newTestService(t, zap.New(core))

	arch := jsonvalue.MustParse(pairArchitecture)
	arch.Set("$schema", jsonvalue.String("https://calm.example/patterns/gone.json"))

	outcome, err := svc.Validate(context.Background(), arch, nil, false)
	require.NoError(t, err)
	assert.False(t, outcome.HasErrors)

	warnings := logs.FilterMessage("Could not resolve the architecture's declared pattern").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, zap.WarnLevel, warnings[0].Level)
}

func TestValidate_WarningsOnly(t *testing.T) {
	svc, _ := newTestService(t, zaptest.NewLogger(t))
	arch := jsonvalue.MustParse(pairArchitecture)
	arch.Delete("$schema")
	first, _ := jsonvalue.Pointer(arch, "/nodes/0")
	first.Set("port", jsonvalue.Int(-1))

	outcome, err := svc.Validate(context.Background(), arch, nil, false)
	require.NoError(t, err)

	assert.False(t, outcome.HasErrors)
	assert.True(t, outcome.HasWarnings)
	assert.False(t, outcome.Failed(false))
	assert.True(t, outcome.Failed(true))
}

func TestOutcome_AllOutputsOrder(t *testing.T) {
	o := newOutcome("run", []Output{{Code: CodeJSONSchema, Severity: SeverityError}}, []Output{{Code: "rule", Severity: SeverityWarning}})
	all := o.AllOutputs()
	require.Len(t, all, 2)
	assert.Equal(t, CodeJSONSchema, all[0].Code)
	assert.Equal(t, "rule", all[1].Code)
	assert.True(t, o.HasErrors)
	assert.True(t, o.HasWarnings)

	empty := newOutcome("run", nil, nil)
	assert.NotNil(t, empty.JSONSchemaOutputs)
	assert.NotNil(t, empty.RuleOutputs)
}
