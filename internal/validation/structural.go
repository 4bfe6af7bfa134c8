// File: internal/validation/structural.go
package validation

import (
	"context"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/xkilldash9x/calm-cli/internal/jsonvalue"
	"github.com/xkilldash9x/calm-cli/internal/schemadir"
)

// directoryURLLoader serves the compiler's remote references from the schema directory.
type directoryURLLoader struct {
	ctx context.Context
	dir *schemadir.Directory
}

func (l directoryURLLoader) Load(url string) (any, error) {
	body, err := l.dir.GetSchema(l.ctx, url)
	if err != nil {
		return nil, err
	}
	return body.ToAny(), nil
}

// compilePattern registers the pattern, flattens its allOf composition and
// compiles the result.
func (s *Service) compilePattern(ctx context.Context, pattern *jsonvalue.Value) (*jsonschema.Schema, error) {
	s.dir.LoadCurrentPatternAsSchema(pattern)

	flat, err := s.dir.FlattenAllOf(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("flattening pattern: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.UseLoader(directoryURLLoader{ctx: ctx, dir: s.dir})
	if err := compiler.AddResource(schemadir.PatternUnderValidationID, flat.ToAny()); err != nil {
		return nil, fmt.Errorf("registering pattern: %w", err)
	}
	sch, err := compiler.Compile(schemadir.PatternUnderValidationID)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern: %w", err)
	}
	return sch, nil
}

func compileFailure(err error) Output {
	return Output{
		Code:     CodeJSONSchema,
		Severity: SeverityError,
		Message:  err.Error(),
		Path:     "/",
		Source:   SourcePattern,
	}
}

// validateInstance runs the compiled pattern against the architecture and flattens
// the library's basic output into findings.
func validateInstance(sch *jsonschema.Schema, architecture *jsonvalue.Value) []Output {
	err := sch.Validate(architecture.ToAny())
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return []Output{{
			Code:     CodeJSONSchema,
			Severity: SeverityError,
			Message:  err.Error(),
			Path:     "/",
			Source:   SourceArchitecture,
		}}
	}

	basic := verr.BasicOutput()
	units := basic.Errors
	if len(units) == 0 {
		units = []jsonschema.OutputUnit{*basic}
	}
	var outputs []Output
	for _, unit := range units {
		if unit.Error == nil {
			continue
		}
		outputs = append(outputs, Output{
			Code:       CodeJSONSchema,
			Severity:   SeverityError,
			Message:    unit.Error.String(),
			Path:       instancePath(unit.InstanceLocation),
			SchemaPath: unit.KeywordLocation,
			Source:     SourceArchitecture,
		})
	}
	return outputs
}

func instancePath(loc string) string {
	if loc == "" {
		return "/"
	}
	return loc
}
