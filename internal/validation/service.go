// File: internal/validation/service.go
package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/calm-cli/internal/jsonvalue"
	"github.com/xkilldash9x/calm-cli/internal/schemadir"
	"github.com/xkilldash9x/calm-cli/internal/validation/rules"
)

// ErrNothingToValidate is returned when neither an architecture nor a pattern is supplied.
var ErrNothingToValidate = errors.New("an architecture or a pattern must be provided")

// Service runs structural and semantic validation of CALM documents.
type Service struct {
	dir          *schemadir.Directory
	logger       *zap.Logger
	architecture *rules.Engine
	pattern      *rules.Engine
}

// NewService creates a validation service resolving references through dir.
func NewService(dir *schemadir.Directory, logger *zap.Logger) *Service {
	named := logger.Named("validation")
	return &Service{
		dir:          dir,
		logger:       named,
		architecture: rules.NewArchitectureEngine(named),
		pattern:      rules.NewPatternEngine(named),
	}
}

// Validate checks the supplied documents. With both present, the architecture is
// validated against the compiled pattern and both are run through their rulesets.
// With only a pattern, the pattern is compiled to surface schema errors and run
// through the pattern rules. With only an architecture, the pattern named by its
// `$schema` is resolved best effort and only the architecture rules run.
//
// Findings never surface as errors; the returned error is reserved for missing input
// and cancellation.
func (s *Service) Validate(ctx context.Context, architecture, pattern *jsonvalue.Value, debug bool) (*Outcome, error) {
	if architecture == nil && pattern == nil {
		return nil, ErrNothingToValidate
	}
	runID := uuid.NewString()
	log := s.logger.With(zap.String("run_id", runID))
	log.Info("Starting validation",
		zap.Bool("architecture", architecture != nil),
		zap.Bool("pattern", pattern != nil))

	var structural, semantic []Output

	if pattern != nil {
		sch, err := s.compilePattern(ctx, pattern)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Warn("Pattern failed to compile", zap.Error(err))
			structural = append(structural, compileFailure(err))
		} else if architecture != nil {
			structural = append(structural, validateInstance(sch, architecture)...)
		}

		patternFindings, err := s.runPatternRules(pattern)
		if err != nil {
			return nil, err
		}
		semantic = append(semantic, patternFindings...)
	} else {
		s.resolveDeclaredPattern(ctx, log, architecture)
	}

	if architecture != nil {
		semantic = append(semantic, toOutputs(s.architecture.Run(architecture), SourceArchitecture)...)
	}

	if debug {
		for _, out := range append(append([]Output{}, structural...), semantic...) {
			log.Debug("Validation finding",
				zap.String("code", out.Code),
				zap.String("severity", string(out.Severity)),
				zap.String("path", out.Path),
				zap.String("source", string(out.Source)),
				zap.String("message", out.Message))
		}
	}

	outcome := newOutcome(runID, structural, semantic)
	log.Info("Validation finished",
		zap.Int("structural", len(outcome.JSONSchemaOutputs)),
		zap.Int("semantic", len(outcome.RuleOutputs)),
		zap.Bool("has_errors", outcome.HasErrors),
		zap.Bool("has_warnings", outcome.HasWarnings))
	return outcome, nil
}

// runPatternRules evaluates the pattern ruleset with every "$ref" token renamed to
// "ref", so reference syntax is treated as plain data.
func (s *Service) runPatternRules(pattern *jsonvalue.Value) ([]Output, error) {
	text := strings.ReplaceAll(string(jsonvalue.Marshal(pattern)), "$ref", "ref")
	stripped, err := jsonvalue.ParseJSON([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("preparing pattern for rule evaluation: %w", err)
	}
	return toOutputs(s.pattern.Run(stripped), SourcePattern), nil
}

// resolveDeclaredPattern loads the pattern an architecture names in `$schema`. It
// only warms the directory; structural validation is left to callers that pass the
// pattern explicitly.
func (s *Service) resolveDeclaredPattern(ctx context.Context, log *zap.Logger, architecture *jsonvalue.Value) {
	ref, ok := architecture.GetString("$schema")
	if !ok || ref == "" {
		log.Debug("Architecture declares no pattern")
		return
	}
	schemaPart, _ := schemadir.SplitReference(ref)
	id := schemadir.ResolveSchemaID(schemaPart, schemadir.PatternUnderValidationID)
	if _, err := s.dir.GetSchema(ctx, id); err != nil {
		log.Warn("Could not resolve the architecture's declared pattern", zap.String("schema", id), zap.Error(err))
		return
	}
	log.Debug("Resolved the architecture's declared pattern", zap.String("schema", id))
}

func toOutputs(findings []rules.Finding, source Source) []Output {
	outputs := make([]Output, 0, len(findings))
	for _, f := range findings {
		outputs = append(outputs, Output{
			Code:     f.Rule,
			Severity: f.Severity,
			Message:  f.Message,
			Path:     f.Path,
			Source:   source,
			Range:    f.Range,
		})
	}
	return outputs
}
