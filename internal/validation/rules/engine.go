// File: internal/validation/rules/engine.go
package rules

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/calm-cli/internal/jsonvalue"
)

// Severity of a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// DocumentKind names the kind of document a ruleset applies to.
type DocumentKind string

const (
	KindArchitecture DocumentKind = "architecture"
	KindPattern      DocumentKind = "pattern"
)

// Context is handed to every rule invocation.
type Context struct {
	// Document is the whole document under evaluation.
	Document *jsonvalue.Value
	// Path locates the matched input inside Document.
	Path []string
	Kind DocumentKind
	Rule string
}

// Result is what a rule function reports. An empty Path means the matched input itself;
// otherwise Path is absolute from the document root.
type Result struct {
	Message string
	Path    []string
}

// RuleFunc evaluates one selected input.
type RuleFunc func(input *jsonvalue.Value, opts map[string]string, rc *Context) []Result

// Rule couples selectors with a check.
type Rule struct {
	Name        string
	Description string
	Severity    Severity
	Given       []string
	Options     map[string]string
	Then        RuleFunc
}

// Finding is a rule result located in the serialized document.
type Finding struct {
	Rule     string
	Severity Severity
	Message  string
	Path     string
	Range    *jsonvalue.Range
}

type compiledRule struct {
	Rule
	selectors []*Selector
}

// Engine evaluates a fixed ruleset.
type Engine struct {
	kind   DocumentKind
	rules  []compiledRule
	logger *zap.Logger
}

// NewEngine compiles the rules' selectors.
func NewEngine(logger *zap.Logger, kind DocumentKind, ruleset []Rule) (*Engine, error) {
	e := &Engine{kind: kind, logger: logger.Named("rules").With(zap.String("kind", string(kind)))}
	for _, r := range ruleset {
		if r.Then == nil {
			return nil, fmt.Errorf("rule %s has no function", r.Name)
		}
		cr := compiledRule{Rule: r}
		for _, expr := range r.Given {
			sel, err := CompileSelector(expr)
			if err != nil {
				return nil, fmt.Errorf("rule %s: %w", r.Name, err)
			}
			cr.selectors = append(cr.selectors, sel)
		}
		e.rules = append(e.rules, cr)
	}
	return e, nil
}

// NewArchitectureEngine returns an engine loaded with ArchitectureRules.
func NewArchitectureEngine(logger *zap.Logger) *Engine {
	e, err := NewEngine(logger, KindArchitecture, ArchitectureRules())
	if err != nil {
		panic(err)
	}
	return e
}

// NewPatternEngine returns an engine loaded with PatternRules.
func NewPatternEngine(logger *zap.Logger) *Engine {
	e, err := NewEngine(logger, KindPattern, PatternRules())
	if err != nil {
		panic(err)
	}
	return e
}

// Kind reports which kind of document the engine's rules target.
func (e *Engine) Kind() DocumentKind { return e.kind }

// Run serializes doc with two-space indentation, evaluates every rule against every
// selector match, and locates each result in the serialized text.
func (e *Engine) Run(doc *jsonvalue.Value) []Finding {
	_, sourceMap := jsonvalue.Encode(doc, "  ")

	var findings []Finding
	for _, r := range e.rules {
		for _, m := range SelectAll(doc, r.selectors...) {
			rc := &Context{Document: doc, Path: m.Path, Kind: e.kind, Rule: r.Name}
			for _, res := range r.Then(m.Value, r.Options, rc) {
				path := res.Path
				if path == nil {
					path = m.Path
				}
				ptr := pointerOf(path)
				f := Finding{Rule: r.Name, Severity: r.Severity, Message: res.Message, Path: ptr}
				if rng, ok := sourceMap.Lookup(ptr); ok {
					f.Range = &rng
				}
				findings = append(findings, f)
			}
		}
	}
	e.logger.Debug("Ruleset evaluated", zap.Int("rules", len(e.rules)), zap.Int("findings", len(findings)))
	return findings
}

func pointerOf(path []string) string {
	if len(path) == 0 {
		return "/"
	}
	return jsonvalue.JoinPointer(path)
}
