// File: internal/instantiate/instantiate.go
package instantiate

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/xkilldash9x/calm-cli/internal/document"
	"github.com/xkilldash9x/calm-cli/internal/jsonvalue"
	"github.com/xkilldash9x/calm-cli/internal/schemadir"
)

// Directory is the part of the schema directory the instantiator needs.
type Directory interface {
	LoadCurrentPatternAsSchema(pattern *jsonvalue.Value)
	ResolveReference(ctx context.Context, ref, currentID string) (*jsonvalue.Value, error)
}

type generator struct {
	dir   Directory
	log   *zap.Logger
	debug bool
}

// Instantiate builds a skeleton document from a pattern. The pattern is registered
// with dir as the pattern under validation so that it can reference itself.
//
// The result starts with `$schema` set to the pattern's `$id` when it has one,
// followed by one member per top-level pattern property.
func Instantiate(ctx context.Context, pattern *jsonvalue.Value, dir Directory, logger *zap.Logger, debug bool) (*jsonvalue.Value, error) {
	if !pattern.IsObject() {
		return nil, fmt.Errorf("pattern must be an object, got %s", pattern.Kind())
	}
	g := &generator{dir: dir, log: logger.Named("instantiate"), debug: debug}
	dir.LoadCurrentPatternAsSchema(pattern)

	out := jsonvalue.NewObject()
	if id, ok := document.IDOf(pattern); ok {
		out.Set("$schema", jsonvalue.String(id))
	}

	props, _ := pattern.Get("properties")
	for _, key := range props.Keys() {
		def, _ := props.Get(key)
		v, err := g.instantiate(ctx, key, def, nil, "/"+jsonvalue.EscapeToken(key))
		if err != nil {
			return nil, fmt.Errorf("instantiating %q: %w", key, err)
		}
		out.Set(key, v)
	}
	g.log.Info("Pattern instantiated", zap.Int("properties", props.Len()))
	return out, nil
}

// instantiate produces the value for one definition. patternDef holds what the pattern
// itself declares and is nil for definitions owned by a referenced schema; schemaDef
// holds what referenced schemas contribute.
func (g *generator) instantiate(ctx context.Context, key string, patternDef, schemaDef *jsonvalue.Value, path string) (*jsonvalue.Value, error) {
	var err error
	if ref, ok := patternDef.GetString("$ref"); ok {
		resolved, err := g.resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		schemaDef = schemadir.MergeSchemas(schemaDef, resolved)
		patternDef = patternDef.Without("$ref")
	}
	if schemaDef, err = g.resolveSchemaSide(ctx, schemaDef); err != nil {
		return nil, err
	}
	merged := schemadir.MergeSchemas(schemaDef, patternDef)

	if msg, ok := missingValue(merged); ok {
		g.log.Warn("Emitting placeholder for an unresolvable reference", zap.String("path", path))
		return jsonvalue.NewObject().Set("missing-value", jsonvalue.String(msg)), nil
	}
	if c, ok := merged.Get("const"); ok {
		g.trace("Emitting constant", path)
		return c.Clone(), nil
	}

	switch kindOf(merged) {
	case "object":
		return g.object(ctx, patternDef, schemaDef, merged, path)
	case "array":
		return g.array(ctx, key, patternDef, schemaDef, path)
	case "string":
		g.trace("Emitting string placeholder", path)
		return StringPlaceholder(key), nil
	case "boolean":
		g.trace("Emitting boolean placeholder", path)
		return BooleanPlaceholder(key), nil
	case "integer", "number":
		g.trace("Emitting numeric placeholder", path)
		return NumericPlaceholder(), nil
	case "null":
		return jsonvalue.Null(), nil
	case "ref":
		g.trace("Emitting reference placeholder", path)
		return RefPlaceholder(key), nil
	default:
		g.trace("No type information, emitting string placeholder", path)
		return StringPlaceholder(key), nil
	}
}

// missingValue reports the message the directory leaves in place of a
// reference target that does not exist.
func missingValue(def *jsonvalue.Value) (string, bool) {
	props, _ := def.Get("properties")
	v, ok := props.Get("missing-value")
	if !ok {
		return "", false
	}
	return v.AsString()
}

func (g *generator) resolve(ctx context.Context, ref string) (*jsonvalue.Value, error) {
	resolved, err := g.dir.ResolveReference(ctx, ref, schemadir.PatternUnderValidationID)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", ref, err)
	}
	return resolved, nil
}

// resolveSchemaSide follows a `$ref` carried by a schema-owned definition. A ref that
// survives resolution marks a cycle and is left in place.
func (g *generator) resolveSchemaSide(ctx context.Context, schemaDef *jsonvalue.Value) (*jsonvalue.Value, error) {
	ref, ok := schemaDef.GetString("$ref")
	if !ok {
		return schemaDef, nil
	}
	resolved, err := g.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if _, cyclic := resolved.Get("$ref"); cyclic {
		return schemaDef, nil
	}
	return schemadir.MergeSchemas(resolved, schemaDef.Without("$ref")), nil
}

func kindOf(def *jsonvalue.Value) string {
	if t, ok := def.Get("type"); ok {
		if s, ok := t.AsString(); ok {
			return s
		}
		for _, item := range t.Items() {
			if s, ok := item.AsString(); ok && s != "null" {
				return s
			}
		}
	}
	switch {
	case def.Has("properties"):
		return "object"
	case def.Has("prefixItems"):
		return "array"
	case def.Has("$ref"):
		return "ref"
	}
	return ""
}

// object emits pattern-declared properties first, then required properties that are
// still missing. Schema-owned objects only emit their required properties.
func (g *generator) object(ctx context.Context, patternDef, schemaDef, merged *jsonvalue.Value, path string) (*jsonvalue.Value, error) {
	out := jsonvalue.NewObject()

	if patternDef != nil {
		declared, _ := patternDef.Get("properties")
		for _, k := range declared.Keys() {
			childPattern, _ := declared.Get(k)
			v, err := g.instantiate(ctx, k, childPattern, schemaChild(schemaDef, k), path+"/"+jsonvalue.EscapeToken(k))
			if err != nil {
				return nil, err
			}
			out.Set(k, v)
		}
	}

	required, _ := merged.Get("required")
	for _, item := range required.Items() {
		k, ok := item.AsString()
		if !ok || out.Has(k) {
			continue
		}
		childPath := path + "/" + jsonvalue.EscapeToken(k)
		childSchema := schemaChild(schemaDef, k)
		if childSchema == nil {
			g.trace("Required property has no definition, emitting string placeholder", childPath)
			out.Set(k, StringPlaceholder(k))
			continue
		}
		v, err := g.instantiate(ctx, k, nil, childSchema, childPath)
		if err != nil {
			return nil, err
		}
		out.Set(k, v)
	}
	return out, nil
}

// schemaChild returns the schema-side definition of property k: a declared property,
// or else the first patternProperties entry whose expression matches k.
func schemaChild(schemaDef *jsonvalue.Value, k string) *jsonvalue.Value {
	if props, ok := schemaDef.Get("properties"); ok {
		if def, ok := props.Get(k); ok {
			return def
		}
	}
	patterns, _ := schemaDef.Get("patternProperties")
	for _, expr := range patterns.Keys() {
		re, err := regexp.Compile(expr)
		if err != nil || !re.MatchString(k) {
			continue
		}
		def, _ := patterns.Get(expr)
		return def
	}
	return nil
}

// array emits one element per prefix item, pairing pattern and schema items by position.
func (g *generator) array(ctx context.Context, key string, patternDef, schemaDef *jsonvalue.Value, path string) (*jsonvalue.Value, error) {
	patternItems, _ := patternDef.Get("prefixItems")
	schemaItems, _ := schemaDef.Get("prefixItems")
	n := max(patternItems.Len(), schemaItems.Len())
	if n == 0 {
		g.trace("Array without prefixItems, emitting single placeholder element", path)
		return jsonvalue.Array(StringPlaceholder(key)), nil
	}

	out := jsonvalue.Array()
	for i := 0; i < n; i++ {
		childPattern, _ := patternItems.Index(i)
		childSchema, _ := schemaItems.Index(i)
		v, err := g.instantiate(ctx, key, childPattern, childSchema, fmt.Sprintf("%s/%d", path, i))
		if err != nil {
			return nil, err
		}
		out.Append(v)
	}
	return out, nil
}

func (g *generator) trace(msg, path string) {
	if g.debug {
		g.log.Debug(msg, zap.String("path", path))
	}
}
