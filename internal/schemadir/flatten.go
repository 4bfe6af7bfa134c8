// File: internal/schemadir/flatten.go
package schemadir

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/calm-cli/internal/jsonvalue"
)

// FlattenAllOf merges a schema's `allOf` branches into a single schema. It is
// evaluated relative to the pattern under validation.
func (d *Directory) FlattenAllOf(ctx context.Context, schema *jsonvalue.Value) (*jsonvalue.Value, error) {
	return d.FlattenAllOfIn(ctx, schema, PatternUnderValidationID)
}

// FlattenAllOfIn flattens schema as if it appeared in the document currentID.
//
// Branch `$ref`s are resolved, nested `allOf`s flattened, and branches merged
// in order with later ones winning. Sibling keywords of `allOf` are merged last
// and win over every branch. A root `$ref` without `allOf` is resolved and
// merged with its siblings. Schemas without either are returned unchanged.
func (d *Directory) FlattenAllOfIn(ctx context.Context, schema *jsonvalue.Value, currentID string) (*jsonvalue.Value, error) {
	return d.flatten(ctx, schema, currentID, nil)
}

func (d *Directory) flatten(ctx context.Context, schema *jsonvalue.Value, currentID string, active []string) (*jsonvalue.Value, error) {
	if !schema.IsObject() {
		return schema, nil
	}

	allOf, hasAllOf := schema.Get("allOf")
	if !hasAllOf || !allOf.IsArray() {
		ref, hasRef := schema.GetString("$ref")
		if !hasRef {
			return schema, nil
		}
		return d.flattenRef(ctx, ref, schema.Without("$ref"), currentID, active)
	}

	acc := jsonvalue.NewObject()
	for i, branch := range allOf.Items() {
		flat, err := d.flatten(ctx, branch, currentID, active)
		if err != nil {
			return nil, fmt.Errorf("flattening allOf[%d]: %w", i, err)
		}
		acc = MergeSchemas(acc, flat)
	}

	rest, err := d.flatten(ctx, schema.Without("allOf"), currentID, active)
	if err != nil {
		return nil, err
	}
	return MergeSchemas(acc, rest), nil
}

// flattenRef resolves ref, merges siblings over it and flattens any allOf the
// target carries. active holds the refs currently being flattened.
func (d *Directory) flattenRef(ctx context.Context, ref string, siblings *jsonvalue.Value, currentID string, active []string) (*jsonvalue.Value, error) {
	key := qualify(ref, currentID)
	for _, a := range active {
		if a == key {
			d.log.Warn("Circular reference while flattening allOf, leaving it unresolved", zap.String("ref", key))
			return MergeSchemas(jsonvalue.NewObject().Set("$ref", jsonvalue.String(key)), siblings), nil
		}
	}

	resolved, err := d.ResolveReference(ctx, ref, currentID)
	if err != nil {
		return nil, err
	}
	merged := MergeSchemas(resolved, siblings)
	if _, cyclic := merged.Get("$ref"); cyclic {
		// resolution already stopped at a cycle
		return merged, nil
	}
	if _, nested := merged.Get("allOf"); !nested {
		return merged, nil
	}
	return d.flatten(ctx, merged, currentID, append(append([]string(nil), active...), key))
}
