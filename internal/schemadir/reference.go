// File: internal/schemadir/reference.go
package schemadir

import (
	"context"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/calm-cli/internal/jsonvalue"
)

// schemePattern matches an RFC 3986 scheme prefix such as "https:", "file:" or "calm:".
var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

// HasScheme reports whether id starts with a URI scheme.
func HasScheme(id string) bool { return schemePattern.MatchString(id) }

// SplitReference splits a reference at its first '#'. The fragment is returned
// without the '#'.
func SplitReference(ref string) (schemaPart, fragment string) {
	if i := strings.IndexByte(ref, '#'); i >= 0 {
		return ref[:i], ref[i+1:]
	}
	return ref, ""
}

// ResolveSchemaID turns the schema part of a reference into a document id,
// relative to the document the reference appears in.
//
// Empty parts mean the current document. Ids with a scheme and absolute paths
// are used as-is. Anything else is relative: resolved as a URL reference
// against a hierarchical current id, or joined with the current id's directory
// for filesystem ids. Relative parts found in the pattern under validation are
// used verbatim since it has no location.
func ResolveSchemaID(schemaPart, currentID string) string {
	switch {
	case schemaPart == "":
		return currentID
	case HasScheme(schemaPart), filepath.IsAbs(schemaPart), strings.HasPrefix(schemaPart, "/"):
		return schemaPart
	case currentID == "" || currentID == PatternUnderValidationID:
		return schemaPart
	case HasScheme(currentID):
		base, err := url.Parse(currentID)
		if err != nil || base.Opaque != "" {
			return schemaPart
		}
		if base.Host == "" && !strings.HasPrefix(currentID, base.Scheme+"://") {
			// ResolveReference would add an empty authority to ids like calm:/a/b.
			return base.Scheme + ":" + path.Join(path.Dir(base.Path), schemaPart)
		}
		rel, err := url.Parse(schemaPart)
		if err != nil {
			return schemaPart
		}
		return base.ResolveReference(rel).String()
	default:
		return filepath.Join(filepath.Dir(currentID), schemaPart)
	}
}

// qualify rewrites a reference found inside schemaID so it no longer depends
// on where it was found.
func qualify(ref, schemaID string) string {
	schemaPart, fragment := SplitReference(ref)
	resolved := ResolveSchemaID(schemaPart, schemaID)
	if !strings.Contains(ref, "#") {
		return resolved
	}
	return resolved + "#" + fragment
}

// qualifyRefs returns def with every nested `$ref` qualified against schemaID.
func qualifyRefs(def *jsonvalue.Value, schemaID string) *jsonvalue.Value {
	return jsonvalue.Transform(def, func(key string, member *jsonvalue.Value) *jsonvalue.Value {
		if key != "$ref" {
			return member
		}
		ref, ok := member.AsString()
		if !ok {
			return member
		}
		if q := qualify(ref, schemaID); q != ref {
			return jsonvalue.String(q)
		}
		return member
	})
}

func missingPlaceholder(ref string) *jsonvalue.Value {
	return jsonvalue.NewObject().Set("properties", jsonvalue.NewObject().
		Set("missing-value", jsonvalue.String("MISSING OBJECT, ref: "+ref+" could not be resolved")))
}

// GetDefinition resolves ref relative to the pattern under validation.
func (d *Directory) GetDefinition(ctx context.Context, ref string) (*jsonvalue.Value, error) {
	return d.ResolveReference(ctx, ref, PatternUnderValidationID)
}

// ResolveReference resolves ref as if it appeared in the document currentID.
// The result is fully merged along its `$ref` chain and carries qualified refs.
func (d *Directory) ResolveReference(ctx context.Context, ref, currentID string) (*jsonvalue.Value, error) {
	return d.resolve(ctx, ref, currentID, nil)
}

func (d *Directory) resolve(ctx context.Context, ref, currentID string, visited []string) (*jsonvalue.Value, error) {
	schemaPart, fragment := SplitReference(ref)
	schemaID := ResolveSchemaID(schemaPart, currentID)
	key := schemaID + "#" + fragment

	body, err := d.GetSchema(ctx, schemaID)
	if err != nil {
		return nil, err
	}

	def, ok := jsonvalue.Pointer(body, "#"+fragment)
	if !ok {
		d.log.Warn("Reference target missing, substituting placeholder",
			zap.String("ref", ref), zap.String("schema", schemaID))
		return missingPlaceholder(ref), nil
	}
	def = qualifyRefs(def, schemaID)

	inner, hasRef := def.GetString("$ref")
	if !hasRef {
		return def, nil
	}

	chain := append(append(make([]string, 0, len(visited)+1), visited...), key)
	innerSchema, innerFragment := SplitReference(inner)
	innerKey := ResolveSchemaID(innerSchema, schemaID) + "#" + innerFragment
	for _, seen := range chain {
		if seen == innerKey {
			d.log.Warn("Circular reference detected, returning definition unresolved",
				zap.String("ref", inner), zap.Strings("chain", chain))
			return def, nil
		}
	}

	resolved, err := d.resolve(ctx, inner, schemaID, chain)
	if err != nil {
		return nil, err
	}
	return MergeSchemas(resolved, def.Without("$ref")), nil
}
