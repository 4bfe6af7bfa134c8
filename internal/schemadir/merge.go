// File: internal/schemadir/merge.go
package schemadir

import "github.com/xkilldash9x/calm-cli/internal/jsonvalue"

// mergeFunc combines the values two schemas hold for the same keyword.
type mergeFunc func(base, override *jsonvalue.Value) *jsonvalue.Value

// mergeStrategies lists the keywords that merge structurally. Every other
// keyword is taken from the override when both schemas set it.
var mergeStrategies map[string]mergeFunc

// mergeProperties recurses into MergeSchemas, so the table is filled at init.
func init() {
	mergeStrategies = map[string]mergeFunc{
		"properties":  mergeProperties,
		"required":    mergeRequired,
		"prefixItems": mergePrefixItems,
	}
}

// MergeSchemas deep-merges override onto base and returns a new schema.
// Keys keep base order, with keys new in override appended. Neither input is modified.
func MergeSchemas(base, override *jsonvalue.Value) *jsonvalue.Value {
	if !base.IsObject() || !override.IsObject() {
		if override == nil {
			return base
		}
		return override
	}

	out := jsonvalue.NewObject()
	for _, k := range base.Keys() {
		v, _ := base.Get(k)
		out.Set(k, v)
	}
	for _, k := range override.Keys() {
		o, _ := override.Get(k)
		b, exists := out.Get(k)
		if merge, special := mergeStrategies[k]; special && exists {
			out.Set(k, merge(b, o))
			continue
		}
		out.Set(k, o)
	}
	return out
}

func mergeProperties(base, override *jsonvalue.Value) *jsonvalue.Value {
	if !base.IsObject() || !override.IsObject() {
		return override
	}
	out := jsonvalue.NewObject()
	for _, k := range base.Keys() {
		v, _ := base.Get(k)
		out.Set(k, v)
	}
	for _, k := range override.Keys() {
		o, _ := override.Get(k)
		if b, ok := out.Get(k); ok {
			out.Set(k, MergeSchemas(b, o))
			continue
		}
		out.Set(k, o)
	}
	return out
}

func mergeRequired(base, override *jsonvalue.Value) *jsonvalue.Value {
	if !base.IsArray() || !override.IsArray() {
		return override
	}
	out := jsonvalue.Array()
	seen := make([]*jsonvalue.Value, 0, base.Len()+override.Len())
	add := func(v *jsonvalue.Value) {
		for _, s := range seen {
			if jsonvalue.Equal(s, v) {
				return
			}
		}
		seen = append(seen, v)
		out.Append(v)
	}
	for _, v := range base.Items() {
		add(v)
	}
	for _, v := range override.Items() {
		add(v)
	}
	return out
}

func mergePrefixItems(base, override *jsonvalue.Value) *jsonvalue.Value {
	if !base.IsArray() || !override.IsArray() {
		return override
	}
	n := max(base.Len(), override.Len())
	out := jsonvalue.Array()
	for i := 0; i < n; i++ {
		b, hasBase := base.Index(i)
		o, hasOverride := override.Index(i)
		switch {
		case hasBase && hasOverride:
			out.Append(MergeSchemas(b, o))
		case hasOverride:
			out.Append(o)
		default:
			out.Append(b)
		}
	}
	return out
}
