// File: internal/validation/rules/functions.go
package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/xkilldash9x/calm-cli/internal/jsonvalue"
)

// Option values that hold several selectors separate them with ';'.
const selectorSeparator = ";"

var (
	selectorCache sync.Map // string -> []*Selector
	regexCache    sync.Map // string -> *regexp.Regexp
)

// selectorsOption compiles a ';' separated selector list. Rulesets are static, so a bad
// expression is a programming error.
func selectorsOption(expr string) []*Selector {
	if cached, ok := selectorCache.Load(expr); ok {
		return cached.([]*Selector)
	}
	var sels []*Selector
	for _, part := range strings.Split(expr, selectorSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			sels = append(sels, MustCompileSelector(part))
		}
	}
	selectorCache.Store(expr, sels)
	return sels
}

func regexOption(expr string) *regexp.Regexp {
	if cached, ok := regexCache.Load(expr); ok {
		return cached.(*regexp.Regexp)
	}
	re := regexp.MustCompile(expr)
	regexCache.Store(expr, re)
	return re
}

func stringSet(doc *jsonvalue.Value, expr string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, m := range SelectAll(doc, selectorsOption(expr)...) {
		if s, ok := m.Value.AsString(); ok {
			set[s] = struct{}{}
		}
	}
	return set
}

func join(path []string, tokens ...string) []string {
	out := make([]string, 0, len(path)+len(tokens))
	out = append(out, path...)
	return append(out, tokens...)
}

func truthy(v *jsonvalue.Value, ok bool) bool {
	if !ok {
		return false
	}
	switch v.Kind() {
	case jsonvalue.KindNull:
		return false
	case jsonvalue.KindBool:
		b, _ := v.AsBool()
		return b
	case jsonvalue.KindNumber:
		f, _ := v.AsFloat()
		return f != 0
	case jsonvalue.KindString:
		s, _ := v.AsString()
		return s != ""
	default:
		return true
	}
}

// Truthy requires each member named in the comma separated "fields" option to be
// present and truthy.
func Truthy(input *jsonvalue.Value, opts map[string]string, rc *Context) []Result {
	var out []Result
	for _, field := range strings.Split(opts["fields"], ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if !truthy(input.Get(field)) {
			out = append(out, Result{
				Message: fmt.Sprintf("%q property must be present and not empty.", field),
				Path:    join(rc.Path, field),
			})
		}
	}
	return out
}

// NotEmptyString flags string values equal to "".
func NotEmptyString(input *jsonvalue.Value, _ map[string]string, _ *Context) []Result {
	if s, ok := input.AsString(); ok && s == "" {
		return []Result{{Message: "Must not contain string properties set to the empty string."}}
	}
	return nil
}

// NumericPlaceholder flags numbers equal to the "value" option.
func NumericPlaceholder(input *jsonvalue.Value, opts map[string]string, rc *Context) []Result {
	f, ok := input.AsFloat()
	if !ok {
		return nil
	}
	want, err := strconv.ParseFloat(opts["value"], 64)
	if err != nil || f != want {
		return nil
	}
	return []Result{{Message: fmt.Sprintf("Numerical placeholder (%s) detected in %s.", opts["value"], rc.Kind)}}
}

// StringPlaceholder flags strings matching the "pattern" option.
func StringPlaceholder(input *jsonvalue.Value, opts map[string]string, rc *Context) []Result {
	s, ok := input.AsString()
	if !ok || !regexOption(opts["pattern"]).MatchString(s) {
		return nil
	}
	return []Result{{Message: fmt.Sprintf("String placeholder %s detected in %s.", s, rc.Kind)}}
}

// UniqueValues reports every occurrence of a string that was already seen across
// the selectors listed in the "selectors" option. The first occurrence is not reported.
func UniqueValues(_ *jsonvalue.Value, opts map[string]string, rc *Context) []Result {
	seen := map[string]struct{}{}
	var out []Result
	for _, m := range SelectAll(rc.Document, selectorsOption(opts["selectors"])...) {
		id, ok := m.Value.AsString()
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			out = append(out, Result{
				Message: fmt.Sprintf("Duplicate unique-id detected. ID: %s", id),
				Path:    m.Path,
			})
			continue
		}
		seen[id] = struct{}{}
	}
	return out
}

// ReferencedBy requires the input string to appear among the values selected by the
// "references" option.
func ReferencedBy(input *jsonvalue.Value, opts map[string]string, rc *Context) []Result {
	id, ok := input.AsString()
	if !ok {
		return nil
	}
	if _, found := stringSet(rc.Document, opts["references"])[id]; found {
		return nil
	}
	return []Result{{Message: fmt.Sprintf("%s with ID '%s' is not referenced by any relationships.", opts["what"], id)}}
}

// ExistsIn requires the input string to appear among the values selected by the
// "targets" option.
func ExistsIn(input *jsonvalue.Value, opts map[string]string, rc *Context) []Result {
	id, ok := input.AsString()
	if !ok {
		return nil
	}
	if _, found := stringSet(rc.Document, opts["targets"])[id]; found {
		return nil
	}
	return []Result{{Message: fmt.Sprintf("'%s' does not refer to the unique-id of an existing %s.", id, opts["what"])}}
}

// InterfacesOnNode checks a relationship endpoint of the form {node, interfaces}:
// every listed interface must belong to that node. The "nodes" option selects the node
// collection; "node-id" and "interface-ids" are selectors relative to one node.
func InterfacesOnNode(input *jsonvalue.Value, opts map[string]string, rc *Context) []Result {
	nodeID, ok := input.GetString("node")
	if !ok {
		return nil
	}
	interfaces, ok := input.Get("interfaces")
	if !ok || !interfaces.IsArray() {
		return nil
	}

	var owned map[string]struct{}
	for _, n := range SelectAll(rc.Document, selectorsOption(opts["nodes"])...) {
		if _, match := stringSet(n.Value, opts["node-id"])[nodeID]; match {
			owned = stringSet(n.Value, opts["interface-ids"])
			break
		}
	}
	if owned == nil {
		// A missing node is reported by the existence rule.
		return nil
	}

	var out []Result
	for i, item := range interfaces.Items() {
		name, ok := item.AsString()
		if !ok {
			continue
		}
		if _, found := owned[name]; !found {
			out = append(out, Result{
				Message: fmt.Sprintf("Interface '%s' is not defined on node '%s'.", name, nodeID),
				Path:    join(rc.Path, "interfaces", strconv.Itoa(i)),
			})
		}
	}
	return out
}

// UniqueWithin requires the member named by the "field" option to be unique across the
// elements of the input array.
func UniqueWithin(input *jsonvalue.Value, opts map[string]string, rc *Context) []Result {
	field := opts["field"]
	var (
		seen []*jsonvalue.Value
		out  []Result
	)
	for i, item := range input.Items() {
		v, ok := item.Get(field)
		if !ok {
			continue
		}
		dup := false
		for _, s := range seen {
			if jsonvalue.Equal(s, v) {
				dup = true
				break
			}
		}
		if dup {
			out = append(out, Result{
				Message: fmt.Sprintf("Duplicate %s %s.", field, string(jsonvalue.Marshal(v))),
				Path:    join(rc.Path, strconv.Itoa(i), field),
			})
			continue
		}
		seen = append(seen, v)
	}
	return out
}
