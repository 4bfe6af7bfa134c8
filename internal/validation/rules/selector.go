// File: internal/validation/rules/selector.go
package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xkilldash9x/calm-cli/internal/jsonvalue"
)

// Match is one value selected from a document, with its path from the root.
type Match struct {
	Path  []string
	Value *jsonvalue.Value
}

type stepKind int

const (
	stepMember stepKind = iota
	stepIndex
	stepWildcard
	stepDescendants
	stepDescendantMember
)

type step struct {
	kind  stepKind
	name  string
	index int
}

// Selector is a compiled path expression. The supported subset is
//
//	$            the root
//	.name        object member (letters, digits, '_', '-', '$')
//	['name']     object member, quoted
//	.* or [*]    every child of an object or array
//	[n]          array element
//	..*          every descendant
//	..name       every descendant member called name
type Selector struct {
	expr  string
	steps []step
}

// String returns the source expression.
func (s *Selector) String() string { return s.expr }

// CompileSelector parses a selector expression.
func CompileSelector(expr string) (*Selector, error) {
	if !strings.HasPrefix(expr, "$") {
		return nil, fmt.Errorf("selector %q must start with '$'", expr)
	}
	sel := &Selector{expr: expr}
	rest := expr[1:]
	for rest != "" {
		var (
			st  step
			err error
		)
		switch {
		case strings.HasPrefix(rest, ".."):
			rest = rest[2:]
			if strings.HasPrefix(rest, "*") {
				st, rest = step{kind: stepDescendants}, rest[1:]
				break
			}
			var name string
			name, rest = readName(rest)
			if name == "" {
				return nil, fmt.Errorf("selector %q: expected a member name after '..'", expr)
			}
			st = step{kind: stepDescendantMember, name: name}
		case strings.HasPrefix(rest, "."):
			rest = rest[1:]
			if strings.HasPrefix(rest, "*") {
				st, rest = step{kind: stepWildcard}, rest[1:]
				break
			}
			var name string
			name, rest = readName(rest)
			if name == "" {
				return nil, fmt.Errorf("selector %q: expected a member name after '.'", expr)
			}
			st = step{kind: stepMember, name: name}
		case strings.HasPrefix(rest, "["):
			st, rest, err = readBracket(rest)
			if err != nil {
				return nil, fmt.Errorf("selector %q: %w", expr, err)
			}
		default:
			return nil, fmt.Errorf("selector %q: unexpected %q", expr, rest)
		}
		sel.steps = append(sel.steps, st)
	}
	return sel, nil
}

// MustCompileSelector is CompileSelector for expressions known to be valid.
func MustCompileSelector(expr string) *Selector {
	sel, err := CompileSelector(expr)
	if err != nil {
		panic(err)
	}
	return sel
}

func readName(s string) (string, string) {
	i := 0
	for i < len(s) {
		c := s[i]
		if c == '.' || c == '[' {
			break
		}
		i++
	}
	return s[:i], s[i:]
}

func readBracket(s string) (step, string, error) {
	end := strings.IndexByte(s, ']')
	if end < 0 {
		return step{}, "", fmt.Errorf("unterminated '['")
	}
	inner, rest := s[1:end], s[end+1:]
	switch {
	case inner == "*":
		return step{kind: stepWildcard}, rest, nil
	case len(inner) >= 2 && (inner[0] == '\'' || inner[0] == '"') && inner[len(inner)-1] == inner[0]:
		return step{kind: stepMember, name: inner[1 : len(inner)-1]}, rest, nil
	default:
		n, err := strconv.Atoi(inner)
		if err != nil || n < 0 {
			return step{}, "", fmt.Errorf("unsupported bracket expression [%s]", inner)
		}
		return step{kind: stepIndex, index: n}, rest, nil
	}
}

// Select evaluates the selector against root. Matches come back in document order.
func (s *Selector) Select(root *jsonvalue.Value) []Match {
	current := []Match{{Path: nil, Value: root}}
	for _, st := range s.steps {
		var next []Match
		for _, m := range current {
			next = st.apply(m, next)
		}
		current = next
		if len(current) == 0 {
			break
		}
	}
	return current
}

func child(m Match, token string, v *jsonvalue.Value) Match {
	path := make([]string, len(m.Path)+1)
	copy(path, m.Path)
	path[len(m.Path)] = token
	return Match{Path: path, Value: v}
}

func children(m Match, out []Match) []Match {
	switch m.Value.Kind() {
	case jsonvalue.KindObject:
		for _, k := range m.Value.Keys() {
			v, _ := m.Value.Get(k)
			out = append(out, child(m, k, v))
		}
	case jsonvalue.KindArray:
		for i, v := range m.Value.Items() {
			out = append(out, child(m, strconv.Itoa(i), v))
		}
	}
	return out
}

func descendants(m Match, out []Match) []Match {
	for _, c := range children(m, nil) {
		out = append(out, c)
		out = descendants(c, out)
	}
	return out
}

func (st step) apply(m Match, out []Match) []Match {
	switch st.kind {
	case stepMember:
		if v, ok := m.Value.Get(st.name); ok {
			out = append(out, child(m, st.name, v))
		}
	case stepIndex:
		if v, ok := m.Value.Index(st.index); ok {
			out = append(out, child(m, strconv.Itoa(st.index), v))
		}
	case stepWildcard:
		out = children(m, out)
	case stepDescendants:
		out = descendants(m, out)
	case stepDescendantMember:
		for _, d := range append([]Match{m}, descendants(m, nil)...) {
			if v, ok := d.Value.Get(st.name); ok {
				out = append(out, child(d, st.name, v))
			}
		}
	}
	return out
}

// SelectAll evaluates several selectors and concatenates their matches.
func SelectAll(root *jsonvalue.Value, selectors ...*Selector) []Match {
	var out []Match
	for _, s := range selectors {
		out = append(out, s.Select(root)...)
	}
	return out
}
