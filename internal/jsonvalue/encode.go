// File: internal/jsonvalue/encode.go
package jsonvalue

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// Position is a 1-based line and column in encoded text. Columns count runes.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Range spans a value in encoded text. End is the position just past the last rune.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// SourceMap maps a JSON pointer to the range its value occupies in encoded text.
// The root value is stored under the empty pointer.
type SourceMap map[string]Range

// Lookup returns the range of the value at ptr, falling back to the closest
// ancestor that has one.
func (m SourceMap) Lookup(ptr string) (Range, bool) {
	for {
		if r, ok := m[ptr]; ok {
			return r, true
		}
		if ptr == "" {
			return Range{}, false
		}
		i := strings.LastIndexByte(ptr, '/')
		if i < 0 {
			ptr = ""
			continue
		}
		ptr = ptr[:i]
	}
}

// Marshal encodes v as compact JSON.
func Marshal(v *Value) []byte {
	out, _ := Encode(v, "")
	return out
}

// MarshalIndent encodes v as JSON with one indent unit per nesting level.
func MarshalIndent(v *Value, indent string) []byte {
	out, _ := Encode(v, indent)
	return out
}

// Encode encodes v and records where each value landed in the output.
func Encode(v *Value, indent string) ([]byte, SourceMap) {
	e := &encoder{indent: indent, line: 1, col: 1, sm: SourceMap{}}
	e.value(v, nil, 0)
	return e.buf.Bytes(), e.sm
}

type encoder struct {
	buf    bytes.Buffer
	indent string
	line   int
	col    int
	sm     SourceMap
}

func (e *encoder) write(s string) {
	e.buf.WriteString(s)
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]
		if r == '\n' {
			e.line++
			e.col = 1
			continue
		}
		e.col++
	}
}

func (e *encoder) pos() Position { return Position{Line: e.line, Column: e.col} }

func (e *encoder) newline(depth int) {
	if e.indent == "" {
		return
	}
	e.write("\n" + strings.Repeat(e.indent, depth))
}

func (e *encoder) quote(s string) {
	q, err := jsonAPI.MarshalToString(s)
	if err != nil {
		// strings always encode; keep the output well formed regardless
		q = `""`
	}
	e.write(q)
}

func (e *encoder) value(v *Value, path []string, depth int) {
	start := e.pos()
	switch v.Kind() {
	case KindNull:
		e.write("null")
	case KindBool:
		if v.b {
			e.write("true")
		} else {
			e.write("false")
		}
	case KindNumber:
		e.write(v.num)
	case KindString:
		e.quote(v.str)
	case KindArray:
		if len(v.arr) == 0 {
			e.write("[]")
			break
		}
		e.write("[")
		for i, item := range v.arr {
			if i > 0 {
				e.write(",")
			}
			e.newline(depth + 1)
			e.value(item, appendToken(path, itoa(i)), depth+1)
		}
		e.newline(depth)
		e.write("]")
	case KindObject:
		if len(v.obj.keys) == 0 {
			e.write("{}")
			break
		}
		e.write("{")
		for i, k := range v.obj.keys {
			if i > 0 {
				e.write(",")
			}
			e.newline(depth + 1)
			e.quote(k)
			if e.indent == "" {
				e.write(":")
			} else {
				e.write(": ")
			}
			e.value(v.obj.values[k], appendToken(path, k), depth+1)
		}
		e.newline(depth)
		e.write("}")
	}
	e.sm[JoinPointer(path)] = Range{Start: start, End: e.pos()}
}
