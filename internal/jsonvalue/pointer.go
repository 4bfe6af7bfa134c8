// File: internal/jsonvalue/pointer.go
package jsonvalue

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

var tokenEscaper = strings.NewReplacer("~", "~0", "/", "~1")
var tokenUnescaper = strings.NewReplacer("~1", "/", "~0", "~")

// EscapeToken escapes a single reference token per RFC 6901.
func EscapeToken(token string) string { return tokenEscaper.Replace(token) }

// JoinPointer builds a JSON pointer from unescaped tokens.
func JoinPointer(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	var b strings.Builder
	for _, t := range tokens {
		b.WriteByte('/')
		b.WriteString(EscapeToken(t))
	}
	return b.String()
}

// SplitPointer parses a JSON pointer into unescaped tokens. A leading '#' marks
// the URI fragment form, whose tokens are percent-decoded first.
func SplitPointer(ptr string) ([]string, error) {
	if strings.HasPrefix(ptr, "#") {
		decoded, err := url.PathUnescape(ptr[1:])
		if err != nil {
			return nil, fmt.Errorf("invalid pointer fragment %q: %w", ptr, err)
		}
		ptr = decoded
	}
	if ptr == "" {
		return nil, nil
	}
	if ptr[0] != '/' {
		return nil, fmt.Errorf("invalid pointer %q: must start with '/'", ptr)
	}
	parts := strings.Split(ptr[1:], "/")
	for i, p := range parts {
		parts[i] = tokenUnescaper.Replace(p)
	}
	return parts, nil
}

// Pointer returns the value addressed by a JSON pointer inside v.
// The boolean is false when the pointer is malformed or the target is absent.
func Pointer(v *Value, ptr string) (*Value, bool) {
	tokens, err := SplitPointer(ptr)
	if err != nil {
		return nil, false
	}
	cur := v
	for _, tok := range tokens {
		switch cur.Kind() {
		case KindObject:
			next, ok := cur.Get(tok)
			if !ok {
				return nil, false
			}
			cur = next
		case KindArray:
			i, ok := arrayIndex(tok)
			if !ok {
				return nil, false
			}
			next, ok := cur.Index(i)
			if !ok {
				return nil, false
			}
			cur = next
		default:
			return nil, false
		}
	}
	return cur, true
}

func arrayIndex(tok string) (int, bool) {
	if tok == "" || (len(tok) > 1 && tok[0] == '0') {
		return 0, false
	}
	i, err := strconv.Atoi(tok)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

func itoa(i int) string { return strconv.Itoa(i) }
