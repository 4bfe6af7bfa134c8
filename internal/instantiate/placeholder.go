// File: internal/instantiate/placeholder.go
package instantiate

import (
	"strings"
	"unicode"

	"github.com/xkilldash9x/calm-cli/internal/jsonvalue"
)

// ScreamingSnake converts a property key to SCREAMING_SNAKE_CASE. Separators and
// lower-to-upper case boundaries become single underscores.
func ScreamingSnake(key string) string {
	var b strings.Builder
	pendingSep := false
	var prev rune
	for _, r := range key {
		switch {
		case r == '-' || r == '_' || r == '.' || r == '/' || unicode.IsSpace(r):
			pendingSep = b.Len() > 0
			prev = r
			continue
		case unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			pendingSep = b.Len() > 0
		}
		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(unicode.ToUpper(r))
		prev = r
	}
	return b.String()
}

func placeholder(prefix, key string) *jsonvalue.Value {
	name := ScreamingSnake(key)
	if prefix != "" {
		if name == "" {
			name = prefix
		} else {
			name = prefix + "_" + name
		}
	}
	return jsonvalue.String("[[ " + name + " ]]")
}

// StringPlaceholder is the value emitted for a string field named key.
func StringPlaceholder(key string) *jsonvalue.Value { return placeholder("", key) }

// BooleanPlaceholder is the value emitted for a boolean field named key.
func BooleanPlaceholder(key string) *jsonvalue.Value { return placeholder("BOOLEAN", key) }

// RefPlaceholder is the value emitted for a field whose only information is a `$ref`.
func RefPlaceholder(key string) *jsonvalue.Value { return placeholder("REF", key) }

// NumericPlaceholder is the value emitted for integer and number fields.
func NumericPlaceholder() *jsonvalue.Value { return jsonvalue.Int(-1) }
