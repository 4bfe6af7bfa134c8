// File: internal/jsonvalue/parse.go
package jsonvalue

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

// jsonAPI is shared by the parser and the encoder. HTML escaping is disabled so
// that documents round trip byte for byte where possible.
var jsonAPI = jsoniter.Config{
	EscapeHTML:             false,
	UseNumber:              true,
	ValidateJsonRawMessage: true,
}.Froze()

// ErrEmptyDocument is returned when the input holds no JSON or YAML value.
var ErrEmptyDocument = errors.New("document is empty")

// ParseJSON decodes a JSON document, preserving object key order and number literals.
func ParseJSON(data []byte) (*Value, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, ErrEmptyDocument
	}
	// The streaming iterator reports truncation as io.EOF, so syntax is checked
	// up front to get a positioned error.
	if !json.Valid(data) {
		var raw json.RawMessage
		err := json.Unmarshal(data, &raw)
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	iter := jsoniter.ParseBytes(jsonAPI, data)
	v := readValue(iter)
	if iter.Error != nil && !errors.Is(iter.Error, io.EOF) {
		return nil, fmt.Errorf("invalid JSON: %w", iter.Error)
	}
	return v, nil
}

func readValue(iter *jsoniter.Iterator) *Value {
	switch iter.WhatIsNext() {
	case jsoniter.NilValue:
		iter.ReadNil()
		return Null()
	case jsoniter.BoolValue:
		return Bool(iter.ReadBool())
	case jsoniter.NumberValue:
		return NumberLiteral(string(iter.ReadNumber()))
	case jsoniter.StringValue:
		return String(iter.ReadString())
	case jsoniter.ArrayValue:
		arr := Array()
		iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			arr.Append(readValue(it))
			return it.Error == nil
		})
		return arr
	case jsoniter.ObjectValue:
		obj := NewObject()
		iter.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
			obj.Set(field, readValue(it))
			return it.Error == nil
		})
		return obj
	default:
		iter.ReportError("readValue", "unexpected token")
		return Null()
	}
}

// ParseYAML decodes the first document of a YAML stream, preserving mapping order.
func ParseYAML(data []byte) (*Value, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if root.Kind == 0 {
		return nil, ErrEmptyDocument
	}
	return fromYAMLNode(&root)
}

func fromYAMLNode(n *yaml.Node) (*Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null(), nil
		}
		return fromYAMLNode(n.Content[0])
	case yaml.AliasNode:
		return fromYAMLNode(n.Alias)
	case yaml.SequenceNode:
		arr := Array()
		for _, item := range n.Content {
			v, err := fromYAMLNode(item)
			if err != nil {
				return nil, err
			}
			arr.Append(v)
		}
		return arr, nil
	case yaml.MappingNode:
		obj := NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := fromYAMLNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			obj.Set(n.Content[i].Value, v)
		}
		return obj, nil
	case yaml.ScalarNode:
		return fromYAMLScalar(n)
	default:
		return nil, fmt.Errorf("unsupported YAML node kind %d at line %d", n.Kind, n.Line)
	}
}

func fromYAMLScalar(n *yaml.Node) (*Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return Int(i), nil
		}
		fallthrough
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, fmt.Errorf("line %d: %q has no JSON representation", n.Line, n.Value)
		}
		return Number(f), nil
	default:
		return String(n.Value), nil
	}
}

// Parse decodes data as JSON, falling back to YAML.
func Parse(data []byte) (*Value, error) {
	v, jsonErr := ParseJSON(data)
	if jsonErr == nil {
		return v, nil
	}
	if errors.Is(jsonErr, ErrEmptyDocument) {
		return nil, jsonErr
	}
	v, yamlErr := ParseYAML(data)
	if yamlErr != nil {
		return nil, fmt.Errorf("document is neither JSON (%v) nor YAML (%v)", jsonErr, yamlErr)
	}
	return v, nil
}

// ParseFile reads and decodes a document, choosing the decoder by file extension.
func ParseFile(path string) (*Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var v *Value
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		v, err = ParseJSON(data)
	case ".yaml", ".yml":
		v, err = ParseYAML(data)
	default:
		v, err = Parse(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return v, nil
}

// MustParse decodes a JSON or YAML literal and panics on failure.
// Intended for fixtures and package-level constants.
func MustParse(s string) *Value {
	v, err := Parse([]byte(s))
	if err != nil {
		panic("jsonvalue: MustParse: " + err.Error())
	}
	return v
}

// FromAny converts a generic encoding/json style value. Map keys are sorted
// because Go maps carry no order.
func FromAny(x any) (*Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return NumberLiteral(t.String()), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case []any:
		arr := Array()
		for _, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return nil, err
			}
			arr.Append(v)
		}
		return arr, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := NewObject()
		for _, k := range keys {
			v, err := FromAny(t[k])
			if err != nil {
				return nil, err
			}
			obj.Set(k, v)
		}
		return obj, nil
	case *Value:
		return t, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", x)
	}
}
