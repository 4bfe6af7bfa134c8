// File: internal/document/document.go
package document

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/calm-cli/internal/jsonvalue"
)

// Type classifies a stored document.
type Type string

const (
	TypeSchema       Type = "schema"
	TypePattern      Type = "pattern"
	TypeArchitecture Type = "architecture"
	TypeFlow         Type = "flow"
	TypeTimeline     Type = "timeline"
	TypeEvidence     Type = "evidence"
)

// Valid reports whether t is one of the known document types.
func (t Type) Valid() bool {
	switch t {
	case TypeSchema, TypePattern, TypeArchitecture, TypeFlow, TypeTimeline, TypeEvidence:
		return true
	}
	return false
}

// ParseType converts a string into a Type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown document type %q", s)
	}
	return t, nil
}

// Document is a JSON tree addressed by its identifier.
type Document struct {
	ID   string
	Type Type
	Body *jsonvalue.Value
}

// Store receives documents from a loader during initialisation.
type Store interface {
	StoreDocument(id string, docType Type, body *jsonvalue.Value)
}

// Loader fetches documents on behalf of a schema directory.
type Loader interface {
	// Initialise performs one-time setup and may pre-populate the store.
	Initialise(ctx context.Context, store Store) error
	// LoadMissingDocument fetches a document that is not cached yet. It never
	// returns a nil document without an error; failures are *LoadError values.
	LoadMissingDocument(ctx context.Context, id string, docType Type) (*Document, error)
}

// IDOf returns the `$id` of a document body, if it carries one.
func IDOf(body *jsonvalue.Value) (string, bool) {
	id, ok := body.GetString("$id")
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
