// File: internal/loader/database.go
package loader

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/xkilldash9x/calm-cli/internal/document"
	"github.com/xkilldash9x/calm-cli/internal/jsonvalue"
	"github.com/xkilldash9x/calm-cli/internal/store"
)

// DocumentSource is the read side of store.Store.
type DocumentSource interface {
	GetDocument(ctx context.Context, id string) (*store.StoredDocument, error)
}

// DatabaseLoader lazily fetches documents from a PostgreSQL document table.
type DatabaseLoader struct {
	source DocumentSource
	log    *zap.Logger
}

// NewDatabaseLoader creates a loader backed by source.
func NewDatabaseLoader(logger *zap.Logger, source DocumentSource) *DatabaseLoader {
	return &DatabaseLoader{source: source, log: logger.Named("loader.database")}
}

// Initialise is a no-op; rows are fetched on demand.
func (l *DatabaseLoader) Initialise(context.Context, document.Store) error { return nil }

// LoadMissingDocument reads one row and decodes its body.
func (l *DatabaseLoader) LoadMissingDocument(ctx context.Context, id string, docType document.Type) (*document.Document, error) {
	row, err := l.source.GetDocument(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrDocumentNotFound) {
			return nil, document.NewLoadError(document.CodeUnknown, err, "%s is not in the database", id)
		}
		return nil, document.NewLoadError(document.CodeUnknown, err, "querying %s", id)
	}

	body, err := jsonvalue.ParseJSON(row.Body)
	if err != nil {
		return nil, document.NewLoadError(document.CodeUnknown, err, "decoding stored document %s", id)
	}
	if stored, err := document.ParseType(row.Type); err == nil {
		docType = stored
	} else {
		l.log.Warn("Stored document has an unknown type", zap.String("id", id), zap.String("type", row.Type))
	}
	return &document.Document{ID: id, Type: docType, Body: body}, nil
}
