// File: internal/schemadir/directory.go
package schemadir

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/calm-cli/internal/document"
	"github.com/xkilldash9x/calm-cli/internal/jsonvalue"
)

// PatternUnderValidationID is the reserved identifier of the pattern currently
// being validated or instantiated. It deliberately uses neither http(s) nor the
// calm: scheme so no loader ever tries to fetch it.
const PatternUnderValidationID = "urn:calm:pattern-under-validation"

// ErrSchemaNotFound is returned when a schema document cannot be loaded at all.
var ErrSchemaNotFound = errors.New("schema not found")

// Directory caches documents by identifier and resolves references between them.
// It is safe for concurrent use; loaders may store documents from several
// goroutines during Initialise.
type Directory struct {
	loader document.Loader
	log    *zap.Logger

	mu    sync.RWMutex
	docs  map[string]*jsonvalue.Value
	types map[string]document.Type
}

// New creates an empty directory that delegates cache misses to loader.
// A nil loader makes every miss fail with ErrSchemaNotFound.
func New(loader document.Loader, logger *zap.Logger) *Directory {
	return &Directory{
		loader: loader,
		log:    logger.Named("schemadir"),
		docs:   make(map[string]*jsonvalue.Value),
		types:  make(map[string]document.Type),
	}
}

// Initialise lets the loader pre-populate the directory.
func (d *Directory) Initialise(ctx context.Context) error {
	if d.loader == nil {
		return nil
	}
	if err := d.loader.Initialise(ctx, d); err != nil {
		return fmt.Errorf("initialising document loader: %w", err)
	}
	d.mu.RLock()
	count := len(d.docs)
	d.mu.RUnlock()
	d.log.Debug("Schema directory initialised", zap.Int("documents", count))
	return nil
}

// StoreDocument inserts or replaces the document stored under id.
func (d *Directory) StoreDocument(id string, docType document.Type, body *jsonvalue.Value) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.docs[id] = body
	d.types[id] = docType
}

// Lookup returns a cached document without consulting the loader.
func (d *Directory) Lookup(id string) (*jsonvalue.Value, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	body, ok := d.docs[id]
	return body, ok
}

// GetDocumentType reports the type a document was stored with.
func (d *Directory) GetDocumentType(id string) (document.Type, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.types[id]
	return t, ok
}

// GetSchema returns the document stored under id, loading and caching it on a miss.
func (d *Directory) GetSchema(ctx context.Context, id string) (*jsonvalue.Value, error) {
	if body, ok := d.Lookup(id); ok {
		d.log.Debug("Schema cache hit", zap.String("id", id))
		return body, nil
	}
	if d.loader == nil {
		return nil, fmt.Errorf("%w: %s: no loader configured", ErrSchemaNotFound, id)
	}

	d.log.Debug("Schema cache miss, delegating to loader", zap.String("id", id))
	doc, err := d.loader.LoadMissingDocument(ctx, id, document.TypeSchema)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSchemaNotFound, id, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.docs[id]; ok {
		// Another resolution stored it while the loader was running. Cache first.
		d.log.Debug("Schema already present, keeping cached copy", zap.String("id", id))
		return existing, nil
	}
	docType := doc.Type
	if docType == "" {
		docType = document.TypeSchema
	}
	d.docs[id] = doc.Body
	d.types[id] = docType
	return doc.Body, nil
}

// LoadCurrentPatternAsSchema registers pattern under PatternUnderValidationID
// and, when it has one, under its own `$id`.
func (d *Directory) LoadCurrentPatternAsSchema(pattern *jsonvalue.Value) {
	d.StoreDocument(PatternUnderValidationID, document.TypePattern, pattern)
	if id, ok := document.IDOf(pattern); ok {
		d.StoreDocument(id, document.TypePattern, pattern)
	}
}

// CurrentPatternID returns the identifier the pattern is addressed by: its
// `$id` when present, otherwise PatternUnderValidationID.
func CurrentPatternID(pattern *jsonvalue.Value) string {
	if id, ok := document.IDOf(pattern); ok {
		return id
	}
	return PatternUnderValidationID
}
