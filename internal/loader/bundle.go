// File: internal/loader/bundle.go
package loader

import (
	"context"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/calm-cli/internal/document"
	"github.com/xkilldash9x/calm-cli/internal/jsonvalue"
)

type bundleEntry struct {
	path    string
	docType document.Type
}

// BundleLoader serves documents listed in a manifest file. The manifest is a
// JSON or YAML object mapping a document id either to a file path or to
// {"path": ..., "type": ...}. Paths are relative to the manifest.
type BundleLoader struct {
	manifest string
	log      *zap.Logger

	mu      sync.RWMutex
	entries map[string]bundleEntry
}

// NewBundleLoader creates a loader for the manifest at manifestPath.
func NewBundleLoader(logger *zap.Logger, manifestPath string) *BundleLoader {
	return &BundleLoader{manifest: manifestPath, log: logger.Named("loader.bundle")}
}

func (l *BundleLoader) readManifest() (map[string]bundleEntry, error) {
	raw, err := jsonvalue.ParseFile(l.manifest)
	if err != nil {
		return nil, document.NewLoadError(document.CodeUnknown, err, "reading bundle manifest %s", l.manifest)
	}
	if !raw.IsObject() {
		return nil, document.NewLoadError(document.CodeUnknown, nil,
			"bundle manifest %s must be an object, got %s", l.manifest, raw.Kind())
	}

	base := filepath.Dir(l.manifest)
	entries := make(map[string]bundleEntry, raw.Len())
	for _, id := range raw.Keys() {
		member, _ := raw.Get(id)
		entry := bundleEntry{docType: document.TypeSchema}

		if p, ok := member.AsString(); ok {
			entry.path = p
		} else if p, ok := member.GetString("path"); ok {
			entry.path = p
			if t, ok := member.GetString("type"); ok {
				docType, err := document.ParseType(t)
				if err != nil {
					return nil, document.NewLoadError(document.CodeUnknown, err, "bundle entry %s", id)
				}
				entry.docType = docType
			}
		}
		if entry.path == "" {
			return nil, document.NewLoadError(document.CodeUnknown, nil,
				"bundle entry %s in %s has no path", id, l.manifest)
		}
		if !filepath.IsAbs(entry.path) {
			entry.path = filepath.Join(base, entry.path)
		}
		entries[id] = entry
	}
	return entries, nil
}

func (l *BundleLoader) lookup(id string) (bundleEntry, bool, error) {
	l.mu.RLock()
	entries := l.entries
	l.mu.RUnlock()

	if entries == nil {
		var err error
		if entries, err = l.readManifest(); err != nil {
			return bundleEntry{}, false, err
		}
		l.mu.Lock()
		l.entries = entries
		l.mu.Unlock()
	}
	entry, ok := entries[id]
	return entry, ok, nil
}

// Initialise reads the manifest and stores every listed document.
func (l *BundleLoader) Initialise(ctx context.Context, store document.Store) error {
	entries, err := l.readManifest()
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()

	for id, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		body, err := jsonvalue.ParseFile(entry.path)
		if err != nil {
			return document.NewLoadError(document.CodeUnknown, err, "loading bundle entry %s", id)
		}
		store.StoreDocument(id, entry.docType, body)
	}
	l.log.Debug("Loaded bundle", zap.String("manifest", l.manifest), zap.Int("count", len(entries)))
	return nil
}

// LoadMissingDocument re-reads a document listed in the manifest.
func (l *BundleLoader) LoadMissingDocument(_ context.Context, id string, docType document.Type) (*document.Document, error) {
	entry, ok, err := l.lookup(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, document.NewLoadError(document.CodeUnknown, nil, "%s is not listed in bundle %s", id, l.manifest)
	}
	body, err := jsonvalue.ParseFile(entry.path)
	if err != nil {
		return nil, document.NewLoadError(document.CodeUnknown, err, "loading bundle entry %s", id)
	}
	if docType == "" {
		docType = entry.docType
	}
	return &document.Document{ID: id, Type: docType, Body: body}, nil
}
