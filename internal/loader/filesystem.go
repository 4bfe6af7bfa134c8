// File: internal/loader/filesystem.go
package loader

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/calm-cli/internal/document"
	"github.com/xkilldash9x/calm-cli/internal/jsonvalue"
)

// FilesystemLoader preloads every schema found under a set of directory trees.
// It never loads lazily.
type FilesystemLoader struct {
	dirs []string
	log  *zap.Logger
}

// NewFilesystemLoader creates a loader for the given directory roots.
func NewFilesystemLoader(logger *zap.Logger, dirs ...string) *FilesystemLoader {
	return &FilesystemLoader{dirs: dirs, log: logger.Named("loader.filesystem")}
}

func isDocumentFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// Initialise walks every root and stores each parseable document under its `$id`.
// Missing roots, unparseable files and files without `$id` are logged and skipped.
func (l *FilesystemLoader) Initialise(ctx context.Context, store document.Store) error {
	for _, root := range l.dirs {
		if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
			l.log.Warn("Skipping missing schema directory", zap.String("dir", root))
			continue
		}
		count := 0
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() || !isDocumentFile(path) {
				return nil
			}

			body, err := jsonvalue.ParseFile(path)
			if err != nil {
				l.log.Warn("Skipping unparseable file", zap.String("path", path), zap.Error(err))
				return nil
			}
			id, ok := document.IDOf(body)
			if !ok {
				l.log.Warn("Skipping file without $id", zap.String("path", path))
				return nil
			}
			store.StoreDocument(id, document.TypeSchema, body)
			count++
			return nil
		})
		if err != nil {
			return document.NewLoadError(document.CodeUnknown, err, "scanning schema directory %s", root)
		}
		l.log.Debug("Loaded schemas from directory", zap.String("dir", root), zap.Int("count", count))
	}
	return nil
}

// LoadMissingDocument always fails; this loader only works at startup.
func (l *FilesystemLoader) LoadMissingDocument(_ context.Context, id string, _ document.Type) (*document.Document, error) {
	return nil, document.NewLoadError(document.CodeOperationNotImplemented, nil,
		"filesystem loader cannot lazily load %s", id)
}
