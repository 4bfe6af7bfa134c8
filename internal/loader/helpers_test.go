// internal/loader/helpers_test.go
package loader

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/calm-cli/internal/document"
	"github.com/xkilldash9x/calm-cli/internal/jsonvalue"
)

// memoryStore records documents handed over by loaders. Safe for concurrent use.
type memoryStore struct {
	mu    sync.Mutex
	docs  map[string]*jsonvalue.Value
	types map[string]document.Type
}

func newMemoryStore() *memoryStore {
	return &memoryStore{docs: map[string]*jsonvalue.Value{}, types: map[string]document.Type{}}
}

func (s *memoryStore) StoreDocument(id string, docType document.Type, body *jsonvalue.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id] = body
	s.types[id] = docType
}

func (s *memoryStore) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.docs))
	for id := range s.docs {
		out = append(out, id)
	}
	return out
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func requireCode(t *testing.T, err error, code document.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, &document.LoadError{Code: code}, "got %v", err)
}
