// internal/schemadir/directory_test.go
package schemadir

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/calm-cli/internal/document"
	"github.com/xkilldash9x/calm-cli/internal/jsonvalue"
)

// mapLoader serves documents from an in-memory map and counts lazy loads.
type mapLoader struct {
	mu      sync.Mutex
	docs    map[string]string
	preload map[string]string
	calls   map[string]int
	// during runs inside LoadMissingDocument, before the document is returned.
	during func(id string)
}

func newMapLoader(docs map[string]string) *mapLoader {
	return &mapLoader{docs: docs, calls: map[string]int{}}
}

func (l *mapLoader) Initialise(_ context.Context, store document.Store) error {
	for id, body := range l.preload {
		store.StoreDocument(id, document.TypeSchema, jsonvalue.MustParse(body))
	}
	return nil
}

func (l *mapLoader) LoadMissingDocument(_ context.Context, id string, docType document.Type) (*document.Document, error) {
	l.mu.Lock()
	l.calls[id]++
	body, ok := l.docs[id]
	l.mu.Unlock()
	if !ok {
		return nil, document.NewLoadError(document.CodeUnknown, nil, "no document %s", id)
	}
	if l.during != nil {
		l.during(id)
	}
	return &document.Document{ID: id, Type: docType, Body: jsonvalue.MustParse(body)}, nil
}

func (l *mapLoader) callCount(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[id]
}

func TestDirectory_GetSchemaIsCacheFirst(t *testing.T) {
	l := newMapLoader(map[string]string{"https://ex.org/a.json": `{"title":"a"}`})
	dir := New(l, zaptest.NewLogger(t))

	for i := 0; i < 3; i++ {
		body, err := dir.GetSchema(context.Background(), "https://ex.org/a.json")
		require.NoError(t, err)
		title, _ := body.GetString("title")
		assert.Equal(t, "a", title)
	}
	assert.Equal(t, 1, l.callCount("https://ex.org/a.json"))

	docType, ok := dir.GetDocumentType("https://ex.org/a.json")
	require.True(t, ok)
	assert.Equal(t, document.TypeSchema, docType)
}

func TestDirectory_GetSchemaKeepsEntryStoredMeanwhile(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := newMapLoader(map[string]string{"calm:/a": `{"title":"from loader"}`})
	dir := New(l, zap.New(core))
	l.during = func(id string) {
		dir.StoreDocument(id, document.TypePattern, jsonvalue.MustParse(`{"title":"stored first"}`))
	}

	body, err := dir.GetSchema(context.Background(), "calm:/a")
	require.NoError(t, err)
	title, _ := body.GetString("title")
	assert.Equal(t, "stored first", title)
	assert.Equal(t, 1, logs.FilterMessage("Schema already present, keeping cached copy").Len())

	docType, _ := dir.GetDocumentType("calm:/a")
	assert.Equal(t, document.TypePattern, docType)
}

func TestDirectory_GetSchemaMissing(t *testing.T) {
	dir := New(newMapLoader(nil), zaptest.NewLogger(t))
	_, err := dir.GetSchema(context.Background(), "https://ex.org/missing.json")
	require.ErrorIs(t, err, ErrSchemaNotFound)
	assert.ErrorIs(t, err, &document.LoadError{Code: document.CodeUnknown})

	noLoader := New(nil, zaptest.NewLogger(t))
	_, err = noLoader.GetSchema(context.Background(), "https://ex.org/missing.json")
	assert.ErrorIs(t, err, ErrSchemaNotFound)
}

func TestDirectory_StoreDocumentUpserts(t *testing.T) {
	dir := New(nil, zaptest.NewLogger(t))
	dir.StoreDocument("x", document.TypeSchema, jsonvalue.MustParse(`{"v":1}`))
	dir.StoreDocument("x", document.TypeFlow, jsonvalue.MustParse(`{"v":2}`))

	body, ok := dir.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, `{"v":2}`, string(jsonvalue.Marshal(body)))
	docType, _ := dir.GetDocumentType("x")
	assert.Equal(t, document.TypeFlow, docType)
}

func TestDirectory_Initialise(t *testing.T) {
	l := newMapLoader(nil)
	l.preload = map[string]string{"https://ex.org/pre.json": `{"title":"pre"}`}
	dir := New(l, zaptest.NewLogger(t))

	require.NoError(t, dir.Initialise(context.Background()))
	_, err := dir.GetSchema(context.Background(), "https://ex.org/pre.json")
	require.NoError(t, err)
	assert.Zero(t, l.callCount("https://ex.org/pre.json"))
}

func TestDirectory_LoadCurrentPatternAsSchema(t *testing.T) {
	dir := New(nil, zaptest.NewLogger(t))
	pattern := jsonvalue.MustParse(`{"$id":"https://ex.org/pattern.json","defs":{"a":{"type":"string"}}}`)
	dir.LoadCurrentPatternAsSchema(pattern)

	for _, id := range []string{PatternUnderValidationID, "https://ex.org/pattern.json"} {
		body, ok := dir.Lookup(id)
		require.True(t, ok, id)
		assert.Same(t, pattern, body)
		docType, _ := dir.GetDocumentType(id)
		assert.Equal(t, document.TypePattern, docType)
	}

	def, err := dir.GetDefinition(context.Background(), "#/defs/a")
	require.NoError(t, err)
	assert.Equal(t, `{"type":"string"}`, string(jsonvalue.Marshal(def)))

	assert.Equal(t, "https://ex.org/pattern.json", CurrentPatternID(pattern))
	assert.Equal(t, PatternUnderValidationID, CurrentPatternID(jsonvalue.MustParse(`{}`)))
}

func TestDirectory_ConcurrentAccess(t *testing.T) {
	docs := map[string]string{}
	for i := 0; i < 20; i++ {
		docs[fmt.Sprintf("https://ex.org/%d.json", i)] = fmt.Sprintf(`{"n":%d}`, i)
	}
	dir := New(newMapLoader(docs), zap.NewNop())

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				id := fmt.Sprintf("https://ex.org/%d.json", i)
				if (i+w)%3 == 0 {
					dir.StoreDocument(id, document.TypeSchema, jsonvalue.MustParse(docs[id]))
					continue
				}
				_, err := dir.GetSchema(context.Background(), id)
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	for id := range docs {
		_, ok := dir.Lookup(id)
		assert.True(t, ok, id)
	}
}
