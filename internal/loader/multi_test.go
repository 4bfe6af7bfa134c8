// internal/loader/multi_test.go
package loader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/calm-cli/internal/document"
	"github.com/xkilldash9x/calm-cli/internal/jsonvalue"
)

// scriptedLoader is a configurable fake that appends its name to a shared call log.
type scriptedLoader struct {
	name     string
	calls    *callLog
	doc      *document.Document
	err      error
	initErr  error
	initWait time.Duration
	inits    atomic.Int32
}

type callLog struct {
	mu    sync.Mutex
	names []string
}

func (c *callLog) add(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = append(c.names, name)
}

func (c *callLog) get() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.names...)
}

func (s *scriptedLoader) Initialise(ctx context.Context, store document.Store) error {
	s.inits.Add(1)
	if s.initWait > 0 {
		time.Sleep(s.initWait)
	}
	if s.initErr != nil {
		return s.initErr
	}
	store.StoreDocument("init:"+s.name, document.TypeSchema, jsonvalue.NewObject())
	return nil
}

func (s *scriptedLoader) LoadMissingDocument(_ context.Context, id string, docType document.Type) (*document.Document, error) {
	s.calls.add(s.name)
	return s.doc, s.err
}

func TestNewMultiStrategyLoader_RequiresLoaders(t *testing.T) {
	_, err := NewMultiStrategyLoader(zaptest.NewLogger(t))
	assert.ErrorIs(t, err, ErrNoLoaders)

	_, err = NewMultiStrategyLoader(zaptest.NewLogger(t), nil)
	assert.Error(t, err)
}

func TestMultiStrategy_FallsBackInOrder(t *testing.T) {
	calls := &callLog{}
	want := &document.Document{ID: "calm:/x", Type: document.TypeSchema, Body: jsonvalue.MustParse(`{"ok":true}`)}
	first := &scriptedLoader{name: "first", calls: calls, err: document.NewLoadError(document.CodeOperationNotImplemented, nil, "no")}
	second := &scriptedLoader{name: "second", calls: calls, doc: want}
	third := &scriptedLoader{name: "third", calls: calls, doc: want}

	multi, err := NewMultiStrategyLoader(zaptest.NewLogger(t), first, second, third)
	require.NoError(t, err)

	got, err := multi.LoadMissingDocument(context.Background(), "calm:/x", document.TypeSchema)
	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Equal(t, []string{"first", "second"}, calls.get(), "first is tried before second and third is never asked")
}

func TestMultiStrategy_AllFailWrapsLastError(t *testing.T) {
	calls := &callLog{}
	lastErr := errors.New("hub unreachable")
	first := &scriptedLoader{name: "first", calls: calls, err: document.NewLoadError(document.CodeInvalidDocumentURL, nil, "nope")}
	second := &scriptedLoader{name: "second", calls: calls, err: lastErr}
	empty := &scriptedLoader{name: "empty", calls: calls}

	multi, err := NewMultiStrategyLoader(zaptest.NewLogger(t), first, second)
	require.NoError(t, err)

	_, err = multi.LoadMissingDocument(context.Background(), "calm:/x", document.TypeSchema)
	requireCode(t, err, document.CodeUnknown)
	assert.ErrorIs(t, err, lastErr)
	assert.Equal(t, []string{"first", "second"}, calls.get())

	// A child returning neither a document nor an error still counts as a failure.
	multi, err = NewMultiStrategyLoader(zaptest.NewLogger(t), empty)
	require.NoError(t, err)
	_, err = multi.LoadMissingDocument(context.Background(), "calm:/y", document.TypeSchema)
	assert.Error(t, err)
}

// Idle keep-alive connections from the HTTP loader tests may still be winding down.
var leakOpts = []goleak.Option{
	goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
	goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
}

func TestMultiStrategy_InitialiseRunsChildrenConcurrently(t *testing.T) {
	defer goleak.VerifyNone(t, leakOpts...)

	calls := &callLog{}
	loaders := []document.Loader{
		&scriptedLoader{name: "a", calls: calls, initWait: 100 * time.Millisecond},
		&scriptedLoader{name: "b", calls: calls, initWait: 100 * time.Millisecond},
		&scriptedLoader{name: "c", calls: calls, initWait: 100 * time.Millisecond},
	}
	multi, err := NewMultiStrategyLoader(zaptest.NewLogger(t), loaders...)
	require.NoError(t, err)

	store := newMemoryStore()
	start := time.Now()
	require.NoError(t, multi.Initialise(context.Background(), store))

	assert.Less(t, time.Since(start), 280*time.Millisecond, "children should not run one after another")
	assert.ElementsMatch(t, []string{"init:a", "init:b", "init:c"}, store.ids())
}

func TestMultiStrategy_InitialiseWaitsForAllAndReportsError(t *testing.T) {
	defer goleak.VerifyNone(t, leakOpts...)

	initErr := errors.New("manifest missing")
	failing := &scriptedLoader{name: "failing", calls: &callLog{}, initErr: initErr}
	slow := &scriptedLoader{name: "slow", calls: &callLog{}, initWait: 50 * time.Millisecond}

	multi, err := NewMultiStrategyLoader(zaptest.NewLogger(t), failing, slow)
	require.NoError(t, err)

	store := newMemoryStore()
	err = multi.Initialise(context.Background(), store)
	assert.ErrorIs(t, err, initErr)
	assert.Equal(t, int32(1), slow.inits.Load())
	assert.Equal(t, []string{"init:slow"}, store.ids(), "the slow child still completes")
}
