// File: internal/loader/multi.go
package loader

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/calm-cli/internal/document"
)

// ErrNoLoaders is returned when a composite loader is built without children.
var ErrNoLoaders = errors.New("multi-strategy loader needs at least one loader")

// MultiStrategyLoader tries an ordered list of loaders, returning the first success.
type MultiStrategyLoader struct {
	loaders []document.Loader
	log     *zap.Logger
}

// NewMultiStrategyLoader composes loaders in priority order.
func NewMultiStrategyLoader(logger *zap.Logger, loaders ...document.Loader) (*MultiStrategyLoader, error) {
	if len(loaders) == 0 {
		return nil, ErrNoLoaders
	}
	for i, l := range loaders {
		if l == nil {
			return nil, fmt.Errorf("loader at position %d is nil", i)
		}
	}
	return &MultiStrategyLoader{
		loaders: append([]document.Loader(nil), loaders...),
		log:     logger.Named("loader.multi"),
	}, nil
}

// Initialise runs every child concurrently and waits for all of them. The
// first error encountered is returned.
func (m *MultiStrategyLoader) Initialise(ctx context.Context, store document.Store) error {
	var g errgroup.Group
	for _, l := range m.loaders {
		l := l
		g.Go(func() error {
			return l.Initialise(ctx, store)
		})
	}
	return g.Wait()
}

// LoadMissingDocument asks each child in order. Child failures are swallowed
// until every child has failed; the returned error wraps the last one.
func (m *MultiStrategyLoader) LoadMissingDocument(ctx context.Context, id string, docType document.Type) (*document.Document, error) {
	var lastErr error
	for i, l := range m.loaders {
		if err := ctx.Err(); err != nil {
			return nil, document.NewLoadError(document.CodeUnknown, err, "loading %s", id)
		}
		doc, err := l.LoadMissingDocument(ctx, id, docType)
		if err == nil && doc != nil {
			m.log.Debug("Loader served document", zap.String("id", id), zap.Int("position", i), zap.String("loader", fmt.Sprintf("%T", l)))
			return doc, nil
		}
		if err == nil {
			err = document.NewLoadError(document.CodeUnknown, nil, "%T returned no document", l)
		}
		m.log.Debug("Loader could not serve document",
			zap.String("id", id),
			zap.Int("position", i),
			zap.String("code", string(document.CodeOf(err))),
			zap.Error(err))
		lastErr = err
	}
	return nil, document.NewLoadError(document.CodeUnknown, lastErr, "no loader could load %s", id)
}
