package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// DefaultTable holds CALM documents keyed by their identifier.
const DefaultTable = "calm_documents"

// ErrDocumentNotFound is returned when no row matches the requested identifier.
var ErrDocumentNotFound = errors.New("document not found")

// DBPool abstracts pgxpool.Pool so the store can be exercised with pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// StoredDocument is one row of the documents table.
type StoredDocument struct {
	ID   string
	Type string
	Body []byte
}

// Store reads CALM documents from PostgreSQL.
type Store struct {
	pool      DBPool
	log       *zap.Logger
	selectSQL string
}

// New creates a store over table and verifies the connection. An empty table
// name selects DefaultTable.
func New(ctx context.Context, pool DBPool, table string, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if table == "" {
		table = DefaultTable
	}
	ident := pgx.Identifier{table}.Sanitize()

	return &Store{
		pool:      pool,
		log:       logger.Named("store"),
		selectSQL: "SELECT document_type, body FROM " + ident + " WHERE id = $1",
	}, nil
}

// GetDocument fetches the raw body and type of one document.
func (s *Store) GetDocument(ctx context.Context, id string) (*StoredDocument, error) {
	doc := &StoredDocument{ID: id}
	err := s.pool.QueryRow(ctx, s.selectSQL, id).Scan(&doc.Type, &doc.Body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document %s: %w", id, err)
	}
	s.log.Debug("Fetched document from database", zap.String("id", id), zap.Int("bytes", len(doc.Body)))
	return doc, nil
}
