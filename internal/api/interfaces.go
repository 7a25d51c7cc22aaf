package api

import (
	"context"

	"unstructured-rag/internal/models"
)

// Service interfaces live here, in the consuming package, and list only
// the methods the handlers call.

// IngestionService accepts uploads and owns the document lifecycle.
type IngestionService interface {
	Ingest(ctx context.Context, data []byte, filename string) (string, error)
	DeleteDocument(ctx context.Context, documentID string) error
	QueueLength() int
}

// QueryService answers questions from the ingested corpus.
type QueryService interface {
	Query(ctx context.Context, query models.Query) (*models.QueryResult, error)
}

// DocumentReader serves the read-only document endpoints.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, limit, offset int) ([]*models.Document, error)
}
