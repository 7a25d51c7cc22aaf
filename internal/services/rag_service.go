package services

import (
	"context"
	"time"

	"unstructured-rag/internal/middleware"
	"unstructured-rag/internal/models"

	"go.opentelemetry.io/otel/attribute"
)

// RAGService ties retrieval and composition into the single query
// operation the API exposes.
type RAGService struct {
	retriever *Retriever
	composer  *Composer
}

// NewRAGService creates the query service.
func NewRAGService(retriever *Retriever, composer *Composer) *RAGService {
	return &RAGService{retriever: retriever, composer: composer}
}

// Query answers a natural-language question from the ingested corpus.
// When retrieval fails the composer is never invoked; when retrieval
// finds nothing, the canonical insufficient-information answer comes
// back with an empty source list.
func (s *RAGService) Query(ctx context.Context, query models.Query) (*models.QueryResult, error) {
	start := time.Now()

	ctx, span := middleware.StartSpan(ctx, "RAGService.Query",
		attribute.Int("query_length", len(query.Text)),
	)
	defer span.End()

	results, err := s.retriever.Retrieve(ctx, query)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, err
	}

	answer, sources, err := s.composer.Compose(ctx, query.Text, results)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, err
	}

	return &models.QueryResult{
		Answer:           answer,
		Sources:          sources,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}, nil
}
