package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"unstructured-rag/internal/middleware"
	"unstructured-rag/internal/models"
	"unstructured-rag/internal/repository"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/attribute"
)

// storeRetryAttempts bounds automatic retries of vector-store calls.
// Search is read-only and insert/delete are tagged by id, so repeating
// them is safe.
const storeRetryAttempts = 3

// Retriever orchestrates the query path up to (but not including)
// answer generation: embed the query once, search the vector store,
// and thin out near-duplicate spans.
type Retriever struct {
	embedder         Embedder
	store            VectorStore
	defaultTopK      int
	defaultThreshold float32
}

// NewRetriever creates a retriever with the configured search defaults.
func NewRetriever(embedder Embedder, store VectorStore, topK int, threshold float32) *Retriever {
	return &Retriever{
		embedder:         embedder,
		store:            store,
		defaultTopK:      topK,
		defaultThreshold: threshold,
	}
}

// Retrieve returns the ranked, deduplicated chunks relevant to the
// query. An empty result is a valid outcome, not an error: it means
// nothing cleared the similarity threshold.
func (r *Retriever) Retrieve(ctx context.Context, query models.Query) ([]models.SearchResult, error) {
	topK := query.TopK
	if topK <= 0 {
		topK = r.defaultTopK
	}
	threshold := query.Threshold
	if threshold <= 0 {
		threshold = r.defaultThreshold
	}

	ctx, span := middleware.StartSpan(ctx, "Retriever.Retrieve",
		attribute.Int("top_k", topK),
		attribute.Float64("threshold", float64(threshold)),
		attribute.Int("document_filter_size", len(query.DocumentIDs)),
	)
	defer span.End()

	vector, err := r.embedder.EmbedQuery(ctx, query.Text)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.searchWithRetry(ctx, vector, topK, threshold, query.DocumentIDs)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, err
	}

	deduped := dedupeOverlapping(results)
	middleware.AddSpanEvent(ctx, "retrieval_completed",
		attribute.Int("raw_results", len(results)),
		attribute.Int("deduped_results", len(deduped)),
	)
	return deduped, nil
}

// searchWithRetry retries only store-unavailable failures, with bounded
// exponential backoff. Logic errors pass straight through.
func (r *Retriever) searchWithRetry(
	ctx context.Context,
	vector []float32,
	topK int,
	threshold float32,
	documentIDs []string,
) ([]models.SearchResult, error) {
	var results []models.SearchResult

	backoff := retry.WithMaxRetries(storeRetryAttempts, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		found, searchErr := r.store.Search(ctx, vector, topK, threshold, documentIDs)
		if searchErr != nil {
			if errors.Is(searchErr, repository.ErrStoreUnavailable) {
				return retry.RetryableError(searchErr)
			}
			return searchErr
		}
		results = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// dedupeOverlapping drops chunks that overlap or touch an already-kept
// higher-scoring chunk of the same document. Overlapping windows feed
// the generator near-identical context twice; keeping only the best one
// leaves budget for genuinely different passages.
//
// Results arrive sorted by score descending, so a simple forward pass
// keeps the winners.
func dedupeOverlapping(results []models.SearchResult) []models.SearchResult {
	if len(results) <= 1 {
		return results
	}

	kept := make([]models.SearchResult, 0, len(results))
	for _, candidate := range results {
		redundant := false
		for _, winner := range kept {
			if winner.DocumentID != candidate.DocumentID {
				continue
			}
			if candidate.OffsetStart <= winner.OffsetEnd && candidate.OffsetEnd >= winner.OffsetStart {
				redundant = true
				break
			}
		}
		if !redundant {
			kept = append(kept, candidate)
		}
	}
	return kept
}
