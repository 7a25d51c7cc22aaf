package embedding

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"unstructured-rag/internal/models"
	"unstructured-rag/internal/openai"

	"github.com/pgvector/pgvector-go"
	"github.com/sethvargo/go-retry"
)

// Backend is what the embedder needs from an embedding API. Implemented
// by openai.Client; tests substitute fakes.
type Backend interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingError reports a batch that failed after its retry. Other
// batches of the same document keep going; ingestion is partial, not
// all-or-nothing.
type EmbeddingError struct {
	BatchStart int
	BatchSize  int
	Err        error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding batch [%d:%d] failed: %v", e.BatchStart, e.BatchStart+e.BatchSize, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// DimensionMismatchError indicates the backend returned vectors of a
// different dimensionality than the store expects. This is a logic or
// configuration error and is never retried.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: want %d, got %d", e.Want, e.Got)
}

// Embedder maps chunk text to fixed-length vectors, batching backend
// calls for throughput. The vector dimensionality is fixed per model
// instance. An optional cache short-circuits repeated texts; the model
// is deterministic at inference, so cached vectors stay valid.
type Embedder struct {
	backend   Backend
	cache     *Cache
	dimension int
	batchSize int
}

// New creates an embedder. cache may be nil to disable caching.
func New(backend Backend, cache *Cache, dimension, batchSize int) *Embedder {
	if batchSize <= 0 {
		batchSize = 64
	}
	return &Embedder{
		backend:   backend,
		cache:     cache,
		dimension: dimension,
		batchSize: batchSize,
	}
}

// Dimension returns the fixed output dimensionality of the model.
func (e *Embedder) Dimension() int { return e.dimension }

// EmbedQuery maps a single query string to its vector.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedChunks populates the embedding vectors of the given chunks.
// It returns the successfully embedded chunks plus one EmbeddingError
// per batch that failed after its retry. A non-nil err aborts the whole
// call and is reserved for non-retryable conditions (dimension mismatch,
// cancelled context).
func (e *Embedder) EmbedChunks(ctx context.Context, chunks []models.Chunk) ([]models.Chunk, []error, error) {
	if len(chunks) == 0 {
		return nil, nil, nil
	}

	embedded := make([]models.Chunk, 0, len(chunks))
	var batchErrs []error

	for start := 0; start < len(chunks); start += e.batchSize {
		end := start + e.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}

		vectors, err := e.embedTexts(ctx, texts)
		if err != nil {
			var dim *DimensionMismatchError
			if errors.As(err, &dim) || ctx.Err() != nil {
				return embedded, batchErrs, err
			}
			batchErrs = append(batchErrs, &EmbeddingError{
				BatchStart: start,
				BatchSize:  len(batch),
				Err:        err,
			})
			continue
		}

		for i, chunk := range batch {
			chunk.Embedding = pgvector.NewVector(vectors[i])
			embedded = append(embedded, chunk)
		}
	}

	return embedded, batchErrs, nil
}

// embedTexts resolves cache hits, calls the backend for the misses with
// a single retry on transient failures, and sub-batches recursively when
// the backend rejects the payload as too large.
func (e *Embedder) embedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	var missTexts []string
	var missIndex []int
	for i, text := range texts {
		if e.cache != nil {
			if vec, ok := e.cache.Get(ctx, text); ok {
				vectors[i] = vec
				continue
			}
		}
		missTexts = append(missTexts, text)
		missIndex = append(missIndex, i)
	}

	if len(missTexts) > 0 {
		fetched, err := e.callBackend(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		for j, vec := range fetched {
			vectors[missIndex[j]] = vec
			if e.cache != nil {
				e.cache.Set(ctx, missTexts[j], vec)
			}
		}
	}

	for _, vec := range vectors {
		if len(vec) != e.dimension {
			return nil, &DimensionMismatchError{Want: e.dimension, Got: len(vec)}
		}
	}
	return vectors, nil
}

func (e *Embedder) callBackend(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32

	backoff := retry.WithMaxRetries(1, retry.NewConstant(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		result, callErr := e.backend.CreateEmbeddings(ctx, texts)
		if callErr != nil {
			var apiErr *openai.APIError
			if errors.As(callErr, &apiErr) {
				if apiErr.TooLarge() && len(texts) > 1 {
					sub, subErr := e.subBatch(ctx, texts)
					if subErr != nil {
						return subErr
					}
					vectors = sub
					return nil
				}
				if apiErr.Retryable() {
					return retry.RetryableError(callErr)
				}
				return callErr
			}
			// Network-level failures are worth one retry too.
			return retry.RetryableError(callErr)
		}
		vectors = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

// subBatch halves the input when the backend signals resource
// exhaustion. Batch size is a tunable, not a guarantee; the backend's
// limits win.
func (e *Embedder) subBatch(ctx context.Context, texts []string) ([][]float32, error) {
	log.Printf("embedding batch of %d too large, splitting", len(texts))
	mid := len(texts) / 2

	left, err := e.callBackend(ctx, texts[:mid])
	if err != nil {
		return nil, err
	}
	right, err := e.callBackend(ctx, texts[mid:])
	if err != nil {
		return nil, err
	}
	return append(left, right...), nil
}
