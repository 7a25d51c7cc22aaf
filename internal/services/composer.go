package services

import (
	"context"
	"fmt"

	"unstructured-rag/internal/middleware"
	"unstructured-rag/internal/models"
	"unstructured-rag/internal/openai"

	"github.com/pkoukk/tiktoken-go"
	"go.opentelemetry.io/otel/attribute"
)

// InsufficientInfoAnswer is returned verbatim when retrieval produced
// nothing above the similarity threshold. The generative model is never
// invoked without context; that is how unattributed hallucinated
// answers are prevented.
const InsufficientInfoAnswer = "I couldn't find any relevant information to answer your query in the " +
	"ingested documents. Try rephrasing the question or uploading more documents."

// GenerationError wraps a failure of the generative backend (timeout,
// quota, malformed response). The composer never fabricates an answer
// on failure.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("answer generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Composer assembles a grounded answer from retrieved chunks. The
// context window is bounded in tokens; when the ranked chunks exceed
// the budget, the lowest-ranked are dropped first.
type Composer struct {
	generator        Generator
	maxContextTokens int
	encoder          *tiktoken.Tiktoken
}

// NewComposer creates a composer. The token encoder for the chat model
// is resolved once; when the model is unknown to the tokenizer, a
// rune-count estimate is used instead.
func NewComposer(generator Generator, chatModel string, maxContextTokens int) *Composer {
	encoder, err := tiktoken.EncodingForModel(chatModel)
	if err != nil {
		encoder, _ = tiktoken.GetEncoding("cl100k_base")
	}
	return &Composer{
		generator:        generator,
		maxContextTokens: maxContextTokens,
		encoder:          encoder,
	}
}

// Compose builds the answer and its source attribution from ranked
// retrieval results.
func (c *Composer) Compose(ctx context.Context, query string, results []models.SearchResult) (string, []models.Source, error) {
	ctx, span := middleware.StartSpan(ctx, "Composer.Compose",
		attribute.Int("result_count", len(results)),
	)
	defer span.End()

	if len(results) == 0 {
		middleware.AddSpanEvent(ctx, "insufficient_context")
		return InsufficientInfoAnswer, []models.Source{}, nil
	}

	included := c.fitToBudget(results)
	prompt := buildRAGPrompt(query, buildContext(included))

	answer, err := c.generator.ChatCompletion(ctx, []openai.ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return "", nil, &GenerationError{Err: err}
	}

	sources := collectSources(included)
	middleware.AddSpanEvent(ctx, "composition_completed",
		attribute.Int("context_chunks", len(included)),
		attribute.Int("sources", len(sources)),
		attribute.Int("answer_length", len(answer)),
	)
	return answer, sources, nil
}

// fitToBudget keeps the highest-ranked chunks whose cumulative token
// count stays within the context budget. The top result is always kept
// so the generator never runs without context.
func (c *Composer) fitToBudget(results []models.SearchResult) []models.SearchResult {
	included := make([]models.SearchResult, 0, len(results))
	used := 0
	for i, result := range results {
		tokens := c.countTokens(result.Text)
		if i > 0 && used+tokens > c.maxContextTokens {
			break
		}
		included = append(included, result)
		used += tokens
	}
	return included
}

func (c *Composer) countTokens(text string) int {
	if c.encoder != nil {
		return len(c.encoder.Encode(text, nil, nil))
	}
	// Rough heuristic when no tokenizer is available.
	count := len([]rune(text)) / 4
	if count == 0 {
		count = 1
	}
	return count
}

// collectSources deduplicates contributing documents, preserving rank
// order; each document is attributed once, at its best-scoring chunk.
func collectSources(results []models.SearchResult) []models.Source {
	seen := make(map[string]struct{}, len(results))
	sources := make([]models.Source, 0, len(results))
	for _, result := range results {
		if _, ok := seen[result.DocumentID]; ok {
			continue
		}
		seen[result.DocumentID] = struct{}{}
		sources = append(sources, models.Source{
			DocumentID:   result.DocumentID,
			DocumentName: result.DocumentName,
			ChunkIndex:   result.ChunkIndex,
			Score:        result.Score,
		})
	}
	return sources
}
