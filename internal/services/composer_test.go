package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"unstructured-rag/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeEmptyResults(t *testing.T) {
	generator := &fakeGenerator{answer: "should not be used"}
	c := NewComposer(generator, "gpt-4o-mini", 3000)

	answer, sources, err := c.Compose(context.Background(), "what is X?", nil)
	require.NoError(t, err)

	assert.Equal(t, InsufficientInfoAnswer, answer)
	assert.Empty(t, sources)
	assert.Zero(t, generator.calls, "generator must not run without context")
}

func TestComposeGroundedAnswer(t *testing.T) {
	generator := &fakeGenerator{answer: "X is a thing."}
	c := NewComposer(generator, "gpt-4o-mini", 3000)

	results := []models.SearchResult{
		{DocumentID: "doc-1", DocumentName: "intro.txt", ChunkIndex: 0, Text: "X is a thing.", Score: 0.95},
		{DocumentID: "doc-2", DocumentName: "guide.pdf", ChunkIndex: 4, Text: "More about X.", Score: 0.85},
	}

	answer, sources, err := c.Compose(context.Background(), "what is X?", results)
	require.NoError(t, err)
	assert.Equal(t, "X is a thing.", answer)

	require.Len(t, sources, 2)
	assert.Equal(t, "doc-1", sources[0].DocumentID)
	assert.Equal(t, float32(0.95), sources[0].Score)
	assert.Equal(t, "doc-2", sources[1].DocumentID)

	// The generator sees the system prompt plus a context-bearing user message.
	require.Len(t, generator.lastMsgs, 2)
	assert.Equal(t, "system", generator.lastMsgs[0].Role)
	assert.Equal(t, "user", generator.lastMsgs[1].Role)
	assert.Contains(t, generator.lastMsgs[1].Content, "[Document 1] intro.txt:")
	assert.Contains(t, generator.lastMsgs[1].Content, "X is a thing.")
	assert.Contains(t, generator.lastMsgs[1].Content, "what is X?")
}

func TestComposeSourceDeduplication(t *testing.T) {
	generator := &fakeGenerator{answer: "ok"}
	c := NewComposer(generator, "gpt-4o-mini", 3000)

	results := []models.SearchResult{
		{DocumentID: "doc-1", DocumentName: "a.txt", ChunkIndex: 0, Score: 0.9},
		{DocumentID: "doc-1", DocumentName: "a.txt", ChunkIndex: 7, Score: 0.8},
		{DocumentID: "doc-2", DocumentName: "b.txt", ChunkIndex: 1, Score: 0.7},
	}

	_, sources, err := c.Compose(context.Background(), "q", results)
	require.NoError(t, err)

	// Each document attributed once, at its best-scoring chunk.
	require.Len(t, sources, 2)
	assert.Equal(t, "doc-1", sources[0].DocumentID)
	assert.Equal(t, 0, sources[0].ChunkIndex)
	assert.Equal(t, "doc-2", sources[1].DocumentID)
}

func TestComposeTokenBudget(t *testing.T) {
	generator := &fakeGenerator{answer: "ok"}
	// A budget this small fits only the top-ranked chunk.
	c := NewComposer(generator, "gpt-4o-mini", 10)

	long := strings.Repeat("many words that cost tokens ", 20)
	results := []models.SearchResult{
		{DocumentID: "doc-1", DocumentName: "a.txt", Text: long, Score: 0.9},
		{DocumentID: "doc-2", DocumentName: "b.txt", Text: long, Score: 0.8},
	}

	_, sources, err := c.Compose(context.Background(), "q", results)
	require.NoError(t, err)

	// The top chunk is always included even over budget; the second is cut.
	require.Len(t, sources, 1)
	assert.Equal(t, "doc-1", sources[0].DocumentID)
	assert.NotContains(t, generator.lastMsgs[1].Content, "b.txt")
}

func TestComposeGenerationFailure(t *testing.T) {
	generator := &fakeGenerator{err: errors.New("rate limited")}
	c := NewComposer(generator, "gpt-4o-mini", 3000)

	results := []models.SearchResult{
		{DocumentID: "doc-1", DocumentName: "a.txt", Text: "context", Score: 0.9},
	}

	answer, sources, err := c.Compose(context.Background(), "q", results)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Empty(t, answer, "no fabricated answer on failure")
	assert.Nil(t, sources)
}
