package services

import (
	"context"

	"unstructured-rag/internal/models"
	"unstructured-rag/internal/openai"
)

// Interfaces are declared here, in the consuming package, and list only
// the methods the services actually call. The repository, embedding and
// openai packages return concrete types.

// DocumentRepository defines what the services need from document storage
type DocumentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, limit, offset int) ([]*models.Document, error)
	UpdateStatus(ctx context.Context, id string, status models.DocumentStatus, note string, chunkCount int) error
	Delete(ctx context.Context, id string) error
}

// VectorStore defines what the services need from the vector database
// adapter. Insert is tagged by document id and chunk index; Search
// returns normalized [0,1] scores in non-increasing order.
type VectorStore interface {
	Insert(ctx context.Context, chunks []models.Chunk) error
	Search(ctx context.Context, queryVector []float32, topK int, threshold float32, documentIDs []string) ([]models.SearchResult, error)
	DeleteByDocumentID(ctx context.Context, documentID string) error
}

// Embedder maps text to fixed-dimension vectors.
type Embedder interface {
	EmbedChunks(ctx context.Context, chunks []models.Chunk) (embedded []models.Chunk, batchErrs []error, err error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Generator is the generative backend the composer grounds answers with.
type Generator interface {
	ChatCompletion(ctx context.Context, messages []openai.ChatMessage) (string, error)
}

// DocumentLoader converts raw file bytes into plain text plus metadata.
type DocumentLoader interface {
	Load(data []byte, filename string) (text string, metadata map[string]any, err error)
}

// TextChunker splits extracted text into ordered chunks with offsets.
type TextChunker interface {
	Split(text string) []models.Chunk
}
