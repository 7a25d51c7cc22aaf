package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// Chunk is a contiguous span of a document's extracted text together with
// its embedding vector. A chunk belongs to exactly one document and holds
// only the document's id as a back-reference, never a live handle.
//
// OffsetStart/OffsetEnd are character offsets into the source text.
// Offsets increase monotonically with ChunkIndex; consecutive chunks
// overlap by the configured number of characters. DocumentName is
// denormalized so search results can attribute sources without a join.
type Chunk struct {
	ID           string          `json:"id" gorm:"type:uuid;primaryKey"`
	DocumentID   string          `json:"document_id" gorm:"type:char(27);not null;index"`
	DocumentName string          `json:"document_name" gorm:"type:text;not null"`
	ChunkIndex   int             `json:"chunk_index" gorm:"not null"`
	Text         string          `json:"text" gorm:"type:text;not null"`
	OffsetStart  int             `json:"offset_start" gorm:"not null"`
	OffsetEnd    int             `json:"offset_end" gorm:"not null"`
	Embedding    pgvector.Vector `json:"-" gorm:"type:vector(1536)"`
	CreatedAt    time.Time       `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	DeletedAt    gorm.DeletedAt  `json:"deleted_at,omitempty" gorm:"column:deleted_at;index"`
}

// BeforeCreate hook generates a UUID before inserting
func (c *Chunk) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// SearchResult is one hit from a vector similarity search. Scores are
// normalized to [0,1] with higher meaning more relevant. Produced per
// query, never persisted.
type SearchResult struct {
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	ChunkIndex   int     `json:"chunk_index"`
	Text         string  `json:"text"`
	OffsetStart  int     `json:"offset_start"`
	OffsetEnd    int     `json:"offset_end"`
	Score        float32 `json:"score"`
}

// Query captures one retrieval request. TopK and Threshold override the
// configured defaults when set; DocumentIDs restricts the search to the
// given documents.
type Query struct {
	Text        string   `json:"query"`
	TopK        int      `json:"top_k,omitempty"`
	Threshold   float32  `json:"similarity_threshold,omitempty"`
	DocumentIDs []string `json:"document_ids,omitempty"`
}

// Source attributes part of a composed answer to an originating document.
type Source struct {
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	ChunkIndex   int     `json:"chunk_index"`
	Score        float32 `json:"score"`
}

// QueryResult is the full answer to a query: the grounded answer text,
// the documents it was drawn from, and how long the query took
// end-to-end.
type QueryResult struct {
	Answer           string   `json:"answer"`
	Sources          []Source `json:"sources"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
}
