package models

import (
	"time"

	"github.com/segmentio/ksuid"
	"gorm.io/gorm"
)

// DocumentFormat identifies the source file type a document was extracted from.
type DocumentFormat string

const (
	FormatPDF  DocumentFormat = "pdf"
	FormatDOCX DocumentFormat = "docx"
	FormatHTML DocumentFormat = "html"
	FormatText DocumentFormat = "text"
	FormatCSV  DocumentFormat = "csv"
	FormatJSON DocumentFormat = "json"
)

// DocumentStatus tracks the ingestion lifecycle of a document.
// Ingestion is asynchronous, so callers poll this to learn whether
// the document's chunks have been embedded and stored yet.
type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// Document represents an ingested source file. The extracted text and
// metadata are immutable once stored; re-processing a changed file must
// create a new document id rather than mutate this one, so stale vectors
// can never dangle under a reused id.
//
// KSUID ids sort by creation time, which keeps listing cheap and avoids
// B-tree fragmentation on the primary key.
type Document struct {
	ID         string         `json:"id" gorm:"type:char(27);primaryKey"`
	Name       string         `json:"name" gorm:"type:text;not null"`
	Format     DocumentFormat `json:"format" gorm:"type:varchar(50);not null"`
	Content    string         `json:"content" gorm:"type:text;not null"`
	Metadata   map[string]any `json:"metadata" gorm:"type:jsonb;default:'{}'"`
	Status     DocumentStatus `json:"status" gorm:"type:varchar(20);not null;default:'processing'"`
	StatusNote string         `json:"status_note,omitempty" gorm:"type:text"`
	ChunkCount int            `json:"chunk_count" gorm:"not null;default:0"`
	CreatedAt  time.Time      `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt  gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"column:deleted_at;index"`
}

// BeforeCreate hook generates a KSUID before inserting
func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = ksuid.New().String()
	}
	return nil
}
