package repository

import (
	"context"
	"errors"
	"fmt"

	"unstructured-rag/internal/models"

	"gorm.io/gorm"
)

// ErrDocumentNotFound is returned when a lookup misses.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentRepositoryImpl handles database operations for documents.
// This is the implementation; the services package declares the
// interface it needs.
type DocumentRepositoryImpl struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *gorm.DB) *DocumentRepositoryImpl {
	return &DocumentRepositoryImpl{db: db}
}

// Create inserts a new document. The KSUID is generated in the
// BeforeCreate hook; the extracted content and metadata are immutable
// after this point — only ingestion status fields may change.
func (r *DocumentRepositoryImpl) Create(ctx context.Context, doc *models.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return mapStoreErr("create document", err)
	}
	return nil
}

// GetByID retrieves a document by its KSUID. Soft-deleted documents are
// excluded automatically.
func (r *DocumentRepositoryImpl) GetByID(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	if err != nil {
		return nil, mapStoreErr("get document", err)
	}
	return &doc, nil
}

// List returns documents with pagination. KSUIDs are time-ordered, so
// sorting by id descending lists newest first without a created_at index.
func (r *DocumentRepositoryImpl) List(ctx context.Context, limit, offset int) ([]*models.Document, error) {
	var documents []*models.Document
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&documents).Error
	if err != nil {
		return nil, mapStoreErr("list documents", err)
	}
	return documents, nil
}

// UpdateStatus records ingestion progress for a document. This is the
// only mutation allowed after creation.
func (r *DocumentRepositoryImpl) UpdateStatus(
	ctx context.Context,
	id string,
	status models.DocumentStatus,
	note string,
	chunkCount int,
) error {
	result := r.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      status,
			"status_note": note,
			"chunk_count": chunkCount,
		})
	if result.Error != nil {
		return mapStoreErr("update document status", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	return nil
}

// Delete performs a soft delete on the document row. Chunk vectors are
// removed separately by the vector repository; callers must cascade in
// that order so a failed vector delete never leaves an orphaned
// document id pointing at live vectors.
func (r *DocumentRepositoryImpl) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Document{}, "id = ?", id)
	if result.Error != nil {
		return mapStoreErr("delete document", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	return nil
}
