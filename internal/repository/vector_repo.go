package repository

import (
	"context"
	"fmt"

	"unstructured-rag/internal/models"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// insertBatchSize bounds the row count per INSERT during ingestion.
const insertBatchSize = 100

// VectorRepositoryImpl persists chunk vectors in a pgvector-backed table
// and performs cosine similarity search over them. Scores are normalized
// at this boundary: pgvector's <=> operator reports cosine distance in
// [0,2], and 1 - distance yields the [0,1] higher-is-better score the
// rest of the system works with.
type VectorRepositoryImpl struct {
	db    *gorm.DB
	table string
}

// NewVectorRepository creates a vector repository over the given table.
func NewVectorRepository(db *gorm.DB, table string) *VectorRepositoryImpl {
	return &VectorRepositoryImpl{db: db, table: table}
}

// Insert stores the given chunks. Every chunk is tagged with its
// document id and chunk index, so a second ingestion under the same
// document id is detected and refused with ErrDuplicateDocument instead
// of silently duplicating vectors.
func (r *VectorRepositoryImpl) Insert(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	seen := make(map[string]struct{})
	for _, chunk := range chunks {
		if _, ok := seen[chunk.DocumentID]; ok {
			continue
		}
		seen[chunk.DocumentID] = struct{}{}

		var count int64
		err := r.db.WithContext(ctx).
			Table(r.table).
			Where("document_id = ? AND deleted_at IS NULL", chunk.DocumentID).
			Count(&count).Error
		if err != nil {
			return mapStoreErr("insert", err)
		}
		if count > 0 {
			return fmt.Errorf("document %s: %w", chunk.DocumentID, ErrDuplicateDocument)
		}
	}

	err := r.db.WithContext(ctx).
		Table(r.table).
		CreateInBatches(chunks, insertBatchSize).Error
	if err != nil {
		return mapStoreErr("insert", err)
	}
	return nil
}

// Search returns up to topK chunks whose normalized similarity to the
// query vector clears threshold, in non-increasing score order. Ties are
// broken by lower chunk index, then lexicographically by document id,
// so identical inputs always rank identically. A non-empty documentIDs
// restricts the search to those documents.
func (r *VectorRepositoryImpl) Search(
	ctx context.Context,
	queryVector []float32,
	topK int,
	threshold float32,
	documentIDs []string,
) ([]models.SearchResult, error) {
	vec := pgvector.NewVector(queryVector)

	query := fmt.Sprintf(`
		SELECT
			document_id,
			document_name,
			chunk_index,
			text,
			offset_start,
			offset_end,
			1 - (embedding <=> ?) AS score
		FROM %s
		WHERE deleted_at IS NULL
		  AND 1 - (embedding <=> ?) >= ?`, r.table)
	args := []any{vec, vec, threshold}

	if len(documentIDs) > 0 {
		query += "\n\t\t  AND document_id IN ?"
		args = append(args, documentIDs)
	}

	query += fmt.Sprintf(`
		ORDER BY embedding <=> ? ASC, chunk_index ASC, document_id ASC
		LIMIT %d`, topK)
	args = append(args, vec)

	var results []models.SearchResult
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&results).Error; err != nil {
		return nil, mapStoreErr("search", err)
	}
	return results, nil
}

// DeleteByDocumentID removes every chunk vector tagged with the given
// document id. When some rows survive the delete, the remaining chunk
// ids are surfaced in a PartialDeleteError rather than swallowed.
func (r *VectorRepositoryImpl) DeleteByDocumentID(ctx context.Context, documentID string) error {
	err := r.db.WithContext(ctx).
		Table(r.table).
		Where("document_id = ?", documentID).
		Delete(&models.Chunk{}).Error
	if err != nil {
		return mapStoreErr("delete", err)
	}

	var remaining []string
	err = r.db.WithContext(ctx).
		Table(r.table).
		Where("document_id = ? AND deleted_at IS NULL", documentID).
		Pluck("id", &remaining).Error
	if err != nil {
		return mapStoreErr("delete", err)
	}
	if len(remaining) > 0 {
		return &PartialDeleteError{DocumentID: documentID, RemainingChunkIDs: remaining}
	}
	return nil
}

// CountByDocumentID reports how many live chunk vectors a document has.
func (r *VectorRepositoryImpl) CountByDocumentID(ctx context.Context, documentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table(r.table).
		Where("document_id = ? AND deleted_at IS NULL", documentID).
		Count(&count).Error
	if err != nil {
		return 0, mapStoreErr("count", err)
	}
	return count, nil
}
