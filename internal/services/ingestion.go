package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"unstructured-rag/internal/loader"
	"unstructured-rag/internal/models"
	"unstructured-rag/internal/repository"

	"github.com/sethvargo/go-retry"
)

// IngestJob carries one document through the chunk→embed→insert
// pipeline on the worker pool.
type IngestJob struct {
	DocumentID   string
	DocumentName string
	Content      string
}

// IngestionServiceImpl runs document ingestion on a bounded worker
// pool: a fixed number of workers pull jobs from a buffered channel, so
// embedding inference never fans out wider than the pool and submitters
// get backpressure instead of failures when the queue is full.
//
// Ingestion of different documents proceeds fully in parallel;
// ingestion of the same document id is serialized through a per-id
// mutex so duplicate or interleaved vector inserts cannot happen.
type IngestionServiceImpl struct {
	loader   DocumentLoader
	chunker  TextChunker
	embedder Embedder
	docRepo  DocumentRepository
	vectors  VectorStore

	jobs    chan IngestJob
	workers int
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	// Per-document-id serialization for concurrent re-submissions.
	docLocks sync.Map
}

// NewIngestionService creates the service with its worker pool unstarted.
func NewIngestionService(
	docLoader DocumentLoader,
	chunker TextChunker,
	embedder Embedder,
	docRepo DocumentRepository,
	vectors VectorStore,
	numWorkers int,
	queueSize int,
) *IngestionServiceImpl {
	ctx, cancel := context.WithCancel(context.Background())
	return &IngestionServiceImpl{
		loader:   docLoader,
		chunker:  chunker,
		embedder: embedder,
		docRepo:  docRepo,
		vectors:  vectors,
		jobs:     make(chan IngestJob, queueSize),
		workers:  numWorkers,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start spawns the worker goroutines.
func (s *IngestionServiceImpl) Start() {
	log.Printf("🔧 Starting ingestion worker pool with %d workers", s.workers)
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

func (s *IngestionServiceImpl) worker(id int) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case job, ok := <-s.jobs:
			if !ok {
				return
			}
			if err := s.processJob(job); err != nil {
				log.Printf("  worker %d: document %s failed: %v", id, job.DocumentID, err)
			}
		}
	}
}

// Ingest extracts text from the uploaded file, records the document and
// queues it for chunking, embedding and vector insertion. The returned
// id is usable immediately; the document's status reports when its
// vectors are searchable.
//
// Loader failures (unsupported format, extraction error) surface
// synchronously — there is nothing to queue for a file we cannot read.
func (s *IngestionServiceImpl) Ingest(ctx context.Context, data []byte, filename string) (string, error) {
	text, metadata, err := s.loader.Load(data, filename)
	if err != nil {
		return "", err
	}

	format, _ := loader.FormatForFilename(filename)
	doc := &models.Document{
		Name:     filename,
		Format:   format,
		Content:  text,
		Metadata: metadata,
		Status:   models.StatusProcessing,
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		return "", err
	}

	job := IngestJob{DocumentID: doc.ID, DocumentName: doc.Name, Content: text}
	select {
	case s.jobs <- job:
		return doc.ID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-s.ctx.Done():
		return "", fmt.Errorf("ingestion service is shutting down")
	}
}

// processJob runs the pipeline for one document. A failure here never
// aborts other queued documents; the outcome lands in the document's
// status field instead.
func (s *IngestionServiceImpl) processJob(job IngestJob) error {
	lock := s.lockFor(job.DocumentID)
	lock.Lock()
	defer lock.Unlock()

	ctx := s.ctx

	chunks := s.chunker.Split(job.Content)
	if len(chunks) == 0 {
		return s.failDocument(ctx, job.DocumentID, "document contains no text")
	}
	for i := range chunks {
		chunks[i].DocumentID = job.DocumentID
		chunks[i].DocumentName = job.DocumentName
	}

	embedded, batchErrs, err := s.embedder.EmbedChunks(ctx, chunks)
	if err != nil {
		return s.failDocument(ctx, job.DocumentID, err.Error())
	}
	if len(embedded) == 0 {
		return s.failDocument(ctx, job.DocumentID, "all embedding batches failed")
	}

	if err := s.insertWithRetry(ctx, embedded); err != nil {
		if errors.Is(err, repository.ErrDuplicateDocument) {
			log.Printf("⚠️  Document %s already has stored vectors, refusing to re-insert", job.DocumentID)
		}
		return s.failDocument(ctx, job.DocumentID, err.Error())
	}

	note := fmt.Sprintf("processed %d chunks", len(embedded))
	status := models.StatusCompleted
	if len(batchErrs) > 0 {
		note = fmt.Sprintf("processed %d of %d chunks (%d embedding batches failed)",
			len(embedded), len(chunks), len(batchErrs))
	}
	if err := s.docRepo.UpdateStatus(ctx, job.DocumentID, status, note, len(embedded)); err != nil {
		return err
	}
	log.Printf("✓ Ingested document %s (%d chunks)", job.DocumentID, len(embedded))
	return nil
}

// DeleteDocument cascade-deletes a document: chunk vectors first, then
// the document row, so a failure can never strand live vectors behind a
// deleted document.
func (s *IngestionServiceImpl) DeleteDocument(ctx context.Context, documentID string) error {
	backoff := retry.WithMaxRetries(storeRetryAttempts, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if deleteErr := s.vectors.DeleteByDocumentID(ctx, documentID); deleteErr != nil {
			if errors.Is(deleteErr, repository.ErrStoreUnavailable) {
				return retry.RetryableError(deleteErr)
			}
			return deleteErr
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.docRepo.Delete(ctx, documentID)
}

func (s *IngestionServiceImpl) insertWithRetry(ctx context.Context, chunks []models.Chunk) error {
	backoff := retry.WithMaxRetries(storeRetryAttempts, retry.NewExponential(200*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.vectors.Insert(ctx, chunks); err != nil {
			if errors.Is(err, repository.ErrStoreUnavailable) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
}

func (s *IngestionServiceImpl) failDocument(ctx context.Context, documentID, reason string) error {
	if err := s.docRepo.UpdateStatus(ctx, documentID, models.StatusFailed, reason, 0); err != nil {
		return fmt.Errorf("failed to record ingestion failure: %w", err)
	}
	return fmt.Errorf("ingestion failed for document %s: %s", documentID, reason)
}

func (s *IngestionServiceImpl) lockFor(documentID string) *sync.Mutex {
	actual, _ := s.docLocks.LoadOrStore(documentID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// QueueLength returns the number of pending jobs, for monitoring.
func (s *IngestionServiceImpl) QueueLength() int {
	return len(s.jobs)
}

// Shutdown stops accepting jobs and waits for workers to finish their
// current documents.
func (s *IngestionServiceImpl) Shutdown() {
	log.Println("🛑 Shutting down ingestion service...")
	close(s.jobs)
	s.cancel()
	s.wg.Wait()
	log.Println("✓ Ingestion service shutdown complete")
}
