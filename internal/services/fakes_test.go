package services

import (
	"context"
	"fmt"
	"sync"

	"unstructured-rag/internal/models"
	"unstructured-rag/internal/openai"

	"github.com/pgvector/pgvector-go"
)

// Test doubles for the consumer interfaces in this package.

type fakeEmbedder struct {
	dimension  int
	queryErr   error
	chunksErr  error
	batchErrs  []error
	queryCalls int
}

func (f *fakeEmbedder) Dimension() int {
	if f.dimension == 0 {
		return 4
	}
	return f.dimension
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.queryCalls++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return make([]float32, f.Dimension()), nil
}

func (f *fakeEmbedder) EmbedChunks(ctx context.Context, chunks []models.Chunk) ([]models.Chunk, []error, error) {
	if f.chunksErr != nil {
		return nil, nil, f.chunksErr
	}
	embedded := make([]models.Chunk, len(chunks))
	for i, chunk := range chunks {
		chunk.Embedding = pgvector.NewVector(make([]float32, f.Dimension()))
		embedded[i] = chunk
	}
	return embedded, f.batchErrs, nil
}

type searchCall struct {
	topK        int
	threshold   float32
	documentIDs []string
}

type fakeVectorStore struct {
	results []models.SearchResult

	// searchErrs is consumed one per Search call; nil entries succeed.
	searchErrs []error
	insertErr  error
	deleteErr  error

	searchCalls []searchCall
	inserted    [][]models.Chunk
	deleted     []string
}

func (f *fakeVectorStore) Search(ctx context.Context, queryVector []float32, topK int, threshold float32, documentIDs []string) ([]models.SearchResult, error) {
	f.searchCalls = append(f.searchCalls, searchCall{topK: topK, threshold: threshold, documentIDs: documentIDs})
	if len(f.searchErrs) > 0 {
		err := f.searchErrs[0]
		f.searchErrs = f.searchErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.results, nil
}

func (f *fakeVectorStore) Insert(ctx context.Context, chunks []models.Chunk) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, chunks)
	return nil
}

func (f *fakeVectorStore) DeleteByDocumentID(ctx context.Context, documentID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, documentID)
	return nil
}

type statusUpdate struct {
	id         string
	status     models.DocumentStatus
	note       string
	chunkCount int
}

type fakeDocumentRepo struct {
	mu        sync.Mutex
	createErr error
	docs      map[string]*models.Document
	updates   []statusUpdate
	deleted   []string
	nextID    int

	// statusCh, when set, receives every UpdateStatus call.
	statusCh chan statusUpdate
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{docs: map[string]*models.Document{}}
}

func (f *fakeDocumentRepo) Create(ctx context.Context, doc *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	doc.ID = fmt.Sprintf("doc-%d", f.nextID)
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeDocumentRepo) GetByID(ctx context.Context, id string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return doc, nil
}

func (f *fakeDocumentRepo) List(ctx context.Context, limit, offset int) ([]*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Document, 0, len(f.docs))
	for _, doc := range f.docs {
		out = append(out, doc)
	}
	return out, nil
}

func (f *fakeDocumentRepo) UpdateStatus(ctx context.Context, id string, status models.DocumentStatus, note string, chunkCount int) error {
	f.mu.Lock()
	update := statusUpdate{id: id, status: status, note: note, chunkCount: chunkCount}
	f.updates = append(f.updates, update)
	if doc, ok := f.docs[id]; ok {
		doc.Status = status
		doc.StatusNote = note
		doc.ChunkCount = chunkCount
	}
	ch := f.statusCh
	f.mu.Unlock()

	if ch != nil {
		ch <- update
	}
	return nil
}

func (f *fakeDocumentRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	delete(f.docs, id)
	return nil
}

func (f *fakeDocumentRepo) lastUpdate() (statusUpdate, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.updates) == 0 {
		return statusUpdate{}, false
	}
	return f.updates[len(f.updates)-1], true
}

type fakeGenerator struct {
	answer   string
	err      error
	calls    int
	lastMsgs []openai.ChatMessage
}

func (f *fakeGenerator) ChatCompletion(ctx context.Context, messages []openai.ChatMessage) (string, error) {
	f.calls++
	f.lastMsgs = messages
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type fakeLoader struct {
	text     string
	metadata map[string]any
	err      error
}

func (f *fakeLoader) Load(data []byte, filename string) (string, map[string]any, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return f.text, f.metadata, nil
}

type fakeChunker struct {
	chunks []models.Chunk
}

func (f *fakeChunker) Split(text string) []models.Chunk {
	return f.chunks
}
