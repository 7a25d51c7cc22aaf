package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"unstructured-rag/internal/loader"
	"unstructured-rag/internal/models"
	"unstructured-rag/internal/repository"
	"unstructured-rag/internal/services"

	"github.com/gorilla/mux"
)

// maxUploadBytes caps a single document upload at 32 MiB.
const maxUploadBytes = 32 << 20

// Handler handles HTTP requests. Dependencies come in as interfaces
// defined in this package.
type Handler struct {
	ingestion IngestionService
	query     QueryService
	documents DocumentReader
}

func NewHandler(ingestion IngestionService, query QueryService, documents DocumentReader) *Handler {
	return &Handler{
		ingestion: ingestion,
		query:     query,
		documents: documents,
	}
}

// UploadDocument accepts a multipart upload (field "file"), extracts its
// text synchronously and queues the rest of the pipeline. Responds 202:
// chunking and embedding finish in the background and the document's
// status reports the outcome.
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, `missing form file field "file"`)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload: "+err.Error())
		return
	}

	documentID, err := h.ingestion.Ingest(r.Context(), data, header.Filename)
	if err != nil {
		var extractionErr *loader.ExtractionError
		switch {
		case errors.Is(err, loader.ErrUnsupportedFormat):
			writeError(w, http.StatusUnsupportedMediaType, err.Error())
		case errors.As(err, &extractionErr):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, repository.ErrStoreUnavailable):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"document_id": documentID,
		"name":        header.Filename,
		"status":      models.StatusProcessing,
	})
}

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	documents, err := h.documents.List(r.Context(), limit, offset)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"documents": documents,
		"limit":     limit,
		"offset":    offset,
	})
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	doc, err := h.documents.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			writeError(w, http.StatusNotFound, "document not found: "+id)
			return
		}
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument cascade-deletes a document and all of its vectors.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.ingestion.DeleteDocument(r.Context(), id); err != nil {
		var partialErr *repository.PartialDeleteError
		switch {
		case errors.Is(err, repository.ErrDocumentNotFound):
			writeError(w, http.StatusNotFound, "document not found: "+id)
		case errors.As(err, &partialErr):
			writeError(w, http.StatusInternalServerError, err.Error())
		default:
			writeStoreError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// Query answers a natural-language question from the ingested corpus.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var query models.Query
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(query.Text) == "" {
		writeError(w, http.StatusBadRequest, "query text is required")
		return
	}

	result, err := h.query.Query(r.Context(), query)
	if err != nil {
		var genErr *services.GenerationError
		switch {
		case errors.As(err, &genErr):
			writeError(w, http.StatusBadGateway, err.Error())
		case errors.Is(err, repository.ErrStoreUnavailable):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Health reports liveness plus the ingestion backlog.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"ingestion_queue": h.ingestion.QueueLength(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, repository.ErrStoreUnavailable) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
