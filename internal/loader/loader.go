package loader

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"unstructured-rag/internal/models"
)

// ErrUnsupportedFormat is returned when a file's extension does not map
// to any registered extractor.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// ExtractionError wraps a failure of a format-specific extractor, e.g. a
// corrupt file or an encrypted PDF with no OCR fallback available.
type ExtractionError struct {
	Filename string
	Format   models.DocumentFormat
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s (%s): %v", e.Filename, e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Extractor converts one file format's raw bytes into plain text plus
// format-specific metadata. Implementations must not mutate data.
type Extractor interface {
	Extract(data []byte) (text string, metadata map[string]any, err error)
}

// Loader dispatches raw file bytes to a format-specific extractor based
// on the file extension. The set of extractors is fixed at construction.
type Loader struct {
	extractors map[models.DocumentFormat]Extractor
}

// New creates a loader with the full set of built-in extractors.
func New() *Loader {
	return &Loader{
		extractors: map[models.DocumentFormat]Extractor{
			models.FormatPDF:  &PDFExtractor{},
			models.FormatDOCX: &DOCXExtractor{},
			models.FormatHTML: &HTMLExtractor{},
			models.FormatText: &TextExtractor{},
			models.FormatCSV:  &CSVExtractor{},
			models.FormatJSON: &JSONExtractor{},
		},
	}
}

// Load extracts plain text and metadata from the given file bytes.
// The returned metadata always carries the file name, the inferred MIME
// type and the extraction method used, which downstream components need
// for display and debugging.
func (l *Loader) Load(data []byte, filename string) (string, map[string]any, error) {
	format, err := FormatForFilename(filename)
	if err != nil {
		return "", nil, err
	}

	extractor := l.extractors[format]
	text, extra, err := extractor.Extract(data)
	if err != nil {
		return "", nil, &ExtractionError{Filename: filename, Format: format, Err: err}
	}

	metadata := map[string]any{
		"file_name": filename,
		"file_size": len(data),
		"format":    string(format),
		"mime_type": mimeTypeForFilename(filename),
	}
	for k, v := range extra {
		metadata[k] = v
	}
	if _, ok := metadata["extraction_method"]; !ok {
		metadata["extraction_method"] = "native_text"
	}

	return text, metadata, nil
}

// FormatForFilename maps a file extension to a document format.
func FormatForFilename(filename string) (models.DocumentFormat, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return models.FormatPDF, nil
	case ".docx":
		return models.FormatDOCX, nil
	case ".html", ".htm":
		return models.FormatHTML, nil
	case ".txt", ".md", ".text":
		return models.FormatText, nil
	case ".csv":
		return models.FormatCSV, nil
	case ".json":
		return models.FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
}

func mimeTypeForFilename(filename string) string {
	if mt := mime.TypeByExtension(filepath.Ext(filename)); mt != "" {
		return mt
	}
	return "application/octet-stream"
}
