package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// minMeaningfulText is the threshold below which a PDF's native text
// layer is considered empty (scanned/image-only PDFs). Those documents
// would need an OCR pass, which no extractor here provides.
const minMeaningfulText = 1

// PDFExtractor pulls the native text layer out of a PDF. Image-only and
// encrypted PDFs cannot be handled without OCR and fail extraction.
type PDFExtractor struct{}

func (e *PDFExtractor) Extract(data []byte) (text string, metadata map[string]any, err error) {
	// The pdf library panics on some malformed files instead of
	// returning an error.
	defer func() {
		if r := recover(); r != nil {
			text, metadata = "", nil
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, err
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, plain); err != nil {
		return "", nil, err
	}

	text = strings.TrimSpace(sb.String())
	if len(text) < minMeaningfulText {
		return "", nil, errors.New("no extractable text layer (OCR fallback not available)")
	}

	metadata = map[string]any{
		"page_count":        reader.NumPage(),
		"extraction_method": "native_text",
	}
	return text, metadata, nil
}
