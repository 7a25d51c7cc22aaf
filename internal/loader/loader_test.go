package loader

import (
	"archive/zip"
	"bytes"
	"testing"

	"unstructured-rag/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForFilename(t *testing.T) {
	cases := []struct {
		filename string
		format   models.DocumentFormat
	}{
		{"report.pdf", models.FormatPDF},
		{"REPORT.PDF", models.FormatPDF},
		{"notes.docx", models.FormatDOCX},
		{"page.html", models.FormatHTML},
		{"page.htm", models.FormatHTML},
		{"readme.md", models.FormatText},
		{"notes.txt", models.FormatText},
		{"data.csv", models.FormatCSV},
		{"config.json", models.FormatJSON},
	}
	for _, tc := range cases {
		format, err := FormatForFilename(tc.filename)
		require.NoError(t, err, tc.filename)
		assert.Equal(t, tc.format, format, tc.filename)
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	l := New()
	_, _, err := l.Load([]byte("content"), "archive.tar.gz")
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, _, err = l.Load([]byte("content"), "noextension")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadPlainText(t *testing.T) {
	l := New()
	text, metadata, err := l.Load([]byte("hello\r\nworld\rmixed endings"), "notes.txt")
	require.NoError(t, err)

	assert.Equal(t, "hello\nworld\nmixed endings", text)
	assert.Equal(t, "notes.txt", metadata["file_name"])
	assert.Equal(t, "text", metadata["format"])
	assert.Equal(t, "native_text", metadata["extraction_method"])
	assert.Equal(t, 3, metadata["line_count"])
}

func TestLoadInvalidUTF8(t *testing.T) {
	l := New()
	_, _, err := l.Load([]byte{0xff, 0xfe, 0xfd}, "binary.txt")

	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, "binary.txt", extractionErr.Filename)
	assert.Equal(t, models.FormatText, extractionErr.Format)
}

func TestLoadCSV(t *testing.T) {
	l := New()
	data := []byte("name,city\nAda,London\nAlan,Manchester\n")

	text, metadata, err := l.Load(data, "people.csv")
	require.NoError(t, err)

	assert.Contains(t, text, "CSV with 2 columns: name, city.")
	assert.Contains(t, text, "Row 1:\n  name: Ada\n  city: London")
	assert.Contains(t, text, "Row 2:\n  name: Alan\n  city: Manchester")
	assert.Equal(t, 2, metadata["row_count"])
	assert.Equal(t, 2, metadata["column_count"])
	assert.Equal(t, []string{"name", "city"}, metadata["columns"])
}

func TestLoadCSVSkipsRaggedRows(t *testing.T) {
	l := New()
	data := []byte("a,b\n1,2\nonly-one-field\n3,4\n")

	text, metadata, err := l.Load(data, "ragged.csv")
	require.NoError(t, err)

	assert.Equal(t, 2, metadata["row_count"])
	assert.NotContains(t, text, "only-one-field")
}

func TestLoadJSONObject(t *testing.T) {
	l := New()
	data := []byte(`{"zeta": 1, "alpha": {"nested": true}, "tags": ["go", "rag"]}`)

	text, metadata, err := l.Load(data, "config.json")
	require.NoError(t, err)

	// Keys come out sorted so repeated loads chunk identically.
	assert.Equal(t, "alpha:\n  nested: true\ntags:\n  [go, rag]\nzeta: 1", text)
	assert.Equal(t, false, metadata["is_array"])
	assert.Equal(t, []string{"alpha", "tags", "zeta"}, metadata["top_level_keys"])
}

func TestLoadJSONArray(t *testing.T) {
	l := New()
	data := []byte(`[{"id": 1}, {"id": 2}]`)

	text, metadata, err := l.Load(data, "items.json")
	require.NoError(t, err)

	assert.Equal(t, "item 1:\n  id: 1\nitem 2:\n  id: 2", text)
	assert.Equal(t, true, metadata["is_array"])
	assert.Equal(t, 2, metadata["array_length"])
}

func TestLoadJSONDepthLimit(t *testing.T) {
	l := New()
	data := []byte(`{"a":{"b":{"c":{"d":{"e":{"f":"too deep"}}}}}}`)

	text, _, err := l.Load(data, "deep.json")
	require.NoError(t, err)
	assert.Contains(t, text, "[nested content truncated]")
	assert.NotContains(t, text, "too deep")
}

func TestLoadMalformedJSON(t *testing.T) {
	l := New()
	_, _, err := l.Load([]byte(`{"unterminated":`), "broken.json")

	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
}

func TestLoadHTML(t *testing.T) {
	l := New()
	data := []byte(`<html><head><title>My Page</title>
<script>var hidden = "should not appear";</script>
<style>.x { color: red; }</style></head>
<body><h1>Heading</h1><p>First    paragraph.</p>
<a href="/one">link</a> <img src="pic.png"></body></html>`)

	text, metadata, err := l.Load(data, "page.html")
	require.NoError(t, err)

	assert.Equal(t, "Heading First paragraph. link", text)
	assert.Equal(t, "My Page", metadata["title"])
	assert.Equal(t, 1, metadata["link_count"])
	assert.Equal(t, 1, metadata["image_count"])
	assert.NotContains(t, text, "hidden")
	assert.NotContains(t, text, "color: red")
}

func TestLoadDOCX(t *testing.T) {
	l := New()
	data := buildDOCX(t, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
    <w:p></w:p>
  </w:body>
</w:document>`)

	text, metadata, err := l.Load(data, "notes.docx")
	require.NoError(t, err)

	assert.Equal(t, "First paragraph.\n\nSecond paragraph.", text)
	assert.Equal(t, 2, metadata["paragraph_count"])
}

func TestLoadDOCXNotAZip(t *testing.T) {
	l := New()
	_, _, err := l.Load([]byte("plain bytes, not a zip archive"), "broken.docx")

	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Contains(t, err.Error(), "not a valid DOCX archive")
}

func TestLoadDOCXMissingDocumentXML(t *testing.T) {
	l := New()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/other.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte("<x/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, _, err = l.Load(buf.Bytes(), "empty.docx")
	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Contains(t, err.Error(), "missing word/document.xml")
}

func TestLoadCorruptPDF(t *testing.T) {
	l := New()
	_, _, err := l.Load([]byte("%PDF-1.7 truncated garbage"), "broken.pdf")

	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, models.FormatPDF, extractionErr.Format)
}

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
