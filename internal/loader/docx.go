package loader

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// DOCXExtractor reads the WordprocessingML body out of a DOCX archive.
// A DOCX file is a ZIP container; the document text lives in
// word/document.xml as runs (<w:t>) grouped into paragraphs (<w:p>).
type DOCXExtractor struct{}

// documentXML mirrors the parts of word/document.xml we care about.
type documentXML struct {
	Body struct {
		Paragraphs []docxParagraph `xml:"p"`
	} `xml:"body"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text []string `xml:"t"`
}

func (e *DOCXExtractor) Extract(data []byte) (string, map[string]any, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, errors.New("not a valid DOCX archive")
	}

	var content []byte
	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", nil, err
		}
		content, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", nil, err
		}
		break
	}
	if content == nil {
		return "", nil, errors.New("missing word/document.xml")
	}

	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", nil, err
	}

	paragraphs := make([]string, 0, len(doc.Body.Paragraphs))
	for _, p := range doc.Body.Paragraphs {
		var sb strings.Builder
		for _, r := range p.Runs {
			for _, t := range r.Text {
				sb.WriteString(t)
			}
		}
		if line := strings.TrimSpace(sb.String()); line != "" {
			paragraphs = append(paragraphs, line)
		}
	}

	metadata := map[string]any{
		"paragraph_count": len(paragraphs),
	}
	return strings.Join(paragraphs, "\n\n"), metadata, nil
}
