package loader

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLExtractor strips markup and returns the visible text of an HTML
// document. Script and style bodies are dropped before text extraction.
type HTMLExtractor struct{}

func (e *HTMLExtractor) Extract(data []byte) (string, map[string]any, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", nil, err
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	linkCount := doc.Find("a[href]").Length()
	imageCount := doc.Find("img").Length()

	doc.Find("script, style, noscript").Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	// Collapse runs of whitespace left behind by removed tags.
	fields := strings.Fields(root.Text())
	text := strings.Join(fields, " ")

	metadata := map[string]any{
		"title":       title,
		"link_count":  linkCount,
		"image_count": imageCount,
	}
	return text, metadata, nil
}
