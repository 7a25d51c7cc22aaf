package loader

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// TextExtractor handles plain text and markdown files. Line endings are
// normalized to \n so chunk offsets are stable across platforms.
type TextExtractor struct{}

func (e *TextExtractor) Extract(data []byte) (string, map[string]any, error) {
	if !utf8.Valid(data) {
		return "", nil, errors.New("file is not valid UTF-8 text")
	}

	text := string(data)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	metadata := map[string]any{
		"line_count": strings.Count(text, "\n") + 1,
	}
	return text, metadata, nil
}
