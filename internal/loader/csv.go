package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
)

// CSVExtractor flattens tabular data into prose-like text. The first row
// is treated as the header; each following row becomes a labelled block
// so column/value associations survive chunking.
type CSVExtractor struct{}

func (e *CSVExtractor) Extract(data []byte) (string, map[string]any, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return "", nil, err
	}
	if len(rows) == 0 {
		return "", nil, errors.New("empty CSV file")
	}

	headers := rows[0]

	var sb strings.Builder
	fmt.Fprintf(&sb, "CSV with %d columns: %s.\n\n", len(headers), strings.Join(headers, ", "))

	rowCount := 0
	for _, row := range rows[1:] {
		if len(row) != len(headers) {
			continue
		}
		rowCount++
		fmt.Fprintf(&sb, "Row %d:\n", rowCount)
		for i, header := range headers {
			fmt.Fprintf(&sb, "  %s: %s\n", header, row[i])
		}
		sb.WriteString("\n")
	}

	metadata := map[string]any{
		"row_count":    rowCount,
		"column_count": len(headers),
		"columns":      headers,
	}
	return strings.TrimRight(sb.String(), "\n"), metadata, nil
}
