package loader

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// maxJSONDepth bounds recursion when flattening deeply nested values.
const maxJSONDepth = 5

// JSONExtractor flattens a JSON document into indented key/value lines.
// Object keys are visited in sorted order so the same file always yields
// byte-identical text, which the chunker relies on for reproducible
// boundaries.
type JSONExtractor struct{}

func (e *JSONExtractor) Extract(data []byte) (string, map[string]any, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	flattenJSON(&sb, value, "", 0)

	metadata := map[string]any{}
	switch v := value.(type) {
	case []any:
		metadata["is_array"] = true
		metadata["array_length"] = len(v)
	case map[string]any:
		metadata["is_array"] = false
		metadata["top_level_keys"] = sortedKeys(v)
	}

	return strings.TrimRight(sb.String(), "\n"), metadata, nil
}

func flattenJSON(sb *strings.Builder, value any, prefix string, depth int) {
	if depth >= maxJSONDepth {
		fmt.Fprintf(sb, "%s[nested content truncated]\n", prefix)
		return
	}

	switch v := value.(type) {
	case map[string]any:
		for _, key := range sortedKeys(v) {
			child := v[key]
			switch child.(type) {
			case map[string]any, []any:
				fmt.Fprintf(sb, "%s%s:\n", prefix, key)
				flattenJSON(sb, child, prefix+"  ", depth+1)
			default:
				fmt.Fprintf(sb, "%s%s: %s\n", prefix, key, scalarString(child))
			}
		}
	case []any:
		if len(v) <= 10 && allScalars(v) {
			items := make([]string, len(v))
			for i, item := range v {
				items[i] = scalarString(item)
			}
			fmt.Fprintf(sb, "%s[%s]\n", prefix, strings.Join(items, ", "))
			return
		}
		for i, item := range v {
			switch item.(type) {
			case map[string]any, []any:
				fmt.Fprintf(sb, "%sitem %d:\n", prefix, i+1)
				flattenJSON(sb, item, prefix+"  ", depth+1)
			default:
				fmt.Fprintf(sb, "%sitem %d: %s\n", prefix, i+1, scalarString(item))
			}
		}
	default:
		fmt.Fprintf(sb, "%s%s\n", prefix, scalarString(v))
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func allScalars(items []any) bool {
	for _, item := range items {
		switch item.(type) {
		case map[string]any, []any:
			return false
		}
	}
	return true
}

func scalarString(v any) string {
	switch value := v.(type) {
	case nil:
		return "null"
	case string:
		return value
	case float64:
		// JSON numbers decode as float64; print integers without a decimal point.
		if value == float64(int64(value)) {
			return fmt.Sprintf("%d", int64(value))
		}
		return fmt.Sprintf("%g", value)
	case bool:
		return fmt.Sprintf("%t", value)
	default:
		return fmt.Sprintf("%v", value)
	}
}
