package chunker

import (
	"errors"
	"fmt"
	"unicode"

	"unstructured-rag/internal/models"
)

// ErrInvalidChunkConfig is returned when chunk size and overlap cannot
// produce a terminating sliding window.
var ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

// boundaryTolerance is how far (in characters) a chunk end may move
// backwards to land on whitespace instead of splitting mid-word.
const boundaryTolerance = 32

// Chunker splits text into overlapping fixed-size segments. Sizes and
// offsets are measured in characters (runes), never bytes, so multi-byte
// text is never split inside a code point.
//
// The same input with the same configuration always yields byte-identical
// chunk boundaries; re-indexing a document is reproducible.
type Chunker struct {
	size      int
	overlap   int
	tolerance int
}

// New validates the window configuration and returns a chunker.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidChunkConfig, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap %d cannot be negative", ErrInvalidChunkConfig, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d",
			ErrInvalidChunkConfig, overlap, size)
	}

	// The tolerance must stay below the stride or a snapped boundary
	// could stall the window.
	tolerance := boundaryTolerance
	if max := size - overlap - 1; tolerance > max {
		tolerance = max
	}

	return &Chunker{size: size, overlap: overlap, tolerance: tolerance}, nil
}

// Split cuts text into ordered chunks with embeddings unset. Document
// ownership fields are left empty for the caller to fill in.
//
// Text shorter than the chunk size yields exactly one chunk covering the
// whole text; a trailing remainder shorter than the chunk size still
// becomes a final chunk. Empty text yields no chunks.
func (c *Chunker) Split(text string) []models.Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var chunks []models.Chunk
	start := 0
	for index := 0; ; index++ {
		end := start + c.size
		if end >= len(runes) {
			chunks = append(chunks, models.Chunk{
				ChunkIndex:  index,
				Text:        string(runes[start:]),
				OffsetStart: start,
				OffsetEnd:   len(runes),
			})
			return chunks
		}

		cut := c.snapToBoundary(runes, start, end)
		chunks = append(chunks, models.Chunk{
			ChunkIndex:  index,
			Text:        string(runes[start:cut]),
			OffsetStart: start,
			OffsetEnd:   cut,
		})

		next := cut - c.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
}

// snapToBoundary moves the cut point back to just after the last
// whitespace within the tolerance window, falling back to a hard cut at
// end when the window contains none.
func (c *Chunker) snapToBoundary(runes []rune, start, end int) int {
	limit := end - c.tolerance
	if limit < start+1 {
		limit = start + 1
	}
	for cut := end; cut > limit; cut-- {
		if unicode.IsSpace(runes[cut-1]) {
			return cut
		}
	}
	return end
}
