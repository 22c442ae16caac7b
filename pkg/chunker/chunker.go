// Package chunker provides fixed-size text chunking with overlap.
package chunker

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Chunk is one contiguous slice of a document's text.
type Chunk struct {
	Content  string
	Position int
}

// Chunker splits document content into fixed-size chunks.
type Chunker struct {
	chunkSize int
	overlap   int
}

// New creates a chunker, falling back to defaults for non-positive values.
func New(chunkSize, overlap int) *Chunker {
	c := &Chunker{chunkSize: DefaultChunkSize, overlap: DefaultChunkOverlap}
	if chunkSize > 0 {
		c.chunkSize = chunkSize
	}
	if overlap >= 0 {
		c.overlap = overlap
	}
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}
	return c
}

// Split cuts content into overlapping chunks. Empty content produces no chunks.
func (c *Chunker) Split(content string) []Chunk {
	if content == "" {
		return nil
	}

	contentLen := len(content)
	step := c.chunkSize - c.overlap
	chunks := make([]Chunk, 0, contentLen/step+1)

	position := 0
	for start := 0; start < contentLen; start += step {
		end := start + c.chunkSize
		if end > contentLen {
			end = contentLen
		}
		chunks = append(chunks, Chunk{Content: content[start:end], Position: position})
		position++
		if end == contentLen {
			break
		}
	}

	return chunks
}
