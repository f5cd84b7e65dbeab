package chunker

// DefaultSize is the fragment width used when no size is configured.
const DefaultSize = 1000

// FixedChunker splits text into consecutive fragments of at most size
// characters. No overlap and no semantic boundary awareness: each fragment is
// embedded independently, so a plain fixed-width split keeps retrieval
// quality acceptable while staying deterministic and total.
type FixedChunker struct {
	size int
}

func NewFixedChunker(size int) *FixedChunker {
	if size <= 0 {
		size = DefaultSize
	}
	return &FixedChunker{size: size}
}

// Chunk returns the ordered fragments of text. Concatenating them
// reconstructs text exactly; empty input yields no fragments.
func (c *FixedChunker) Chunk(text string) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+c.size-1)/c.size)
	for start := 0; start < len(runes); start += c.size {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
