package rag

const DefaultChunkSize = 1000

// ChunkText splits text into consecutive pieces of size runes. The last piece
// holds the remainder; there is no overlap.
func ChunkText(text string, size int) []Chunk {
	if size <= 0 {
		size = DefaultChunkSize
	}
	runes := []rune(text)
	chunks := make([]Chunk, 0, (len(runes)+size-1)/size)

	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Text: string(runes[start:end])})
	}

	return chunks
}
