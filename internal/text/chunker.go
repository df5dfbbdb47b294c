package text

import (
	"strings"
	"unicode/utf8"
)

// Chunk is one passage of a larger text. Start/End delimit the core span in
// bytes; core spans are contiguous, non-overlapping and cover the input in
// ordinal order, so concatenating them reconstructs the text exactly. Text is
// the core span plus up to the configured overlap of preceding context.
type Chunk struct {
	Ordinal int
	Start   int
	End     int
	Text    string
}

// Chunker splits text into bounded passages, preferring paragraph and then
// sentence boundaries within a tolerance window before falling back to a hard
// cut. It is deterministic: identical input always yields identical chunks.
type Chunker struct {
	size    int // max core span length in bytes
	overlap int // preceding context carried into each chunk's Text
	window  int // how far back from the size limit a boundary is accepted
}

func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 1600
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &Chunker{size: size, overlap: overlap, window: size / 5}
}

func (c *Chunker) Chunk(text string) []Chunk {
	if len(text) == 0 {
		return nil
	}

	var chunks []Chunk
	pos := 0
	for pos < len(text) {
		cut := c.cutPoint(text, pos)

		prefix := pos - c.overlap
		if prefix < 0 {
			prefix = 0
		}
		// The overlap must not start mid-rune.
		for prefix < pos && !utf8.RuneStart(text[prefix]) {
			prefix++
		}
		chunks = append(chunks, Chunk{
			Ordinal: len(chunks),
			Start:   pos,
			End:     cut,
			Text:    text[prefix:cut],
		})
		pos = cut
	}
	return chunks
}

// cutPoint picks the end of the chunk starting at pos: the remainder if it
// fits, otherwise the latest paragraph break, then sentence end, then word
// break inside the tolerance window, and a hard cut at the size limit as the
// last resort.
func (c *Chunker) cutPoint(text string, pos int) int {
	limit := pos + c.size
	if limit >= len(text) {
		return len(text)
	}

	searchFrom := limit - c.window
	if searchFrom < pos+1 {
		searchFrom = pos + 1
	}
	window := text[searchFrom:limit]

	if idx := strings.LastIndex(window, "\n\n"); idx >= 0 {
		return searchFrom + idx + 2
	}
	if idx := lastSentenceEnd(window); idx >= 0 {
		return searchFrom + idx
	}
	if idx := strings.LastIndexAny(window, " \t\n"); idx >= 0 {
		return searchFrom + idx + 1
	}

	// Hard cut; never split a multi-byte rune.
	for limit > pos+1 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return limit
}

// lastSentenceEnd returns the index just past the final ".", "!" or "?" that
// is followed by whitespace, or -1.
func lastSentenceEnd(s string) int {
	for i := len(s) - 1; i > 0; i-- {
		switch s[i] {
		case ' ', '\n', '\t':
			switch s[i-1] {
			case '.', '!', '?':
				return i
			}
		}
	}
	return -1
}
