// Package prompt turns ranked retrieval results into a bounded context block
// and wraps it in the instruction templates handed to the LLM.
package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"reactor/backend/internal/retrieval"
)

// Citation maps a bracketed label in the context text back to the chunk and
// document it was taken from.
type Citation struct {
	Label      int     `json:"label"`
	DocumentID string  `json:"document_id"`
	ChunkID    string  `json:"chunk_id"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
	Partial    bool    `json:"partial,omitempty"`
}

// AssembledContext is the packed context block plus the metadata a caller
// needs to attach citations to the final response.
type AssembledContext struct {
	Text           string     `json:"text"`
	Citations      []Citation `json:"citations"`
	HasContext     bool       `json:"has_context"`
	BudgetExceeded bool       `json:"budget_exceeded,omitempty"`
}

const blockSep = "\n\n"

func blockHeader(label int, title string) string {
	if title == "" {
		return fmt.Sprintf("Document [%d]:\n", label)
	}
	return fmt.Sprintf("Document [%d] (%s):\n", label, title)
}

// Assemble packs ranked chunks into a single context block, greedily and in
// rank order, keeping the total text within budget bytes. A chunk that would
// overflow the budget is skipped whole, never cut, except when the top-ranked
// chunk alone exceeds the budget: then that one chunk is truncated to fit and
// its citation is marked partial. Relevance order dominates inclusion, so a
// lower-ranked chunk never displaces a higher-ranked one.
func Assemble(chunks []retrieval.ScoredChunk, budget int) AssembledContext {
	var (
		b        strings.Builder
		out      AssembledContext
		exceeded bool
	)

	for i, sc := range chunks {
		label := len(out.Citations) + 1
		block := blockHeader(label, sc.Title) + sc.Chunk.Text

		sep := ""
		if b.Len() > 0 {
			sep = blockSep
		}

		if b.Len()+len(sep)+len(block) > budget {
			if i > 0 {
				continue
			}
			// Top-ranked chunk alone does not fit. Truncate its text so the
			// block fills the budget exactly, backing off to a rune boundary.
			header := blockHeader(label, sc.Title)
			avail := budget - len(header)
			if avail <= 0 {
				exceeded = true
				continue
			}
			text := sc.Chunk.Text
			if avail < len(text) {
				for avail > 0 && !utf8.RuneStart(text[avail]) {
					avail--
				}
				text = text[:avail]
			}
			b.WriteString(header)
			b.WriteString(text)
			out.Citations = append(out.Citations, Citation{
				Label:      label,
				DocumentID: sc.DocumentID,
				ChunkID:    sc.Chunk.ID,
				Title:      sc.Title,
				Score:      sc.Score,
				Partial:    true,
			})
			exceeded = true
			continue
		}

		b.WriteString(sep)
		b.WriteString(block)
		out.Citations = append(out.Citations, Citation{
			Label:      label,
			DocumentID: sc.DocumentID,
			ChunkID:    sc.Chunk.ID,
			Title:      sc.Title,
			Score:      sc.Score,
		})
	}

	out.Text = b.String()
	out.HasContext = len(out.Citations) > 0
	out.BudgetExceeded = exceeded
	return out
}
