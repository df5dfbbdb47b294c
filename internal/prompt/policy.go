package prompt

import "fmt"

// Payload is the system/user message pair forwarded to the LLM. The core
// never parses model output; it only constructs this payload.
type Payload struct {
	System string `json:"system"`
	User   string `json:"user"`
}

const groundedTemplate = `Context:

%s

Use only the context above to answer the question. Cite sources by their bracketed labels, for example [1], and finish by listing which documents informed the answer. If the context does not contain the answer, say that the context does not cover it.`

const ungroundedTemplate = `No relevant context was found in the document corpus for this question. State that explicitly in your answer. You may answer from general knowledge if appropriate, but make clear the answer is not grounded in the corpus.`

// Build combines the user query with the assembled context into the payload
// for the LLM. Template substitution only: the same inputs always produce the
// same payload.
func Build(query string, asm AssembledContext) Payload {
	if !asm.HasContext {
		return Payload{System: ungroundedTemplate, User: query}
	}
	return Payload{
		System: fmt.Sprintf(groundedTemplate, asm.Text),
		User:   query,
	}
}
