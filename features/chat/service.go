// Package chat answers queries by grounding them in retrieved corpus context.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"reactor/backend/internal/embed"
	"reactor/backend/internal/llm"
	"reactor/backend/internal/prompt"
	"reactor/backend/internal/retrieval"
)

// Retriever is the slice of the retrieval pipeline this feature consumes.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int, minScore float64) ([]retrieval.ScoredChunk, error)
}

// Answer is the chat result: the payload handed to the LLM, the assembled
// context with its citations, and the model's answer when a runtime is wired.
type Answer struct {
	Payload prompt.Payload          `json:"prompt_payload"`
	Context prompt.AssembledContext `json:"assembled_context"`
	Text    string                  `json:"answer,omitempty"`
}

type Options struct {
	TopK                int
	MinScore            float64
	ContextBudget       int
	DegradeOnEmbedError bool
}

type Service struct {
	retriever Retriever
	llm       llm.Client // nil when no runtime is configured
	opts      Options
}

func NewService(retriever Retriever, client llm.Client, opts Options) *Service {
	if opts.ContextBudget <= 0 {
		opts.ContextBudget = 6000
	}
	return &Service{retriever: retriever, llm: client, opts: opts}
}

// AnswerQuery retrieves context for query, assembles it under the budget and
// builds the prompt payload. A retrieval failure is surfaced, never folded
// into a "no relevant documents" answer, unless degrade-on-embed-error is
// explicitly enabled.
func (s *Service) AnswerQuery(ctx context.Context, query string) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required")
	}

	chunks, err := s.retriever.Retrieve(ctx, query, s.opts.TopK, s.opts.MinScore)
	if err != nil {
		if !s.opts.DegradeOnEmbedError || !errors.Is(err, embed.ErrUnavailable) {
			return nil, err
		}
		slog.WarnContext(ctx, "embedder unavailable, degrading to no-context answer", "error", err)
		chunks = nil
	}

	asm := prompt.Assemble(chunks, s.opts.ContextBudget)
	answer := &Answer{
		Payload: prompt.Build(query, asm),
		Context: asm,
	}

	if s.llm != nil {
		text, err := s.llm.Complete(ctx, answer.Payload)
		if err != nil {
			return nil, err
		}
		answer.Text = text
	}
	return answer, nil
}

// Models proxies the runtime's model list.
func (s *Service) Models(ctx context.Context) ([]llm.ModelInfo, error) {
	if s.llm == nil {
		return nil, fmt.Errorf("%w: no runtime configured", llm.ErrUnavailable)
	}
	return s.llm.Models(ctx)
}
