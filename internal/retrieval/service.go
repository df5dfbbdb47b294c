package retrieval

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"reactor/backend/internal/corpus"
	"reactor/backend/internal/index"
	"reactor/backend/internal/text"
)

// Embedder is the slice of the embedding adapter the retriever needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Index is the slice of the similarity index the retriever needs.
type Index interface {
	ReplaceDocument(ctx context.Context, docID string, entries []index.Entry) error
	Query(ctx context.Context, vector []float32, k int) ([]index.Hit, error)
}

// ScoredChunk is one retrieval result: a chunk, its owning document's title,
// and the similarity score.
type ScoredChunk struct {
	Chunk      corpus.Chunk `json:"chunk"`
	DocumentID string       `json:"document_id"`
	Title      string       `json:"title"`
	Score      float64      `json:"score"`
}

type Options struct {
	TopK             int
	MinScore         float64
	EmbedTimeout     time.Duration
	EmbedConcurrency int
	EmbedBatchSize   int
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = 8
	}
	if o.EmbedTimeout <= 0 {
		o.EmbedTimeout = 30 * time.Second
	}
	if o.EmbedConcurrency <= 0 {
		o.EmbedConcurrency = 4
	}
	if o.EmbedBatchSize <= 0 {
		o.EmbedBatchSize = 16
	}
	return o
}

// Service owns both sides of the retrieval pipeline: the ingestion path
// (chunk, embed, persist, index) and the query path (embed, nearest-neighbor
// query, threshold, stable order).
type Service struct {
	repo     corpus.Repository
	embedder Embedder
	idx      Index
	chunker  *text.Chunker
	opts     Options
	logger   *QueryLogger
}

func NewService(repo corpus.Repository, e Embedder, idx Index, chunker *text.Chunker, opts Options, logger *QueryLogger) *Service {
	return &Service{
		repo:     repo,
		embedder: e,
		idx:      idx,
		chunker:  chunker,
		opts:     opts.withDefaults(),
		logger:   logger,
	}
}

// Ingest chunks, embeds and indexes doc, returning its assigned id.
// Re-ingesting an unchanged document is a no-op returning the existing id.
// Any embedding failure aborts before the store or index are touched, so
// prior state stays intact.
func (s *Service) Ingest(ctx context.Context, doc *corpus.Document) (string, error) {
	if strings.TrimSpace(doc.Source) == "" {
		return "", fmt.Errorf("document source is required")
	}

	doc.ContentHash = contentHash(doc.Source, doc.Text)

	if existing, err := s.repo.GetBySource(ctx, doc.Source); err == nil {
		if existing.ContentHash == doc.ContentHash {
			slog.InfoContext(ctx, "document unchanged, skipping ingest", "document_id", existing.ID, "source", doc.Source)
			*doc = *existing
			return existing.ID, nil
		}
	}

	pieces := s.chunker.Chunk(doc.Text)

	chunks := make([]corpus.Chunk, len(pieces))
	texts := make([]string, len(pieces))
	for i, p := range pieces {
		chunks[i] = corpus.Chunk{
			ID:      uuid.New().String(),
			Ordinal: p.Ordinal,
			Start:   p.Start,
			End:     p.End,
			Text:    p.Text,
		}
		texts[i] = p.Text
	}

	vectors, err := s.embedAll(ctx, texts)
	if err != nil {
		return "", fmt.Errorf("embed document %q: %w", doc.Source, err)
	}

	if err := s.repo.Save(ctx, doc, chunks); err != nil {
		return "", fmt.Errorf("save document: %w", err)
	}

	entries := make([]index.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = index.Entry{
			ChunkID:    c.ID,
			DocumentID: doc.ID,
			Vector:     vectors[i],
			DocSeq:     doc.Seq,
			Ordinal:    c.Ordinal,
		}
	}
	if err := s.idx.ReplaceDocument(ctx, doc.ID, entries); err != nil {
		return "", fmt.Errorf("index document: %w", err)
	}

	slog.InfoContext(ctx, "document ingested", "document_id", doc.ID, "version", doc.Version, "chunks", len(chunks))
	return doc.ID, nil
}

// embedAll embeds texts in batches, issued concurrently up to the configured
// limit, each under the embed timeout. Results keep input order.
func (s *Service) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.EmbedConcurrency)

	for start := 0; start < len(texts); start += s.opts.EmbedBatchSize {
		end := start + s.opts.EmbedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		start, end := start, end
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, s.opts.EmbedTimeout)
			defer cancel()

			batch, err := s.embedder.EmbedBatch(callCtx, texts[start:end])
			if err != nil {
				return err
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Retrieve embeds query and returns up to k chunks scoring at least minScore,
// ordered by score descending with ties broken by document ingestion order
// then chunk ordinal. An empty result is not an error; an embedder failure
// is, and is never converted into an empty result.
func (s *Service) Retrieve(ctx context.Context, query string, k int, minScore float64) ([]ScoredChunk, error) {
	start := time.Now()

	if k <= 0 {
		k = s.opts.TopK
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.EmbedTimeout)
	vec, err := s.embedder.Embed(callCtx, query)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.idx.Query(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("index query: %w", err)
	}

	// Remote backends return the server's order, which leaves equal scores
	// unspecified. Re-rank here so every backend honors the same ordering.
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].DocSeq != hits[j].DocSeq {
			return hits[i].DocSeq < hits[j].DocSeq
		}
		if hits[i].Ordinal != hits[j].Ordinal {
			return hits[i].Ordinal < hits[j].Ordinal
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	results := make([]ScoredChunk, 0, len(hits))
	chunksByDoc := make(map[string]map[string]corpus.Chunk)
	titles := make(map[string]string)

	for _, h := range hits {
		if h.Score < minScore {
			continue
		}

		byID, ok := chunksByDoc[h.DocumentID]
		if !ok {
			doc, err := s.repo.Get(ctx, h.DocumentID)
			if err != nil {
				// The document was deleted after the snapshot was taken;
				// skip its hits rather than failing the query.
				slog.WarnContext(ctx, "hit references missing document", "document_id", h.DocumentID)
				chunksByDoc[h.DocumentID] = map[string]corpus.Chunk{}
				continue
			}
			chunks, err := s.repo.GetChunks(ctx, h.DocumentID)
			if err != nil {
				return nil, fmt.Errorf("load chunks: %w", err)
			}
			byID = make(map[string]corpus.Chunk, len(chunks))
			for _, c := range chunks {
				byID[c.ID] = c
			}
			chunksByDoc[h.DocumentID] = byID
			titles[h.DocumentID] = doc.Title
		}

		chunk, ok := byID[h.ChunkID]
		if !ok {
			continue
		}
		results = append(results, ScoredChunk{
			Chunk:      chunk,
			DocumentID: h.DocumentID,
			Title:      titles[h.DocumentID],
			Score:      h.Score,
		})
	}

	if s.logger != nil {
		s.logger.Log(ctx, QueryLogEntry{
			Query:      query,
			NumResults: len(results),
			Duration:   time.Since(start),
		})
	}
	return results, nil
}

func contentHash(source, text string) string {
	sum := sha256.Sum256([]byte(source + "\x00" + text))
	return fmt.Sprintf("%x", sum)
}
