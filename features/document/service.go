// Package document is the corpus management feature: ingesting, listing and
// deleting documents, plus file upload parsing.
package document

import (
	"context"
	"fmt"

	"reactor/backend/internal/corpus"
	"reactor/backend/internal/worker"
)

// Ingestor is the slice of the retrieval pipeline this feature drives.
type Ingestor interface {
	Ingest(ctx context.Context, doc *corpus.Document) (string, error)
}

// IndexRemover evicts a document's chunk set from the similarity index.
type IndexRemover interface {
	RemoveByDocument(ctx context.Context, docID string) error
}

type Service struct {
	repo    corpus.Repository
	ingest  Ingestor
	remover IndexRemover
	events  *worker.IngestEvents
}

func NewService(repo corpus.Repository, ingest Ingestor, remover IndexRemover, events *worker.IngestEvents) *Service {
	return &Service{repo: repo, ingest: ingest, remover: remover, events: events}
}

// Ingest runs the full ingestion pipeline for one document and emits the
// matching lifecycle event.
func (s *Service) Ingest(ctx context.Context, text, title, source string) (*corpus.Document, error) {
	doc := &corpus.Document{Source: source, Title: title, Text: text}

	id, err := s.ingest.Ingest(ctx, doc)
	if err != nil {
		s.events.Failed(ctx, source, err)
		return nil, err
	}

	stored, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load ingested document: %w", err)
	}
	chunks, err := s.repo.GetChunks(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load ingested chunks: %w", err)
	}

	s.events.Completed(ctx, stored, len(chunks))
	return stored, nil
}

func (s *Service) List(ctx context.Context) ([]corpus.Document, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*corpus.Document, []corpus.Chunk, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	chunks, err := s.repo.GetChunks(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return doc, chunks, nil
}

// Delete removes the document from the store and evicts its chunks from the
// index. Store first: if the index eviction fails the stale entries are
// filtered out at query time because the document is gone.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.remover.RemoveByDocument(ctx, id); err != nil {
		return fmt.Errorf("evict document %s from index: %w", id, err)
	}
	return nil
}
