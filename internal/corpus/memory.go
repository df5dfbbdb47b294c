package corpus

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is an in-process Repository used by tests and local mode. It
// honors the same versioned-replace semantics as the Postgres repo.
type MemoryRepo struct {
	mu     sync.RWMutex
	docs   map[string]*Document // by id
	chunks map[string][]Chunk   // by document id
	seq    int64
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		docs:   make(map[string]*Document),
		chunks: make(map[string][]Chunk),
	}
}

func (r *MemoryRepo) Save(ctx context.Context, doc *Document, chunks []Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var existing *Document
	for _, d := range r.docs {
		if d.Source == doc.Source {
			existing = d
			break
		}
	}

	if existing != nil {
		doc.ID = existing.ID
		doc.Version = existing.Version + 1
		doc.Seq = existing.Seq
		doc.CreatedAt = existing.CreatedAt
	} else {
		doc.ID = uuid.New().String()
		doc.Version = 1
		r.seq++
		doc.Seq = r.seq
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	for i := range chunks {
		chunks[i].DocumentID = doc.ID
	}

	stored := *doc
	r.docs[doc.ID] = &stored
	r.chunks[doc.ID] = append([]Chunk(nil), chunks...)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *MemoryRepo) GetBySource(ctx context.Context, source string) (*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.docs {
		if d.Source == source {
			cp := *d
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepo) GetChunks(ctx context.Context, docID string) ([]Chunk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.docs[docID]; !ok {
		return nil, ErrNotFound
	}
	return append([]Chunk(nil), r.chunks[docID]...), nil
}

func (r *MemoryRepo) List(ctx context.Context) ([]Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := make([]Document, 0, len(r.docs))
	for _, d := range r.docs {
		cp := *d
		cp.Text = ""
		docs = append(docs, cp)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Seq < docs[j].Seq })
	return docs, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return ErrNotFound
	}
	delete(r.docs, id)
	delete(r.chunks, id)
	return nil
}
