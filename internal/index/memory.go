package index

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// MemoryIndex is the exact brute-force implementation. Mutations build a new
// immutable snapshot and publish it with an atomic pointer swap, so queries
// scan a consistent view without blocking writers and never observe a
// half-applied chunk set.
type MemoryIndex struct {
	dim  int
	mu   sync.Mutex // serializes writers only
	snap atomic.Pointer[snapshot]
}

type snapshot struct {
	entries map[string]Entry // by chunk id
}

func NewMemoryIndex(dim int) *MemoryIndex {
	idx := &MemoryIndex{dim: dim}
	idx.snap.Store(&snapshot{entries: map[string]Entry{}})
	return idx
}

func (idx *MemoryIndex) checkDim(vec []float32) error {
	if len(vec) != idx.dim {
		return fmt.Errorf("%w: got %d, index configured for %d", ErrDimensionMismatch, len(vec), idx.dim)
	}
	return nil
}

func (idx *MemoryIndex) Upsert(ctx context.Context, e Entry) error {
	if err := idx.checkDim(e.Vector); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	next := idx.copySnapshot()
	next.entries[e.ChunkID] = e
	idx.snap.Store(next)
	return nil
}

func (idx *MemoryIndex) Remove(ctx context.Context, chunkID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	next := idx.copySnapshot()
	delete(next.entries, chunkID)
	idx.snap.Store(next)
	return nil
}

func (idx *MemoryIndex) RemoveByDocument(ctx context.Context, docID string) error {
	return idx.ReplaceDocument(ctx, docID, nil)
}

func (idx *MemoryIndex) ReplaceDocument(ctx context.Context, docID string, entries []Entry) error {
	for _, e := range entries {
		if err := idx.checkDim(e.Vector); err != nil {
			return err
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	next := idx.copySnapshot()
	for id, e := range next.entries {
		if e.DocumentID == docID {
			delete(next.entries, id)
		}
	}
	for _, e := range entries {
		next.entries[e.ChunkID] = e
	}
	idx.snap.Store(next)
	return nil
}

func (idx *MemoryIndex) Query(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if err := idx.checkDim(vector); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	snap := idx.snap.Load()

	hits := make([]Hit, 0, len(snap.entries))
	for _, e := range snap.entries {
		hits = append(hits, Hit{
			ChunkID:    e.ChunkID,
			DocumentID: e.DocumentID,
			Score:      Cosine(vector, e.Vector),
			DocSeq:     e.DocSeq,
			Ordinal:    e.Ordinal,
		})
	}

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

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// copySnapshot is called with mu held.
func (idx *MemoryIndex) copySnapshot() *snapshot {
	cur := idx.snap.Load()
	next := &snapshot{entries: make(map[string]Entry, len(cur.entries))}
	for id, e := range cur.entries {
		next.entries[id] = e
	}
	return next
}
