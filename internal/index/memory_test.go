package index

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(chunkID, docID string, vec []float32, docSeq int64, ordinal int) Entry {
	return Entry{ChunkID: chunkID, DocumentID: docID, Vector: vec, DocSeq: docSeq, Ordinal: ordinal}
}

func TestMemoryIndex_QueryTopK(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(2)

	require.NoError(t, idx.Upsert(ctx, entry("c1", "d1", []float32{1, 0}, 1, 0)))
	require.NoError(t, idx.Upsert(ctx, entry("c2", "d1", []float32{0, 1}, 1, 1)))
	require.NoError(t, idx.Upsert(ctx, entry("c3", "d2", []float32{0.9, 0.1}, 2, 0)))

	hits, err := idx.Query(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "c1", hits[0].ChunkID)
	assert.Equal(t, "c3", hits[1].ChunkID)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	// Never more than k, even with k larger than the index.
	hits, err = idx.Query(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 3)
}

func TestMemoryIndex_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(3)

	err := idx.Upsert(ctx, entry("c1", "d1", []float32{1, 0}, 1, 0))
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = idx.Query(ctx, []float32{1, 0}, 5)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestMemoryIndex_RemoveVisibility(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(2)

	require.NoError(t, idx.Upsert(ctx, entry("c1", "d1", []float32{1, 0}, 1, 0)))
	require.NoError(t, idx.Remove(ctx, "c1"))

	hits, err := idx.Query(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits, "removed entries must not be returned")
}

func TestMemoryIndex_RemoveByDocument(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(2)

	require.NoError(t, idx.Upsert(ctx, entry("c1", "d1", []float32{1, 0}, 1, 0)))
	require.NoError(t, idx.Upsert(ctx, entry("c2", "d1", []float32{0, 1}, 1, 1)))
	require.NoError(t, idx.Upsert(ctx, entry("c3", "d2", []float32{1, 1}, 2, 0)))

	require.NoError(t, idx.RemoveByDocument(ctx, "d1"))

	hits, err := idx.Query(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c3", hits[0].ChunkID)
}

func TestMemoryIndex_TieBreak(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(2)

	// Identical vectors: identical scores. Earlier document wins, then lower
	// ordinal.
	require.NoError(t, idx.Upsert(ctx, entry("late-doc", "d2", []float32{1, 0}, 2, 0)))
	require.NoError(t, idx.Upsert(ctx, entry("early-ord1", "d1", []float32{1, 0}, 1, 1)))
	require.NoError(t, idx.Upsert(ctx, entry("early-ord0", "d1", []float32{1, 0}, 1, 0)))

	hits, err := idx.Query(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "early-ord0", hits[0].ChunkID)
	assert.Equal(t, "early-ord1", hits[1].ChunkID)
	assert.Equal(t, "late-doc", hits[2].ChunkID)
}

func TestMemoryIndex_ReplaceDocumentIsAtomic(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(2)

	old := []Entry{
		entry("a0", "d1", []float32{1, 0}, 1, 0),
		entry("a1", "d1", []float32{1, 0}, 1, 1),
	}
	require.NoError(t, idx.ReplaceDocument(ctx, "d1", old))

	// Concurrent readers must always see exactly one complete generation:
	// two "a" chunks or two "b" chunks, never one of each.
	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			hits, err := idx.Query(ctx, []float32{1, 0}, 10)
			assert.NoError(t, err)
			assert.Len(t, hits, 2)
			gen := hits[0].ChunkID[0]
			assert.Equal(t, gen, hits[1].ChunkID[0], "observed a mixed chunk set: %v", hits)
		}
	}()

	for i := 0; i < 100; i++ {
		gen := "a"
		if i%2 == 0 {
			gen = "b"
		}
		next := []Entry{
			entry(gen+"0", "d1", []float32{1, 0}, 1, 0),
			entry(gen+"1", "d1", []float32{1, 0}, 1, 1),
		}
		require.NoError(t, idx.ReplaceDocument(ctx, "d1", next))
	}
	close(stop)
	wg.Wait()
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 0}))
}

func TestRecall(t *testing.T) {
	exact := []Hit{{ChunkID: "a"}, {ChunkID: "b"}, {ChunkID: "c"}, {ChunkID: "d"}}
	approx := []Hit{{ChunkID: "a"}, {ChunkID: "c"}, {ChunkID: "x"}, {ChunkID: "d"}}
	assert.InDelta(t, 0.75, Recall(exact, approx), 1e-9)
	assert.Equal(t, 1.0, Recall(nil, approx))
}

func TestMemoryIndex_RecallOfExactScanIsPerfect(t *testing.T) {
	// The brute-force scan is its own oracle; a second identical index must
	// reproduce its top-k exactly.
	ctx := context.Background()
	a := NewMemoryIndex(4)
	b := NewMemoryIndex(4)

	for i := 0; i < 50; i++ {
		vec := []float32{float32(i % 7), float32(i % 5), float32(i % 3), 1}
		e := entry(fmt.Sprintf("c%d", i), fmt.Sprintf("d%d", i%10), vec, int64(i%10), i)
		require.NoError(t, a.Upsert(ctx, e))
		require.NoError(t, b.Upsert(ctx, e))
	}

	q := []float32{3, 1, 2, 1}
	ha, err := a.Query(ctx, q, 10)
	require.NoError(t, err)
	hb, err := b.Query(ctx, q, 10)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, Recall(ha, hb), 0.95)
}
