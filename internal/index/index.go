package index

import (
	"context"
	"errors"
	"math"
)

// ErrDimensionMismatch indicates a vector whose length does not match the
// index's configured dimensionality. This is a configuration error, not a
// transient failure.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Entry is one indexed chunk vector with the metadata needed for
// deterministic ranking.
type Entry struct {
	ChunkID    string
	DocumentID string
	Vector     []float32
	DocSeq     int64 // ingestion order of the owning document
	Ordinal    int   // chunk position within the document
}

// Hit is a query result. Score is cosine similarity; ties are broken by
// document ingestion order, then chunk ordinal.
type Hit struct {
	ChunkID    string
	DocumentID string
	Score      float64
	DocSeq     int64
	Ordinal    int
}

// Index answers nearest-neighbor queries over chunk vectors. Implementations
// are interchangeable: the exact in-memory scan is the correctness baseline,
// remote or approximate backends must keep recall against it above the
// configured threshold (see Recall).
type Index interface {
	Upsert(ctx context.Context, e Entry) error
	Remove(ctx context.Context, chunkID string) error
	RemoveByDocument(ctx context.Context, docID string) error
	// ReplaceDocument swaps the full chunk set of one document in a single
	// logical step: readers observe the old set or the new set, never a mix.
	ReplaceDocument(ctx context.Context, docID string, entries []Entry) error
	Query(ctx context.Context, vector []float32, k int) ([]Hit, error)
}

// Cosine returns the cosine similarity of a and b, or 0 when either vector
// has zero magnitude.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Recall reports the fraction of expected hits present in got, used to gauge
// an approximate backend against the exact baseline for the same query.
func Recall(expected, got []Hit) float64 {
	if len(expected) == 0 {
		return 1
	}
	seen := make(map[string]bool, len(got))
	for _, h := range got {
		seen[h.ChunkID] = true
	}
	matched := 0
	for _, h := range expected {
		if seen[h.ChunkID] {
			matched++
		}
	}
	return float64(matched) / float64(len(expected))
}
