package corpus

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("document not found")

// Document is an ingested piece of the corpus. Identity is stable across
// re-ingestion: saving the same Source again bumps Version and replaces the
// chunk set, it does not mint a new ID.
type Document struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"` // origin path or URL, the external identity
	Title       string    `json:"title"`
	Text        string    `json:"-"`
	ContentHash string    `json:"-"`
	Version     int       `json:"version"`
	Seq         int64     `json:"-"` // ingestion order, assigned on first save
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Chunk is a contiguous span of its document's text. Start/End are byte
// offsets of the core span; core spans of one document are non-overlapping
// and cover the text in ordinal order. Text may additionally carry up to the
// configured overlap of preceding context, so len(Text) >= End-Start.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Ordinal    int    `json:"ordinal"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Text       string `json:"text"`
}

// Repository persists documents and their chunk boundaries. It is the source
// of truth; the similarity index is a rebuildable projection of it.
type Repository interface {
	// Save stores doc and its chunk set. If a live document with the same
	// Source exists, the document is re-versioned and its chunks replaced
	// atomically; doc.ID, doc.Seq and doc.Version are filled in either way.
	Save(ctx context.Context, doc *Document, chunks []Chunk) error
	Get(ctx context.Context, id string) (*Document, error)
	GetBySource(ctx context.Context, source string) (*Document, error)
	GetChunks(ctx context.Context, docID string) ([]Chunk, error)
	List(ctx context.Context) ([]Document, error)
	Delete(ctx context.Context, id string) error
}
