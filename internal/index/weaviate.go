package index

import (
	"context"
	"fmt"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

const className = "CorpusChunk"

// WeaviateIndex backs the Index interface with a remote Weaviate instance
// (HNSW, approximate). The memory index is the exactness baseline. Here
// ReplaceDocument is a delete followed by a batch insert, so the swap is not
// strictly atomic for concurrent readers.
type WeaviateIndex struct {
	client *weaviate.Client
	dim    int
}

func NewWeaviateIndex(client *weaviate.Client, dim int) *WeaviateIndex {
	return &WeaviateIndex{client: client, dim: dim}
}

func (s *WeaviateIndex) checkDim(vec []float32) error {
	if len(vec) != s.dim {
		return fmt.Errorf("%w: got %d, index configured for %d", ErrDimensionMismatch, len(vec), s.dim)
	}
	return nil
}

func (s *WeaviateIndex) Upsert(ctx context.Context, e Entry) error {
	if err := s.checkDim(e.Vector); err != nil {
		return err
	}
	_, err := s.client.Data().Creator().
		WithClassName(className).
		WithID(e.ChunkID).
		WithProperties(entryProperties(e)).
		WithVector(e.Vector).
		Do(ctx)
	return err
}

func (s *WeaviateIndex) Remove(ctx context.Context, chunkID string) error {
	return s.client.Data().Deleter().
		WithClassName(className).
		WithID(chunkID).
		Do(ctx)
}

func (s *WeaviateIndex) RemoveByDocument(ctx context.Context, docID string) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(className).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{"documentId"}).
			WithOperator(filters.Equal).
			WithValueString(docID)).
		Do(ctx)
	return err
}

func (s *WeaviateIndex) ReplaceDocument(ctx context.Context, docID string, entries []Entry) error {
	for _, e := range entries {
		if err := s.checkDim(e.Vector); err != nil {
			return err
		}
	}

	if err := s.RemoveByDocument(ctx, docID); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	objects := make([]*models.Object, len(entries))
	for i, e := range entries {
		objects[i] = &models.Object{
			Class:      className,
			ID:         strfmt.UUID(e.ChunkID),
			Properties: entryProperties(e),
			Vector:     e.Vector,
		}
	}
	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return err
	}
	for _, r := range resp {
		if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
			return fmt.Errorf("batch insert: %s", r.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

func (s *WeaviateIndex) Query(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if err := s.checkDim(vector); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vector)

	fields := []graphql.Field{
		{Name: "documentId"},
		{Name: "docSeq"},
		{Name: "ordinal"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "id"}, {Name: "distance"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(className).
		WithNearVector(nearVector).
		WithLimit(k).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	var hits []Hit
	data, ok := res.Data["Get"].(map[string]interface{})
	if !ok {
		return hits, nil
	}
	rows, ok := data[className].([]interface{})
	if !ok {
		return hits, nil
	}
	for _, row := range rows {
		props, ok := row.(map[string]interface{})
		if !ok {
			continue
		}
		var h Hit
		if v, ok := props["documentId"].(string); ok {
			h.DocumentID = v
		}
		if v, ok := props["docSeq"].(float64); ok {
			h.DocSeq = int64(v)
		}
		if v, ok := props["ordinal"].(float64); ok {
			h.Ordinal = int(v)
		}
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			if v, ok := additional["id"].(string); ok {
				h.ChunkID = v
			}
			if v, ok := additional["distance"].(float64); ok {
				// Weaviate reports cosine distance; similarity = 1 - distance.
				h.Score = 1 - v
			}
		}
		hits = append(hits, h)
	}
	return hits, nil
}

func entryProperties(e Entry) map[string]interface{} {
	return map[string]interface{}{
		"documentId": e.DocumentID,
		"docSeq":     int(e.DocSeq),
		"ordinal":    e.Ordinal,
	}
}
