package index_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reactor/backend/internal/index"
	"reactor/backend/internal/testutils"
)

func TestWeaviateIndexIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	suite := testutils.NewIntegrationSuite(t)
	suite.Setup()
	defer suite.Teardown()

	ctx := context.Background()
	adapter := index.NewWeaviateSchemaAdapter(suite.Weaviate)
	require.NoError(t, index.EnsureSchema(ctx, adapter))

	idx := index.NewWeaviateIndex(suite.Weaviate, 3)

	docA := uuid.New().String()
	docB := uuid.New().String()
	chunkA := uuid.New().String()
	chunkB := uuid.New().String()

	require.NoError(t, idx.ReplaceDocument(ctx, docA, []index.Entry{
		{ChunkID: chunkA, DocumentID: docA, Vector: []float32{1, 0, 0}, DocSeq: 1, Ordinal: 0},
	}))
	require.NoError(t, idx.ReplaceDocument(ctx, docB, []index.Entry{
		{ChunkID: chunkB, DocumentID: docB, Vector: []float32{0, 1, 0}, DocSeq: 2, Ordinal: 0},
	}))

	// Weaviate indexes asynchronously.
	time.Sleep(2 * time.Second)

	hits, err := idx.Query(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, chunkA, hits[0].ChunkID)
	assert.Equal(t, docA, hits[0].DocumentID)
	assert.InDelta(t, 1.0, hits[0].Score, 0.01)

	require.NoError(t, idx.RemoveByDocument(ctx, docA))
	time.Sleep(time.Second)

	hits, err = idx.Query(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	for _, h := range hits {
		assert.NotEqual(t, chunkA, h.ChunkID)
	}
}
