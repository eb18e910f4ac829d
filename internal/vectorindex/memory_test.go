package vectorindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/rfq_alchemy/config"
)

func TestMemoryIndex_SearchOrder(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	require.NoError(t, idx.Init(ctx, 3))

	require.NoError(t, idx.Upsert(ctx, []Record{
		{DocumentID: "a", ChunkIndex: 0, Content: "alpha", Vector: []float32{1, 0, 0}},
		{DocumentID: "b", ChunkIndex: 0, Content: "beta", Vector: []float32{0, 1, 0}},
		{DocumentID: "c", ChunkIndex: 0, Content: "gamma", Vector: []float32{0.9, 0.1, 0}},
	}))

	hits, err := idx.Search(ctx, []float32{2, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].DocumentID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, "c", hits[1].DocumentID)
}

func TestMemoryIndex_UpsertReplacesChunk(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	require.NoError(t, idx.Init(ctx, 2))

	require.NoError(t, idx.Upsert(ctx, []Record{{DocumentID: "a", ChunkIndex: 0, Content: "old", Vector: []float32{1, 0}}}))
	require.NoError(t, idx.Upsert(ctx, []Record{{DocumentID: "a", ChunkIndex: 0, Content: "new", Vector: []float32{0, 1}}}))

	assert.Equal(t, 1, idx.Len())
	hits, err := idx.Search(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, "new", hits[0].Content)
}

func TestMemoryIndex_Delete(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	require.NoError(t, idx.Init(ctx, 2))
	require.NoError(t, idx.Upsert(ctx, []Record{
		{DocumentID: "a", ChunkIndex: 0, Vector: []float32{1, 0}},
		{DocumentID: "a", ChunkIndex: 1, Vector: []float32{1, 1}},
		{DocumentID: "b", ChunkIndex: 0, Vector: []float32{0, 1}},
	}))

	require.NoError(t, idx.Delete(ctx, "a"))
	assert.Equal(t, 1, idx.Len())

	hits, err := idx.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].DocumentID)

	require.NoError(t, idx.Reset(ctx))
	assert.Equal(t, 0, idx.Len())
}

func TestMemoryIndex_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	require.NoError(t, idx.Init(ctx, 2))

	err := idx.Upsert(ctx, []Record{{DocumentID: "a", Vector: []float32{1, 0, 0}}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = idx.Search(ctx, []float32{1}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	assert.Error(t, idx.Init(ctx, 0))
}

func TestToLiteral(t *testing.T) {
	assert.Equal(t, "[1.000000,-0.500000]", ToLiteral([]float32{1, -0.5}))
	assert.Equal(t, "[]", ToLiteral(nil))
}

func TestNew_Backends(t *testing.T) {
	ctx := context.Background()

	idx, err := New(ctx, &config.VectorConfig{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryIndex{}, idx)

	idx, err = New(ctx, &config.VectorConfig{Backend: "qdrant", Qdrant: config.QdrantConfig{URL: "http://127.0.0.1:6333"}})
	require.NoError(t, err)
	assert.IsType(t, &QdrantIndex{}, idx)

	_, err = New(ctx, &config.VectorConfig{Backend: "pgvector"})
	assert.Error(t, err, "dsn is required")

	_, err = New(ctx, &config.VectorConfig{Backend: "faiss"})
	assert.Error(t, err)
}
