package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/rfq_alchemy/config"
	"github.com/qs3c/rfq_alchemy/internal/repository"
	"github.com/qs3c/rfq_alchemy/internal/testutil"
	"github.com/qs3c/rfq_alchemy/internal/vectorindex"
)

// fixedEmbedder 所有查询都映射到同一个向量
type fixedEmbedder struct {
	vector []float32
}

func (e fixedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vector
	}
	return out, nil
}

func (e fixedEmbedder) Dimension() int { return len(e.vector) }

func TestIndexService_SearchLongDocumentDoesNotCrowdOthers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	vectors := vectorindex.NewMemoryIndex()
	svc := NewIndexService(fixedEmbedder{vector: []float32{1, 0}}, vectors, repository.NewDocumentRepository(db), config.VectorConfig{})
	require.NoError(t, svc.Init(context.Background()))

	long := testutil.TestDocument(t, db, testutil.WithTitle("Long Proposal"))
	second := testutil.TestDocument(t, db, testutil.WithTitle("Second Proposal"))
	third := testutil.TestDocument(t, db, testutil.WithTitle("Third Proposal"))

	var records []vectorindex.Record
	for i := 0; i < 40; i++ {
		records = append(records, vectorindex.Record{
			DocumentID: long.ID,
			ChunkIndex: i,
			Content:    fmt.Sprintf("chunk %d", i),
			Vector:     []float32{1, 0.01 * float32(i)},
		})
	}
	records = append(records,
		vectorindex.Record{DocumentID: second.ID, Content: "second", Vector: []float32{0.8, 0.6}},
		vectorindex.Record{DocumentID: third.ID, Content: "third", Vector: []float32{0.6, 0.8}},
	)
	require.NoError(t, vectors.Upsert(context.Background(), records))

	results, err := svc.Search(context.Background(), "cloud migration", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{long.ID, second.ID, third.ID},
		[]string{results[0].DocumentID, results[1].DocumentID, results[2].DocumentID})
	assert.Equal(t, "chunk 0", results[0].Snippet)
}

func TestIndexService_SearchFewerDocumentsThanK(t *testing.T) {
	db := testutil.SetupTestDB(t)
	vectors := vectorindex.NewMemoryIndex()
	svc := NewIndexService(fixedEmbedder{vector: []float32{1, 0}}, vectors, repository.NewDocumentRepository(db), config.VectorConfig{})
	require.NoError(t, svc.Init(context.Background()))

	doc := testutil.TestDocument(t, db, testutil.WithTitle("Only Proposal"))
	require.NoError(t, vectors.Upsert(context.Background(), []vectorindex.Record{
		{DocumentID: doc.ID, Content: "only", Vector: []float32{1, 0}},
		{DocumentID: doc.ID, ChunkIndex: 1, Content: "again", Vector: []float32{0.9, 0.1}},
	}))

	results, err := svc.Search(context.Background(), "anything", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Only Proposal", results[0].Title)
}
