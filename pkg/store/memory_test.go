package store_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/tutor/internal/models"
	"github.com/xhad/tutor/pkg/store"
)

func record(docID string, index int, values []float32) models.VectorRecord {
	return models.VectorRecord{
		ID:     fmt.Sprintf("%s_%d", docID, index),
		Values: values,
		Chunk: models.Chunk{
			Index:      index,
			DocumentID: docID,
			Text:       fmt.Sprintf("chunk %d of %s", index, docID),
		},
	}
}

func TestMemoryIndex_QueryRanksBySimilarity(t *testing.T) {
	ctx := context.Background()
	idx := store.NewMemoryIndex(3)

	err := idx.Upsert(ctx, "ns-a", []models.VectorRecord{
		record("doc-a", 0, []float32{1, 0, 0}),
		record("doc-a", 1, []float32{0, 1, 0}),
		record("doc-a", 2, []float32{0.9, 0.1, 0}),
	})
	require.NoError(t, err)

	matches, err := idx.Query(ctx, "ns-a", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "doc-a_0", matches[0].ID)
	assert.Equal(t, "doc-a_2", matches[1].ID)
	assert.True(t, matches[0].Score >= matches[1].Score)
}

func TestMemoryIndex_NamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	idx := store.NewMemoryIndex(3)

	require.NoError(t, idx.Upsert(ctx, "ns-a", []models.VectorRecord{
		record("doc-a", 0, []float32{1, 0, 0}),
	}))
	require.NoError(t, idx.Upsert(ctx, "ns-b", []models.VectorRecord{
		record("doc-b", 0, []float32{1, 0, 0}),
	}))

	matches, err := idx.Query(ctx, "ns-a", []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "doc-a", matches[0].Chunk.DocumentID)

	matches, err = idx.Query(ctx, "ns-missing", []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMemoryIndex_UpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	idx := store.NewMemoryIndex(3)

	rec := record("doc-a", 0, []float32{1, 0, 0})
	require.NoError(t, idx.Upsert(ctx, "ns-a", []models.VectorRecord{rec}))

	rec.Chunk.Text = "updated text"
	require.NoError(t, idx.Upsert(ctx, "ns-a", []models.VectorRecord{rec}))

	matches, err := idx.Query(ctx, "ns-a", []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "updated text", matches[0].Chunk.Text)
}

func TestMemoryIndex_SampleInChunkOrder(t *testing.T) {
	ctx := context.Background()
	idx := store.NewMemoryIndex(3)

	require.NoError(t, idx.Upsert(ctx, "ns-a", []models.VectorRecord{
		record("doc-a", 2, []float32{0, 0, 1}),
		record("doc-a", 0, []float32{1, 0, 0}),
		record("doc-a", 1, []float32{0, 1, 0}),
	}))

	matches, err := idx.Sample(ctx, "ns-a", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, 0, matches[0].Chunk.Index)
	assert.Equal(t, 1, matches[1].Chunk.Index)
}

func TestMemoryIndex_Delete(t *testing.T) {
	ctx := context.Background()
	idx := store.NewMemoryIndex(3)

	require.NoError(t, idx.Upsert(ctx, "ns-a", []models.VectorRecord{
		record("doc-a", 0, []float32{1, 0, 0}),
	}))
	require.NoError(t, idx.Upsert(ctx, "ns-b", []models.VectorRecord{
		record("doc-b", 0, []float32{0, 1, 0}),
	}))

	require.NoError(t, idx.Delete(ctx, "ns-a"))

	matches, err := idx.Query(ctx, "ns-a", []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = idx.Query(ctx, "ns-b", []float32{0, 1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	// Deleting an absent namespace is a no-op.
	assert.NoError(t, idx.Delete(ctx, "ns-gone"))
}
