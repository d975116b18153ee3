package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docintel/internal/docintel/store"
	"github.com/kart-io/docintel/internal/model"
)

func memChunk(id, docID string) model.Chunk {
	return model.Chunk{ID: id, DocumentID: docID}
}

func TestMemoryVectorIndexSearchOrdering(t *testing.T) {
	ctx := context.Background()
	idx := store.NewMemoryVectorIndex()

	err := idx.Add(ctx,
		[]model.Chunk{memChunk("a-00000", "a"), memChunk("a-00001", "a"), memChunk("b-00000", "b")},
		[][]float32{{1, 0}, {0, 1}, {0.9, 0.1}},
	)
	require.NoError(t, err)

	hits, err := idx.Search(ctx, []float32{1, 0}, 2, "")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a-00000", hits[0].ChunkID)
	assert.Equal(t, "b-00000", hits[1].ChunkID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestMemoryVectorIndexDocumentScope(t *testing.T) {
	ctx := context.Background()
	idx := store.NewMemoryVectorIndex()

	require.NoError(t, idx.Add(ctx,
		[]model.Chunk{memChunk("a-00000", "a"), memChunk("b-00000", "b")},
		[][]float32{{1, 0}, {1, 0}},
	))

	hits, err := idx.Search(ctx, []float32{1, 0}, 10, "b")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b-00000", hits[0].ChunkID)
}

func TestMemoryVectorIndexTieBreak(t *testing.T) {
	ctx := context.Background()
	idx := store.NewMemoryVectorIndex()

	// Identical vectors give identical scores; order falls back to chunk ID.
	require.NoError(t, idx.Add(ctx,
		[]model.Chunk{memChunk("z-00000", "z"), memChunk("a-00000", "a")},
		[][]float32{{1, 1}, {1, 1}},
	))

	hits, err := idx.Search(ctx, []float32{1, 1}, 2, "")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a-00000", hits[0].ChunkID)
	assert.Equal(t, "z-00000", hits[1].ChunkID)
}

func TestMemoryVectorIndexDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx := store.NewMemoryVectorIndex()

	require.NoError(t, idx.Add(ctx, []model.Chunk{memChunk("a-00000", "a")}, [][]float32{{1, 0, 0}}))

	err := idx.Add(ctx, []model.Chunk{memChunk("a-00001", "a")}, [][]float32{{1, 0}})
	assert.Error(t, err)

	err = idx.Add(ctx, []model.Chunk{memChunk("a-00002", "a")}, [][]float32{nil})
	assert.Error(t, err)

	err = idx.Add(ctx, []model.Chunk{memChunk("a-00003", "a")}, nil)
	assert.Error(t, err)
}

func TestMemoryVectorIndexRemoveDocument(t *testing.T) {
	ctx := context.Background()
	idx := store.NewMemoryVectorIndex()

	require.NoError(t, idx.Add(ctx,
		[]model.Chunk{memChunk("a-00000", "a"), memChunk("b-00000", "b")},
		[][]float32{{1, 0}, {0, 1}},
	))
	require.NoError(t, idx.RemoveDocument(ctx, "a"))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	hits, err := idx.Search(ctx, []float32{1, 0}, 10, "")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b-00000", hits[0].ChunkID)

	// Emptying the index resets the dimension, so a new width is accepted.
	require.NoError(t, idx.RemoveDocument(ctx, "b"))
	assert.NoError(t, idx.Add(ctx, []model.Chunk{memChunk("c-00000", "c")}, [][]float32{{1, 2, 3, 4}}))
}

func TestVectorCodecRoundTrip(t *testing.T) {
	vec := []float32{0.25, -1.5, 3.75, 0}
	decoded := store.DecodeVector(store.EncodeVector(vec))
	assert.Equal(t, vec, decoded)
	assert.Empty(t, store.DecodeVector(nil))
}
