package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docintel/internal/docintel/store"
	"github.com/kart-io/docintel/internal/model"
)

func kwChunk(id, docID, text string) model.Chunk {
	return model.Chunk{ID: id, DocumentID: docID, Text: text}
}

func TestBM25RanksExactTermsFirst(t *testing.T) {
	idx := store.NewBM25Index()
	idx.Add([]model.Chunk{
		kwChunk("a-00000", "a", "the invoice lists the total amount payable"),
		kwChunk("a-00001", "a", "shipping terms and delivery schedule details"),
		kwChunk("b-00000", "b", "invoice invoice invoice for march services"),
	})

	hits := idx.Search("invoice", 10, "")
	require.Len(t, hits, 2)
	assert.Equal(t, "b-00000", hits[0].ChunkID)
	assert.Equal(t, "a-00000", hits[1].ChunkID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestBM25RareTermsWeighMore(t *testing.T) {
	idx := store.NewBM25Index()
	idx.Add([]model.Chunk{
		kwChunk("a-00000", "a", "report report common words everywhere"),
		kwChunk("a-00001", "a", "report and more filler text here"),
		kwChunk("a-00002", "a", "unique gadget appears once only ever"),
	})

	hits := idx.Search("unique gadget", 10, "")
	require.NotEmpty(t, hits)
	assert.Equal(t, "a-00002", hits[0].ChunkID)
}

func TestBM25DocumentScope(t *testing.T) {
	idx := store.NewBM25Index()
	idx.Add([]model.Chunk{
		kwChunk("a-00000", "a", "budget review for the first quarter"),
		kwChunk("b-00000", "b", "budget review for the second quarter"),
	})

	hits := idx.Search("budget", 10, "b")
	require.Len(t, hits, 1)
	assert.Equal(t, "b-00000", hits[0].ChunkID)
}

func TestBM25EmptyQueryAndMisses(t *testing.T) {
	idx := store.NewBM25Index()
	idx.Add([]model.Chunk{kwChunk("a-00000", "a", "some indexed content here")})

	assert.Empty(t, idx.Search("", 10, ""))
	assert.Empty(t, idx.Search("   !!! ", 10, ""))
	assert.Empty(t, idx.Search("zebra", 10, ""))
	assert.Empty(t, idx.Search("content", 0, ""))
}

func TestBM25ReAddReplaces(t *testing.T) {
	idx := store.NewBM25Index()
	idx.Add([]model.Chunk{kwChunk("a-00000", "a", "original wording about contracts")})
	idx.Add([]model.Chunk{kwChunk("a-00000", "a", "revised wording about invoices")})

	assert.Equal(t, 1, idx.Count())
	assert.Empty(t, idx.Search("contracts", 10, ""))
	assert.Len(t, idx.Search("invoices", 10, ""), 1)
}

func TestBM25RemoveDocument(t *testing.T) {
	idx := store.NewBM25Index()
	idx.Add([]model.Chunk{
		kwChunk("a-00000", "a", "alpha content for document a"),
		kwChunk("a-00001", "a", "more alpha content for document a"),
		kwChunk("b-00000", "b", "beta content for document b"),
	})

	idx.RemoveDocument("a")
	assert.Equal(t, 1, idx.Count())
	assert.Empty(t, idx.Search("alpha", 10, ""))

	hits := idx.Search("beta", 10, "")
	require.Len(t, hits, 1)
	assert.Equal(t, "b-00000", hits[0].ChunkID)
}

func TestBM25DeterministicTieBreak(t *testing.T) {
	idx := store.NewBM25Index()
	idx.Add([]model.Chunk{
		kwChunk("z-00000", "z", "identical text body"),
		kwChunk("a-00000", "a", "identical text body"),
	})

	hits := idx.Search("identical", 10, "")
	require.Len(t, hits, 2)
	assert.Equal(t, "a-00000", hits[0].ChunkID)
	assert.Equal(t, "z-00000", hits[1].ChunkID)
}
