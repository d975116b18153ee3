package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docintel/internal/docintel/store"
	"github.com/kart-io/docintel/internal/model"
)

func newTestIndex(t *testing.T) *store.Store {
	t.Helper()
	docs, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	s := store.New(docs, store.NewMemoryVectorIndex(), store.NewBM25Index())
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func ingestFixture(t *testing.T, s *store.Store, docID string) {
	t.Helper()
	ctx := context.Background()

	doc := &model.Document{ID: docID, Filename: docID + ".pdf", FileType: "pdf", Status: model.StatusProcessing}
	require.NoError(t, s.Docs().CreateDocument(ctx, doc))

	chunks := []model.Chunk{
		{
			ID: docID + "-00000", DocumentID: docID, PageNumber: 1, Ordinal: 0,
			Text: "the annual budget overview", Method: model.MethodDigital,
			EmbeddingRaw: store.EncodeVector([]float32{1, 0}),
		},
		{
			ID: docID + "-00001", DocumentID: docID, PageNumber: 1, Ordinal: 1,
			Text: "projected spending by department", Method: model.MethodDigital,
			EmbeddingRaw: store.EncodeVector([]float32{0, 1}),
		},
	}
	pages := []model.Page{{DocumentID: docID, Number: 1, PrimaryMethod: model.MethodDigital, DigitalText: "the annual budget overview"}}
	vectors := [][]float32{{1, 0}, {0, 1}}

	doc.Status = model.StatusSuccess
	doc.PageCount = 1
	doc.TotalChunks = len(chunks)
	require.NoError(t, s.CommitIngest(ctx, doc, pages, chunks, vectors, []model.DocumentEntity{
		{DocumentID: docID, Label: "MONEY", Value: "$900"},
	}))
}

func TestEnsureFingerprintFirstRun(t *testing.T) {
	ctx := context.Background()
	s := newTestIndex(t)

	require.NoError(t, s.EnsureFingerprint(ctx, "local-hash:v1:384", 384))

	// Same fingerprint is accepted on restart.
	assert.NoError(t, s.EnsureFingerprint(ctx, "local-hash:v1:384", 384))

	// A different embedder is refused.
	assert.Error(t, s.EnsureFingerprint(ctx, "ollama:nomic-embed-text", 768))
}

func TestEnsureFingerprintRejectsDimensionChange(t *testing.T) {
	ctx := context.Background()
	s := newTestIndex(t)

	require.NoError(t, s.EnsureFingerprint(ctx, "ollama:nomic-embed-text", 768))

	// Same provider string, different vector width: persisted vectors and
	// fresh queries would not be comparable.
	err := s.EnsureFingerprint(ctx, "ollama:nomic-embed-text", 384)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
}

func TestCommitIngestPublishesToBothIndexes(t *testing.T) {
	ctx := context.Background()
	s := newTestIndex(t)
	ingestFixture(t, s, "doc1")

	doc, err := s.Docs().GetDocument(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuccess, doc.Status)
	assert.Equal(t, 2, doc.TotalChunks)

	semHits, err := s.SemanticSearch(ctx, []float32{1, 0}, 5, "")
	require.NoError(t, err)
	require.NotEmpty(t, semHits)
	assert.Equal(t, "doc1-00000", semHits[0].ChunkID)

	kwHits := s.KeywordSearch("budget", 5, "")
	require.Len(t, kwHits, 1)
	assert.Equal(t, "doc1-00000", kwHits[0].ChunkID)
}

func TestCommitIngestUnwindsOnIndexFailure(t *testing.T) {
	ctx := context.Background()
	s := newTestIndex(t)
	ingestFixture(t, s, "doc1")

	doc := &model.Document{ID: "doc2", Filename: "doc2.pdf", FileType: "pdf", Status: model.StatusProcessing}
	require.NoError(t, s.Docs().CreateDocument(ctx, doc))

	chunks := []model.Chunk{{
		ID: "doc2-00000", DocumentID: "doc2", PageNumber: 1, Ordinal: 0,
		Text: "mismatched dimensions here", EmbeddingRaw: store.EncodeVector([]float32{1, 2, 3}),
	}}
	// Wrong width: the vector index rejects it and the rows must be
	// removed again.
	err := s.CommitIngest(ctx, doc, nil, chunks, [][]float32{{1, 2, 3}}, nil)
	require.Error(t, err)

	listed, err := s.Docs().ListChunksByDocument(ctx, "doc2")
	require.NoError(t, err)
	assert.Empty(t, listed)

	// The document row survives so the failure stays visible.
	_, err = s.Docs().GetDocument(ctx, "doc2")
	assert.NoError(t, err)

	// The first document is untouched.
	assert.Len(t, s.KeywordSearch("budget", 5, ""), 1)
}

func TestDeleteDocumentClearsIndexes(t *testing.T) {
	ctx := context.Background()
	s := newTestIndex(t)
	ingestFixture(t, s, "doc1")
	ingestFixture(t, s, "doc2")

	require.NoError(t, s.DeleteDocument(ctx, "doc1"))

	semHits, err := s.SemanticSearch(ctx, []float32{1, 0}, 10, "")
	require.NoError(t, err)
	for _, h := range semHits {
		assert.NotContains(t, h.ChunkID, "doc1-")
	}
	kwHits := s.KeywordSearch("budget", 10, "")
	require.Len(t, kwHits, 1)
	assert.Equal(t, "doc2-00000", kwHits[0].ChunkID)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalDocuments)
	assert.Equal(t, int64(2), stats.TotalChunks)
}

func TestRebuildRestoresIndexes(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "rebuild.db")

	docs, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	first := store.New(docs, store.NewMemoryVectorIndex(), store.NewBM25Index())
	ingestFixture(t, first, "doc1")
	require.NoError(t, first.Close(ctx))

	// A fresh process starts with empty indexes and rebuilds from SQLite.
	docs2, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	second := store.New(docs2, store.NewMemoryVectorIndex(), store.NewBM25Index())
	t.Cleanup(func() { _ = second.Close(ctx) })

	indexed, err := second.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, indexed)

	semHits, err := second.SemanticSearch(ctx, []float32{0, 1}, 5, "")
	require.NoError(t, err)
	require.NotEmpty(t, semHits)
	assert.Equal(t, "doc1-00001", semHits[0].ChunkID)

	kwHits := second.KeywordSearch("spending", 5, "")
	require.Len(t, kwHits, 1)
	assert.Equal(t, "doc1-00001", kwHits[0].ChunkID)
}
