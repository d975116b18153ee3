package biz_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docintel/internal/docintel/biz"
	"github.com/kart-io/docintel/internal/docintel/embedding"
	"github.com/kart-io/docintel/internal/docintel/extract"
	"github.com/kart-io/docintel/internal/docintel/store"
	"github.com/kart-io/docintel/internal/model"
	apperrors "github.com/kart-io/docintel/pkg/errors"
)

// newTestService builds a service over a throwaway store with the
// deterministic local embedder and no chat model.
func newTestService(t *testing.T) (biz.Service, *store.Store) {
	t.Helper()
	docs, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "biz.db"))
	require.NoError(t, err)
	st := store.New(docs, store.NewMemoryVectorIndex(), store.NewBM25Index())
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	svc := biz.NewDocService(nil, st, extract.New(extract.DefaultConfig(), nil), embedding.NewLocal(), nil, nil)
	return svc, st
}

// seedCorpus commits one document with the given chunk texts, embedded by
// the local embedder so semantic queries behave like production.
func seedCorpus(t *testing.T, st *store.Store, docID string, texts ...string) {
	t.Helper()
	ctx := context.Background()
	embedder := embedding.NewLocal()

	doc := &model.Document{ID: docID, Filename: docID + ".pdf", FileType: "pdf", Status: model.StatusProcessing}
	require.NoError(t, st.Docs().CreateDocument(ctx, doc))

	chunks := make([]model.Chunk, len(texts))
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := embedder.EmbedSingle(ctx, text)
		require.NoError(t, err)
		chunks[i] = model.Chunk{
			ID:           chunkID(docID, i),
			DocumentID:   docID,
			PageNumber:   1,
			Ordinal:      i,
			Text:         text,
			Method:       model.MethodDigital,
			EmbeddingRaw: store.EncodeVector(vec),
		}
		vectors[i] = vec
	}

	doc.Status = model.StatusSuccess
	doc.PageCount = 1
	doc.TotalChunks = len(chunks)
	require.NoError(t, st.CommitIngest(ctx, doc,
		[]model.Page{{DocumentID: docID, Number: 1, PrimaryMethod: model.MethodDigital}},
		chunks, vectors, nil))
}

func chunkID(docID string, ordinal int) string {
	return fmt.Sprintf("%s-%05d", docID, ordinal)
}

func TestSearchEmptyQuery(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Search(context.Background(), &model.SearchRequest{Query: ""})
	assert.ErrorIs(t, err, apperrors.ErrEmptyQuery)
}

func TestSearchInvalidType(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Search(context.Background(), &model.SearchRequest{Query: "anything", SearchType: "fuzzy"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidSearchType)
}

func TestSearchUnknownDocumentFailsClosed(t *testing.T) {
	svc, st := newTestService(t)
	seedCorpus(t, st, "doc1", "the payment terms are net thirty days")

	_, err := svc.Search(context.Background(), &model.SearchRequest{
		Query:      "payment terms",
		DocumentID: "no-such-document",
	})
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
}

func TestSemanticSearchRanksExactTextFirst(t *testing.T) {
	svc, st := newTestService(t)
	seedCorpus(t, st, "doc1",
		"the payment terms are net thirty days",
		"shipping is arranged by the supplier",
		"warranty covers manufacturing defects only",
	)

	resp, err := svc.Search(context.Background(), &model.SearchRequest{
		Query:      "the payment terms are net thirty days",
		SearchType: model.SearchSemantic,
		TopK:       3,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "the payment terms are net thirty days", resp.Results[0].ChunkText)
	assert.InDelta(t, 1.0, resp.Results[0].Score, 1e-5)
	for _, r := range resp.Results {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0+1e-9)
	}
}

func TestKeywordSearchNormalization(t *testing.T) {
	svc, st := newTestService(t)
	seedCorpus(t, st, "doc1",
		"invoice invoice invoice for consulting services",
		"one invoice mentioned among much other unrelated filler text",
		"no relevant terms at all in this chunk",
	)

	resp, err := svc.Search(context.Background(), &model.SearchRequest{
		Query:      "invoice",
		SearchType: model.SearchKeyword,
		TopK:       5,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	// Min-max normalization pins the best hit to 1 and the worst to 0.
	assert.InDelta(t, 1.0, resp.Results[0].Score, 1e-9)
	assert.InDelta(t, 0.0, resp.Results[1].Score, 1e-9)
	assert.Contains(t, resp.Results[0].ChunkText, "consulting")
}

func TestHybridSearchFusesBothSignals(t *testing.T) {
	svc, st := newTestService(t)
	seedCorpus(t, st, "doc1",
		"the quarterly budget was approved in march",
		"employee onboarding checklist and forms",
	)

	resp, err := svc.Search(context.Background(), &model.SearchRequest{
		Query: "quarterly budget approved",
		TopK:  2,
	})
	require.NoError(t, err)
	assert.Equal(t, model.SearchHybrid, resp.SearchType)
	require.NotEmpty(t, resp.Results)
	assert.Contains(t, resp.Results[0].ChunkText, "budget")
}

func TestHybridSearchDeterministic(t *testing.T) {
	svc, st := newTestService(t)
	seedCorpus(t, st, "doc1",
		"reporting standards for the finance team",
		"reporting standards for the finance team",
		"reporting standards for the finance team",
	)

	req := &model.SearchRequest{Query: "reporting standards", TopK: 3}
	first, err := svc.Search(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Search(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, len(first.Results), len(second.Results))
	for i := range first.Results {
		assert.Equal(t, first.Results[i].ChunkText, second.Results[i].ChunkText)
		assert.Equal(t, first.Results[i].Score, second.Results[i].Score)
	}
}

func TestSearchScopedToDocument(t *testing.T) {
	svc, st := newTestService(t)
	seedCorpus(t, st, "doc1", "alpha contract clauses for doc one")
	seedCorpus(t, st, "doc2", "alpha contract clauses for doc two")

	resp, err := svc.Search(context.Background(), &model.SearchRequest{
		Query:      "alpha contract clauses",
		DocumentID: "doc2",
		TopK:       10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	for _, r := range resp.Results {
		assert.Equal(t, "doc2", r.DocumentID)
		assert.Equal(t, "doc2.pdf", r.Filename)
	}
}

func TestSearchReturnsChunkEntities(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	embedder := embedding.NewLocal()

	doc := &model.Document{ID: "doc1", Filename: "doc1.pdf", FileType: "pdf", Status: model.StatusSuccess}
	require.NoError(t, st.Docs().CreateDocument(ctx, doc))

	text := "total due is $450 by 2024-06-01"
	vec, err := embedder.EmbedSingle(ctx, text)
	require.NoError(t, err)
	chunk := model.Chunk{
		ID: "doc1-00000", DocumentID: "doc1", PageNumber: 1, Ordinal: 0,
		Text: text, Method: model.MethodDigital,
		EmbeddingRaw: store.EncodeVector(vec),
		EntitiesJSON: `[{"text":"$450","label":"MONEY","start":13,"end":17}]`,
	}
	require.NoError(t, st.CommitIngest(ctx, doc, nil, []model.Chunk{chunk}, [][]float32{vec}, nil))

	resp, err := svc.Search(ctx, &model.SearchRequest{Query: text, SearchType: model.SearchSemantic, TopK: 1})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	require.Len(t, resp.Results[0].Entities, 1)
	assert.Equal(t, "MONEY", resp.Results[0].Entities[0].Label)
	assert.Equal(t, "$450", resp.Results[0].Entities[0].Text)
}
