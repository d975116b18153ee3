package store

import (
	"context"

	"github.com/kart-io/docintel/internal/model"
	"github.com/kart-io/docintel/pkg/component/milvus"
	"github.com/kart-io/docintel/pkg/errors"
)

// MilvusVectorIndex backs the vector index with a Milvus collection for
// deployments whose corpus outgrows the in-memory scan.
type MilvusVectorIndex struct {
	client     *milvus.Client
	collection string
}

var _ VectorIndex = (*MilvusVectorIndex)(nil)

// NewMilvusVectorIndex ensures the collection exists and returns the index.
func NewMilvusVectorIndex(ctx context.Context, client *milvus.Client, collection string, dimension int) (*MilvusVectorIndex, error) {
	if err := client.EnsureCollection(ctx, collection, dimension); err != nil {
		return nil, errors.ErrIndexConsistency.WithCause(err)
	}
	return &MilvusVectorIndex{client: client, collection: collection}, nil
}

// Add upserts chunk vectors.
func (m *MilvusVectorIndex) Add(ctx context.Context, chunks []model.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.ErrIndexConsistency.WithMessagef(
			"vector count mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}
	chunkIDs := make([]string, len(chunks))
	documentIDs := make([]string, len(chunks))
	for i, c := range chunks {
		chunkIDs[i] = c.ID
		documentIDs[i] = c.DocumentID
	}
	if err := m.client.Insert(ctx, m.collection, chunkIDs, documentIDs, vectors); err != nil {
		return errors.ErrIndexConsistency.WithCause(err)
	}
	return nil
}

// Search returns the topK most similar chunks.
func (m *MilvusVectorIndex) Search(ctx context.Context, vector []float32, topK int, documentID string) ([]VectorHit, error) {
	results, err := m.client.Search(ctx, m.collection, vector, topK, documentID)
	if err != nil {
		return nil, err
	}
	hits := make([]VectorHit, len(results))
	for i, r := range results {
		hits[i] = VectorHit{ChunkID: r.ChunkID, Score: float64(r.Score)}
	}
	return hits, nil
}

// RemoveDocument drops all vectors belonging to the document.
func (m *MilvusVectorIndex) RemoveDocument(ctx context.Context, documentID string) error {
	return m.client.DeleteByDocument(ctx, m.collection, documentID)
}

// Count returns the number of indexed vectors.
func (m *MilvusVectorIndex) Count(ctx context.Context) (int64, error) {
	return m.client.RowCount(ctx, m.collection)
}

// Close releases the Milvus connection.
func (m *MilvusVectorIndex) Close(ctx context.Context) error {
	return m.client.Close(ctx)
}
