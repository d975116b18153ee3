package store

import (
	"context"
	"sort"
	"sync"

	"github.com/kart-io/docintel/internal/model"
	"github.com/kart-io/docintel/internal/pkg/textutil"
	"github.com/kart-io/docintel/pkg/errors"
)

type vectorEntry struct {
	chunkID    string
	documentID string
	vector     []float32
}

// MemoryVectorIndex is a brute-force cosine similarity index. The corpus
// sizes this service targets make exact scan both simple and fast enough;
// deployments that outgrow it switch to the Milvus backend.
type MemoryVectorIndex struct {
	mu      sync.RWMutex
	dim     int
	entries []vectorEntry
}

var _ VectorIndex = (*MemoryVectorIndex)(nil)

// NewMemoryVectorIndex creates an empty in-memory index.
func NewMemoryVectorIndex() *MemoryVectorIndex {
	return &MemoryVectorIndex{}
}

// Add indexes chunk vectors. All vectors must share one dimension; a
// mismatch means two embedder generations are being mixed and is rejected.
func (m *MemoryVectorIndex) Add(_ context.Context, chunks []model.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.ErrIndexConsistency.WithMessagef(
			"vector count mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, chunk := range chunks {
		vec := vectors[i]
		if len(vec) == 0 {
			return errors.ErrIndexConsistency.WithMessagef("empty vector for chunk %s", chunk.ID)
		}
		if m.dim == 0 {
			m.dim = len(vec)
		} else if len(vec) != m.dim {
			return errors.ErrIndexConsistency.WithMessagef(
				"vector dimension %d does not match index dimension %d", len(vec), m.dim)
		}
		m.entries = append(m.entries, vectorEntry{
			chunkID:    chunk.ID,
			documentID: chunk.DocumentID,
			vector:     vec,
		})
	}
	return nil
}

// Search scans all vectors and returns the topK by cosine similarity.
func (m *MemoryVectorIndex) Search(_ context.Context, vector []float32, topK int, documentID string) ([]VectorHit, error) {
	if topK <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]VectorHit, 0, len(m.entries))
	for _, e := range m.entries {
		if documentID != "" && e.documentID != documentID {
			continue
		}
		hits = append(hits, VectorHit{
			ChunkID: e.chunkID,
			Score:   textutil.CosineSimilarity(vector, e.vector),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// RemoveDocument drops all vectors belonging to the document.
func (m *MemoryVectorIndex) RemoveDocument(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.documentID != documentID {
			kept = append(kept, e)
		}
	}
	m.entries = kept
	if len(m.entries) == 0 {
		m.dim = 0
	}
	return nil
}

// Count returns the number of indexed vectors.
func (m *MemoryVectorIndex) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.entries)), nil
}

// Close is a no-op for the in-memory index.
func (m *MemoryVectorIndex) Close(context.Context) error {
	return nil
}
