package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/kart-io/logger"

	"github.com/kart-io/docintel/internal/model"
	"github.com/kart-io/docintel/pkg/errors"
)

// Store composes the durable store with the two retrieval indexes and
// keeps them consistent. All index mutations go through this type; writes
// are serialized so a failed ingest can be unwound without interleaving.
type Store struct {
	docs DocStore
	vec  VectorIndex
	kw   KeywordIndex

	writeMu sync.Mutex
}

// New composes a Store.
func New(docs DocStore, vec VectorIndex, kw KeywordIndex) *Store {
	return &Store{docs: docs, vec: vec, kw: kw}
}

// Docs exposes the durable store for read paths that bypass the indexes.
func (s *Store) Docs() DocStore {
	return s.docs
}

// EnsureFingerprint verifies the persisted index was built by the same
// embedder. A first run records the fingerprint; a mismatch afterwards
// means persisted vectors and fresh queries are not comparable, so the
// store refuses to serve rather than return silently wrong results.
func (s *Store) EnsureFingerprint(ctx context.Context, fingerprint string, dimension int) error {
	meta, err := s.docs.GetIndexMeta(ctx)
	if err != nil {
		return fmt.Errorf("load index metadata: %w", err)
	}
	if meta == nil {
		return s.docs.SaveIndexMeta(ctx, &model.IndexMeta{
			Fingerprint: fingerprint,
			Dimension:   dimension,
		})
	}
	if meta.Fingerprint != fingerprint {
		return errors.ErrIndexConsistency.WithMessagef(
			"index was built with embedder %q but current embedder is %q; delete the data directory or restore the previous embedder",
			meta.Fingerprint, fingerprint)
	}
	if meta.Dimension != dimension {
		return errors.ErrIndexConsistency.WithMessagef(
			"index was built with dimension %d but current embedder produces %d; delete the data directory or restore the previous embedder",
			meta.Dimension, dimension)
	}
	return nil
}

// Rebuild repopulates both retrieval indexes from the durable store.
// Returns the number of chunks indexed.
func (s *Store) Rebuild(ctx context.Context) (int, error) {
	chunks, err := s.docs.ListAllChunks(ctx)
	if err != nil {
		return 0, fmt.Errorf("list chunks for rebuild: %w", err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors := make([][]float32, len(chunks))
	for i, c := range chunks {
		vectors[i] = DecodeVector(c.EmbeddingRaw)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.vec.Add(ctx, chunks, vectors); err != nil {
		return 0, err
	}
	s.kw.Add(chunks)
	return len(chunks), nil
}

// CommitIngest persists an ingested document's pages, chunks and entities
// and publishes the chunks to both indexes. The document row must already
// exist; on success it is updated in place. If indexing fails the rows are
// removed again so the durable store never references unsearchable chunks.
func (s *Store) CommitIngest(ctx context.Context, doc *model.Document, pages []model.Page, chunks []model.Chunk, vectors [][]float32, entities []model.DocumentEntity) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.docs.CreatePages(ctx, pages); err != nil {
		return fmt.Errorf("persist pages: %w", err)
	}
	if err := s.docs.CreateChunks(ctx, chunks); err != nil {
		s.unwindRows(ctx, doc.ID)
		return fmt.Errorf("persist chunks: %w", err)
	}
	if err := s.docs.SaveEntities(ctx, doc.ID, entities); err != nil {
		s.unwindRows(ctx, doc.ID)
		return fmt.Errorf("persist entities: %w", err)
	}

	if err := s.vec.Add(ctx, chunks, vectors); err != nil {
		s.unwindIndexes(ctx, doc.ID)
		s.unwindRows(ctx, doc.ID)
		return err
	}
	s.kw.Add(chunks)

	if err := s.docs.UpdateDocument(ctx, doc); err != nil {
		s.unwindIndexes(ctx, doc.ID)
		s.unwindRows(ctx, doc.ID)
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

// DeleteDocument removes the document from the durable store and both
// indexes.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.docs.DeleteDocument(ctx, id); err != nil {
		return err
	}
	s.unwindIndexes(ctx, id)
	return nil
}

// SemanticSearch queries the vector index.
func (s *Store) SemanticSearch(ctx context.Context, vector []float32, topK int, documentID string) ([]VectorHit, error) {
	return s.vec.Search(ctx, vector, topK, documentID)
}

// KeywordSearch queries the keyword index.
func (s *Store) KeywordSearch(query string, topK int, documentID string) []KeywordHit {
	return s.kw.Search(query, topK, documentID)
}

// Stats reports corpus-wide counters.
func (s *Store) Stats(ctx context.Context) (*model.CorpusStats, error) {
	docs, err := s.docs.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	chunks, err := s.docs.CountChunks(ctx)
	if err != nil {
		return nil, err
	}
	return &model.CorpusStats{
		TotalDocuments: int64(len(docs)),
		TotalChunks:    chunks,
	}, nil
}

// Close releases the durable store and the vector index.
func (s *Store) Close(ctx context.Context) error {
	if err := s.vec.Close(ctx); err != nil {
		logger.Warnw("failed to close vector index", "error", err)
	}
	return s.docs.Close()
}

func (s *Store) unwindIndexes(ctx context.Context, documentID string) {
	if err := s.vec.RemoveDocument(ctx, documentID); err != nil {
		logger.Errorw("failed to remove document vectors during unwind", "document_id", documentID, "error", err)
	}
	s.kw.RemoveDocument(documentID)
}

func (s *Store) unwindRows(ctx context.Context, documentID string) {
	// The document row itself survives; the caller marks it failed so the
	// upload stays visible with its error message.
	if err := s.docs.DeleteDocumentData(ctx, documentID); err != nil {
		logger.Errorw("failed to remove document rows during unwind", "document_id", documentID, "error", err)
	}
}
