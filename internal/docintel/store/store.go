// Package store persists documents and serves the two retrieval indexes.
//
// Durable state (documents, pages, chunks, entities, index metadata) lives
// in SQLite through GORM. Retrieval state is split across a vector index
// (in-memory by default, Milvus optionally) and an in-memory BM25 keyword
// index; both are rebuilt from SQLite at startup so the process can restart
// without re-ingesting.
package store

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/kart-io/docintel/internal/model"
)

// VectorHit is one scored result from the vector index.
type VectorHit struct {
	ChunkID string
	Score   float64
}

// KeywordHit is one scored result from the keyword index.
type KeywordHit struct {
	ChunkID string
	Score   float64
}

// DocStore is the durable document store.
type DocStore interface {
	CreateDocument(ctx context.Context, doc *model.Document) error
	UpdateDocument(ctx context.Context, doc *model.Document) error
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	ListDocuments(ctx context.Context) ([]model.Document, error)
	// DeleteDocument removes the document and cascades to its pages,
	// chunks and entities in one transaction.
	DeleteDocument(ctx context.Context, id string) error
	// DeleteDocumentData removes the document's pages, chunks and
	// entities but keeps the document row, used when unwinding a failed
	// ingest.
	DeleteDocumentData(ctx context.Context, id string) error

	CreatePages(ctx context.Context, pages []model.Page) error
	ListPages(ctx context.Context, documentID string) ([]model.Page, error)

	CreateChunks(ctx context.Context, chunks []model.Chunk) error
	GetChunk(ctx context.Context, id string) (*model.Chunk, error)
	ListChunksByDocument(ctx context.Context, documentID string) ([]model.Chunk, error)
	// ListAllChunks streams every chunk, used to rebuild indexes at
	// startup.
	ListAllChunks(ctx context.Context) ([]model.Chunk, error)
	CountChunks(ctx context.Context) (int64, error)

	SaveEntities(ctx context.Context, documentID string, entities []model.DocumentEntity) error
	ListEntities(ctx context.Context, documentID string) ([]model.DocumentEntity, error)

	GetIndexMeta(ctx context.Context) (*model.IndexMeta, error)
	SaveIndexMeta(ctx context.Context, meta *model.IndexMeta) error

	Close() error
}

// VectorIndex answers nearest-neighbor queries over chunk vectors.
type VectorIndex interface {
	// Add indexes vectors for chunks; vectors[i] belongs to chunks[i].
	Add(ctx context.Context, chunks []model.Chunk, vectors [][]float32) error
	// Search returns the topK most similar chunks. A non-empty documentID
	// restricts results to that document.
	Search(ctx context.Context, vector []float32, topK int, documentID string) ([]VectorHit, error)
	// RemoveDocument drops all vectors belonging to the document.
	RemoveDocument(ctx context.Context, documentID string) error
	// Count returns the number of indexed vectors.
	Count(ctx context.Context) (int64, error)
	Close(ctx context.Context) error
}

// KeywordIndex answers lexical queries over chunk text.
type KeywordIndex interface {
	Add(chunks []model.Chunk)
	// Search scores chunks against the query with BM25. A non-empty
	// documentID restricts results to that document.
	Search(query string, topK int, documentID string) []KeywordHit
	RemoveDocument(documentID string)
	Count() int
}

// EncodeVector serializes a float32 vector for the chunk row.
func EncodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeVector deserializes a chunk row's vector.
func DecodeVector(data []byte) []float32 {
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec
}
