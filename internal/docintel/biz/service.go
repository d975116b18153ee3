package biz

import (
	"context"
	"time"

	"github.com/kart-io/docintel/internal/docintel/chunker"
	"github.com/kart-io/docintel/internal/docintel/embedding"
	"github.com/kart-io/docintel/internal/docintel/extract"
	"github.com/kart-io/docintel/internal/docintel/metrics"
	"github.com/kart-io/docintel/internal/docintel/ner"
	"github.com/kart-io/docintel/internal/docintel/store"
	"github.com/kart-io/docintel/internal/model"
)

// Service defines the document intelligence operations.
type Service interface {
	// Ingest processes an upload end to end and returns the stored
	// document with per-page extraction details.
	Ingest(ctx context.Context, filename string, data []byte) (*model.DocumentUploadResponse, error)
	// GetDocument returns one document's metadata.
	GetDocument(ctx context.Context, id string) (*model.DocumentInfo, error)
	// ListDocuments returns all documents, newest first.
	ListDocuments(ctx context.Context) ([]model.DocumentInfo, error)
	// DeleteDocument removes a document from storage and both indexes.
	DeleteDocument(ctx context.Context, id string) error
	// GetPages returns per-page extraction details for a document.
	GetPages(ctx context.Context, id string) ([]model.PageExtractionDetail, error)
	// GetEntities returns the document's aggregated entities.
	GetEntities(ctx context.Context, id string) ([]model.EntityGroup, error)
	// Search runs a semantic, keyword or hybrid query.
	Search(ctx context.Context, req *model.SearchRequest) (*model.SearchResponse, error)
	// Chat answers a question grounded in retrieved chunks.
	Chat(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error)
	// Stats reports corpus-wide counters.
	Stats(ctx context.Context) (*model.CorpusStats, error)
}

// Config tunes the service.
type Config struct {
	// ChunkSize and ChunkOverlap configure the chunker, in characters.
	ChunkSize    int
	ChunkOverlap int
	// PageWorkers bounds the per-document page extraction parallelism.
	PageWorkers int
	// DefaultTopK is used when a request does not specify top_k.
	DefaultTopK int
	// MaxTopK caps requested result counts.
	MaxTopK int
	// SemanticWeight is the semantic share in hybrid fusion; the keyword
	// share is its complement.
	SemanticWeight float64
	// MinChatRelevance drops retrieved chunks below this fused score
	// before answer generation.
	MinChatRelevance float64
	// MaxContextChars bounds the assembled chat context size.
	MaxContextChars int
	// ChatTimeout bounds one answer generation.
	ChatTimeout time.Duration
	// EmbedBatchSize bounds one embedding request.
	EmbedBatchSize int
	// EmbedRetries is the number of additional attempts per embedding
	// batch.
	EmbedRetries int
}

// DefaultConfig returns production defaults.
func DefaultConfig() *Config {
	return &Config{
		ChunkSize:        500,
		ChunkOverlap:     50,
		PageWorkers:      4,
		DefaultTopK:      5,
		MaxTopK:          50,
		SemanticWeight:   0.7,
		MinChatRelevance: 0.3,
		MaxContextChars:  6000,
		ChatTimeout:      90 * time.Second,
		EmbedBatchSize:   32,
		EmbedRetries:     2,
	}
}

// DocService is the production Service implementation.
type DocService struct {
	cfg        *Config
	store      *store.Store
	extractor  *extract.Extractor
	chunker    *chunker.Chunker
	recognizer *ner.Recognizer
	embedder   embedding.Embedder
	llm        ChatModel
	cache      *AnswerCache
	metrics    *metrics.Metrics
}

var _ Service = (*DocService)(nil)

// NewDocService composes the service. llm may be nil, in which case chat
// requests fail with a generation error; cache may be nil to disable
// answer caching.
func NewDocService(
	cfg *Config,
	st *store.Store,
	extractor *extract.Extractor,
	embedder embedding.Embedder,
	llm ChatModel,
	cache *AnswerCache,
) *DocService {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &DocService{
		cfg:        cfg,
		store:      st,
		extractor:  extractor,
		chunker:    chunker.New(&chunker.Config{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap}),
		recognizer: ner.New(),
		embedder:   embedder,
		llm:        llm,
		cache:      cache,
		metrics:    metrics.Get(),
	}
}

// clampTopK applies the default and the cap to a requested result count.
func (s *DocService) clampTopK(topK int) int {
	if topK <= 0 {
		return s.cfg.DefaultTopK
	}
	if topK > s.cfg.MaxTopK {
		return s.cfg.MaxTopK
	}
	return topK
}

// Stats reports corpus-wide counters.
func (s *DocService) Stats(ctx context.Context) (*model.CorpusStats, error) {
	return s.store.Stats(ctx)
}
