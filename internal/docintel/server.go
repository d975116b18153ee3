package docintel

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/docintel/internal/docintel/biz"
	"github.com/kart-io/docintel/internal/docintel/embedding"
	"github.com/kart-io/docintel/internal/docintel/extract"
	"github.com/kart-io/docintel/internal/docintel/extract/ocrclient"
	"github.com/kart-io/docintel/internal/docintel/handler"
	"github.com/kart-io/docintel/internal/docintel/router"
	"github.com/kart-io/docintel/internal/docintel/store"
	"github.com/kart-io/docintel/internal/docintel/watcher"
	"github.com/kart-io/docintel/pkg/component/milvus"
	"github.com/kart-io/docintel/pkg/component/ollama"
)

// Server is the assembled document intelligence server.
type Server struct {
	opts    *Options
	httpSrv *http.Server
	store   *store.Store
	watcher *watcher.Watcher
	closers []func()
}

// NewServer wires all components from options. The retrieval indexes are
// rebuilt from the durable store before the server accepts traffic.
func NewServer(ctx context.Context, opts *Options) (*Server, error) {
	s := &Server{opts: opts}

	if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	// Durable store.
	docs, err := store.NewSQLiteStore(filepath.Join(opts.DataDir, "docintel.db"))
	if err != nil {
		return nil, err
	}
	logger.Info("Document store initialized")

	// Embedder.
	var embedder embedding.Embedder
	var llmClient *ollama.Client
	if opts.LocalEmbedder {
		embedder = embedding.NewLocal()
		logger.Info("Local embedder initialized")
	} else {
		llmClient = ollama.New(opts.Ollama)
		ollamaEmbedder := embedding.NewOllama(llmClient, opts.Ollama.EmbedModel)
		if err := ollamaEmbedder.Probe(ctx); err != nil {
			return nil, fmt.Errorf("probe embedding model: %w", err)
		}
		embedder = ollamaEmbedder
		logger.Infow("Ollama embedder initialized",
			"model", opts.Ollama.EmbedModel,
			"dimension", ollamaEmbedder.Dimension())
	}

	// Vector index.
	var vec store.VectorIndex
	if opts.Milvus.Enabled {
		milvusClient, err := milvus.New(opts.Milvus)
		if err != nil {
			return nil, fmt.Errorf("initialize milvus: %w", err)
		}
		vec, err = store.NewMilvusVectorIndex(ctx, milvusClient, opts.Milvus.Collection, embedder.Dimension())
		if err != nil {
			return nil, err
		}
		logger.Infow("Milvus vector index initialized", "collection", opts.Milvus.Collection)
	} else {
		vec = store.NewMemoryVectorIndex()
		logger.Info("In-memory vector index initialized")
	}

	s.store = store.New(docs, vec, store.NewBM25Index())
	if err := s.store.EnsureFingerprint(ctx, embedder.Fingerprint(), embedder.Dimension()); err != nil {
		return nil, err
	}
	indexed, err := s.store.Rebuild(ctx)
	if err != nil {
		return nil, fmt.Errorf("rebuild indexes: %w", err)
	}
	logger.Infow("Retrieval indexes rebuilt", "chunks", indexed)

	// OCR engine; extraction degrades to page-level failures without it.
	var engine ocrclient.Engine
	if tess, err := ocrclient.New(opts.OCRLanguage); err != nil {
		logger.Warnw("OCR engine unavailable, scanned pages will fail extraction", "error", err)
	} else {
		engine = tess
		s.closers = append(s.closers, func() { _ = tess.Close() })
	}

	extractor := extract.New(extract.Config{
		DigitalMinChars: opts.DigitalMinChars,
		ForceOCRPages:   opts.ForceOCRPages,
		CaptureSteps:    true,
		OCRLanguage:     opts.OCRLanguage,
	}, engine)

	// Chat answer cache.
	var cache *biz.AnswerCache
	if opts.CacheEnabled {
		redisClient := goredis.NewClient(&goredis.Options{
			Addr:         opts.Redis.Addr(),
			Password:     opts.Redis.Password,
			DB:           opts.Redis.Database,
			MaxRetries:   opts.Redis.MaxRetries,
			PoolSize:     opts.Redis.PoolSize,
			MinIdleConns: opts.Redis.MinIdleConns,
			DialTimeout:  opts.Redis.DialTimeout,
			ReadTimeout:  opts.Redis.ReadTimeout,
			WriteTimeout: opts.Redis.WriteTimeout,
			PoolTimeout:  opts.Redis.PoolTimeout,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnw("failed to connect to redis, answer cache disabled", "error", err)
			_ = redisClient.Close()
		} else {
			cache = biz.NewAnswerCache(redisClient, &biz.AnswerCacheConfig{
				Enabled:   true,
				TTL:       opts.CacheTTL,
				KeyPrefix: "docintel:chat:",
			})
			s.closers = append(s.closers, func() { _ = redisClient.Close() })
			logger.Infow("Redis answer cache initialized", "ttl", opts.CacheTTL)
		}
	}

	cfg := biz.DefaultConfig()
	cfg.ChunkSize = opts.ChunkSize
	cfg.ChunkOverlap = opts.ChunkOverlap
	cfg.PageWorkers = opts.PageWorkers
	cfg.SemanticWeight = opts.SemanticWeight
	// A typed nil *ollama.Client must not become a non-nil ChatModel.
	var chatModel biz.ChatModel
	if llmClient != nil {
		chatModel = llmClient
	}
	svc := biz.NewDocService(cfg, s.store, extractor, embedder, chatModel, cache)
	logger.Info("Document service initialized")

	if opts.WatchDir != "" {
		w, err := watcher.New(opts.WatchDir, svc)
		if err != nil {
			return nil, fmt.Errorf("initialize drop directory watcher: %w", err)
		}
		s.watcher = w
		logger.Infow("Drop directory watcher initialized", "dir", opts.WatchDir)
	}

	gin.SetMode(gin.ReleaseMode)
	engineHTTP := gin.New()
	engineHTTP.Use(gin.Recovery())
	router.Register(engineHTTP,
		handler.NewDocumentHandler(svc),
		handler.NewSearchHandler(svc),
		handler.NewChatHandler(svc),
	)

	s.httpSrv = &http.Server{Addr: opts.Addr, Handler: engineHTTP}
	return s, nil
}

// Run serves until the context is cancelled or a termination signal
// arrives, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if s.watcher != nil {
		go s.watcher.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", s.opts.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.cleanup()
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	err := s.httpSrv.Shutdown(shutdownCtx)
	s.cleanup()
	return err
}

func (s *Server) cleanup() {
	if s.watcher != nil {
		s.watcher.Close()
	}
	for _, closeFn := range s.closers {
		closeFn()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.Close(ctx); err != nil {
		logger.Warnw("failed to close store", "error", err)
	}
}
