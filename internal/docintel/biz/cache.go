package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/docintel/internal/model"
)

// AnswerCacheConfig configures the chat answer cache.
type AnswerCacheConfig struct {
	// Enabled turns caching on.
	Enabled bool
	// TTL is the answer expiry.
	TTL time.Duration
	// KeyPrefix namespaces the cache keys.
	KeyPrefix string
}

// DefaultAnswerCacheConfig returns the cache defaults.
func DefaultAnswerCacheConfig() *AnswerCacheConfig {
	return &AnswerCacheConfig{
		Enabled:   false,
		TTL:       time.Hour,
		KeyPrefix: "docintel:chat:",
	}
}

// AnswerCache caches chat answers in Redis keyed by the question and its
// document scope. Ingest and delete bump a generation counter so cached
// answers never outlive a corpus change.
type AnswerCache struct {
	redis  *goredis.Client
	config *AnswerCacheConfig
}

// NewAnswerCache creates an AnswerCache. A nil client disables caching.
func NewAnswerCache(redis *goredis.Client, config *AnswerCacheConfig) *AnswerCache {
	if config == nil {
		config = DefaultAnswerCacheConfig()
	}
	return &AnswerCache{redis: redis, config: config}
}

func (c *AnswerCache) enabled() bool {
	return c != nil && c.config.Enabled && c.redis != nil
}

// key hashes the question and scope under the current corpus generation.
func (c *AnswerCache) key(ctx context.Context, req *model.ChatRequest) string {
	gen, err := c.redis.Get(ctx, c.config.KeyPrefix+"generation").Int64()
	if err != nil && err != goredis.Nil {
		gen = 0
	}
	hash := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%s|%d", gen, req.DocumentID, req.Question, req.TopK)))
	return c.config.KeyPrefix + hex.EncodeToString(hash[:])
}

// Get returns the cached answer, or nil on miss or any cache error.
func (c *AnswerCache) Get(ctx context.Context, req *model.ChatRequest) *model.ChatResponse {
	if !c.enabled() {
		return nil
	}

	data, err := c.redis.Get(ctx, c.key(ctx, req)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			logger.Warnw("chat cache get failed", "error", err)
		}
		return nil
	}

	var resp model.ChatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		logger.Warnw("chat cache entry corrupt, dropping", "error", err)
		return nil
	}
	return &resp
}

// Set stores an answer. Cache failures are logged, never surfaced.
func (c *AnswerCache) Set(ctx context.Context, req *model.ChatRequest, resp *model.ChatResponse) {
	if !c.enabled() {
		return
	}

	data, err := json.Marshal(resp)
	if err != nil {
		logger.Warnw("chat cache marshal failed", "error", err)
		return
	}
	if err := c.redis.Set(ctx, c.key(ctx, req), data, c.config.TTL).Err(); err != nil {
		logger.Warnw("chat cache set failed", "error", err)
	}
}

// Invalidate bumps the corpus generation, orphaning all cached answers.
func (c *AnswerCache) Invalidate(ctx context.Context) {
	if !c.enabled() {
		return
	}
	if err := c.redis.Incr(ctx, c.config.KeyPrefix+"generation").Err(); err != nil {
		logger.Warnw("chat cache invalidation failed", "error", err)
	}
}
