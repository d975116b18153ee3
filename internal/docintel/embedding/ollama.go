package embedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/kart-io/docintel/pkg/component/ollama"
	"github.com/kart-io/docintel/pkg/errors"
)

// OllamaEmbedder produces embeddings through an Ollama server.
type OllamaEmbedder struct {
	client *ollama.Client
	model  string

	mu  sync.RWMutex
	dim int
}

var _ Embedder = (*OllamaEmbedder)(nil)

// NewOllama creates an Ollama-backed embedder. Dimension is discovered on
// the first successful call; use Probe at startup to establish it early.
func NewOllama(client *ollama.Client, model string) *OllamaEmbedder {
	return &OllamaEmbedder{client: client, model: model}
}

// Probe embeds a fixed sentinel text to verify connectivity and record the
// model's dimension.
func (e *OllamaEmbedder) Probe(ctx context.Context) error {
	_, err := e.EmbedSingle(ctx, "dimension probe")
	return err
}

// Embed embeds a batch of texts.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := e.client.Embed(ctx, texts)
	if err != nil {
		return nil, errors.ErrEmbedding.WithCause(err)
	}
	if len(vectors) != len(texts) {
		return nil, errors.ErrEmbedding.WithMessagef(
			"embedding count mismatch: got %d vectors for %d texts", len(vectors), len(texts))
	}
	e.recordDimension(vectors)
	return vectors, nil
}

// EmbedSingle embeds one text.
func (e *OllamaEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Dimension returns the discovered vector width, or zero before any call.
func (e *OllamaEmbedder) Dimension() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dim
}

// Fingerprint identifies the provider and model.
func (e *OllamaEmbedder) Fingerprint() string {
	return fmt.Sprintf("ollama:%s", e.model)
}

func (e *OllamaEmbedder) recordDimension(vectors [][]float32) {
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return
	}
	e.mu.Lock()
	if e.dim == 0 {
		e.dim = len(vectors[0])
	}
	e.mu.Unlock()
}
