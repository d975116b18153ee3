package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/kart-io/docintel/internal/pkg/textutil"
)

// localDimension is fixed for the hashing embedder; the fingerprint encodes
// it so an index built with a different width is rejected.
const localDimension = 384

// LocalEmbedder is a deterministic hashed bag-of-words embedder. It needs
// no external service, always returns the same vector for the same text,
// and keeps lexically similar texts close in cosine space. Quality is far
// below a real model; it exists for tests and offline deployments.
type LocalEmbedder struct{}

var _ Embedder = (*LocalEmbedder)(nil)

// NewLocal creates a LocalEmbedder.
func NewLocal() *LocalEmbedder {
	return &LocalEmbedder{}
}

// Embed embeds a batch of texts.
func (e *LocalEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = hashEmbed(t)
	}
	return vectors, nil
}

// EmbedSingle embeds one text.
func (e *LocalEmbedder) EmbedSingle(_ context.Context, text string) ([]float32, error) {
	return hashEmbed(text), nil
}

// Dimension returns the fixed vector width.
func (e *LocalEmbedder) Dimension() int {
	return localDimension
}

// Fingerprint identifies the provider.
func (e *LocalEmbedder) Fingerprint() string {
	return "local-hash:v1:384"
}

// hashEmbed maps each token to a bucket and sign via FNV-1a, accumulates
// term frequency, and unit-normalizes the result.
func hashEmbed(text string) []float32 {
	vec := make([]float32, localDimension)
	for _, token := range textutil.Tokenize(text) {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()
		idx := int(sum % localDimension)
		sign := float32(1)
		if (sum>>32)&1 == 1 {
			sign = -1
		}
		vec[idx] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}
