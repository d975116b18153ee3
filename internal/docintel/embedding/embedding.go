// Package embedding produces dense vectors for chunks and queries.
//
// Two providers exist: the Ollama-backed embedder used in production and a
// deterministic local hashing embedder for air-gapped deployments and
// tests. Providers are identified by a fingerprint; the index layer refuses
// to mix vectors from different fingerprints.
package embedding

import "context"

// Embedder converts text into dense vectors. All vectors from one Embedder
// have the same dimension.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedSingle embeds one text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
	// Dimension is the vector width. May be zero before the first call on
	// providers that discover it lazily.
	Dimension() int
	// Fingerprint uniquely identifies the provider and model. Vectors
	// from different fingerprints are never comparable.
	Fingerprint() string
}
