package embedding_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docintel/internal/docintel/embedding"
)

func norm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

func TestLocalEmbedderDeterministic(t *testing.T) {
	e := embedding.NewLocal()
	ctx := context.Background()

	a, err := e.EmbedSingle(ctx, "invoice total due march")
	require.NoError(t, err)
	b, err := e.EmbedSingle(ctx, "invoice total due march")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestLocalEmbedderUnitNorm(t *testing.T) {
	e := embedding.NewLocal()
	vec, err := e.EmbedSingle(context.Background(), "quarterly revenue report")
	require.NoError(t, err)
	require.Len(t, vec, e.Dimension())
	assert.InDelta(t, 1.0, norm(vec), 1e-5)
}

func TestLocalEmbedderDistinguishesTexts(t *testing.T) {
	e := embedding.NewLocal()
	ctx := context.Background()

	a, err := e.EmbedSingle(ctx, "alpha bravo charlie")
	require.NoError(t, err)
	b, err := e.EmbedSingle(ctx, "delta echo foxtrot")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestLocalEmbedderBatch(t *testing.T) {
	e := embedding.NewLocal()
	vectors, err := e.Embed(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)

	single, err := e.EmbedSingle(context.Background(), "two")
	require.NoError(t, err)
	assert.Equal(t, single, vectors[1])
}

func TestLocalEmbedderEmptyText(t *testing.T) {
	e := embedding.NewLocal()
	vec, err := e.EmbedSingle(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, vec, e.Dimension())
	assert.Zero(t, norm(vec))
}

func TestLocalEmbedderFingerprint(t *testing.T) {
	e := embedding.NewLocal()
	assert.Equal(t, "local-hash:v1:384", e.Fingerprint())
	assert.Equal(t, 384, e.Dimension())
}
