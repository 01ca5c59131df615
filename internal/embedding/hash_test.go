package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/StyleAiLabs/lm-studio-api/pkg/config"
)

func TestHashProvider_Deterministic(t *testing.T) {
	p := NewHashProvider(HashDimension)

	first, err := p.Embed(context.Background(), []string{"the return policy"})
	require.NoError(t, err)
	second, err := p.Embed(context.Background(), []string{"the return policy"})
	require.NoError(t, err)

	assert.Equal(t, first, second, "same text must yield bit-identical vectors")
}

func TestHashProvider_DimensionAndNorm(t *testing.T) {
	p := NewHashProvider(HashDimension)

	vectors, err := p.Embed(context.Background(), []string{"a", "some longer text", ""})
	require.NoError(t, err)
	require.Len(t, vectors, 3)

	for _, v := range vectors {
		require.Len(t, v, HashDimension)

		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6, "vectors must be L2-normalized")
	}
}

func TestHashProvider_DistinctTexts(t *testing.T) {
	p := NewHashProvider(HashDimension)

	vectors, err := p.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.NotEqual(t, vectors[0], vectors[1])
}

func TestHashProvider_ValueRange(t *testing.T) {
	p := NewHashProvider(HashDimension)

	vectors, err := p.Embed(context.Background(), []string{"range check"})
	require.NoError(t, err)
	for _, x := range vectors[0] {
		assert.GreaterOrEqual(t, x, float32(-1))
		assert.LessOrEqual(t, x, float32(1))
	}
}

func TestNewProvider_FastStartUsesHash(t *testing.T) {
	cfg := &config.EmbeddingConfig{Model: "all-MiniLM-L6-v2", FastStart: true}

	p := NewProvider(cfg, zap.NewNop())
	assert.Equal(t, "hash", p.Name())
	assert.Equal(t, HashDimension, p.Dimension())
}

func TestNewProvider_FallsBackWhenRemoteUnreachable(t *testing.T) {
	cfg := &config.EmbeddingConfig{
		Model:   "all-MiniLM-L6-v2",
		BaseURL: "http://127.0.0.1:1", // nothing listens here
	}

	p := NewProvider(cfg, zap.NewNop())
	assert.Equal(t, "hash", p.Name())
}
