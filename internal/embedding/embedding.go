// Package embedding maps batches of chunk texts to fixed-dimension vectors.
//
// Two interchangeable providers exist: a remote semantic model reached over
// an OpenAI-compatible endpoint, and a deterministic hash-based fallback that
// works offline. Consumers never know which one is in use.
package embedding

import (
	"context"

	"go.uber.org/zap"

	"github.com/StyleAiLabs/lm-studio-api/pkg/config"
)

// HashDimension is the vector size produced by the fallback provider, chosen
// to match the all-MiniLM-L6-v2 output size so stores built with either
// provider have compatible shapes.
const HashDimension = 384

// Provider converts texts into embedding vectors, one vector per input text,
// order-preserving.
type Provider interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// NewProvider selects the embedding provider for a knowledge base. It tries
// the remote semantic model first and falls back to deterministic hash
// embeddings when the model is unreachable, so an embedding outage never
// aborts startup. FastStart skips the remote probe entirely.
func NewProvider(cfg *config.EmbeddingConfig, logger *zap.Logger) Provider {
	if cfg.FastStart {
		logger.Warn("FAST_START enabled: using non-semantic hash embeddings")
		return NewHashProvider(HashDimension)
	}

	remote, err := NewRemoteProvider(cfg)
	if err != nil {
		logger.Error("remote embedding model unavailable, falling back to hash embeddings",
			zap.String("model", cfg.Model),
			zap.Error(err),
		)
		return NewHashProvider(HashDimension)
	}

	logger.Info("using remote embedding model",
		zap.String("model", cfg.Model),
		zap.Int("dimension", remote.Dimension()),
	)
	return remote
}
