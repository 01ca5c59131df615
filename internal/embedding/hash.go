package embedding

import (
	"context"
	"crypto/sha256"
	"math"
)

// HashProvider is the deterministic fallback: each text is reduced to a
// sha256 digest whose bytes are cycled into a fixed-dimension vector in
// [-1, 1], then L2-normalized. Vectors are stable and collision-resistant
// but carry no semantic similarity; they exist so tests and offline
// deployments can exercise the full pipeline.
type HashProvider struct {
	dimension int
}

func NewHashProvider(dimension int) *HashProvider {
	if dimension <= 0 {
		dimension = HashDimension
	}
	return &HashProvider{dimension: dimension}
}

func (p *HashProvider) Name() string { return "hash" }

func (p *HashProvider) Dimension() int { return p.dimension }

func (p *HashProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = p.embedOne(text)
	}
	return vectors, nil
}

func (p *HashProvider) embedOne(text string) []float32 {
	digest := sha256.Sum256([]byte(text))

	vec := make([]float32, 0, p.dimension)
	for len(vec) < p.dimension {
		for _, b := range digest {
			vec = append(vec, float32(b)/255.0*2-1)
			if len(vec) == p.dimension {
				break
			}
		}
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		norm = 1
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
