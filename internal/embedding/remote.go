package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/StyleAiLabs/lm-studio-api/pkg/config"
)

// RemoteProvider calls an OpenAI-compatible /embeddings endpoint (LM Studio
// serves one) with a configurable model name. Construction probes the
// endpoint so that an unreachable model is detected at startup rather than
// on the first upload.
type RemoteProvider struct {
	baseURL   string
	model     string
	client    *http.Client
	dimension int
}

func NewRemoteProvider(cfg *config.EmbeddingConfig) (*RemoteProvider, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	p := &RemoteProvider{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
	}

	// Probe with a single short input; this also discovers the dimension.
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	vectors, err := p.Embed(ctx, []string{"ping"})
	if err != nil {
		return nil, fmt.Errorf("probing embedding model %q: %w", cfg.Model, err)
	}
	p.dimension = len(vectors[0])
	return p, nil
}

func (p *RemoteProvider) Name() string { return "remote" }

func (p *RemoteProvider) Dimension() int { return p.dimension }

func (p *RemoteProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(map[string]any{
		"model": p.model,
		"input": texts,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embeddings request failed: %s: %s", resp.Status, bytes.TrimSpace(body))
	}

	var out struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding embeddings response: %w", err)
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings response has %d vectors for %d inputs", len(out.Data), len(texts))
	}

	// The API is free to reorder; the index field is authoritative.
	vectors := make([][]float32, len(texts))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("embeddings response index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("missing embedding for input %d", i)
		}
	}
	return vectors, nil
}
