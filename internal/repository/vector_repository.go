package repository

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/StyleAiLabs/lm-studio-api/internal/embedding"
	"github.com/StyleAiLabs/lm-studio-api/internal/models"
)

// VectorRepository wraps one persistent chromem-go collection holding the
// chunk vectors of a single tenant. The collection lives under the tenant's
// vectorstore directory, so a process restart reattaches to existing data
// with no explicit load step.
//
// Query and Count never propagate storage errors to callers; a broken index
// degrades to empty results so the ungrounded answer path keeps working.
type VectorRepository struct {
	db       *chromem.DB
	name     string
	tenantID string
	provider embedding.Provider
	fallback bool
	logger   *zap.Logger

	mu   sync.Mutex
	coll *chromem.Collection
}

// NewVectorRepository opens (or creates) the persistent store in dir and
// ensures the tenant's collection exists.
func NewVectorRepository(dir, collectionName, tenantID string, provider embedding.Provider, queryFallback bool, logger *zap.Logger) (*VectorRepository, error) {
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("opening vector store at %s: %w", dir, err)
	}

	r := &VectorRepository{
		db:       db,
		name:     collectionName,
		tenantID: tenantID,
		provider: provider,
		fallback: queryFallback,
		logger:   logger,
	}
	if _, err := r.ensureReady(); err != nil {
		return nil, err
	}
	return r, nil
}

// embeddingFunc adapts the batch Provider contract to chromem's
// one-text-at-a-time embedding hook, used for query embeddings.
func (r *VectorRepository) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vectors, err := r.provider.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vectors) == 0 {
			return nil, fmt.Errorf("provider returned no vector")
		}
		return vectors[0], nil
	}
}

// ensureReady idempotently opens-or-creates the collection. It is called
// before every operation to tolerate lazy initialization and rebuild races.
func (r *VectorRepository) ensureReady() (*chromem.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ensureReadyLocked()
}

func (r *VectorRepository) ensureReadyLocked() (*chromem.Collection, error) {
	if r.coll != nil {
		return r.coll, nil
	}
	coll, err := r.db.GetOrCreateCollection(r.name, map[string]string{"tenant": r.tenantID}, r.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("ensuring collection %s: %w", r.name, err)
	}
	r.coll = coll
	r.logger.Info("vector collection ready",
		zap.String("collection", r.name),
		zap.Int("count", coll.Count()),
	)
	return coll, nil
}

// Upsert adds or overwrites entries keyed by chunk id, storing the chunk
// text, its source path and the embedding computed via the provider.
func (r *VectorRepository) Upsert(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	coll, err := r.ensureReady()
	if err != nil {
		return err
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := r.provider.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("provider returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:        chunk.ID,
			Content:   chunk.Text,
			Embedding: vectors[i],
			Metadata:  map[string]string{"source": chunk.Source},
		}
	}
	if err := coll.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("adding %d documents to %s: %w", len(docs), r.name, err)
	}
	return nil
}

// Query returns the top-k most similar chunks with their sources, most
// similar first. It never returns an error: storage failures are logged and
// converted to an empty result.
//
// Policy: when the index is non-empty but similarity search produced
// nothing, one arbitrary stored chunk is returned instead of an empty
// result. This guards against embedding-provider quirks at the cost of
// masking genuine "no relevant match" signals; it can be disabled via
// KNOWLEDGE_QUERY_FALLBACK=0.
func (r *VectorRepository) Query(ctx context.Context, text string, k int) ([]string, []string) {
	coll, err := r.ensureReady()
	if err != nil {
		r.logger.Error("vector query failed", zap.String("collection", r.name), zap.Error(err))
		return nil, nil
	}

	count := coll.Count()
	if count == 0 {
		return nil, nil
	}
	if k <= 0 {
		k = 1
	}
	if k > count {
		k = count
	}

	results, err := coll.Query(ctx, text, k, nil, nil)
	if err != nil {
		r.logger.Error("vector query failed",
			zap.String("collection", r.name),
			zap.String("query", text),
			zap.Error(err),
		)
		return r.fallbackResult(ctx, coll)
	}
	if len(results) == 0 {
		r.logger.Warn("no matching chunks found", zap.String("collection", r.name), zap.String("query", text))
		return r.fallbackResult(ctx, coll)
	}

	contexts := make([]string, len(results))
	sources := make([]string, len(results))
	for i, res := range results {
		contexts[i] = res.Content
		sources[i] = res.Metadata["source"]
		if sources[i] == "" {
			sources[i] = "Unknown"
		}
	}
	return contexts, sources
}

// fallbackResult fetches one arbitrary stored chunk via a fixed probe
// vector, bypassing the embedding provider entirely.
func (r *VectorRepository) fallbackResult(ctx context.Context, coll *chromem.Collection) ([]string, []string) {
	if !r.fallback {
		return nil, nil
	}
	dim := r.provider.Dimension()
	if dim <= 0 {
		dim = embedding.HashDimension
	}
	probe := make([]float32, dim)
	probe[0] = 1

	results, err := coll.QueryEmbedding(ctx, probe, 1, nil, nil)
	if err != nil || len(results) == 0 {
		r.logger.Error("fallback document lookup failed", zap.String("collection", r.name), zap.Error(err))
		return nil, nil
	}
	r.logger.Info("returning fallback document", zap.String("collection", r.name))
	source := results[0].Metadata["source"]
	if source == "" {
		source = "Unknown"
	}
	return []string{results[0].Content}, []string{source}
}

// Count returns the number of indexed entries, or zero when the collection
// cannot be opened.
func (r *VectorRepository) Count() int {
	coll, err := r.ensureReady()
	if err != nil {
		r.logger.Error("vector count failed", zap.String("collection", r.name), zap.Error(err))
		return 0
	}
	return coll.Count()
}

// Reset deletes and recreates the collection. Safe to call whether or not
// the collection currently exists.
func (r *VectorRepository) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.db.DeleteCollection(r.name); err != nil {
		return fmt.Errorf("deleting collection %s: %w", r.name, err)
	}
	r.coll = nil
	_, err := r.ensureReadyLocked()
	return err
}
