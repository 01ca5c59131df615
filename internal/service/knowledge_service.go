package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/StyleAiLabs/lm-studio-api/internal/embedding"
	"github.com/StyleAiLabs/lm-studio-api/internal/models"
	"github.com/StyleAiLabs/lm-studio-api/internal/repository"
	"github.com/StyleAiLabs/lm-studio-api/pkg/config"
)

// KnowledgeBase orchestrates the retrieval pipeline for one tenant:
// extract -> chunk -> embed -> index. It owns the tenant's document
// directory and vector collection; directory and collection names derive
// from the tenant id so a restart reattaches to existing data.
//
// Structural mutations (AddDocument, Rebuild, DeleteDocument) hold the
// write lock; Query and Status run under the read lock. A query issued
// during a rebuild may see stale or partial results but never crashes.
type KnowledgeBase struct {
	tenantID     string
	documentsDir string
	cfg          *config.KnowledgeConfig
	extractor    *ExtractorService
	vectors      *repository.VectorRepository
	logger       *zap.Logger

	mu sync.RWMutex
}

// NewKnowledgeBase creates the tenant's directories and opens its vector
// collection ("knowledge_{tenant}").
func NewKnowledgeBase(tenantID string, cfg *config.KnowledgeConfig, provider embedding.Provider, logger *zap.Logger) (*KnowledgeBase, error) {
	tenantID = NormalizeTenant(tenantID)
	log := logger.With(zap.String("tenant", tenantID))
	log.Info("initializing knowledge base")

	documentsDir := filepath.Join(cfg.DocumentsDir, tenantID)
	vectorstoreDir := filepath.Join(cfg.VectorstoreDir, tenantID)
	for _, dir := range []string{documentsDir, vectorstoreDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	vectors, err := repository.NewVectorRepository(
		vectorstoreDir,
		"knowledge_"+tenantID,
		tenantID,
		provider,
		cfg.QueryFallback,
		log,
	)
	if err != nil {
		return nil, err
	}

	return &KnowledgeBase{
		tenantID:     tenantID,
		documentsDir: documentsDir,
		cfg:          cfg,
		extractor:    NewExtractorService(log),
		vectors:      vectors,
		logger:       log,
	}, nil
}

func (kb *KnowledgeBase) TenantID() string { return kb.tenantID }

// DocumentsDir is where uploads and scraped pages for this tenant land.
func (kb *KnowledgeBase) DocumentsDir() string { return kb.documentsDir }

// AddDocument extracts, chunks and indexes one document. It returns false
// (never an error) when nothing could be extracted or indexed.
func (kb *KnowledgeBase) AddDocument(ctx context.Context, path string) bool {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	return kb.addDocument(ctx, path)
}

func (kb *KnowledgeBase) addDocument(ctx context.Context, path string) bool {
	text, err := kb.extractor.ExtractText(path)
	if err != nil {
		kb.logger.Warn("text extraction failed", zap.String("file", path), zap.Error(err))
		return false
	}
	if strings.TrimSpace(text) == "" {
		kb.logger.Warn("no text extracted", zap.String("file", path))
		return false
	}

	chunks := ChunkText(text, path, kb.cfg.ChunkSize, kb.cfg.ChunkOverlap)
	if len(chunks) == 0 {
		kb.logger.Warn("no chunks produced", zap.String("file", path))
		return false
	}

	if err := kb.vectors.Upsert(ctx, chunks); err != nil {
		kb.logger.Error("failed to index chunks", zap.String("file", path), zap.Error(err))
		return false
	}

	kb.logger.Info("document indexed", zap.String("file", path), zap.Int("chunks", len(chunks)))
	return true
}

// Rebuild resets the index and re-adds every document currently in the
// tenant's document directory. Failures on individual documents do not stop
// the rebuild; the return value is false if any document failed.
func (kb *KnowledgeBase) Rebuild(ctx context.Context) bool {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	if err := kb.vectors.Reset(); err != nil {
		kb.logger.Error("failed to reset vector collection", zap.Error(err))
		return false
	}

	documents := ListDocuments(kb.documentsDir)
	kb.logger.Info("rebuilding knowledge base", zap.Int("documents", len(documents)))

	ok := true
	for _, name := range documents {
		if !kb.addDocument(ctx, filepath.Join(kb.documentsDir, name)) {
			kb.logger.Warn("document failed during rebuild", zap.String("file", name))
			ok = false
		}
	}
	return ok
}

// Query returns up to k relevant contexts with their sources, most relevant
// first. k <= 0 uses the configured default. Never returns an error.
func (kb *KnowledgeBase) Query(ctx context.Context, text string, k int) ([]string, []string) {
	if k <= 0 {
		k = kb.cfg.TopK
	}
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.vectors.Query(ctx, text, k)
}

// Status reports document and vector counts. Document figures come from a
// fresh directory listing; they can diverge from the vector count after
// partial failures, which is intentional and observable.
func (kb *KnowledgeBase) Status() models.KnowledgeStatus {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	documents := ListDocuments(kb.documentsDir)
	return models.KnowledgeStatus{
		DocumentCount: len(documents),
		VectorCount:   kb.vectors.Count(),
		Documents:     documents,
	}
}

// SaveUpload stores an uploaded document in the tenant's directory,
// overwriting any file of the same name.
func (kb *KnowledgeBase) SaveUpload(content io.Reader, filename string) (string, error) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	return SaveUploadedFile(content, filename, kb.documentsDir)
}

// DeleteDocument removes a document file. The index is not touched here;
// callers run Rebuild to drop the document's chunks.
func (kb *KnowledgeBase) DeleteDocument(filename string) bool {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	return DeleteDocumentFile(filename, kb.documentsDir)
}
