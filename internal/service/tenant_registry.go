package service

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/StyleAiLabs/lm-studio-api/internal/embedding"
	"github.com/StyleAiLabs/lm-studio-api/pkg/config"
)

// DefaultTenant is used whenever a request does not carry a tenant id.
const DefaultTenant = "default"

// migrationFlagFile marks the one-time move from the pre-multi-tenant flat
// layout into per-tenant subdirectories.
const migrationFlagFile = ".migrated_flag"

// NormalizeTenant maps empty/blank tenant ids to DefaultTenant.
func NormalizeTenant(tenantID string) string {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return DefaultTenant
	}
	return tenantID
}

// TenantRegistry lazily constructs and caches one KnowledgeBase per tenant
// id. Construction is single-flighted so two concurrent first requests for
// a new tenant cannot race each other into conflicting directory or
// collection state.
type TenantRegistry struct {
	cfg      *config.Config
	provider embedding.Provider
	logger   *zap.Logger

	mu    sync.RWMutex
	kbs   map[string]*KnowledgeBase
	group singleflight.Group
}

// NewTenantRegistry runs the one-time layout migration and selects the
// embedding provider shared by all tenants.
func NewTenantRegistry(cfg *config.Config, logger *zap.Logger) *TenantRegistry {
	migrateFlatLayout(cfg.Knowledge.DocumentsDir, cfg.Knowledge.VectorstoreDir, logger)

	return &TenantRegistry{
		cfg:      cfg,
		provider: embedding.NewProvider(&cfg.Embedding, logger),
		logger:   logger,
		kbs:      make(map[string]*KnowledgeBase),
	}
}

// Get returns the tenant's knowledge base, constructing it on first access.
// At most one constructor call happens per tenant id for the lifetime of
// the process.
func (r *TenantRegistry) Get(tenantID string) (*KnowledgeBase, error) {
	tid := NormalizeTenant(tenantID)

	r.mu.RLock()
	kb, ok := r.kbs[tid]
	r.mu.RUnlock()
	if ok {
		return kb, nil
	}

	v, err, _ := r.group.Do(tid, func() (any, error) {
		r.mu.RLock()
		kb, ok := r.kbs[tid]
		r.mu.RUnlock()
		if ok {
			return kb, nil
		}

		kb, err := NewKnowledgeBase(tid, &r.cfg.Knowledge, r.provider, r.logger)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.kbs[tid] = kb
		r.mu.Unlock()
		return kb, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*KnowledgeBase), nil
}

// migrateFlatLayout moves documents and vector data that predate
// multi-tenancy (stored directly under the root directories) into the
// default tenant's subdirectories. A flag file makes this a one-shot step;
// errors are logged and leave the flag unwritten so the next start retries.
func migrateFlatLayout(documentsDir, vectorstoreDir string, logger *zap.Logger) {
	flagPath := filepath.Join(documentsDir, migrationFlagFile)
	if _, err := os.Stat(flagPath); err == nil {
		return
	}
	if err := os.MkdirAll(documentsDir, 0o755); err != nil {
		logger.Error("migration: cannot create documents directory", zap.Error(err))
		return
	}

	entries, err := os.ReadDir(documentsDir)
	if err != nil {
		logger.Error("migration: cannot list documents directory", zap.Error(err))
		return
	}

	var directFiles []string
	hasEntries := false
	for _, entry := range entries {
		if entry.Name() == migrationFlagFile {
			continue
		}
		hasEntries = true
		if !entry.IsDir() {
			directFiles = append(directFiles, entry.Name())
		}
	}

	// Already laid out per tenant (subdirectories only): just mark done.
	if len(directFiles) == 0 && hasEntries {
		if err := os.WriteFile(flagPath, []byte("already structured"), 0o644); err != nil {
			logger.Error("migration: cannot write flag file", zap.Error(err))
		}
		return
	}

	defaultDocs := filepath.Join(documentsDir, DefaultTenant)
	if err := os.MkdirAll(defaultDocs, 0o755); err != nil {
		logger.Error("migration: cannot create default documents directory", zap.Error(err))
		return
	}
	for _, name := range directFiles {
		if err := os.Rename(filepath.Join(documentsDir, name), filepath.Join(defaultDocs, name)); err != nil {
			logger.Error("migration: cannot move document", zap.String("file", name), zap.Error(err))
			return
		}
	}

	defaultVec := filepath.Join(vectorstoreDir, DefaultTenant)
	if err := os.MkdirAll(defaultVec, 0o755); err != nil {
		logger.Error("migration: cannot create default vectorstore directory", zap.Error(err))
		return
	}
	vecEntries, err := os.ReadDir(vectorstoreDir)
	if err == nil {
		for _, entry := range vecEntries {
			if entry.Name() == DefaultTenant {
				continue
			}
			target := filepath.Join(defaultVec, entry.Name())
			if _, err := os.Stat(target); err == nil {
				continue
			}
			if err := os.Rename(filepath.Join(vectorstoreDir, entry.Name()), target); err != nil {
				logger.Error("migration: cannot move vector data", zap.String("entry", entry.Name()), zap.Error(err))
				return
			}
		}
	}

	if err := os.WriteFile(flagPath, []byte("migrated"), 0o644); err != nil {
		logger.Error("migration: cannot write flag file", zap.Error(err))
		return
	}
	if len(directFiles) > 0 {
		logger.Info("migrated flat layout into default tenant", zap.Int("documents", len(directFiles)))
	}
}
