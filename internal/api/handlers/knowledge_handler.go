package handlers

import (
	"errors"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/StyleAiLabs/lm-studio-api/internal/dto"
	"github.com/StyleAiLabs/lm-studio-api/internal/service"
	"github.com/StyleAiLabs/lm-studio-api/pkg/config"
)

type KnowledgeHandler struct {
	registry *service.TenantRegistry
	scraper  *service.ScraperService
	cfg      *config.Config
	logger   *zap.Logger
}

func NewKnowledgeHandler(registry *service.TenantRegistry, scraper *service.ScraperService, cfg *config.Config, logger *zap.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{
		registry: registry,
		scraper:  scraper,
		cfg:      cfg,
		logger:   logger,
	}
}

// Upload handles POST /api/knowledge/upload (multipart). The file is stored
// in the tenant's document directory and indexed immediately. A stored but
// unindexable file yields status "warning", not an error: the document is
// on disk and a later rebuild may pick it up.
func (h *KnowledgeHandler) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}
	if !service.SupportedDocument(fileHeader.Filename) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unsupported file type (txt, pdf, docx)"})
	}

	kb, err := h.registry.Get(tenantID(c, c.FormValue("tenant_id")))
	if err != nil {
		h.logger.Error("knowledge base unavailable", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "knowledge base unavailable"})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to open uploaded file"})
	}
	defer src.Close()

	path, err := kb.SaveUpload(src, fileHeader.Filename)
	if err != nil {
		h.logger.Error("failed to save upload", zap.String("file", fileHeader.Filename), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save file"})
	}

	resp := dto.UploadResponse{Status: "success", FileName: fileHeader.Filename}
	if !kb.AddDocument(c.UserContext(), path) {
		resp.Status = "warning"
		resp.Message = "file saved but could not be indexed"
	}
	return c.JSON(resp)
}

// Status handles GET /api/knowledge/status.
func (h *KnowledgeHandler) Status(c *fiber.Ctx) error {
	kb, err := h.registry.Get(tenantID(c, c.Query("tenant_id")))
	if err != nil {
		h.logger.Error("knowledge base unavailable", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "knowledge base unavailable"})
	}
	return c.JSON(kb.Status())
}

// Rebuild handles POST /api/knowledge/rebuild. Partial failures surface as
// status "warning"; the rebuild itself continues across failing documents.
func (h *KnowledgeHandler) Rebuild(c *fiber.Ctx) error {
	kb, err := h.registry.Get(tenantID(c, c.Query("tenant_id")))
	if err != nil {
		h.logger.Error("knowledge base unavailable", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "knowledge base unavailable"})
	}

	if kb.Rebuild(c.UserContext()) {
		return c.JSON(dto.RebuildResponse{Status: "success"})
	}
	return c.JSON(dto.RebuildResponse{
		Status:  "warning",
		Message: "some documents failed to index",
	})
}

// DeleteDocument handles DELETE /api/knowledge/documents/:filename. The
// index is rebuilt afterwards so the document's chunks disappear too.
func (h *KnowledgeHandler) DeleteDocument(c *fiber.Ctx) error {
	filename, err := url.PathUnescape(c.Params("filename"))
	if err != nil || strings.TrimSpace(filename) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "filename is required"})
	}

	kb, err := h.registry.Get(tenantID(c, c.Query("tenant_id")))
	if err != nil {
		h.logger.Error("knowledge base unavailable", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "knowledge base unavailable"})
	}

	if !kb.DeleteDocument(filename) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "document not found"})
	}

	resp := dto.DeleteDocumentResponse{Status: "success", FileName: filename}
	if !kb.Rebuild(c.UserContext()) {
		resp.Status = "warning"
		resp.Message = "document deleted but rebuild reported failures"
	}
	return c.JSON(resp)
}

// Scrape handles POST /api/knowledge/scrape. A policy violation
// (ErrScrapeForbidden) maps to 403; other scrape failures to 502.
func (h *KnowledgeHandler) Scrape(c *fiber.Ctx) error {
	var req dto.ScrapeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.URL) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "url is required"})
	}

	kb, err := h.registry.Get(tenantID(c, req.TenantID))
	if err != nil {
		h.logger.Error("knowledge base unavailable", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "knowledge base unavailable"})
	}

	path, err := h.scraper.Scrape(c.UserContext(), req.URL, kb.DocumentsDir())
	if err != nil {
		if errors.Is(err, service.ErrScrapeForbidden) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
		}
		h.logger.Error("scrape failed", zap.String("url", req.URL), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "failed to scrape url"})
	}

	resp := dto.ScrapeResponse{Status: "success", FileName: filepath.Base(path)}
	if !kb.AddDocument(c.UserContext(), path) {
		resp.Status = "warning"
		resp.Message = "page saved but could not be indexed"
	}
	return c.JSON(resp)
}

// DebugQuery handles GET /debug/knowledge?query=... and exposes raw
// retrieval results for troubleshooting.
func (h *KnowledgeHandler) DebugQuery(c *fiber.Ctx) error {
	query := c.Query("query")
	if strings.TrimSpace(query) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "query is required"})
	}

	kb, err := h.registry.Get(tenantID(c, c.Query("tenant_id")))
	if err != nil {
		h.logger.Error("knowledge base unavailable", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "knowledge base unavailable"})
	}

	contexts, sources := kb.Query(c.UserContext(), query, h.cfg.Knowledge.TopK)
	results := make([]dto.DebugMatch, len(contexts))
	for i := range contexts {
		results[i] = dto.DebugMatch{Text: contexts[i], Source: sources[i]}
	}
	return c.JSON(dto.DebugKnowledgeResponse{
		Query:        query,
		FoundMatches: len(results),
		Results:      results,
	})
}
