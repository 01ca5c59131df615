package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/StyleAiLabs/lm-studio-api/internal/dto"
	"github.com/StyleAiLabs/lm-studio-api/internal/models"
	"github.com/StyleAiLabs/lm-studio-api/internal/service"
	"github.com/StyleAiLabs/lm-studio-api/pkg/config"
)

type ChatHandler struct {
	registry *service.TenantRegistry
	llm      *service.LLMService
	cfg      *config.Config
	logger   *zap.Logger
}

func NewChatHandler(registry *service.TenantRegistry, llm *service.LLMService, cfg *config.Config, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		registry: registry,
		llm:      llm,
		cfg:      cfg,
		logger:   logger,
	}
}

// CreateCompletion handles POST /api/completion. With use_knowledge_base
// set, the prompt is grounded in retrieved chunks; retrieval failures
// degrade to an ungrounded completion rather than an error.
func (h *ChatHandler) CreateCompletion(c *fiber.Ctx) error {
	var req dto.CompletionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "prompt is required"})
	}

	persona := models.GetPersona(req.Persona)
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = h.cfg.LMStudio.MaxTokens
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = persona.Temperature
	}

	prompt := req.Prompt
	var sources []string
	if req.UseKnowledgeBase {
		tenant := tenantID(c, req.TenantID)
		kb, err := h.registry.Get(tenant)
		if err != nil {
			h.logger.Error("knowledge base unavailable", zap.String("tenant", tenant), zap.Error(err))
		} else {
			contexts, srcs := kb.Query(c.UserContext(), req.Prompt, h.cfg.Knowledge.TopK)
			if len(contexts) > 0 {
				prompt = service.BuildKnowledgePrompt(contexts, req.Prompt, req.Persona, h.cfg.Knowledge.MaxContextChars)
				sources = srcs
			}
		}
	}

	text, err := h.llm.GenerateCompletion(c.UserContext(), prompt, maxTokens, temperature)
	if err != nil {
		h.logger.Error("completion failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "language model request failed"})
	}

	return c.JSON(dto.CompletionResponse{Text: text, Sources: sources})
}

// CreateChatCompletion handles POST /api/chat. The latest user message
// drives retrieval when the knowledge base is enabled.
func (h *ChatHandler) CreateChatCompletion(c *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if len(req.Messages) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "messages are required"})
	}

	persona := models.GetPersona(req.Persona)
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = h.cfg.LMStudio.MaxTokens
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = persona.Temperature
	}

	messages := service.BuildChatMessages(req.Messages, req.Persona)
	var sources []string
	if req.UseKnowledgeBase {
		if query := lastUserMessage(req.Messages); query != "" {
			tenant := tenantID(c, req.TenantID)
			kb, err := h.registry.Get(tenant)
			if err != nil {
				h.logger.Error("knowledge base unavailable", zap.String("tenant", tenant), zap.Error(err))
			} else {
				contexts, srcs := kb.Query(c.UserContext(), query, h.cfg.Knowledge.TopK)
				if len(contexts) > 0 {
					messages = service.BuildKnowledgeChatMessages(contexts, req.Messages, req.Persona, h.cfg.Knowledge.MaxContextChars)
					sources = srcs
				}
			}
		}
	}

	content, err := h.llm.GenerateChatCompletion(c.UserContext(), messages, maxTokens, temperature)
	if err != nil {
		h.logger.Error("chat completion failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "language model request failed"})
	}

	return c.JSON(dto.ChatResponse{
		Message: dto.ChatMessage{Role: "assistant", Content: content},
		Sources: sources,
	})
}

func lastUserMessage(messages []dto.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

// tenantID resolves the tenant for a request: X-Tenant-Id header first,
// then the body field, defaulting to "default".
func tenantID(c *fiber.Ctx, bodyTenant string) string {
	if t := strings.TrimSpace(c.Get("X-Tenant-Id")); t != "" {
		return t
	}
	return service.NormalizeTenant(bodyTenant)
}
