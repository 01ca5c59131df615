package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/StyleAiLabs/lm-studio-api/internal/dto"
	"github.com/StyleAiLabs/lm-studio-api/pkg/config"
)

// LLMService talks to an OpenAI-compatible text-completion/chat endpoint
// (LM Studio). The endpoint is treated as an opaque, fallible, synchronous
// collaborator. Offline mode answers every call with a stub so the rest of
// the system can run without a model server.
type LLMService struct {
	baseURL string
	offline bool
	client  *http.Client
	logger  *zap.Logger
}

func NewLLMService(cfg *config.LMStudioConfig, logger *zap.Logger) *LLMService {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	if cfg.Offline {
		logger.Warn("OFFLINE_MODE enabled: LLM calls return stub responses")
	}
	return &LLMService{
		baseURL: cfg.BaseURL,
		offline: cfg.Offline,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// GenerateCompletion sends a plain completion request and returns the
// generated text.
func (s *LLMService) GenerateCompletion(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	if s.offline {
		return "[OFFLINE MODE] No model server connected; this is a stub completion.", nil
	}

	payload := map[string]any{
		"prompt":      prompt,
		"max_tokens":  maxTokens,
		"temperature": temperature,
		"stream":      false,
	}

	var out struct {
		Choices []struct {
			Text string `json:"text"`
		} `json:"choices"`
	}
	if err := s.post(ctx, "/completions", payload, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}
	return out.Choices[0].Text, nil
}

// GenerateChatCompletion sends a chat request and returns the assistant
// message content.
func (s *LLMService) GenerateChatCompletion(ctx context.Context, messages []dto.ChatMessage, maxTokens int, temperature float64) (string, error) {
	if s.offline {
		return "[OFFLINE MODE] No model server connected; this is a stub chat reply.", nil
	}

	payload := map[string]any{
		"messages":    messages,
		"max_tokens":  maxTokens,
		"temperature": temperature,
		"stream":      false,
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := s.post(ctx, "/chat/completions", payload, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chat response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}

func (s *LLMService) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling LM Studio %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("LM Studio %s returned %s: %s", path, resp.Status, bytes.TrimSpace(detail))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding LM Studio response: %w", err)
	}

	s.logger.Debug("LLM call completed",
		zap.String("path", path),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}
