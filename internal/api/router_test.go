package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/StyleAiLabs/lm-studio-api/internal/api/handlers"
	"github.com/StyleAiLabs/lm-studio-api/internal/dto"
	"github.com/StyleAiLabs/lm-studio-api/internal/models"
	"github.com/StyleAiLabs/lm-studio-api/internal/service"
	"github.com/StyleAiLabs/lm-studio-api/pkg/config"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		LMStudio: config.LMStudioConfig{Offline: true, MaxTokens: 200, Temperature: 0.7},
		Knowledge: config.KnowledgeConfig{
			DocumentsDir:    filepath.Join(root, "documents"),
			VectorstoreDir:  filepath.Join(root, "vectorstore"),
			ChunkSize:       1000,
			ChunkOverlap:    100,
			TopK:            3,
			MaxContextChars: 2000,
			QueryFallback:   true,
		},
		Embedding: config.EmbeddingConfig{Model: "all-MiniLM-L6-v2", FastStart: true},
		Scraper:   config.ScraperConfig{UserAgent: "test-agent"},
	}
	log := zap.NewNop()

	registry := service.NewTenantRegistry(cfg, log)
	llm := service.NewLLMService(&cfg.LMStudio, log)
	scraper := service.NewScraperService(&cfg.Scraper, log)

	return SetupRouter(
		handlers.NewChatHandler(registry, llm, cfg, log),
		handlers.NewKnowledgeHandler(registry, scraper, cfg, log),
		log,
	)
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, header map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func uploadFile(t *testing.T, app *fiber.App, filename, content, tenant string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/knowledge/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if tenant != "" {
		req.Header.Set("X-Tenant-Id", tenant)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "healthy")
}

func TestCompletion_Offline(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/completion",
		dto.CompletionRequest{Prompt: "hello"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out dto.CompletionResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Contains(t, out.Text, "OFFLINE")
	assert.Empty(t, out.Sources)
}

func TestCompletion_MissingPrompt(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/completion",
		dto.CompletionRequest{}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCompletion_GroundedReportsSources(t *testing.T) {
	app := newTestApp(t)

	resp := uploadFile(t, app, "policy.txt", "Items can be returned within 30 days.", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	respC, body := doJSON(t, app, http.MethodPost, "/api/completion",
		dto.CompletionRequest{Prompt: "What is the return policy?", UseKnowledgeBase: true}, nil)
	require.Equal(t, http.StatusOK, respC.StatusCode)

	var out dto.CompletionResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotEmpty(t, out.Sources)
	assert.Equal(t, "policy.txt", filepath.Base(out.Sources[0]))
}

func TestChat_Offline(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/chat",
		dto.ChatRequest{Messages: []dto.ChatMessage{{Role: "user", Content: "hi"}}}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out dto.ChatResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "assistant", out.Message.Role)
	assert.Contains(t, out.Message.Content, "OFFLINE")
}

func TestChat_MissingMessages(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/chat", dto.ChatRequest{}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestKnowledgeLifecycle(t *testing.T) {
	app := newTestApp(t)

	resp := uploadFile(t, app, "policy.txt", "Items can be returned within 30 days.", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	respS, body := doJSON(t, app, http.MethodGet, "/api/knowledge/status", nil, nil)
	require.Equal(t, http.StatusOK, respS.StatusCode)
	var status models.KnowledgeStatus
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, 1, status.DocumentCount)
	assert.Equal(t, 1, status.VectorCount)
	assert.Equal(t, []string{"policy.txt"}, status.Documents)

	respD, body := doJSON(t, app, http.MethodGet, "/debug/knowledge?query=return+policy", nil, nil)
	require.Equal(t, http.StatusOK, respD.StatusCode)
	var debug dto.DebugKnowledgeResponse
	require.NoError(t, json.Unmarshal(body, &debug))
	assert.Equal(t, 1, debug.FoundMatches)

	respR, body := doJSON(t, app, http.MethodPost, "/api/knowledge/rebuild", nil, nil)
	require.Equal(t, http.StatusOK, respR.StatusCode)
	assert.Contains(t, string(body), "success")

	respDel, _ := doJSON(t, app, http.MethodDelete, "/api/knowledge/documents/policy.txt", nil, nil)
	assert.Equal(t, http.StatusOK, respDel.StatusCode)

	respDel2, _ := doJSON(t, app, http.MethodDelete, "/api/knowledge/documents/policy.txt", nil, nil)
	assert.Equal(t, http.StatusNotFound, respDel2.StatusCode)

	_, body = doJSON(t, app, http.MethodGet, "/api/knowledge/status", nil, nil)
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, 0, status.DocumentCount)
	assert.Equal(t, 0, status.VectorCount)
}

func TestKnowledgeUpload_UnsupportedType(t *testing.T) {
	app := newTestApp(t)

	resp := uploadFile(t, app, "virus.exe", "nope", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTenantHeaderIsolation(t *testing.T) {
	app := newTestApp(t)

	resp := uploadFile(t, app, "acme.txt", "Acme ships worldwide.", "acme")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body := doJSON(t, app, http.MethodGet, "/api/knowledge/status", nil,
		map[string]string{"X-Tenant-Id": "acme"})
	var acme models.KnowledgeStatus
	require.NoError(t, json.Unmarshal(body, &acme))
	assert.Equal(t, 1, acme.DocumentCount)

	_, body = doJSON(t, app, http.MethodGet, "/api/knowledge/status", nil, nil)
	var def models.KnowledgeStatus
	require.NoError(t, json.Unmarshal(body, &def))
	assert.Equal(t, 0, def.DocumentCount)
}

func TestScrape_BadRequest(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/knowledge/scrape",
		dto.ScrapeRequest{}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
