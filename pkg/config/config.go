package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	LMStudio  LMStudioConfig
	Knowledge KnowledgeConfig
	Embedding EmbeddingConfig
	Scraper   ScraperConfig
	Logger    LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LMStudioConfig points at an OpenAI-compatible completion/chat endpoint.
// Offline mode replaces every call with a canned stub response, which keeps
// the rest of the pipeline testable without a running model server.
type LMStudioConfig struct {
	BaseURL     string
	Timeout     time.Duration
	Offline     bool
	MaxTokens   int
	Temperature float64
}

type KnowledgeConfig struct {
	DocumentsDir    string
	VectorstoreDir  string
	ChunkSize       int
	ChunkOverlap    int
	TopK            int
	MaxContextChars int
	// QueryFallback keeps the "never return nothing if anything is indexed"
	// policy switchable. See repository.VectorRepository.Query.
	QueryFallback bool
}

type EmbeddingConfig struct {
	Model   string
	BaseURL string
	Timeout time.Duration
	// FastStart skips the remote embedding probe and goes straight to the
	// deterministic hash provider.
	FastStart bool
}

type ScraperConfig struct {
	UserAgent string
	Timeout   time.Duration
}

func Load() (*Config, error) {
	// .env is optional; plain environment variables work for Docker/K8s
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "30"))
	llmTimeout, _ := strconv.Atoi(getEnv("LM_STUDIO_TIMEOUT", "120"))
	maxTokens, _ := strconv.Atoi(getEnv("LLM_MAX_TOKENS", "200"))
	temperature, _ := strconv.ParseFloat(getEnv("LLM_TEMPERATURE", "0.7"), 64)
	chunkSize, _ := strconv.Atoi(getEnv("CHUNK_SIZE", "1000"))
	chunkOverlap, _ := strconv.Atoi(getEnv("CHUNK_OVERLAP", "100"))
	topK, _ := strconv.Atoi(getEnv("RAG_TOP_K", "3"))
	maxContextChars, _ := strconv.Atoi(getEnv("MAX_CONTEXT_CHARS", "2000"))
	embedTimeout, _ := strconv.Atoi(getEnv("EMBEDDINGS_TIMEOUT", "30"))
	scrapeTimeout, _ := strconv.Atoi(getEnv("SCRAPER_TIMEOUT", "10"))

	lmStudioURL := getEnv("LM_STUDIO_URL", "http://localhost:1234/v1")

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("API_PORT", "8000"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		LMStudio: LMStudioConfig{
			BaseURL:     lmStudioURL,
			Timeout:     time.Duration(llmTimeout) * time.Second,
			Offline:     getEnv("OFFLINE_MODE", "0") == "1",
			MaxTokens:   maxTokens,
			Temperature: temperature,
		},
		Knowledge: KnowledgeConfig{
			DocumentsDir:    getEnv("DOCUMENTS_DIR", "./data/documents"),
			VectorstoreDir:  getEnv("VECTORSTORE_DIR", "./data/vectorstore"),
			ChunkSize:       chunkSize,
			ChunkOverlap:    chunkOverlap,
			TopK:            topK,
			MaxContextChars: maxContextChars,
			QueryFallback:   getEnv("KNOWLEDGE_QUERY_FALLBACK", "1") == "1",
		},
		Embedding: EmbeddingConfig{
			Model:     getEnv("EMBEDDING_MODEL", "all-MiniLM-L6-v2"),
			BaseURL:   getEnv("EMBEDDINGS_URL", lmStudioURL),
			Timeout:   time.Duration(embedTimeout) * time.Second,
			FastStart: getEnv("FAST_START", "0") == "1",
		},
		Scraper: ScraperConfig{
			UserAgent: getEnv("SCRAPER_USER_AGENT", "Mozilla/5.0 (compatible; lm-studio-api/1.0)"),
			Timeout:   time.Duration(scrapeTimeout) * time.Second,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
