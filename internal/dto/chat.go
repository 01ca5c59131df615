package dto

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CompletionRequest struct {
	Prompt           string  `json:"prompt"`
	MaxTokens        int     `json:"max_tokens"`
	Temperature      float64 `json:"temperature"`
	Persona          string  `json:"persona"`
	UseKnowledgeBase bool    `json:"use_knowledge_base"`
	TenantID         string  `json:"tenant_id"`
}

type CompletionResponse struct {
	Text    string   `json:"text"`
	Sources []string `json:"sources,omitempty"`
}

type ChatRequest struct {
	Messages         []ChatMessage `json:"messages"`
	MaxTokens        int           `json:"max_tokens"`
	Temperature      float64       `json:"temperature"`
	Persona          string        `json:"persona"`
	UseKnowledgeBase bool          `json:"use_knowledge_base"`
	TenantID         string        `json:"tenant_id"`
}

type ChatResponse struct {
	Message ChatMessage `json:"message"`
	Sources []string    `json:"sources,omitempty"`
}
