package dto

type UploadResponse struct {
	Status   string `json:"status"`
	FileName string `json:"file_name"`
	Message  string `json:"message,omitempty"`
}

type RebuildResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type DeleteDocumentResponse struct {
	Status   string `json:"status"`
	FileName string `json:"file_name"`
	Message  string `json:"message,omitempty"`
}

type ScrapeRequest struct {
	URL      string `json:"url"`
	TenantID string `json:"tenant_id"`
}

type ScrapeResponse struct {
	Status   string `json:"status"`
	FileName string `json:"file_name"`
	Message  string `json:"message,omitempty"`
}

type DebugMatch struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

type DebugKnowledgeResponse struct {
	Query        string       `json:"query"`
	FoundMatches int          `json:"found_matches"`
	Results      []DebugMatch `json:"results"`
}
