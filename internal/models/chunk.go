package models

// Chunk is a bounded slice of a document's text, the atomic unit of
// indexing and retrieval. IDs are deterministic per source document:
// "{basename(source)}-{sequence}".
type Chunk struct {
	ID     string
	Text   string
	Source string
}

// KnowledgeStatus reports the state of a tenant's knowledge base. Document
// figures come from a fresh directory listing, vector count from the index;
// after partial failures the two can diverge, which is intentional and
// observable.
type KnowledgeStatus struct {
	DocumentCount int      `json:"document_count"`
	VectorCount   int      `json:"vector_count"`
	Documents     []string `json:"documents"`
}
