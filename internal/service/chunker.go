package service

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/StyleAiLabs/lm-studio-api/internal/models"
)

// ChunkText splits a text blob into overlapping, size-bounded chunks.
//
// Paragraphs (blank-line separated) are greedily accumulated while the
// buffer stays within chunkSize characters. When the next paragraph would
// overflow, the buffer is sealed as one chunk and the next buffer is seeded
// with the last chunkOverlap words of the sealed one. A paragraph longer
// than chunkSize is never split mid-paragraph; it becomes its own oversized
// chunk (paragraph atomicity wins over size fidelity).
//
// Chunk ids are deterministic ("{basename(source)}-{sequence}"), so
// re-chunking unchanged content is idempotent.
func ChunkText(text, source string, chunkSize, chunkOverlap int) []models.Chunk {
	base := filepath.Base(source)

	var chunks []models.Chunk
	current := ""
	seq := 0

	seal := func() {
		chunks = append(chunks, models.Chunk{
			ID:     fmt.Sprintf("%s-%d", base, seq),
			Text:   strings.TrimSpace(current),
			Source: source,
		})
		seq++
	}

	for _, paragraph := range strings.Split(text, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		if len(current)+len(paragraph) <= chunkSize {
			current += paragraph + "\n\n"
			continue
		}

		if current != "" {
			seal()
			words := strings.Fields(current)
			if len(words) > chunkOverlap {
				current = strings.Join(words[len(words)-chunkOverlap:], " ") + "\n\n"
			} else {
				current = ""
			}
		}
		current += paragraph + "\n\n"
	}

	if strings.TrimSpace(current) != "" {
		seal()
	}
	return chunks
}
