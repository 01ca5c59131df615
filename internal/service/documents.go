package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var supportedExtensions = map[string]bool{
	".txt":  true,
	".pdf":  true,
	".docx": true,
}

// SupportedDocument reports whether filename has an indexable extension.
func SupportedDocument(filename string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// ListDocuments returns the basenames of all supported documents in dir,
// sorted by name. The filesystem is the source of truth for what a tenant
// owns; there is no separate manifest.
func ListDocuments(dir string) []string {
	names := make([]string, 0)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return names
	}
	for _, entry := range entries {
		if entry.IsDir() || !SupportedDocument(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	return names
}

// SaveUploadedFile writes an uploaded document into dir, overwriting any
// existing file with the same name. Returns the full path.
func SaveUploadedFile(content io.Reader, filename, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating documents directory: %w", err)
	}

	// Base strips any path components a client may smuggle into the name.
	path := filepath.Join(dir, filepath.Base(filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, content); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// DeleteDocumentFile removes filename from dir. Returns false when the file
// does not exist.
func DeleteDocumentFile(filename, dir string) bool {
	path := filepath.Join(dir, filepath.Base(filename))
	if _, err := os.Stat(path); err != nil {
		return false
	}
	return os.Remove(path) == nil
}
