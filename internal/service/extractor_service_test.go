package service

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeDOCX(t *testing.T, paragraphs []string) string {
	t.Helper()

	xml := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`
	for _, p := range paragraphs {
		xml += `<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`
	}
	xml += `</w:body></w:document>`

	path := filepath.Join(t.TempDir(), "doc.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(xml))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestExtractText_TXT(t *testing.T) {
	s := NewExtractorService(zap.NewNop())

	path := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text content"), 0o644))

	text, err := s.ExtractText(path)
	require.NoError(t, err)
	assert.Equal(t, "plain text content", text)
}

func TestExtractText_TXTSanitizesInvalidUTF8(t *testing.T) {
	s := NewExtractorService(zap.NewNop())

	path := filepath.Join(t.TempDir(), "broken.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello \xff\xfe world"), 0o644))

	text, err := s.ExtractText(path)
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(text))
	assert.Contains(t, text, "hello")
	assert.Contains(t, text, "world")
}

func TestExtractText_DOCX(t *testing.T) {
	s := NewExtractorService(zap.NewNop())
	path := writeDOCX(t, []string{"First paragraph.", "Second paragraph."})

	text, err := s.ExtractText(path)
	require.NoError(t, err)
	assert.Equal(t, "First paragraph.\n\nSecond paragraph.", text)
}

func TestExtractText_DOCXWithoutDocumentXML(t *testing.T) {
	s := NewExtractorService(zap.NewNop())

	path := filepath.Join(t.TempDir(), "broken.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/styles.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<styles/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = s.ExtractText(path)
	assert.Error(t, err)
}

func TestExtractText_UnsupportedExtensionIsSkip(t *testing.T) {
	s := NewExtractorService(zap.NewNop())

	path := filepath.Join(t.TempDir(), "image.png")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 0x50}, 0o644))

	text, err := s.ExtractText(path)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtractText_MissingFile(t *testing.T) {
	s := NewExtractorService(zap.NewNop())

	_, err := s.ExtractText(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestListDocuments(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.bin"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "subdir"), 0o755))

	docs := ListDocuments(dir)
	assert.ElementsMatch(t, []string{"a.pdf", "b.txt"}, docs)
}

func TestListDocuments_MissingDir(t *testing.T) {
	docs := ListDocuments(filepath.Join(t.TempDir(), "absent"))
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestSupportedDocument(t *testing.T) {
	assert.True(t, SupportedDocument("a.txt"))
	assert.True(t, SupportedDocument("a.PDF"))
	assert.True(t, SupportedDocument("report.docx"))
	assert.False(t, SupportedDocument("a.doc"))
	assert.False(t, SupportedDocument("archive.zip"))
}
