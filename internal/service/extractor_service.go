package service

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// ExtractorService converts stored documents into a single text blob.
// Supported types: plain text, PDF and Word (.docx). An unsupported
// extension is a skip signal ("", nil), not an error; callers treat any
// failure as "skip this document".
type ExtractorService struct {
	logger *zap.Logger
}

func NewExtractorService(logger *zap.Logger) *ExtractorService {
	return &ExtractorService{logger: logger}
}

// ExtractText extracts the full text of the file at path.
func (s *ExtractorService) ExtractText(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
		return sanitizeUTF8(string(data)), nil

	case ".pdf":
		return s.extractPDF(path)

	case ".docx":
		return s.extractDOCX(path)

	default:
		s.logger.Warn("unsupported file type", zap.String("file", path), zap.String("ext", ext))
		return "", nil
	}
}

// extractPDF concatenates per-page text in page order, each page followed by
// a newline. Pages that fail to extract are skipped.
func (s *ExtractorService) extractPDF(path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF %s: %w", path, err)
	}
	defer doc.Close()

	var text strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			s.logger.Warn("failed to extract PDF page",
				zap.String("file", path),
				zap.Int("page", i+1),
				zap.Error(err),
			)
			continue
		}
		text.WriteString(pageText)
		text.WriteString("\n")
	}
	return sanitizeUTF8(text.String()), nil
}

// extractDOCX reads word/document.xml from the .docx archive and joins
// paragraph runs, keeping a blank line between paragraphs so the chunker
// sees the document's paragraph structure.
func (s *ExtractorService) extractDOCX(path string) (string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("opening DOCX %s: %w", path, err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("opening document.xml in %s: %w", path, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("reading document.xml in %s: %w", path, err)
		}
		return parseDocumentXML(content)
	}
	return "", fmt.Errorf("no word/document.xml in %s", path)
}

type wordDocument struct {
	Body struct {
		Paragraphs []wordParagraph `xml:"p"`
	} `xml:"body"`
}

type wordParagraph struct {
	Runs []wordRun `xml:"r"`
}

type wordRun struct {
	Text []wordText `xml:"t"`
}

type wordText struct {
	Content string `xml:",chardata"`
}

func parseDocumentXML(content []byte) (string, error) {
	var doc wordDocument
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("parsing document.xml: %w", err)
	}

	var text strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			text.WriteString("\n\n")
		}
		for _, run := range para.Runs {
			for _, t := range run.Text {
				text.WriteString(t.Content)
			}
		}
	}
	return strings.TrimSpace(text.String()), nil
}
