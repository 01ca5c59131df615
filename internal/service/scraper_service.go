package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/StyleAiLabs/lm-studio-api/pkg/config"
)

// ErrScrapeForbidden signals a crawling policy violation: the site's
// robots.txt disallows the page, or the server refused the request. Unlike
// other pipeline failures this one propagates to the boundary, since the
// caller must react to it differently from a generic fetch error.
var ErrScrapeForbidden = errors.New("scraping forbidden")

// ScraperService fetches a web page, strips it down to text and stores it
// as a .txt document in a tenant's document directory. From there the page
// is just another document for the knowledge base.
type ScraperService struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

func NewScraperService(cfg *config.ScraperConfig, logger *zap.Logger) *ScraperService {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &ScraperService{
		client:    &http.Client{Timeout: timeout},
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// Scrape fetches rawURL and writes its text content into outputDir. Returns
// the path of the written file.
func (s *ScraperService) Scrape(ctx context.Context, rawURL, outputDir string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid URL %q", rawURL)
	}

	if err := s.checkRobots(ctx, parsed); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		return "", fmt.Errorf("%w: %s refused with %s", ErrScrapeForbidden, rawURL, resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: %s", rawURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", rawURL, err)
	}
	doc.Find("script, style, noscript").Remove()

	text := cleanPageText(doc)
	if text == "" {
		return "", fmt.Errorf("no text content at %s", rawURL)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(outputDir, scrapeFilename(parsed))
	content := fmt.Sprintf("Source URL: %s\n\n%s", rawURL, text)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("saving scraped page: %w", err)
	}

	s.logger.Info("scraped page saved",
		zap.String("url", rawURL),
		zap.String("file", filepath.Base(path)),
		zap.Int("chars", len(text)),
	)
	return path, nil
}

// checkRobots consults the site's robots.txt. An unreachable or unparsable
// robots.txt permits the fetch; an explicit disallow is a policy violation.
func (s *ScraperService) checkRobots(ctx context.Context, page *url.URL) error {
	robotsURL := page.Scheme + "://" + page.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}

	path := page.Path
	if path == "" {
		path = "/"
	}
	if !robots.TestAgent(path, s.userAgent) {
		return fmt.Errorf("%w: robots.txt disallows %s", ErrScrapeForbidden, page.String())
	}
	return nil
}

// cleanPageText flattens the page body to text, dropping blank lines and
// joining the rest with blank lines so paragraphs survive chunking.
func cleanPageText(doc *goquery.Document) string {
	sel := doc.Find("body")
	if sel.Length() == 0 {
		sel = doc.Selection
	}

	var lines []string
	for _, line := range strings.Split(sel.Text(), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n\n")
}

// scrapeFilename derives a stable document name from the page URL, e.g.
// https://www.example.com/about/team -> example.com_about_team.txt
func scrapeFilename(page *url.URL) string {
	domain := strings.TrimPrefix(page.Host, "www.")
	path := strings.ReplaceAll(strings.Trim(page.Path, "/"), "/", "_")
	if path == "" {
		path = "homepage"
	}
	return domain + "_" + path + ".txt"
}
