package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/courtside-ai/courtside/internal/llm"
	"github.com/courtside-ai/courtside/internal/util"
)

const (
	defaultTimeout = 60 * time.Second
	maxBody        = 10 << 20 // 10MB
	maxRedirects   = 10
	scraperUA      = "Courtside/1.0 (Scraper)"
)

// Service fetches pages and turns them into markdown documents. An optional
// LLM provider runs a noise-removal pass over the converted markdown; when
// it is nil or fails, the raw conversion is used.
type Service struct {
	client        *http.Client
	store         *Store
	provider      llm.Provider
	maxContentLen int // rune cap on stored content, 0 = unlimited
}

// NewService builds a service with a hardened HTTP client: explicit timeout
// and redirect limit, never http.DefaultClient.
func NewService(store *Store, provider llm.Provider, timeout time.Duration, maxContentLen int) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects (%d)", maxRedirects)
				}
				return nil
			},
		},
		store:         store,
		provider:      provider,
		maxContentLen: maxContentLen,
	}
}

// Scrape fetches rawURL, converts it to markdown, optionally cleans it with
// the LLM, and persists the entry. On fetch failure the returned entry
// carries the error status and is not persisted.
func (s *Service) Scrape(ctx context.Context, rawURL, conversationID string) (*Entry, error) {
	entry := &Entry{
		ID:             uuid.New(),
		URL:            rawURL,
		ConversationID: conversationID,
		Status:         StatusLoading,
		LastUpdated:    time.Now(),
	}
	log.Printf("[Scraper] Fetching %s", rawURL)

	markdown, err := s.fetchMarkdown(ctx, rawURL)
	if err != nil {
		entry.Status = StatusError
		entry.Error = err.Error()
		return entry, fmt.Errorf("scrape %s: %w", rawURL, err)
	}
	entry.RawContent = markdown

	content := markdown
	if s.provider != nil {
		cleaned, err := llm.RemoveWebpageNoise(ctx, s.provider, markdown)
		if err != nil {
			// Cleaning is best-effort; the raw markdown is still usable.
			log.Printf("[Scraper] Noise removal failed for %s, keeping raw markdown: %v", rawURL, err)
		} else {
			content = cleaned
		}
	}
	if s.maxContentLen > 0 && len([]rune(content)) > s.maxContentLen {
		log.Printf("[Scraper] Content for %s exceeds %d runes, truncating", rawURL, s.maxContentLen)
		content = util.TruncateRunes(content, s.maxContentLen)
	}

	entry.Content = content
	entry.Status = StatusComplete
	entry.LastUpdated = time.Now()

	if err := s.store.Save(entry); err != nil {
		return entry, err
	}
	log.Printf("[Scraper] Stored %s as %s (%d chars)", rawURL, entry.ID, len(content))
	return entry, nil
}

// Entry returns a stored entry by ID; (nil, nil) when unknown.
func (s *Service) Entry(id uuid.UUID) (*Entry, error) { return s.store.Load(id) }

// ConversationEntries lists a conversation's stored entries.
func (s *Service) ConversationEntries(conversationID string) ([]Entry, error) {
	return s.store.ByConversation(conversationID)
}

// Delete removes a stored entry. Missing entries are a no-op.
func (s *Service) Delete(id uuid.UUID) error { return s.store.Delete(id) }

// fetchMarkdown downloads a page and converts its HTML to markdown.
func (s *Service) fetchMarkdown(ctx context.Context, rawURL string) (string, error) {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return "", fmt.Errorf("URL must start with http:// or https://")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", scraperUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	limited := io.LimitReader(resp.Body, maxBody)

	// Auto-detect charset and transcode to UTF-8.
	utf8Reader, err := charset.NewReaderLabel(headerCharset(resp.Header.Get("Content-Type")), limited)
	if err != nil {
		utf8Reader = limited // assume UTF-8
	}

	doc, err := html.Parse(utf8Reader)
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}
	stripNonContent(doc)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return "", fmt.Errorf("re-render HTML: %w", err)
	}

	markdown, err := htmltomarkdown.ConvertString(buf.String())
	if err != nil || strings.TrimSpace(markdown) == "" {
		// Fall back to plain text extraction so a conversion hiccup never
		// loses the page outright.
		if text := strings.TrimSpace(collectText(doc)); text != "" {
			log.Printf("[Scraper] Markdown conversion failed for %s, using plain text: %v", rawURL, err)
			return text, nil
		}
		if err == nil {
			err = fmt.Errorf("conversion produced empty markdown")
		}
		return "", fmt.Errorf("convert to markdown: %w", err)
	}
	return markdown, nil
}

// headerCharset extracts the charset value from a Content-Type header.
// Example: "text/html; charset=gbk" -> "gbk". Empty when absent
// (charset.NewReaderLabel then defaults to UTF-8).
func headerCharset(contentType string) string {
	for _, part := range strings.Split(contentType, ";") {
		part = strings.TrimSpace(strings.ToLower(part))
		if strings.HasPrefix(part, "charset=") {
			return strings.TrimPrefix(part, "charset=")
		}
	}
	return ""
}

// stripNonContent removes script and style subtrees in place.
func stripNonContent(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.ElementNode && (c.Data == "script" || c.Data == "style" || c.Data == "noscript") {
			n.RemoveChild(c)
			continue
		}
		stripNonContent(c)
	}
}

// collectText gathers the document's text nodes separated by blank lines.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				sb.WriteString(t)
				sb.WriteString("\n\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
