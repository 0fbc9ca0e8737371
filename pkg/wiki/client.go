// Package wiki provides a thin HTTP client over a Confluence-style wiki
// API: list pages in a space, fetch a page, and convert its storage-format
// HTML body to Markdown, grounded on the Confluence source connector this
// module's spec was distilled from.
package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Page is one wiki page, content already converted to Markdown.
type Page struct {
	ID      string
	Title   string
	Markdown string
}

// Client lists and fetches pages from a wiki space over HTTP, Basic-Auth
// (email + API token) per Confluence Cloud convention.
type Client interface {
	ListPages(ctx context.Context, space string) ([]Page, error)
	GetPage(ctx context.Context, pageID string) (Page, error)
}

type httpClient struct {
	http   *http.Client
	baseURL string
	email   string
	token   string
	logger  *slog.Logger
}

// New builds a wiki client. An empty baseURL makes every call return an
// error, so the caller treats an unset wiki source as "not configured"
// rather than crashing; an empty email or token only leaves requests
// unauthenticated.
func New(baseURL, email, token string) Client {
	return &httpClient{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		email:   email,
		token:   token,
		logger:  slog.Default(),
	}
}

func (c *httpClient) setAuth(req *http.Request) {
	if c.email != "" && c.token != "" {
		req.SetBasicAuth(c.email, c.token)
	}
}

type pageListResponse struct {
	Results []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"results"`
}

// ListPages returns up to the first 100 pages of a space, each fetched in
// full via GetPage; a page whose fetch fails is logged and skipped.
func (c *httpClient) ListPages(ctx context.Context, space string) ([]Page, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("wiki client not configured")
	}
	url := fmt.Sprintf("%s/rest/api/content?spaceKey=%s&type=page&limit=100", c.baseURL, space)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list pages in space %q: %w", space, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wiki API returned HTTP %d for space %q", resp.StatusCode, space)
	}

	var parsed pageListResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode page list: %w", err)
	}

	pages := make([]Page, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		full, err := c.GetPage(ctx, r.ID)
		if err != nil {
			c.logger.Warn("wiki: skipping page", "id", r.ID, "err", err)
			continue
		}
		pages = append(pages, full)
	}
	return pages, nil
}

type pageResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  struct {
		Storage struct {
			Value string `json:"value"`
		} `json:"storage"`
	} `json:"body"`
}

// GetPage fetches a single page and converts its storage-format HTML body
// to Markdown.
func (c *httpClient) GetPage(ctx context.Context, pageID string) (Page, error) {
	if c.baseURL == "" {
		return Page{}, fmt.Errorf("wiki client not configured")
	}
	url := fmt.Sprintf("%s/rest/api/content/%s?expand=body.storage", c.baseURL, pageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Page{}, fmt.Errorf("create request: %w", err)
	}
	c.setAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch page %s: %w", pageID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("wiki API returned HTTP %d for page %s", resp.StatusCode, pageID)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("read page body: %w", err)
	}

	var parsed pageResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Page{}, fmt.Errorf("decode page %s: %w", pageID, err)
	}

	return Page{
		ID:       parsed.ID,
		Title:    parsed.Title,
		Markdown: htmlToMarkdown(parsed.Body.Storage.Value),
	}, nil
}

// htmlToMarkdown strips macros/scripts/styles from Confluence storage-format
// HTML and renders a plain-text approximation of Markdown: headings, lists,
// and paragraphs on their own lines. It is intentionally simple — enough to
// give the tree-building LLM readable prose, not a lossless converter.
func htmlToMarkdown(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("ac\\:structured-macro, style, script").Remove()

	var b strings.Builder
	doc.Find("body").Contents().Each(func(_ int, s *goquery.Selection) {
		writeNode(&b, s)
	})
	if b.Len() == 0 {
		// no <body> wrapper (fragment); fall back to whole document text
		return collapseBlankLines(doc.Text())
	}
	return collapseBlankLines(b.String())
}

func writeNode(b *strings.Builder, s *goquery.Selection) {
	for _, n := range s.Nodes {
		sel := goquery.NewDocumentFromNode(n).Selection
		switch n.Data {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			level := strings.Repeat("#", int(n.Data[1]-'0'))
			b.WriteString(level + " " + strings.TrimSpace(sel.Text()) + "\n\n")
		case "li":
			b.WriteString("- " + strings.TrimSpace(sel.Text()) + "\n")
		case "p", "div":
			b.WriteString(strings.TrimSpace(sel.Text()) + "\n\n")
		default:
			if txt := strings.TrimSpace(sel.Text()); txt != "" {
				b.WriteString(txt + "\n")
			}
		}
	}
}

func collapseBlankLines(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	prevBlank := false
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if trimmed == "" {
			if !prevBlank {
				out = append(out, "")
				prevBlank = true
			}
			continue
		}
		out = append(out, trimmed)
		prevBlank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
