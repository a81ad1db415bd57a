// Package fetch turns a URL into stored artifacts: retrieve the page
// (plain HTTP or headless Chrome), extract the title and outbound links,
// sanitize the HTML, convert it to markdown, and write both renditions to
// disk atomically.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/crawld/safeurl"
)

// Document is the outcome of fetching one page.
type Document struct {
	Title        string
	MarkdownPath string
	HTMLPath     string
	FileSize     int64
	ContentType  string
	Links        []string
}

// Config configures the pipeline.
type Config struct {
	Timeout  time.Duration // per-page fetch timeout. Default: 30s.
	MaxBytes int64         // max response body size. Default: 10MB.
	// UserAgent sent with plain HTTP requests.
	UserAgent string
	// OutputDir receives the .md and .html artifacts.
	OutputDir string
	// UseBrowser renders pages through headless Chrome instead of plain
	// HTTP. Needed for JS-built sites; much heavier per page.
	UseBrowser bool
	// BrowserURL is the WebSocket URL of an external Chrome. Empty with
	// UseBrowser launches a local instance.
	BrowserURL string
	// URLValidator validates URLs before fetch (SSRF prevention).
	// Default: safeurl.ValidateURL.
	URLValidator func(string) error

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024 // 10MB
	}
	if c.UserAgent == "" {
		c.UserAgent = "crawld/1.0"
	}
	if c.OutputDir == "" {
		c.OutputDir = "crawled_pages"
	}
	if c.URLValidator == nil {
		c.URLValidator = safeurl.ValidateURL
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Pipeline fetches and persists pages.
type Pipeline struct {
	cfg         Config
	http        *httpFetcher
	browser     *Browser
	writer      *ArtifactWriter
	sanitizer   *bluemonday.Policy
	mdConverter *converter.Converter
}

// New builds a Pipeline. When cfg.UseBrowser is set, Chrome is launched
// (or connected) here so the first fetch does not pay the startup cost.
func New(cfg Config) (*Pipeline, error) {
	cfg.defaults()

	p := &Pipeline{
		cfg:       cfg,
		http:      newHTTPFetcher(cfg.Timeout, cfg.MaxBytes, cfg.UserAgent, cfg.URLValidator),
		writer:    NewArtifactWriter(cfg.OutputDir),
		sanitizer: bluemonday.UGCPolicy(),
		mdConverter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}

	if cfg.UseBrowser {
		b, err := NewBrowser(cfg.BrowserURL, cfg.Timeout, cfg.Logger)
		if err != nil {
			return nil, fmt.Errorf("fetch: %w", err)
		}
		p.browser = b
	}

	return p, nil
}

// Close releases the browser if one was started.
func (p *Pipeline) Close() {
	if p.browser != nil {
		p.browser.Close()
	}
}

// Fetch retrieves pageURL and writes its artifacts. Any returned error
// describes a per-page failure; the caller decides whether that is fatal.
func (p *Pipeline) Fetch(ctx context.Context, pageURL string) (*Document, error) {
	baseURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	body, contentType, err := p.retrieve(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	if !isHTML(contentType) {
		// Non-HTML resource (PDF, image, plain text): store the raw
		// bytes, no link extraction, no markdown.
		title := path.Base(baseURL.Path)
		if title == "" || title == "/" || title == "." {
			title = baseURL.Host
		}
		_, rawPath, size, err := p.writer.Write(title, "", string(body))
		if err != nil {
			return nil, err
		}
		return &Document{
			Title:       title,
			HTMLPath:    rawPath,
			FileSize:    size,
			ContentType: contentType,
		}, nil
	}

	title := ExtractTitle(body)
	if title == "" {
		title = baseURL.Host + baseURL.Path
	}
	clean := p.sanitizer.Sanitize(string(body))
	markdown := p.htmlToMarkdown(clean, pageURL)
	links := mergeLinks(ExtractLinks(body, baseURL), ExtractMarkdownLinks(markdown))

	mdPath, htmlPath, size, err := p.writer.Write(title, markdown, string(body))
	if err != nil {
		return nil, err
	}

	return &Document{
		Title:        title,
		MarkdownPath: mdPath,
		HTMLPath:     htmlPath,
		FileSize:     size,
		ContentType:  contentType,
		Links:        links,
	}, nil
}

func (p *Pipeline) retrieve(ctx context.Context, pageURL string) ([]byte, string, error) {
	if p.browser != nil {
		if err := p.cfg.URLValidator(pageURL); err != nil {
			return nil, "", fmt.Errorf("URL blocked: %w", err)
		}
		html, err := p.browser.FetchHTML(ctx, pageURL)
		if err != nil {
			return nil, "", err
		}
		return []byte(html), "text/html", nil
	}

	res, err := p.http.get(ctx, pageURL)
	if err != nil {
		return nil, "", err
	}
	return res.Body, res.ContentType, nil
}

// htmlToMarkdown converts sanitized HTML to markdown. If conversion fails
// or produces empty output, the sanitized HTML is kept as a fallback so
// the markdown artifact is never empty for a fetched page.
func (p *Pipeline) htmlToMarkdown(html, sourceURL string) string {
	if html == "" {
		return ""
	}
	result, err := p.mdConverter.ConvertString(html, converter.WithDomain(sourceURL))
	if err != nil || strings.TrimSpace(result) == "" {
		return html
	}
	return strings.TrimSpace(result)
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}
