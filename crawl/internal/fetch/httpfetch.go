package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hazyhaar/crawld/safeurl"
)

// httpResult is one plain HTTP retrieval.
type httpResult struct {
	Body        []byte
	StatusCode  int
	ContentType string
}

// httpFetcher performs bounded GET requests with SSRF validation on the
// initial URL and on every redirect hop.
type httpFetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	validate  func(string) error
}

func newHTTPFetcher(timeout time.Duration, maxBytes int64, userAgent string, validate func(string) error) *httpFetcher {
	return &httpFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				if err := validate(req.URL.String()); err != nil {
					return fmt.Errorf("redirect blocked: %w", err)
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
		validate:  validate,
	}
}

func (f *httpFetcher) get(ctx context.Context, url string) (*httpResult, error) {
	if err := f.validate(url); err != nil {
		return nil, fmt.Errorf("URL blocked: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}

	body, err := safeurl.LimitedReadAll(resp.Body, f.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &httpResult{
		Body:        body,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
