// WHAT: pipeline tests over a local httptest server: HTML pages become
// title + links + markdown/html artifacts; failures surface as errors.
// WHY: the pipeline is the seam between the traversal and the network;
// its Document fields feed the store verbatim.
package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

// testPipeline builds a Pipeline that accepts loopback URLs (the SSRF
// guard would otherwise reject the httptest server).
func testPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := New(Config{
		OutputDir:    t.TempDir(),
		URLValidator: func(string) error { return nil },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(p.Close)
	return p
}

func TestPipelineFetch_HTMLPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><title>Front Page</title></head><body>
			<h1>Front Page</h1>
			<a href="/news/a">A</a>
			<a href="/news/b">B</a>
		</body></html>`))
	}))
	defer srv.Close()

	p := testPipeline(t)
	doc, err := p.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if doc.Title != "Front Page" {
		t.Errorf("title = %q", doc.Title)
	}
	if len(doc.Links) != 2 {
		t.Errorf("links = %v", doc.Links)
	}
	if !strings.Contains(doc.ContentType, "text/html") {
		t.Errorf("content type = %q", doc.ContentType)
	}
	if doc.FileSize <= 0 {
		t.Errorf("file size = %d", doc.FileSize)
	}

	md, err := os.ReadFile(doc.MarkdownPath)
	if err != nil {
		t.Fatalf("read markdown: %v", err)
	}
	if !strings.Contains(string(md), "Front Page") {
		t.Errorf("markdown missing title text: %q", md)
	}
	htmlBody, err := os.ReadFile(doc.HTMLPath)
	if err != nil {
		t.Fatalf("read html: %v", err)
	}
	if !strings.Contains(string(htmlBody), "<h1>Front Page</h1>") {
		t.Errorf("html artifact altered: %q", htmlBody)
	}
}

func TestPipelineFetch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	p := testPipeline(t)
	_, err := p.Fetch(context.Background(), srv.URL+"/missing")
	if err == nil {
		t.Fatal("expected error on 404")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %v, want http 404", err)
	}
}

func TestPipelineFetch_NonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("just text"))
	}))
	defer srv.Close()

	p := testPipeline(t)
	doc, err := p.Fetch(context.Background(), srv.URL+"/notes.txt")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if doc.MarkdownPath != "" {
		t.Errorf("non-HTML should not produce markdown, got %q", doc.MarkdownPath)
	}
	if doc.HTMLPath == "" {
		t.Error("raw artifact path missing")
	}
	if len(doc.Links) != 0 {
		t.Errorf("links from non-HTML = %v", doc.Links)
	}
	data, err := os.ReadFile(doc.HTMLPath)
	if err != nil || string(data) != "just text" {
		t.Errorf("raw artifact = %q, %v", data, err)
	}
}

func TestPipelineFetch_SSRFBlocked(t *testing.T) {
	// Default validator: loopback targets are refused before any request.
	p, err := New(Config{OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(p.Close)

	_, err = p.Fetch(context.Background(), "http://127.0.0.1:9/admin")
	if err == nil || !strings.Contains(err.Error(), "blocked") {
		t.Errorf("err = %v, want blocked", err)
	}
}
