package fetch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestArtifactWriter_WritesBothFiles(t *testing.T) {
	// WHAT: Write produces a .md and a .html under the artifact dir and
	// reports their combined size.
	// WHY: Both renditions are part of the record the store points at.
	dir := t.TempDir()
	w := NewArtifactWriter(dir)

	md, html, size, err := w.Write("My Page", "# My Page\n", "<h1>My Page</h1>")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if size != int64(len("# My Page\n")+len("<h1>My Page</h1>")) {
		t.Errorf("size = %d", size)
	}
	for _, p := range []string{md, html} {
		if !strings.HasPrefix(p, dir+string(filepath.Separator)) {
			t.Errorf("path %q escapes %q", p, dir)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		if len(data) == 0 {
			t.Errorf("%s is empty", p)
		}
	}
	if !strings.HasSuffix(md, ".md") || !strings.HasSuffix(html, ".html") {
		t.Errorf("extensions wrong: %q %q", md, html)
	}
	// No leftover temp files.
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}

func TestArtifactWriter_HostileTitles(t *testing.T) {
	// WHAT: Titles with path separators, dots, and unicode produce safe
	// filenames inside the artifact dir.
	// WHY: Titles come from crawled pages and are attacker-controlled.
	dir := t.TempDir()
	w := NewArtifactWriter(dir)

	titles := []string{
		"../../etc/passwd",
		"/absolute/path",
		"nulls\x00and\ttabs",
		"日本語タイトル",
		"",
	}
	for _, title := range titles {
		md, html, _, err := w.Write(title, "body", "<p>body</p>")
		if err != nil {
			t.Fatalf("Write(%q): %v", title, err)
		}
		for _, p := range []string{md, html} {
			rel, err := filepath.Rel(dir, p)
			if err != nil || strings.HasPrefix(rel, "..") {
				t.Errorf("Write(%q) produced path %q outside %q", title, p, dir)
			}
			if strings.ContainsAny(filepath.Base(p), " \x00\t/") {
				t.Errorf("unsafe filename %q for title %q", filepath.Base(p), title)
			}
		}
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Hello, World!", "hello-world"},
		{"  spaced   out  ", "spaced-out"},
		{"MiXeD CaSe 123", "mixed-case-123"},
		{"", "page"},
		{"!!!", "page"},
	}
	for _, tc := range cases {
		if got := slugify(tc.in); got != tc.want {
			t.Errorf("slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
