package fetch

import (
	"fmt"
	"os"
	"strings"

	"github.com/hazyhaar/crawld/idgen"
	"github.com/hazyhaar/crawld/safeurl"
)

// ArtifactWriter persists crawled pages to disk: one .md and one .html
// per page. Files are written atomically (write .tmp then rename) so a
// reader never sees a partial artifact.
type ArtifactWriter struct {
	dir   string
	newID func() string
}

// NewArtifactWriter targets dir, creating it on first write.
func NewArtifactWriter(dir string) *ArtifactWriter {
	return &ArtifactWriter{dir: dir, newID: idgen.New}
}

// Write stores markdown and html for a page. The filename stem is derived
// from the page title with a unique suffix; the title is untrusted input,
// so the final paths are traversal-checked against the artifact dir.
// Returns the two paths and the combined byte count.
func (w *ArtifactWriter) Write(title, markdown, htmlBody string) (mdPath, htmlPath string, size int64, err error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", "", 0, fmt.Errorf("artifacts: mkdir %s: %w", w.dir, err)
	}

	stem := slugify(title) + "-" + shortID(w.newID())

	mdPath, err = safeurl.SafePath(w.dir, stem+".md")
	if err != nil {
		return "", "", 0, fmt.Errorf("artifacts: %w", err)
	}
	htmlPath, err = safeurl.SafePath(w.dir, stem+".html")
	if err != nil {
		return "", "", 0, fmt.Errorf("artifacts: %w", err)
	}

	if err := writeAtomic(mdPath, []byte(markdown)); err != nil {
		return "", "", 0, err
	}
	if err := writeAtomic(htmlPath, []byte(htmlBody)); err != nil {
		os.Remove(mdPath)
		return "", "", 0, err
	}

	return mdPath, htmlPath, int64(len(markdown) + len(htmlBody)), nil
}

func writeAtomic(target string, data []byte) error {
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("artifacts: write tmp: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("artifacts: rename: %w", err)
	}
	return nil
}

// slugify reduces a title to a filesystem-safe stem: lowercase, runs of
// non-alphanumerics collapsed to single hyphens, capped at 80 bytes.
func slugify(title string) string {
	var sb strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				sb.WriteByte('-')
				lastHyphen = true
			}
		}
		if sb.Len() >= 80 {
			break
		}
	}
	stem := strings.Trim(sb.String(), "-")
	if stem == "" {
		return "page"
	}
	return stem
}

// shortID keeps filenames readable: the first UUID group is enough to
// disambiguate within one artifact dir.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
