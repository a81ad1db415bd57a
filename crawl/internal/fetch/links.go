package fetch

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// ExtractLinks parses HTML and returns the href targets of all anchors,
// resolved against base, restricted to http/https, fragments dropped.
// Relative links on a page are how the frontier grows, so resolution has
// to happen here while the base URL is still known.
func ExtractLinks(body []byte, base *url.URL) []string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				if u := resolveLink(base, attr.Val); u != "" {
					links = append(links, u)
				}
				break
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links
}

// ExtractTitle returns the text of the first <title> element, or "".
func ExtractTitle(body []byte) string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" {
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			title = strings.TrimSpace(sb.String())
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}

var mdLinkRe = regexp.MustCompile(`\[[^\]]*\]\((https?://[^)\s]+)\)`)

// ExtractMarkdownLinks returns the absolute http(s) targets of markdown
// link syntax. The converter sometimes surfaces URLs that anchor parsing
// missed, so both sources feed the frontier.
func ExtractMarkdownLinks(markdown string) []string {
	var links []string
	for _, m := range mdLinkRe.FindAllStringSubmatch(markdown, -1) {
		u, err := url.Parse(m[1])
		if err != nil {
			continue
		}
		u.Fragment = ""
		links = append(links, u.String())
	}
	return links
}

// mergeLinks concatenates link lists, dropping duplicates while keeping
// first-seen order.
func mergeLinks(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, u := range list {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
	}
	return out
}

func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}
