package crawl

import "strings"

// KeywordFilter gates link discovery. A discovered URL passes when it
// contains at least one keyword as a case-insensitive substring. An empty
// filter passes everything. The seed URL is never filtered.
type KeywordFilter struct {
	keywords []string
}

// NewKeywordFilter builds a filter from raw keywords, trimming whitespace,
// lowercasing, and dropping empties.
func NewKeywordFilter(keywords []string) *KeywordFilter {
	f := &KeywordFilter{}
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		f.keywords = append(f.keywords, k)
	}
	return f
}

// ParseKeywords builds a filter from comma-separated text, e.g. "news, tech".
func ParseKeywords(text string) *KeywordFilter {
	return NewKeywordFilter(strings.Split(text, ","))
}

// Match reports whether url passes the filter.
func (f *KeywordFilter) Match(url string) bool {
	if len(f.keywords) == 0 {
		return true
	}
	lower := strings.ToLower(url)
	for _, k := range f.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// Keywords returns the normalized keyword list.
func (f *KeywordFilter) Keywords() []string {
	return f.keywords
}
