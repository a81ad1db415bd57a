package store

// Link statuses. There is no persisted in-flight state: a crash mid-fetch
// leaves the record at pending, and resume redispatches all pending rows.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// LinkRecord is one row of the crawled_links table.
type LinkRecord struct {
	URL          string `json:"url"`
	Title        string `json:"title,omitempty"`
	Status       string `json:"status"`
	DiscoveredAt int64  `json:"discovered_at"`
	CrawledAt    *int64 `json:"crawled_at,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	MarkdownPath string `json:"markdown_path,omitempty"`
	HTMLPath     string `json:"html_path,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
	ContentType  string `json:"content_type,omitempty"`
}

// ListFilter narrows a List call. Zero value lists everything.
type ListFilter struct {
	// Status filters to one of the Status* constants. Empty = all.
	Status string
	// Search keeps records whose URL or title contains the substring.
	Search string
	// Limit caps the result count. 0 = no cap.
	Limit int
}

// CrawlStats is a point-in-time aggregate over the link table.
type CrawlStats struct {
	Total       int     `json:"total"`
	Pending     int     `json:"pending"`
	Success     int     `json:"success"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`

	RecentDiscovered []*LinkRecord `json:"recent_discovered"`
	RecentCrawled    []*LinkRecord `json:"recent_crawled"`
}
