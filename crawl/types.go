// Package crawl provides keyword-filtered breadth-first web crawling with
// durable per-URL state.
//
// Every discovered URL gets one record (pending → success|failed) in an
// SQLite-backed link store; pages are rendered to markdown and HTML
// artifacts on disk. Crawls are resumable: in-flight work is never
// persisted, so whatever was unfinished is simply pending and can be
// redispatched.
package crawl

import (
	"database/sql"

	"github.com/hazyhaar/crawld/crawl/internal/frontier"
	"github.com/hazyhaar/crawld/crawl/internal/store"
)

// Re-export store types for public API.
type (
	LinkRecord = store.LinkRecord
	ListFilter = store.ListFilter
	CrawlStats = store.CrawlStats
	Progress   = frontier.Progress
)

// Link statuses.
const (
	StatusPending = store.StatusPending
	StatusSuccess = store.StatusSuccess
	StatusFailed  = store.StatusFailed
)

// ApplySchema creates the link table and indexes on db. Idempotent.
func ApplySchema(db *sql.DB) error {
	return store.ApplySchema(db)
}
