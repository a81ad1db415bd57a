package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hazyhaar/crawld/dbopen"
)

// CountsByStatus returns the number of records per status. Statuses with
// zero records are present in the map with value 0.
func (s *Store) CountsByStatus(ctx context.Context) (map[string]int, error) {
	counts := map[string]int{
		StatusPending: 0,
		StatusSuccess: 0,
		StatusFailed:  0,
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM crawled_links GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counts by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// Stats builds a consistent snapshot of the link table: per-status counts,
// success rate over attempted records, and the most recent discoveries and
// crawls. All reads happen inside one transaction so concurrent writers
// cannot skew the totals against the recent lists.
func (s *Store) Stats(ctx context.Context, recentLimit int) (*CrawlStats, error) {
	if recentLimit <= 0 {
		recentLimit = 10
	}
	stats := &CrawlStats{
		RecentDiscovered: []*LinkRecord{},
		RecentCrawled:    []*LinkRecord{},
	}
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT status, COUNT(*) FROM crawled_links GROUP BY status`)
		if err != nil {
			return err
		}
		for rows.Next() {
			var status string
			var n int
			if err := rows.Scan(&status, &n); err != nil {
				rows.Close()
				return err
			}
			switch status {
			case StatusPending:
				stats.Pending = n
			case StatusSuccess:
				stats.Success = n
			case StatusFailed:
				stats.Failed = n
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		stats.Total = stats.Pending + stats.Success + stats.Failed

		recent, err := queryLinks(ctx, tx,
			`SELECT url, title, status, discovered_at, crawled_at, error_message,
			markdown_path, html_path, file_size, content_type
			FROM crawled_links ORDER BY discovered_at DESC LIMIT ?`, recentLimit)
		if err != nil {
			return err
		}
		stats.RecentDiscovered = recent

		crawled, err := queryLinks(ctx, tx,
			`SELECT url, title, status, discovered_at, crawled_at, error_message,
			markdown_path, html_path, file_size, content_type
			FROM crawled_links WHERE crawled_at IS NOT NULL
			ORDER BY crawled_at DESC LIMIT ?`, recentLimit)
		if err != nil {
			return err
		}
		stats.RecentCrawled = crawled
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	if attempted := stats.Success + stats.Failed; attempted > 0 {
		stats.SuccessRate = float64(stats.Success) / float64(attempted)
	}
	return stats, nil
}

func queryLinks(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]*LinkRecord, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	links := []*LinkRecord{}
	for rows.Next() {
		rec, err := scanLink(rows.Scan)
		if err != nil {
			return nil, err
		}
		links = append(links, rec)
	}
	return links, rows.Err()
}
