// Link mutations: the dedup gate, the per-attempt status transitions, and
// the explicit failed→pending reset. Every write is a single conditional
// statement so concurrent sessions never serialize behind a global lock.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hazyhaar/crawld/dbopen"
)

// UpsertPending inserts a pending record for url if it is unseen.
// Returns created=false without touching the row when the URL already
// exists in any status. This is the dedup gate: the conflict target makes
// it atomic under concurrent discovery of the same URL.
func (s *Store) UpsertPending(ctx context.Context, url string) (bool, error) {
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO crawled_links (url, status, discovered_at)
		VALUES (?, ?, ?)
		ON CONFLICT(url) DO NOTHING`,
		url, StatusPending, time.Now().UnixMilli())
	if err != nil {
		return false, fmt.Errorf("upsert pending: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert pending: %w", err)
	}
	return n > 0, nil
}

// MarkSuccess transitions an existing record to success, populating the
// artifact metadata and clearing any prior error.
func (s *Store) MarkSuccess(ctx context.Context, url, title, markdownPath, htmlPath string, fileSize int64, contentType string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE crawled_links
		SET status=?, title=?, crawled_at=?, markdown_path=?, html_path=?,
		    file_size=?, content_type=?, error_message=''
		WHERE url=?`,
		StatusSuccess, title, time.Now().UnixMilli(), markdownPath, htmlPath,
		fileSize, contentType, url)
	if err != nil {
		return fmt.Errorf("mark success: %w", err)
	}
	return requireRow(res, url)
}

// MarkFailed transitions an existing record to failed with the given message.
func (s *Store) MarkFailed(ctx context.Context, url, errMsg string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE crawled_links
		SET status=?, crawled_at=?, error_message=?
		WHERE url=?`,
		StatusFailed, time.Now().UnixMilli(), errMsg, url)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return requireRow(res, url)
}

// ResetToPending moves a failed record back to pending, clearing the error
// message. discovered_at is left untouched. This is the only allowed status
// regression; any other current status is ErrInvalidTransition.
func (s *Store) ResetToPending(ctx context.Context, url string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE crawled_links
		SET status=?, error_message=''
		WHERE url=? AND status=?`,
		StatusPending, url, StatusFailed)
	if err != nil {
		return fmt.Errorf("reset to pending: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reset to pending: %w", err)
	}
	if n > 0 {
		return nil
	}
	rec, err := s.Get(ctx, url)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	return fmt.Errorf("%w: %s is %s, not %s", ErrInvalidTransition, url, rec.Status, StatusFailed)
}

// ResetAllFailed resets every failed record to pending inside one
// transaction and returns the affected URLs ordered by discovery time.
// No failed records is a no-op returning an empty list.
func (s *Store) ResetAllFailed(ctx context.Context) ([]string, error) {
	var urls []string
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT url FROM crawled_links WHERE status=? ORDER BY discovered_at ASC`,
			StatusFailed)
		if err != nil {
			return err
		}
		defer rows.Close()
		urls = urls[:0]
		for rows.Next() {
			var u string
			if err := rows.Scan(&u); err != nil {
				return err
			}
			urls = append(urls, u)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if len(urls) == 0 {
			return nil
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE crawled_links SET status=?, error_message='' WHERE status=?`,
			StatusPending, StatusFailed)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reset all failed: %w", err)
	}
	if urls == nil {
		urls = []string{}
	}
	return urls, nil
}

// Get retrieves a record by URL, or nil if unseen.
func (s *Store) Get(ctx context.Context, url string) (*LinkRecord, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT url, title, status, discovered_at, crawled_at, error_message,
		markdown_path, html_path, file_size, content_type
		FROM crawled_links WHERE url = ?`, url)
	rec, err := scanLink(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// List returns records matching the filter, newest discovery first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]*LinkRecord, error) {
	query := `SELECT url, title, status, discovered_at, crawled_at, error_message,
		markdown_path, html_path, file_size, content_type
		FROM crawled_links WHERE 1=1`
	var args []any
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.Search != "" {
		query += ` AND (url LIKE ? OR title LIKE ?)`
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY discovered_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
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

// PendingURLs returns all pending URLs oldest-first, for resume.
func (s *Store) PendingURLs(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT url FROM crawled_links WHERE status=? ORDER BY discovered_at ASC`,
		StatusPending)
	if err != nil {
		return nil, fmt.Errorf("pending urls: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// ClearAll empties the link table. Administrative reset only — the crawl
// itself never calls this.
func (s *Store) ClearAll(ctx context.Context) error {
	_, err := dbopen.Exec(ctx, s.DB, `DELETE FROM crawled_links`)
	if err != nil {
		return fmt.Errorf("clear all: %w", err)
	}
	return nil
}

func requireRow(res sql.Result, url string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	return nil
}

func scanLink(scan func(...any) error) (*LinkRecord, error) {
	var rec LinkRecord
	err := scan(
		&rec.URL, &rec.Title, &rec.Status, &rec.DiscoveredAt, &rec.CrawledAt,
		&rec.ErrorMessage, &rec.MarkdownPath, &rec.HTMLPath, &rec.FileSize,
		&rec.ContentType,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
