// Package frontier drives a breadth-first crawl over the link store.
// It owns level ordering, the depth bound, keyword gating, bounded
// concurrency, and cooperative cancellation. It does not fetch or persist
// itself: fetching is injected as a function and persistence as a narrow
// store interface, so the traversal is testable without network or disk.
package frontier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Result is what a fetch produces for one page: stored artifact metadata
// plus the raw outbound links found on the page.
type Result struct {
	Title        string
	MarkdownPath string
	HTMLPath     string
	FileSize     int64
	ContentType  string
	Links        []string
}

// FetchFunc fetches one URL. A non-nil error marks the record failed and
// the crawl continues; only store errors abort the traversal.
type FetchFunc func(ctx context.Context, url string) (*Result, error)

// Store is the slice of the link store the frontier needs.
type Store interface {
	UpsertPending(ctx context.Context, url string) (bool, error)
	MarkSuccess(ctx context.Context, url, title, markdownPath, htmlPath string, fileSize int64, contentType string) error
	MarkFailed(ctx context.Context, url, errMsg string) error
}

// Config wires a Controller.
type Config struct {
	Store Store
	Fetch FetchFunc

	// MaxDepth is inclusive: pages at exactly MaxDepth are fetched, and
	// their outbound links are not followed. Seeds are depth 0.
	MaxDepth int
	// Concurrency bounds in-flight fetches within a level. Min 1.
	Concurrency int

	// Normalize canonicalizes a discovered URL; an error drops the link.
	Normalize func(string) (string, error)
	// Match gates discovered URLs. Nil means no gate. Seeds bypass it.
	Match func(string) bool

	Logger *slog.Logger
}

// Progress is a live snapshot of a running traversal.
type Progress struct {
	Depth      int   `json:"depth"`
	Fetched    int64 `json:"fetched"`
	Succeeded  int64 `json:"succeeded"`
	Failed     int64 `json:"failed"`
	Discovered int64 `json:"discovered"`
}

// Controller runs one breadth-first traversal. Not reusable: build a new
// one per session.
type Controller struct {
	cfg Config
	log *slog.Logger

	cancelled atomic.Bool
	depth     atomic.Int64

	fetched    atomic.Int64
	succeeded  atomic.Int64
	failed     atomic.Int64
	discovered atomic.Int64
}

func New(cfg Config) *Controller {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Controller{cfg: cfg, log: log}
}

// Cancel requests a cooperative stop: no new fetches are dispatched,
// in-flight fetches drain normally. Safe from any goroutine.
func (c *Controller) Cancel() {
	c.cancelled.Store(true)
}

// Cancelled reports whether a stop was requested.
func (c *Controller) Cancelled() bool {
	return c.cancelled.Load()
}

// Progress returns the current counters.
func (c *Controller) Progress() Progress {
	return Progress{
		Depth:      int(c.depth.Load()),
		Fetched:    c.fetched.Load(),
		Succeeded:  c.succeeded.Load(),
		Failed:     c.failed.Load(),
		Discovered: c.discovered.Load(),
	}
}

// Run crawls breadth-first from the given seed URLs (already normalized)
// until the frontier empties, the depth bound is reached, cancellation is
// requested, or the store becomes unusable. Seeds are upserted so they are
// part of the record even when rediscovered later; they are enqueued
// whether or not the upsert created them, because a resumed pending seed
// already exists in the store.
func (c *Controller) Run(ctx context.Context, seeds []string) error {
	frontier := make([]string, 0, len(seeds))
	for _, u := range seeds {
		if _, err := c.cfg.Store.UpsertPending(ctx, u); err != nil {
			return fmt.Errorf("frontier: seed %s: %w", u, err)
		}
		frontier = append(frontier, u)
	}

	for depth := 0; len(frontier) > 0 && depth <= c.cfg.MaxDepth; depth++ {
		c.depth.Store(int64(depth))
		if c.Cancelled() || ctx.Err() != nil {
			break
		}
		c.log.Info("frontier level start", "depth", depth, "urls", len(frontier))

		next, err := c.runLevel(ctx, frontier, depth)
		if err != nil {
			return err
		}
		frontier = next
	}

	if err := ctx.Err(); err != nil && !c.Cancelled() {
		return err
	}
	return nil
}

// runLevel fetches every URL of one level with bounded concurrency and
// returns the deduplicated next level. Links are only followed below the
// depth bound; pages at the final depth are still fetched.
func (c *Controller) runLevel(ctx context.Context, urls []string, depth int) ([]string, error) {
	var (
		mu   sync.Mutex
		next []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

	for _, u := range urls {
		if c.Cancelled() || gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			links, err := c.fetchOne(gctx, u)
			if err != nil {
				return err
			}
			if depth >= c.cfg.MaxDepth {
				return nil
			}
			created, err := c.discover(gctx, links)
			if err != nil {
				return err
			}
			mu.Lock()
			next = append(next, created...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) && c.Cancelled() {
			return nil, nil
		}
		return nil, err
	}
	return next, nil
}

// fetchOne fetches a single URL and records the outcome. Fetch failures
// are terminal for the record but not for the crawl; store write failures
// abort the traversal since nothing can be recorded anymore.
func (c *Controller) fetchOne(ctx context.Context, url string) ([]string, error) {
	c.fetched.Add(1)
	res, err := c.cfg.Fetch(ctx, url)
	if err != nil {
		c.failed.Add(1)
		c.log.Warn("fetch failed", "url", url, "error", err)
		if serr := c.cfg.Store.MarkFailed(ctx, url, err.Error()); serr != nil {
			return nil, fmt.Errorf("frontier: mark failed %s: %w", url, serr)
		}
		return nil, nil
	}
	c.succeeded.Add(1)
	if err := c.cfg.Store.MarkSuccess(ctx, url, res.Title, res.MarkdownPath, res.HTMLPath, res.FileSize, res.ContentType); err != nil {
		return nil, fmt.Errorf("frontier: mark success %s: %w", url, err)
	}
	return res.Links, nil
}

// discover normalizes, gates, and upserts the links found on one page,
// returning those that are new to the store. The upsert is the dedup
// point: two pages discovering the same URL race on the insert and
// exactly one of them wins the enqueue.
func (c *Controller) discover(ctx context.Context, links []string) ([]string, error) {
	var created []string
	for _, raw := range links {
		u, err := c.cfg.Normalize(raw)
		if err != nil {
			continue
		}
		if c.cfg.Match != nil && !c.cfg.Match(u) {
			continue
		}
		isNew, err := c.cfg.Store.UpsertPending(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("frontier: discover %s: %w", u, err)
		}
		if isNew {
			c.discovered.Add(1)
			created = append(created, u)
		}
	}
	return created, nil
}
