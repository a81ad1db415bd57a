package crawl

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/crawld/crawl/internal/fetch"
	"github.com/hazyhaar/crawld/crawl/internal/frontier"
	"github.com/hazyhaar/crawld/crawl/internal/store"
	"github.com/hazyhaar/crawld/idgen"
)

// FetchResult is what one page fetch yields: artifact metadata plus the
// raw outbound links found on the page.
type FetchResult = frontier.Result

// FetchFunc fetches one URL.
type FetchFunc = frontier.FetchFunc

// Service is the crawl orchestrator: it owns the link store, the fetch
// pipeline, and at most one traversal session at a time.
type Service struct {
	store *store.Store
	cfg   *Config
	log   *slog.Logger
	newID func() string

	// baseCtx bounds background traversals; the HTTP request that starts
	// a crawl outlives neither the crawl nor the process.
	baseCtx context.Context

	pipeline     *fetch.Pipeline
	fetchFn      FetchFunc
	urlValidator func(string) error

	mu   sync.Mutex
	sess *session
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) { s.log = log }
}

// WithBaseContext bounds background crawls; cancelling it stops any
// running traversal. Default: context.Background().
func WithBaseContext(ctx context.Context) ServiceOption {
	return func(s *Service) { s.baseCtx = ctx }
}

// WithFetchFunc replaces the fetch pipeline. No browser or HTTP client
// is built when set; tests inject fake fetchers this way.
func WithFetchFunc(fn FetchFunc) ServiceOption {
	return func(s *Service) { s.fetchFn = fn }
}

// WithURLValidator replaces the SSRF guard applied before each fetch.
func WithURLValidator(validate func(string) error) ServiceOption {
	return func(s *Service) { s.urlValidator = validate }
}

// New builds a Service on db. The schema must already be applied (see
// ApplySchema or dbopen.WithSchema).
func New(db *sql.DB, cfg *Config, opts ...ServiceOption) (*Service, error) {
	if cfg == nil {
		cfg = defaultConfig()
	} else {
		cfg.defaults()
	}

	s := &Service{
		store:   store.NewStore(db),
		cfg:     cfg,
		log:     slog.Default(),
		newID:   idgen.New,
		baseCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.fetchFn == nil {
		p, err := fetch.New(fetch.Config{
			Timeout:      cfg.Timeout,
			MaxBytes:     cfg.MaxBytes,
			UserAgent:    cfg.UserAgent,
			OutputDir:    cfg.OutputDir,
			UseBrowser:   cfg.UseBrowser,
			BrowserURL:   cfg.BrowserURL,
			URLValidator: s.urlValidator,
			Logger:       s.log,
		})
		if err != nil {
			return nil, err
		}
		s.pipeline = p
		s.fetchFn = func(ctx context.Context, url string) (*FetchResult, error) {
			doc, err := p.Fetch(ctx, url)
			if err != nil {
				return nil, err
			}
			return &FetchResult{
				Title:        doc.Title,
				MarkdownPath: doc.MarkdownPath,
				HTMLPath:     doc.HTMLPath,
				FileSize:     doc.FileSize,
				ContentType:  doc.ContentType,
				Links:        doc.Links,
			}, nil
		}
	}

	return s, nil
}

// Close cancels any running session, waits for it to drain, and releases
// the fetch pipeline.
func (s *Service) Close() {
	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()

	if sess != nil && sess.running() {
		sess.ctrl.Cancel()
		<-sess.done
	}
	if s.pipeline != nil {
		s.pipeline.Close()
	}
}

// StartCrawl begins a breadth-first crawl from seed. keywords gate link
// discovery (OR semantics; the seed itself is never filtered). maxDepth
// is inclusive; pass a negative value for the configured default.
// Returns ErrSessionActive when a crawl is already running.
func (s *Service) StartCrawl(ctx context.Context, seed string, keywords []string, maxDepth int) (*SessionInfo, error) {
	u, err := NormalizeURL(seed)
	if err != nil {
		return nil, err
	}
	return s.start([]string{u}, keywords, maxDepth)
}

// Resume redispatches every pending link as a fresh seed at depth 0.
// Pending is exactly what a crash or cancellation left behind: in-flight
// work is never persisted, so nothing is lost and nothing is refetched
// twice. Returns ErrNotFound when there is nothing pending.
func (s *Service) Resume(ctx context.Context, keywords []string, maxDepth int) (*SessionInfo, error) {
	s.mu.Lock()
	active := s.sess != nil && s.sess.running()
	s.mu.Unlock()
	if active {
		return nil, ErrSessionActive
	}

	pending, err := s.store.PendingURLs(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	if len(pending) == 0 {
		return nil, fmt.Errorf("%w: no pending links to resume", ErrNotFound)
	}
	return s.start(pending, keywords, maxDepth)
}

func (s *Service) start(seeds []string, keywords []string, maxDepth int) (*SessionInfo, error) {
	if maxDepth < 0 {
		maxDepth = s.cfg.MaxDepth
	}
	filter := NewKeywordFilter(keywords)

	sess := &session{
		id:       s.newID(),
		seeds:    seeds,
		keywords: filter.Keywords(),
		maxDepth: maxDepth,
		done:     make(chan struct{}),
	}
	sess.ctrl = frontier.New(frontier.Config{
		Store:       s.store,
		Fetch:       s.fetchFn,
		MaxDepth:    maxDepth,
		Concurrency: s.cfg.Concurrency,
		Normalize:   NormalizeURL,
		Match:       filter.Match,
		Logger:      s.log,
	})

	s.mu.Lock()
	if s.sess != nil && s.sess.running() {
		s.mu.Unlock()
		return nil, ErrSessionActive
	}
	sess.startedAt = time.Now()
	s.sess = sess
	s.mu.Unlock()

	go s.run(sess)

	s.log.Info("crawl started",
		"session", sess.id, "seeds", len(sess.seeds),
		"keywords", sess.keywords, "max_depth", sess.maxDepth)
	return sess.info(), nil
}

func (s *Service) run(sess *session) {
	defer close(sess.done)
	err := sess.ctrl.Run(s.baseCtx, sess.seeds)
	p := sess.ctrl.Progress()
	if err != nil {
		s.log.Error("crawl aborted", "session", sess.id, "error", err,
			"fetched", p.Fetched, "succeeded", p.Succeeded, "failed", p.Failed)
		return
	}
	s.log.Info("crawl finished", "session", sess.id,
		"cancelled", sess.ctrl.Cancelled(),
		"fetched", p.Fetched, "succeeded", p.Succeeded,
		"failed", p.Failed, "discovered", p.Discovered)
}

// CancelCrawl requests a cooperative stop of the running session: no new
// fetches are dispatched, in-flight ones drain. Returns ErrNoSession when
// nothing is running.
func (s *Service) CancelCrawl() (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil || !s.sess.running() {
		return nil, ErrNoSession
	}
	s.sess.ctrl.Cancel()
	return s.sess.info(), nil
}

// Status returns a snapshot of the current (or most recent) session, or
// nil when no crawl has run yet.
func (s *Service) Status() *SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return nil
	}
	return s.sess.info()
}

// RetryLink moves one failed link back to pending so the next crawl or
// resume picks it up. Returns ErrNotFound for unknown URLs and
// ErrInvalidTransition when the link is not failed.
func (s *Service) RetryLink(ctx context.Context, rawURL string) error {
	u, err := NormalizeURL(rawURL)
	if err != nil {
		return err
	}
	return s.store.ResetToPending(ctx, u)
}

// RetryAllFailed moves every failed link back to pending and returns the
// affected URLs.
func (s *Service) RetryAllFailed(ctx context.Context) ([]string, error) {
	urls, err := s.store.ResetAllFailed(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	return urls, nil
}

// GetLink returns the record for one URL. ErrNotFound when it was never
// discovered.
func (s *Service) GetLink(ctx context.Context, rawURL string) (*LinkRecord, error) {
	u, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.Get(ctx, u)
	if err != nil {
		return nil, storeErr(err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, u)
	}
	return rec, nil
}

// ListLinks returns records matching the filter, newest first.
func (s *Service) ListLinks(ctx context.Context, f ListFilter) ([]*LinkRecord, error) {
	links, err := s.store.List(ctx, f)
	if err != nil {
		return nil, storeErr(err)
	}
	return links, nil
}

// Stats returns a snapshot of crawl state: counts per status, success
// rate, and recent activity.
func (s *Service) Stats(ctx context.Context) (*CrawlStats, error) {
	stats, err := s.store.Stats(ctx, s.cfg.RecentLimit)
	if err != nil {
		return nil, storeErr(err)
	}
	return stats, nil
}

// ClearAll deletes every link record. Artifacts on disk are kept.
// Refused while a session is running.
func (s *Service) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	running := s.sess != nil && s.sess.running()
	s.mu.Unlock()
	if running {
		return ErrSessionActive
	}
	if err := s.store.ClearAll(ctx); err != nil {
		return storeErr(err)
	}
	return nil
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
