package crawl

import (
	"errors"

	"github.com/hazyhaar/crawld/crawl/internal/store"
)

// Sentinel errors for the crawl service. Callers match with errors.Is;
// the HTTP layer maps them onto status codes.
var (
	// ErrNotFound: the referenced URL has never been discovered.
	ErrNotFound = store.ErrNotFound
	// ErrInvalidTransition: the record is not in a status that permits
	// the requested change (e.g. retrying a successful link).
	ErrInvalidTransition = store.ErrInvalidTransition
	// ErrSessionActive: a crawl session is already running.
	ErrSessionActive = errors.New("crawl: session already active")
	// ErrNoSession: no crawl session is running.
	ErrNoSession = errors.New("crawl: no active session")
	// ErrInvalidInput: malformed URL, keyword, or parameter.
	ErrInvalidInput = errors.New("crawl: invalid input")
	// ErrStoreUnavailable: the link database cannot be reached or written.
	ErrStoreUnavailable = errors.New("crawl: store unavailable")
)
