package crawl

import (
	"time"

	"github.com/hazyhaar/crawld/crawl/internal/frontier"
)

// session is one traversal run. A Service holds at most one; a finished
// session is kept around so Status can still report its outcome.
type session struct {
	id        string
	seeds     []string
	keywords  []string
	maxDepth  int
	startedAt time.Time

	ctrl *frontier.Controller
	done chan struct{}
}

func (s *session) running() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// SessionInfo is a JSON-ready snapshot of a crawl session.
type SessionInfo struct {
	ID        string   `json:"id"`
	Seeds     []string `json:"seeds"`
	Keywords  []string `json:"keywords"`
	MaxDepth  int      `json:"max_depth"`
	StartedAt int64    `json:"started_at"`
	Running   bool     `json:"running"`
	Cancelled bool     `json:"cancelled"`
	Progress  Progress `json:"progress"`
}

func (s *session) info() *SessionInfo {
	return &SessionInfo{
		ID:        s.id,
		Seeds:     s.seeds,
		Keywords:  s.keywords,
		MaxDepth:  s.maxDepth,
		StartedAt: s.startedAt.UnixMilli(),
		Running:   s.running(),
		Cancelled: s.ctrl.Cancelled(),
		Progress:  s.ctrl.Progress(),
	}
}
