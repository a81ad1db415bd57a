package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
)

// Browser renders pages through headless Chrome so JS-built content and
// bot walls are handled the way a real visitor would see them. One
// instance is shared across the session; each fetch opens its own tab.
type Browser struct {
	browser *rod.Browser
	lnch    *launcher.Launcher
	timeout time.Duration
	log     *slog.Logger
}

// NewBrowser connects to a remote Chrome (remoteURL is its WebSocket URL)
// or launches a local headless instance when remoteURL is empty.
func NewBrowser(remoteURL string, timeout time.Duration, log *slog.Logger) (*Browser, error) {
	if log == nil {
		log = slog.Default()
	}

	var wsURL string
	var lnch *launcher.Launcher

	if remoteURL != "" {
		wsURL = remoteURL
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().
			Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		lnch = l
		log.Info("browser: launched local chrome")
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if lnch != nil {
			lnch.Cleanup()
		}
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("browser: ignore cert errors failed", "error", err)
	}

	return &Browser{browser: b, lnch: lnch, timeout: timeout, log: log}, nil
}

// FetchHTML opens a stealth tab, navigates, waits for load, and returns
// the rendered DOM as outer HTML.
func (b *Browser) FetchHTML(ctx context.Context, pageURL string) (string, error) {
	page, err := stealth.Page(b.browser)
	if err != nil {
		return "", fmt.Errorf("browser: new page: %w", err)
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		return "", fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		// Slow third-party resources keep load pending; the DOM is
		// usually complete, so serialize what is there.
		b.log.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	res, err := page.Context(navCtx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("browser: read DOM: %w", err)
	}
	return res.Value.Str(), nil
}

// Close shuts down Chrome (and cleans up the local launcher if any).
func (b *Browser) Close() {
	if b.browser != nil {
		b.browser.Close()
	}
	if b.lnch != nil {
		b.lnch.Cleanup()
	}
}
