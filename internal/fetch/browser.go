package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog"

	"estefy/inmoworker/internal/identity"
	"estefy/inmoworker/logger"
	apperr "estefy/inmoworker/pkg/errors"
)

// BrowserConfig holds the headless browser tier settings.
type BrowserConfig struct {
	Bin             string
	Headless        bool
	PageLoadTimeout time.Duration
	DebugDir        string
	DebugMaxFiles   int
}

// BrowserFetcher is the expensive second tier: a stealth-patched headless
// browser that executes the page's JavaScript. The browser process is only
// launched on first use.
type BrowserFetcher struct {
	cfg     BrowserConfig
	rotator *identity.Rotator
	log     zerolog.Logger

	mu        sync.Mutex
	browser   *rod.Browser
	cleanup   func()
	snapshots int
}

// NewBrowserFetcher builds the browser tier without starting a browser.
func NewBrowserFetcher(cfg BrowserConfig, rotator *identity.Rotator) *BrowserFetcher {
	if cfg.PageLoadTimeout <= 0 {
		cfg.PageLoadTimeout = 45 * time.Second
	}
	if cfg.DebugMaxFiles < 0 {
		cfg.DebugMaxFiles = 0
	}
	return &BrowserFetcher{
		cfg:     cfg,
		rotator: rotator,
		log:     logger.ForComponent("fetch.browser"),
	}
}

// Tier implements Fetcher
func (f *BrowserFetcher) Tier() Tier {
	return TierBrowser
}

// Fetch renders url in a fresh tab and returns the settled DOM.
func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	browser, err := f.ensureBrowser()
	if err != nil {
		return nil, apperr.NewTransport(string(TierBrowser), url, err)
	}

	page, err := stealth.Page(browser)
	if err != nil {
		// Cannot even open a tab, the process or its connection is gone.
		f.reset()
		return nil, apperr.NewTransport(string(TierBrowser), url, err)
	}
	defer page.Close()

	page = page.Context(ctx).Timeout(f.cfg.PageLoadTimeout)

	id := f.rotator.Next()
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      id.UserAgent,
		AcceptLanguage: id.AcceptLanguage,
	}); err != nil {
		return nil, f.fail(browser, url, err)
	}

	f.log.Debug().Str("url", url).Msg("rendering")

	if err := page.Navigate(url); err != nil {
		return nil, f.fail(browser, url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, f.fail(browser, url, err)
	}

	// Lazy-loaded cards only materialize once the viewport has passed them.
	f.scroll(page)

	html, err := page.HTML()
	if err != nil {
		return nil, f.fail(browser, url, err)
	}

	if isChallenge(html) {
		f.saveSnapshot(url, html)
	}

	return &Response{
		URL:        url,
		StatusCode: 200,
		Body:       html,
		Tier:       TierBrowser,
	}, nil
}

// scroll walks the page down in two steps the way a reader would.
func (f *BrowserFetcher) scroll(page *rod.Page) {
	for _, js := range []string{
		`() => window.scrollTo(0, document.body.scrollHeight * 0.7)`,
		`() => window.scrollTo(0, document.body.scrollHeight)`,
	} {
		if _, err := page.Eval(js); err != nil {
			f.log.Debug().Err(err).Msg("scroll failed")
			return
		}
		wait := page.WaitRequestIdle(500*time.Millisecond, nil, nil, nil)
		wait()
	}
}

// ensureBrowser launches and connects the browser process exactly once.
func (f *BrowserFetcher) ensureBrowser() (*rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser != nil {
		return f.browser, nil
	}

	l := launcher.New().Headless(f.cfg.Headless)
	if f.cfg.Bin != "" {
		l = l.Bin(f.cfg.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	f.log.Info().Str("control_url", controlURL).Msg("browser launched")
	f.browser = browser
	f.cleanup = l.Cleanup
	return browser, nil
}

// fail wraps a page-level error. A page error with a dead control connection
// means the whole browser is lost, not just this page, so the fetcher resets
// and the next Fetch relaunches instead of failing forever.
func (f *BrowserFetcher) fail(browser *rod.Browser, url string, err error) error {
	if _, verr := browser.Version(); verr != nil {
		f.log.Warn().Err(verr).Msg("browser connection lost, resetting")
		f.reset()
	}
	return apperr.NewTransport(string(TierBrowser), url, err)
}

// reset discards the cached browser so ensureBrowser launches a fresh one.
// The control connection is already dead, killing the leftover process via
// the launcher cleanup is all that can still be done.
func (f *BrowserFetcher) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cleanup != nil {
		f.cleanup()
		f.cleanup = nil
	}
	f.browser = nil
}

// saveSnapshot writes the challenge page to disk for inspection, up to the
// configured cap per process.
func (f *BrowserFetcher) saveSnapshot(url, html string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.snapshots >= f.cfg.DebugMaxFiles || f.cfg.DebugDir == "" {
		return
	}
	if err := os.MkdirAll(f.cfg.DebugDir, 0o755); err != nil {
		f.log.Warn().Err(err).Msg("cannot create debug dir")
		return
	}
	f.snapshots++
	name := filepath.Join(f.cfg.DebugDir, fmt.Sprintf("challenge_%d_%d.html", time.Now().Unix(), f.snapshots))
	if err := os.WriteFile(name, []byte(html), 0o644); err != nil {
		f.log.Warn().Err(err).Msg("cannot write debug snapshot")
		return
	}
	f.log.Info().Str("file", name).Str("url", url).Msg("saved challenge snapshot")
}

// Close shuts the browser process down if it was ever launched.
func (f *BrowserFetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser != nil {
		if err := f.browser.Close(); err != nil {
			f.log.Warn().Err(err).Msg("browser close failed")
		}
		f.browser = nil
	}
	if f.cleanup != nil {
		f.cleanup()
		f.cleanup = nil
	}
}
