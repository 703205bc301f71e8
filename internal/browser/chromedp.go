// Package browser contains scrape.Session implementations: a headless Chrome
// session for the JS-rendered results sites and a plain-HTTP session for
// server-rendered pages and offline runs.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/climbtrack/agescraper/internal/scrape"
)

// ChromeConfig controls the headless Chrome sessions.
type ChromeConfig struct {
	UserAgent string
	// NavTimeout bounds a single navigation, not the whole chunk.
	NavTimeout time.Duration
	// QPS throttles navigations across all sessions of the factory; zero
	// disables throttling.
	QPS float64
}

// ChromeFactory builds one headless Chrome instance per session. Sessions are
// independent: each gets its own exec allocator so a crashed browser cannot
// take sibling workers down. The navigation rate limiter is the only state
// shared between sessions.
type ChromeFactory struct {
	cfg     ChromeConfig
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewChromeFactory validates the config and prepares the shared limiter.
func NewChromeFactory(cfg ChromeConfig, logger *zap.Logger) (*ChromeFactory, error) {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 45 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if cfg.QPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.QPS), 1)
	}
	return &ChromeFactory{cfg: cfg, limiter: limiter, logger: logger}, nil
}

// NewSession launches a browser and warms it up so startup failures surface
// here, where the pool can isolate them, instead of on the first navigation.
func (f *ChromeFactory) NewSession(ctx context.Context) (scrape.Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
	)
	if f.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}
	return &chromeSession{
		factory:       f,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
	}, nil
}

// chromeSession drives a single browser tab across navigations. It is owned
// by exactly one worker and is not safe for concurrent use.
type chromeSession struct {
	factory       *ChromeFactory
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	currentURL    string
}

// Load navigates the tab and waits for the body element to exist. Rendering
// continues after Load returns; callers settle and snapshot separately.
func (s *chromeSession) Load(ctx context.Context, url string) error {
	if s.factory.limiter != nil {
		if err := s.factory.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("navigation rate limit: %w", err)
		}
	}

	navCtx, cancel := context.WithTimeout(s.browserCtx, s.factory.cfg.NavTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	actions := chromedp.Tasks{
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if s.factory.cfg.UserAgent != "" {
		actions = append(chromedp.Tasks{emulation.SetUserAgentOverride(s.factory.cfg.UserAgent)}, actions...)
	}
	if err := chromedp.Run(navCtx, actions); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	s.currentURL = url
	return nil
}

// Snapshot returns the current DOM serialization of the loaded page.
func (s *chromeSession) Snapshot(ctx context.Context) (scrape.Page, error) {
	snapCtx, cancel := context.WithTimeout(s.browserCtx, s.factory.cfg.NavTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	var html string
	if err := chromedp.Run(snapCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return scrape.Page{}, fmt.Errorf("snapshot dom: %w", err)
	}
	return scrape.Page{URL: s.currentURL, HTML: []byte(html)}, nil
}

// Close tears down the browser and its allocator.
func (s *chromeSession) Close(context.Context) error {
	s.browserCancel()
	s.allocCancel()
	return nil
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
