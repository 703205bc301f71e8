package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"

	"github.com/climbtrack/agescraper/internal/scrape"
)

// StaticConfig controls the plain-HTTP sessions.
type StaticConfig struct {
	UserAgent string
	Timeout   time.Duration
	QPS       float64
}

// StaticFactory builds sessions backed by a Colly collector. It serves
// federations whose profile pages are server-rendered, where a full browser
// buys nothing, and it keeps the pipeline runnable in environments without
// Chrome.
type StaticFactory struct {
	cfg     StaticConfig
	limiter *rate.Limiter
}

// NewStaticFactory prepares the factory and its shared rate limiter.
func NewStaticFactory(cfg StaticConfig) *StaticFactory {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	var limiter *rate.Limiter
	if cfg.QPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.QPS), 1)
	}
	return &StaticFactory{cfg: cfg, limiter: limiter}
}

// NewSession returns a session with its own collector clone. Cloning keeps
// per-session state (cookies, revisit tracking) isolated between workers.
func (f *StaticFactory) NewSession(_ context.Context) (scrape.Session, error) {
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.AllowURLRevisit = true
	if f.cfg.UserAgent != "" {
		c.UserAgent = f.cfg.UserAgent
	}
	c.SetRequestTimeout(f.cfg.Timeout)
	return &staticSession{factory: f, collector: c}, nil
}

// staticSession fetches documents with plain HTTP GETs. The page is complete
// as soon as Load returns, so Snapshot just replays the stored body.
type staticSession struct {
	factory   *StaticFactory
	collector *colly.Collector
	page      scrape.Page
	loaded    bool
}

// Load performs the GET and stores the body.
func (s *staticSession) Load(ctx context.Context, url string) error {
	if s.factory.limiter != nil {
		if err := s.factory.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("request rate limit: %w", err)
		}
	}

	var (
		body     []byte
		fetchErr error
	)
	c := s.collector.Clone()
	c.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	c.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})
	if err := c.Visit(url); err != nil {
		return fmt.Errorf("visit %s: %w", url, err)
	}
	c.Wait()
	if fetchErr != nil {
		return fmt.Errorf("fetch %s: %w", url, fetchErr)
	}
	s.page = scrape.Page{URL: url, HTML: body}
	s.loaded = true
	return nil
}

// Snapshot returns the body captured by the last Load.
func (s *staticSession) Snapshot(context.Context) (scrape.Page, error) {
	if !s.loaded {
		return scrape.Page{}, fmt.Errorf("no page loaded")
	}
	return s.page, nil
}

// Close is a no-op; collectors hold no external resources.
func (s *staticSession) Close(context.Context) error {
	return nil
}
