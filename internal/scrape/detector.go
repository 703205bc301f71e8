package scrape

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Deleted-profile signals observed on the results sites: a danger alert box
// whose toast text announces the failure.
const (
	DefaultDeletedSelector = "div.rs-alertbox-danger .text-toast"
	defaultPollInterval    = 100 * time.Millisecond
)

// DefaultDeletedKeywords match the toast body regardless of markup drift.
func DefaultDeletedKeywords() []string {
	return []string{"something wrong happened"}
}

// DeletedDetector decides whether a loaded page is the deleted-profile error
// state. Detection combines a CSS selector probe with a lowercased keyword
// scan so either markup or copy changes alone do not blind it.
type DeletedDetector struct {
	selector     string
	keywords     [][]byte
	pollInterval time.Duration
	pollTimeout  time.Duration
	sleeper      Sleeper
}

// NewDeletedDetector builds a detector. The toast renders asynchronously, so
// Wait polls snapshots for up to pollTimeout, which should stay well below
// the page settle wait.
func NewDeletedDetector(selector string, keywords []string, pollTimeout time.Duration, sleeper Sleeper) *DeletedDetector {
	lowered := make([][]byte, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		lowered = append(lowered, bytes.ToLower([]byte(kw)))
	}
	if sleeper == nil {
		sleeper = StdSleeper()
	}
	return &DeletedDetector{
		selector:     selector,
		keywords:     lowered,
		pollInterval: defaultPollInterval,
		pollTimeout:  pollTimeout,
		sleeper:      sleeper,
	}
}

// Wait polls the session until the deleted indicator shows up or the bounded
// window elapses. Snapshot errors end the poll early; the page will be
// retried through the normal extraction path.
func (d *DeletedDetector) Wait(ctx context.Context, sess Session) bool {
	deadline := time.Now().Add(d.pollTimeout)
	for {
		page, err := sess.Snapshot(ctx)
		if err != nil {
			return false
		}
		if d.Present(page.HTML) {
			return true
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return false
		}
		d.sleeper.Sleep(ctx, d.pollInterval)
	}
}

// Present reports whether the document carries the deleted-profile indicator.
func (d *DeletedDetector) Present(html []byte) bool {
	if len(html) == 0 {
		return false
	}
	if d.selectorMatches(html) {
		return true
	}
	return d.containsKeywords(html)
}

func (d *DeletedDetector) selectorMatches(html []byte) bool {
	if d.selector == "" {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return false
	}
	match := doc.Find(d.selector)
	if match.Length() == 0 {
		return false
	}
	if len(d.keywords) == 0 {
		return true
	}
	text := bytes.ToLower([]byte(match.Text()))
	for _, kw := range d.keywords {
		if bytes.Contains(text, kw) {
			return true
		}
	}
	return false
}

func (d *DeletedDetector) containsKeywords(html []byte) bool {
	if len(d.keywords) == 0 {
		return false
	}
	lower := bytes.ToLower(html)
	for _, kw := range d.keywords {
		if bytes.Contains(lower, kw) {
			return true
		}
	}
	return false
}
