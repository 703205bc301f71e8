package scrape

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// noSleep keeps retry-loop tests instant.
var noSleep = SleeperFunc(func(context.Context, time.Duration) {})

// step scripts one Load/Snapshot round of a session.
type step struct {
	loadErr error
	snapErr error
	html    string
}

// scriptedSession replays a fixed sequence of steps, one per Load call.
// Snapshot (called repeatedly by the deleted-profile poll) keeps serving the
// current step.
type scriptedSession struct {
	steps     []step
	pos       int
	loadCalls int
	closed    bool
}

func (s *scriptedSession) Load(_ context.Context, _ string) error {
	s.loadCalls++
	if s.pos < len(s.steps)-1 && s.loadCalls > 1 {
		s.pos++
	}
	return s.current().loadErr
}

func (s *scriptedSession) Snapshot(context.Context) (Page, error) {
	cur := s.current()
	if cur.snapErr != nil {
		return Page{}, cur.snapErr
	}
	return Page{HTML: []byte(cur.html)}, nil
}

func (s *scriptedSession) Close(context.Context) error {
	s.closed = true
	return nil
}

func (s *scriptedSession) current() step {
	if len(s.steps) == 0 {
		return step{}
	}
	return s.steps[s.pos]
}

// mapSession serves a fixed document per URL; unknown URLs fail to load.
type mapSession struct {
	pages  map[string]string
	mu     sync.Mutex
	loaded string
	closed bool
}

func (s *mapSession) Load(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pages[url]; !ok {
		return fmt.Errorf("no such page %s", url)
	}
	s.loaded = url
	return nil
}

func (s *mapSession) Snapshot(context.Context) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded == "" {
		return Page{}, fmt.Errorf("no page loaded")
	}
	return Page{URL: s.loaded, HTML: []byte(s.pages[s.loaded])}, nil
}

func (s *mapSession) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// mapFactory hands each worker a mapSession over the same page set. failFirst
// makes the first N sessions fail to set up.
type mapFactory struct {
	pages     map[string]string
	failFirst int32
	created   atomic.Int32
	mu        sync.Mutex
	sessions  []*mapSession
}

func (f *mapFactory) NewSession(context.Context) (Session, error) {
	n := f.created.Add(1)
	if n <= f.failFirst {
		return nil, fmt.Errorf("browser launch failed")
	}
	sess := &mapSession{pages: f.pages}
	f.mu.Lock()
	f.sessions = append(f.sessions, sess)
	f.mu.Unlock()
	return sess, nil
}

func (f *mapFactory) allClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if !s.closed {
			return false
		}
	}
	return true
}

func testRetryer(maxTries int) *Retryer {
	extractor, err := NewAgeExtractor("")
	if err != nil {
		panic(err)
	}
	detector := NewDeletedDetector(DefaultDeletedSelector, DefaultDeletedKeywords(), time.Millisecond, noSleep)
	cfg := DefaultRetryConfig()
	cfg.MaxTries = maxTries
	cfg.SettleBase = 0
	cfg.SettleJitterMin = 0
	cfg.SettleJitterMax = 0
	cfg.DeletedPenalty = 0
	return NewRetryer(cfg, extractor, detector, noSleep, nil)
}

const (
	deletedPage = `<html><body>
		<div class="rs-alertbox-danger"><div class="text-toast">Something wrong happened</div></div>
		Age: 34
	</body></html>`
	foundPage = `<html><body><h1>Profile</h1><p>Age: 41</p></body></html>`
	emptyPage = `<html><body><h1>Profile</h1></body></html>`
)
