// Package scrape defines the core types and components for the age refresh
// pipeline: fetch outcomes, the retry loop, and the chunked worker pool.
package scrape

import (
	"context"
	"time"
)

// OutcomeKind classifies the result of fetching one athlete profile.
type OutcomeKind int

// Outcome kinds, in increasing order of certainty.
const (
	// OutcomeUnresolved means no valid age was obtained this cycle. The row
	// keeps an empty cell for today and stays eligible for the next cycle.
	OutcomeUnresolved OutcomeKind = iota
	// OutcomeFound carries a validated age.
	OutcomeFound
	// OutcomeDeleted means the profile is permanently gone and the row must
	// be purged from the table.
	OutcomeDeleted
)

// String returns a short label for logging.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeFound:
		return "found"
	case OutcomeDeleted:
		return "deleted"
	default:
		return "unresolved"
	}
}

// Outcome is the tri-state result for a single athlete in a single cycle.
type Outcome struct {
	Kind OutcomeKind
	Age  int
}

// Found builds a resolved outcome.
func Found(age int) Outcome {
	return Outcome{Kind: OutcomeFound, Age: age}
}

// Deleted builds a deleted-profile outcome.
func Deleted() Outcome {
	return Outcome{Kind: OutcomeDeleted}
}

// Unresolved builds an empty outcome.
func Unresolved() Outcome {
	return Outcome{Kind: OutcomeUnresolved}
}

// Result pairs an outcome with the row index of the athlete in the full age
// table, not its position within a worker's chunk.
type Result struct {
	Index   int
	Outcome Outcome
}

// Item is one unit of work handed to the pool: the table row index plus the
// athlete ID. A nil ID is a valid state and resolves to Unresolved without
// touching the session.
type Item struct {
	Index     int
	AthleteID *int64
}

// Page is a raw document snapshot returned by a session.
type Page struct {
	URL  string
	HTML []byte
}

// Session is one browser (or plain HTTP) instance owned by a single worker
// for the lifetime of its chunk.
type Session interface {
	// Load navigates to the given profile URL.
	Load(ctx context.Context, url string) error
	// Snapshot returns the current state of the loaded document. For
	// JS-rendered pages successive snapshots may differ as the page settles.
	Snapshot(ctx context.Context) (Page, error)
	// Close tears the session down. Must be called on every exit path.
	Close(ctx context.Context) error
}

// SessionFactory creates sessions. One session is created per chunk dispatch.
type SessionFactory interface {
	NewSession(ctx context.Context) (Session, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Sleeper abstracts waiting so tests can run the retry loop without real
// delays.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration)
}

// SleeperFunc adapts a function to the Sleeper interface.
type SleeperFunc func(ctx context.Context, d time.Duration)

// Sleep calls the wrapped function.
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) {
	f(ctx, d)
}

// StdSleeper waits with time.Sleep, returning early on context cancellation.
func StdSleeper() Sleeper {
	return SleeperFunc(func(ctx context.Context, d time.Duration) {
		if d <= 0 {
			return
		}
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
		}
	})
}
