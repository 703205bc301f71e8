// Package progress defines the event structures emitted during a refresh run.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart  Stage = "RUN_START"
	StageRunDone   Stage = "RUN_DONE"
	StageRunError  Stage = "RUN_ERROR"
	StageCycle     Stage = "CYCLE_START"
	StageCycleDone Stage = "CYCLE_DONE"
	StageFetchDone Stage = "FETCH_DONE"
)

// Event captures a single milestone of a refresh run: run lifecycle, one
// scheduling cycle, or one completed profile fetch.
type Event struct {
	// RunID uniquely identifies a run using the 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// Federation scopes the event to one results site.
	Federation string
	// Cycle is the 1-based cycle number for cycle and fetch events.
	Cycle int
	// Scheduled is the backlog size dispatched in this cycle.
	Scheduled int
	// Resolved counts rows whose value was filled in this cycle.
	Resolved int
	// Removed counts rows purged as deleted in this cycle.
	Removed int
	// Outcome labels fetch completions (found, deleted, unresolved).
	Outcome string
	// Dur captures execution latency for fetches and cycles.
	Dur time.Duration
	// Note lets emitters attach low-volume debug context (e.g. error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	if e.Federation == "" {
		return errors.New("federation is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone, StageRunError:
	case StageCycle, StageCycleDone:
		if e.Cycle < 1 {
			return errors.New("cycle events require a 1-based cycle number")
		}
	case StageFetchDone:
		if e.Outcome == "" {
			return errors.New("fetch done requires an outcome")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID for repositories.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
