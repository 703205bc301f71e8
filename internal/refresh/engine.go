// Package refresh implements the cycle orchestrator: it owns the age table,
// schedules backlog batches onto the worker pool, merges outcomes, purges
// deleted profiles, and checkpoints after every cycle.
package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/climbtrack/agescraper/internal/agetable"
	"github.com/climbtrack/agescraper/internal/progress"
	"github.com/climbtrack/agescraper/internal/scrape"
)

// DefaultMaxCycles bounds scheduling passes per invocation. Whatever is still
// unresolved after the fifth pass waits for the next run.
const DefaultMaxCycles = 5

// Engine drives a full refresh run for one federation. The table is owned
// exclusively by the engine and only mutated between dispatches; workers see
// nothing but row indices and athlete IDs.
type Engine struct {
	store     *agetable.Store
	pool      *scrape.Pool
	clock     scrape.Clock
	emitter   progress.Emitter
	logger    *zap.Logger
	maxCycles int
}

// NewEngine wires the orchestrator. A nil emitter disables progress events.
func NewEngine(
	store *agetable.Store,
	pool *scrape.Pool,
	clock scrape.Clock,
	emitter progress.Emitter,
	maxCycles int,
	logger *zap.Logger,
) *Engine {
	if maxCycles <= 0 {
		maxCycles = DefaultMaxCycles
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:     store,
		pool:      pool,
		clock:     clock,
		emitter:   emitter,
		logger:    logger,
		maxCycles: maxCycles,
	}
}

// Run executes up to maxCycles scheduling passes and stops the cycle the
// backlog first comes back empty. A missing age table aborts the run before
// anything is written; the caller decides whether that is fatal to the whole
// program.
func (e *Engine) Run(ctx context.Context, fed scrape.Federation) error {
	runID := progress.UUIDToBytes(uuid.New())
	started := e.clock.Now()
	e.emit(progress.Event{RunID: runID, TS: started, Stage: progress.StageRunStart, Federation: string(fed)})

	table, err := e.store.Load(ctx, fed)
	if err != nil {
		e.emitRunEnd(runID, fed, started, err)
		return fmt.Errorf("load age table for %s: %w", fed, err)
	}

	today := agetable.DateColumn(e.clock.Now())
	if table.EnsureDate(today) {
		e.logger.Info("Added today's column",
			zap.String("federation", string(fed)), zap.String("date", today))
	}

	currentCycle := 0
	e.pool.SetObserver(func(fed scrape.Federation, res scrape.Result, dur time.Duration) {
		e.emit(progress.Event{
			RunID:      runID,
			TS:         e.clock.Now(),
			Stage:      progress.StageFetchDone,
			Federation: string(fed),
			Cycle:      currentCycle,
			Outcome:    res.Outcome.Kind.String(),
			Dur:        dur,
		})
	})

	for cycle := 1; cycle <= e.maxCycles; cycle++ {
		currentCycle = cycle

		// Purges shift row indices and merges change membership, so the
		// backlog is recomputed from scratch every pass.
		backlog := table.Backlog(today)
		if len(backlog) == 0 {
			e.logger.Info("All target data captured",
				zap.String("federation", string(fed)), zap.Int("cycle", cycle))
			break
		}

		cycleStart := e.clock.Now()
		e.logger.Info("Cycle scheduled",
			zap.String("federation", string(fed)),
			zap.Int("cycle", cycle),
			zap.Int("entries", len(backlog)),
		)
		e.emit(progress.Event{
			RunID: runID, TS: cycleStart, Stage: progress.StageCycle,
			Federation: string(fed), Cycle: cycle, Scheduled: len(backlog),
		})

		results := e.pool.Run(ctx, fed, e.items(table, backlog))

		resolved, removals := mergeOutcomes(table, today, results, e.logger)
		removed := table.RemoveRows(removals)
		if removed > 0 {
			e.logger.Info("Permanently removed deleted profiles",
				zap.String("federation", string(fed)), zap.Int("removed", removed))
		}

		if err := e.store.Save(ctx, fed, table); err != nil {
			saveErr := fmt.Errorf("checkpoint cycle %d: %w", cycle, err)
			e.emitRunEnd(runID, fed, started, saveErr)
			return saveErr
		}

		e.logger.Info("Cycle complete, checkpoint saved",
			zap.String("federation", string(fed)), zap.Int("cycle", cycle))
		e.emit(progress.Event{
			RunID: runID, TS: e.clock.Now(), Stage: progress.StageCycleDone,
			Federation: string(fed), Cycle: cycle,
			Scheduled: len(backlog), Resolved: resolved, Removed: removed,
			Dur: e.clock.Now().Sub(cycleStart),
		})

		if ctx.Err() != nil {
			break
		}
	}

	e.emitRunEnd(runID, fed, started, nil)
	return nil
}

// items converts backlog indices into pool work, carrying each row's athlete
// ID. Rows without an ID still travel through the pool so they resolve to
// Unresolved uniformly.
func (e *Engine) items(table *agetable.Table, backlog []int) []scrape.Item {
	items := make([]scrape.Item, 0, len(backlog))
	for _, idx := range backlog {
		items = append(items, scrape.Item{Index: idx, AthleteID: table.Rows[idx].AthleteID})
	}
	return items
}

// mergeOutcomes folds results into the table one by one. The fold is
// commutative across results, so chunk completion order cannot change the
// final state. Deleted rows are only marked here; removal happens as a
// single batch afterwards so indices stay valid during the merge.
func mergeOutcomes(table *agetable.Table, date string, results []scrape.Result, logger *zap.Logger) (int, []int) {
	resolved := 0
	var removals []int
	for _, res := range results {
		switch res.Outcome.Kind {
		case scrape.OutcomeFound:
			if err := table.SetObserved(res.Index, date, res.Outcome.Age); err != nil {
				logger.Warn("Discarding result for invalid index",
					zap.Int("index", res.Index), zap.Error(err))
				continue
			}
			resolved++
		case scrape.OutcomeDeleted:
			removals = append(removals, res.Index)
		case scrape.OutcomeUnresolved:
			// Cell stays absent; the row re-enters the next backlog.
		}
	}
	return resolved, removals
}

func (e *Engine) emit(evt progress.Event) {
	if e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) emitRunEnd(runID [16]byte, fed scrape.Federation, started time.Time, runErr error) {
	now := e.clock.Now()
	evt := progress.Event{
		RunID:      runID,
		TS:         now,
		Stage:      progress.StageRunDone,
		Federation: string(fed),
		Dur:        now.Sub(started),
	}
	if runErr != nil {
		evt.Stage = progress.StageRunError
		evt.Note = runErr.Error()
	}
	e.emit(evt)
}
