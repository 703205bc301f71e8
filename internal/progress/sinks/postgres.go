package sinks

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/climbtrack/agescraper/internal/progress"
)

// pgExecutor is the slice of pgxpool.Pool the sink needs; pgxmock satisfies
// it in tests.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Close()
}

// PostgresSink persists run and cycle history so operators can audit scrape
// coverage over time. Fetch-level events are intentionally not stored; the
// volume belongs in metrics, not rows.
type PostgresSink struct {
	db pgExecutor
}

// NewPostgresSink connects a pgx pool to the sink.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	return &PostgresSink{db: pool}, nil
}

func newPostgresSinkWithDB(db pgExecutor) *PostgresSink {
	return &PostgresSink{db: db}
}

// Consume writes run lifecycle and cycle summary rows.
func (s *PostgresSink) Consume(ctx context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		if err := s.consumeOne(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresSink) consumeOne(ctx context.Context, evt progress.Event) error {
	switch evt.Stage {
	case progress.StageRunStart:
		query := `
			INSERT INTO refresh_runs (id, federation, started_at, status)
			VALUES ($1, $2, $3, 'running')
			ON CONFLICT (id) DO NOTHING;
		`
		if _, err := s.db.Exec(ctx, query, evt.RunUUID(), evt.Federation, evt.TS); err != nil {
			return fmt.Errorf("insert run start: %w", err)
		}
	case progress.StageRunDone, progress.StageRunError:
		status := "succeeded"
		if evt.Stage == progress.StageRunError {
			status = "failed"
		}
		query := `
			UPDATE refresh_runs
			SET finished_at = $1, status = $2, note = $3
			WHERE id = $4;
		`
		if _, err := s.db.Exec(ctx, query, evt.TS, status, evt.Note, evt.RunUUID()); err != nil {
			return fmt.Errorf("complete run: %w", err)
		}
	case progress.StageCycleDone:
		query := `
			INSERT INTO refresh_cycles (run_id, cycle, scheduled, resolved, removed, completed_at)
			VALUES ($1, $2, $3, $4, $5, $6);
		`
		if _, err := s.db.Exec(ctx, query,
			evt.RunUUID(), evt.Cycle, evt.Scheduled, evt.Resolved, evt.Removed, evt.TS); err != nil {
			return fmt.Errorf("insert cycle summary: %w", err)
		}
	}
	return nil
}

// Close releases the underlying pool.
func (s *PostgresSink) Close(context.Context) error {
	s.db.Close()
	return nil
}
