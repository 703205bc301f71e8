package sinks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/climbtrack/agescraper/internal/progress"
)

func TestPostgresSinkConsume(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	runID := uuid.New()
	started := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	finished := started.Add(5 * time.Minute)

	mock.ExpectExec("INSERT INTO refresh_runs").
		WithArgs(runID, "ifsc", started).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO refresh_cycles").
		WithArgs(runID, 1, 42, 30, 2, started.Add(time.Minute)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE refresh_runs").
		WithArgs(finished, "succeeded", "", runID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	sink := newPostgresSinkWithDB(mock)
	batch := []progress.Event{
		{
			RunID: progress.UUIDToBytes(runID), TS: started,
			Stage: progress.StageRunStart, Federation: "ifsc",
		},
		{
			RunID: progress.UUIDToBytes(runID), TS: started.Add(time.Minute),
			Stage: progress.StageCycleDone, Federation: "ifsc",
			Cycle: 1, Scheduled: 42, Resolved: 30, Removed: 2,
		},
		{
			// Fetch events are metrics-only; the sink must skip them.
			RunID: progress.UUIDToBytes(runID), TS: started.Add(time.Minute),
			Stage: progress.StageFetchDone, Federation: "ifsc", Outcome: "found",
		},
		{
			RunID: progress.UUIDToBytes(runID), TS: finished,
			Stage: progress.StageRunDone, Federation: "ifsc",
		},
	}
	require.NoError(t, sink.Consume(context.Background(), batch))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSinkRunError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	runID := uuid.New()
	ts := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE refresh_runs").
		WithArgs(ts, "failed", "load age table for ifsc: age table not found", runID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	sink := newPostgresSinkWithDB(mock)
	evt := progress.Event{
		RunID: progress.UUIDToBytes(runID), TS: ts,
		Stage: progress.StageRunError, Federation: "ifsc",
		Note: "load age table for ifsc: age table not found",
	}
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{evt}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSinkExecFailure(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	runID := uuid.New()
	ts := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO refresh_runs").
		WithArgs(runID, "dav", ts).
		WillReturnError(errors.New("connection refused"))

	sink := newPostgresSinkWithDB(mock)
	evt := progress.Event{
		RunID: progress.UUIDToBytes(runID), TS: ts,
		Stage: progress.StageRunStart, Federation: "dav",
	}
	require.Error(t, sink.Consume(context.Background(), []progress.Event{evt}))
	require.NoError(t, mock.ExpectationsWereMet())
}
