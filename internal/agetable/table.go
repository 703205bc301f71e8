// Package agetable models the per-federation athlete age table: one row per
// athlete, a fixed reference column, and one observation column per scrape
// date. The table is owned exclusively by the cycle engine; workers only ever
// see row indices and athlete IDs.
package agetable

import (
	"fmt"
	"time"
)

// DateLayout names observation columns by month and day, e.g. "08_25".
const DateLayout = "01_02"

// DateColumn formats a timestamp into the column-naming layout.
func DateColumn(t time.Time) string {
	return t.Format(DateLayout)
}

// Row is one athlete's record. AthleteID and Expected may be absent: a row
// without an ID can never be fetched, and a row without a reference age is
// always considered stale.
type Row struct {
	AthleteID *int64
	Name      string
	Expected  *int
	// Observed is aligned with Table.Dates; nil means no value for that date.
	Observed []*int
}

// Table holds the full in-memory age table. Dates are chronological and
// append-only: new scrape dates become new trailing columns.
type Table struct {
	Dates []string
	Rows  []Row
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// EnsureDate appends a column for the given date if it does not exist yet,
// padding every row with an absent cell. It reports whether a column was added.
func (t *Table) EnsureDate(date string) bool {
	if t.dateIndex(date) >= 0 {
		return false
	}
	t.Dates = append(t.Dates, date)
	for i := range t.Rows {
		t.Rows[i].Observed = append(t.Rows[i].Observed, nil)
	}
	return true
}

// Observed returns the cell for a row and date, or nil if absent.
func (t *Table) Observed(idx int, date string) *int {
	col := t.dateIndex(date)
	if col < 0 || idx < 0 || idx >= len(t.Rows) {
		return nil
	}
	row := t.Rows[idx]
	if col >= len(row.Observed) {
		return nil
	}
	return row.Observed[col]
}

// SetObserved writes a value into the cell for a row and date. Setting the
// same value twice is a no-op, so merges are idempotent.
func (t *Table) SetObserved(idx int, date string, age int) error {
	col := t.dateIndex(date)
	if col < 0 {
		return fmt.Errorf("no column for date %q", date)
	}
	if idx < 0 || idx >= len(t.Rows) {
		return fmt.Errorf("row index %d out of range [0,%d)", idx, len(t.Rows))
	}
	v := age
	t.Rows[idx].Observed[col] = &v
	return nil
}

// Latest returns the most recent non-absent observation for a row, scanning
// date columns from newest to oldest.
func (t *Table) Latest(idx int) *int {
	if idx < 0 || idx >= len(t.Rows) {
		return nil
	}
	row := t.Rows[idx]
	for col := len(row.Observed) - 1; col >= 0; col-- {
		if row.Observed[col] != nil {
			return row.Observed[col]
		}
	}
	return nil
}

// Backlog returns the indices of rows that still need a value for the given
// date: today's cell is absent and the latest historical observation does not
// match the reference age. Rows with an absent reference or no history at all
// are always stale. The backlog must be recomputed each cycle; purges shift
// indices and merges change membership.
func (t *Table) Backlog(date string) []int {
	col := t.dateIndex(date)
	if col < 0 {
		return nil
	}
	var idxs []int
	for i, row := range t.Rows {
		if col < len(row.Observed) && row.Observed[col] != nil {
			continue
		}
		latest := t.Latest(i)
		if row.Expected != nil && latest != nil && *row.Expected == *latest {
			continue
		}
		idxs = append(idxs, i)
	}
	return idxs
}

// RemoveRows deletes the given row indices as a single batch and compacts the
// table so remaining rows are contiguous again. Duplicate and out-of-range
// indices are ignored.
func (t *Table) RemoveRows(indices []int) int {
	if len(indices) == 0 {
		return 0
	}
	drop := make(map[int]struct{}, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(t.Rows) {
			drop[idx] = struct{}{}
		}
	}
	if len(drop) == 0 {
		return 0
	}
	kept := t.Rows[:0]
	for i, row := range t.Rows {
		if _, gone := drop[i]; gone {
			continue
		}
		kept = append(kept, row)
	}
	removed := len(t.Rows) - len(kept)
	t.Rows = kept
	return removed
}

func (t *Table) dateIndex(date string) int {
	for i, d := range t.Dates {
		if d == date {
			return i
		}
	}
	return -1
}
