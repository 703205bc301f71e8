package agetable

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Fixed leading columns; every column after them is a scrape date.
const (
	colAthleteID = "ath_id"
	colName      = "name"
	colExpected  = "max_age"
	fixedColumns = 3
)

// ReadCSV decodes a full age table. The header must carry the three fixed
// columns followed by zero or more date columns in chronological order.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < fixedColumns ||
		header[0] != colAthleteID || header[1] != colName || header[2] != colExpected {
		return nil, fmt.Errorf("unexpected header %v", header)
	}

	table := &Table{Dates: append([]string(nil), header[fixedColumns:]...)}
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		row, err := decodeRow(record, len(table.Dates))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// WriteCSV encodes the full table, absent cells as empty fields.
func WriteCSV(w io.Writer, table *Table) error {
	cw := csv.NewWriter(w)
	header := append([]string{colAthleteID, colName, colExpected}, table.Dates...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range table.Rows {
		record := make([]string, 0, fixedColumns+len(table.Dates))
		record = append(record, formatOptInt64(row.AthleteID), row.Name, formatOptInt(row.Expected))
		for col := range table.Dates {
			var cell *int
			if col < len(row.Observed) {
				cell = row.Observed[col]
			}
			record = append(record, formatOptInt(cell))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// MarshalCSV returns the full table as bytes, for checkpointing and mirroring.
func MarshalCSV(table *Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, table); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRow(record []string, dates int) (Row, error) {
	if len(record) < fixedColumns {
		return Row{}, fmt.Errorf("short record with %d fields", len(record))
	}
	id, err := parseOptInt64(record[0])
	if err != nil {
		return Row{}, fmt.Errorf("athlete id: %w", err)
	}
	expected, err := parseOptInt(record[2])
	if err != nil {
		return Row{}, fmt.Errorf("reference age: %w", err)
	}
	row := Row{
		AthleteID: id,
		Name:      record[1],
		Expected:  expected,
		Observed:  make([]*int, dates),
	}
	for col := 0; col < dates && fixedColumns+col < len(record); col++ {
		cell, err := parseOptInt(record[fixedColumns+col])
		if err != nil {
			return Row{}, fmt.Errorf("date column %d: %w", col, err)
		}
		row.Observed[col] = cell
	}
	return row, nil
}

// parseOptInt tolerates float renderings like "34.0": upstream tooling that
// round-trips the file through a dataframe stores integer columns with
// missing values as floats.
func parseOptInt(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if v, err := strconv.Atoi(raw); err == nil {
		return &v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", raw, err)
	}
	v := int(f)
	return &v, nil
}

func parseOptInt64(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return &v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", raw, err)
	}
	v := int64(f)
	return &v, nil
}

func formatOptInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatOptInt64(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
