// Package report implements shift-count aggregation over a date range and
// its CSV export.
package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/yiwamoto0208/asa-katsu-calender/dbtypes"
)

// ErrNoMatchingShifts is returned when no signup event survives the range
// and held-day filters.  Callers show a warning instead of an empty table.
var ErrNoMatchingShifts = errors.New("no shifts on held days in the requested range")

// Table is a pivot of shift counts: one row per person, one column per
// month, plus a trailing per-person total.
type Table struct {
	// Months are the distinct YYYY-MM keys appearing in the filtered
	// events, in chronological order.
	Months []string
	Rows   []Row
}

// Row is one person's counts, parallel to Table.Months.
type Row struct {
	Name   string
	Counts []int
	Total  int
}

// Build filters events to those on held days within [start, end] (inclusive
// on both ends, calendar-date granularity) and pivots the survivors by
// (person, month).
//
// An event on a date that was never marked held is excluded even when it
// falls inside the range: such events are data anomalies and don't count.
// Names are matched exactly, with no normalization.
func Build(events []*dbtypes.SignupEvent, dayStatus map[string]*dbtypes.DayStatus, start, end time.Time) (*Table, error) {
	start = truncateToDay(start)
	end = truncateToDay(end)

	counts := map[string]map[string]int{}
	monthSet := map[string]bool{}

	for _, event := range events {
		day, err := time.Parse("2006-01-02", event.Date)
		if err != nil {
			return nil, fmt.Errorf("while parsing date of signup %s: %w", event.UID, err)
		}
		if day.Before(start) || day.After(end) {
			continue
		}
		status, ok := dayStatus[event.Date]
		if !ok || !status.IsHeld {
			continue
		}

		month := day.Format("2006-01")
		monthSet[month] = true
		if counts[event.Name] == nil {
			counts[event.Name] = map[string]int{}
		}
		counts[event.Name][month]++
	}

	if len(counts) == 0 {
		return nil, ErrNoMatchingShifts
	}

	months := make([]string, 0, len(monthSet))
	for month := range monthSet {
		months = append(months, month)
	}
	sort.Strings(months)

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	table := &Table{Months: months}
	for _, name := range names {
		row := Row{Name: name, Counts: make([]int, len(months))}
		for i, month := range months {
			row.Counts[i] = counts[name][month]
			row.Total += counts[name][month]
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// CSV renders the table as UTF-8 with a leading byte-order mark, which is
// what spreadsheet applications expect when opening the download.
func (t *Table) CSV() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteString("\uFEFF")

	w := csv.NewWriter(buf)

	header := append([]string{"name"}, t.Months...)
	header = append(header, "total")
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("while writing CSV header: %w", err)
	}

	for _, row := range t.Rows {
		record := make([]string, 0, len(row.Counts)+2)
		record = append(record, row.Name)
		for _, count := range row.Counts {
			record = append(record, fmt.Sprintf("%d", count))
		}
		record = append(record, fmt.Sprintf("%d", row.Total))
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("while writing CSV row for %s: %w", row.Name, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("while flushing CSV: %w", err)
	}

	return buf.Bytes(), nil
}

// Filename builds the download filename, embedding the literal range dates.
func Filename(start, end time.Time) string {
	return fmt.Sprintf("shift_report_%s_to_%s.csv", start.Format("2006-01-02"), end.Format("2006-01-02"))
}
