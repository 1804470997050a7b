// Package csvlog ingests training history from CSV exports. The expected
// layout is one row per set with a header row naming the columns; column
// order does not matter and unknown columns are ignored.
package csvlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Session is one workout reconstructed from contiguous rows sharing a date
// and workout name.
type Session struct {
	Name string
	Date time.Time
	Sets []SetRow
}

// SetRow is one performed set as parsed from a CSV row.
type SetRow struct {
	Exercise  string
	Category  string
	Equipment string
	Weight    *float64
	Reps      *int
	RPE       *float64
	RIR       *int
	Notes     *string
}

var requiredColumns = []string{"date", "workout", "exercise"}

// Parse reads a CSV training log and groups its rows into sessions. Rows
// belong to the same session when date and workout name match; session order
// follows first appearance in the file.
func Parse(r io.Reader) ([]Session, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}

	var sessions []Session
	index := make(map[string]int)
	line := 1

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		line++

		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		date, err := parseDate(field("date"))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		workout := field("workout")
		exercise := field("exercise")
		if exercise == "" {
			return nil, fmt.Errorf("row %d: empty exercise name", line)
		}

		row := SetRow{
			Exercise:  exercise,
			Category:  field("category"),
			Equipment: field("equipment"),
		}
		if row.Weight, err = parseOptFloat(field("weight"), 0, -1); err != nil {
			return nil, fmt.Errorf("row %d: weight: %w", line, err)
		}
		if row.Reps, err = parseOptInt(field("reps"), 0, -1); err != nil {
			return nil, fmt.Errorf("row %d: reps: %w", line, err)
		}
		if row.RPE, err = parseOptFloat(field("rpe"), 1, 10); err != nil {
			return nil, fmt.Errorf("row %d: rpe: %w", line, err)
		}
		if row.RIR, err = parseOptInt(field("rir"), 0, 9); err != nil {
			return nil, fmt.Errorf("row %d: rir: %w", line, err)
		}
		if notes := field("notes"); notes != "" {
			row.Notes = &notes
		}

		key := date.Format("2006-01-02") + "\x00" + workout
		i, ok := index[key]
		if !ok {
			i = len(sessions)
			index[key] = i
			sessions = append(sessions, Session{Name: workout, Date: date})
		}
		sessions[i].Sets = append(sessions[i].Sets, row)
	}

	return sessions, nil
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
	"02.01.2006",
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse date %q", s)
}

// parseOptFloat parses an optional decimal. Both "102.5" and the European
// "102,5" are accepted. max < 0 disables the upper bound.
func parseOptFloat(s string, min, max float64) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return nil, fmt.Errorf("cannot parse %q", s)
	}
	if v < min || (max >= 0 && v > max) {
		return nil, fmt.Errorf("%g out of range", v)
	}
	return &v, nil
}

func parseOptInt(s string, min, max int) (*int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("cannot parse %q", s)
	}
	if v < min || (max >= 0 && v > max) {
		return nil, fmt.Errorf("%d out of range", v)
	}
	return &v, nil
}
