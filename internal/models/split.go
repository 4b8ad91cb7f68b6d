package models

import (
	"math"
	"strconv"
	"strings"
)

// SplitFunc decides whether a new segment starts at row. prev is the previous
// non-heading row, nil for the first one; rowIndex is the position in Data.
type SplitFunc func(row, prev *DataLogRow, rowIndex int) bool

// Split breaks the log into contiguous segments wherever where returns true.
// Heading rows belong to no segment and are never passed to where. The final
// segment is always included, so at least one log is returned. Segments share
// the headers of l and are never marked full.
func (l *DataLog) Split(where SplitFunc) []*DataLog {
	var logs []*DataLog
	var prev *DataLogRow
	current := []DataLogRow{}

	for i := range l.Data {
		row := &l.Data[i]
		if row.IsHeading {
			continue
		}

		if where(row, prev, i) {
			logs = append(logs, NewDataLog(l.Headers, current, false))
			current = []DataLogRow{}
		}

		current = append(current, *row)
		prev = row
	}

	return append(logs, NewDataLog(l.Headers, current, false))
}

// TimeDiscontinuity returns a SplitFunc that fires when the numeric value in
// column drops below the previous row's value, which is how a device reset
// shows up in a time column.
func TimeDiscontinuity(column int) SplitFunc {
	return func(row, prev *DataLogRow, _ int) bool {
		if prev == nil {
			return false
		}
		return CellNumber(row, column) < CellNumber(prev, column)
	}
}

// CellNumber converts a cell to a float the way JavaScript's Number() does:
// blank is 0, anything unparsable or missing is NaN.
func CellNumber(row *DataLogRow, column int) float64 {
	if row == nil || column < 0 || column >= len(row.Data) {
		return math.NaN()
	}
	return ToNumber(row.Data[column])
}

// ToNumber is a lenient numeric conversion; see CellNumber.
func ToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return math.NaN()
		}
		return float64(v)
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	// Go also accepts spellings like "inf" and "NaN" that Number() rejects
	if lower := strings.ToLower(s); strings.Contains(lower, "inf") || strings.Contains(lower, "nan") {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return v
		}
		return math.NaN()
	}
	return v
}
