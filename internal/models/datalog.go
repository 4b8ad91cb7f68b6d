// Package models contains domain types for the datalog viewer.
package models

import (
	"strings"
)

// DataLogRow is one row of a data log. A heading row re-declares the column
// names; this happens whenever new headers are written after data has already
// been logged. Cell counts may differ between rows, so index defensively.
type DataLogRow struct {
	IsHeading bool     `json:"isHeading,omitempty" msgpack:"isHeading,omitempty"`
	Data      []string `json:"data" msgpack:"data"`
}

// DataLog is a fully decoded log. Values are treated as immutable once built:
// every derivation returns a new DataLog.
type DataLog struct {
	Headers []string     `json:"headers" msgpack:"headers"`
	Data    []DataLogRow `json:"data" msgpack:"data"`
	IsFull  bool         `json:"isFull" msgpack:"isFull"`
}

var emptyLog = &DataLog{Headers: []string{}, Data: []DataLogRow{}}

// EmptyLog returns the canonical empty log.
func EmptyLog() *DataLog {
	return emptyLog
}

// NewDataLog creates a data log.
func NewDataLog(headers []string, data []DataLogRow, isFull bool) *DataLog {
	if headers == nil {
		headers = []string{}
	}
	if data == nil {
		data = []DataLogRow{}
	}
	return &DataLog{Headers: headers, Data: data, IsFull: isFull}
}

// IsEmpty reports whether the log has no headers or no rows.
func (l *DataLog) IsEmpty() bool {
	return len(l.Headers) == 0 || len(l.Data) == 0
}

// RowCount returns the number of non-heading rows.
func (l *DataLog) RowCount() int {
	n := 0
	for _, row := range l.Data {
		if !row.IsHeading {
			n++
		}
	}
	return n
}

// ToCSV joins every row's cells with commas and rows with newlines.
//
// Cells are written as-is: a cell that held a quoted comma on input is not
// re-quoted, so the round trip is lossy for such cells.
func (l *DataLog) ToCSV() string {
	var b strings.Builder
	for i, row := range l.Data {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.Join(row.Data, ","))
	}
	return b.String()
}

// Blob is a typed byte payload for download or sharing.
type Blob struct {
	ContentType string
	Data        []byte
}

// ToBlob wraps ToCSV output as a text/csv blob.
func (l *DataLog) ToBlob() Blob {
	return Blob{ContentType: "text/csv", Data: []byte(l.ToCSV())}
}
