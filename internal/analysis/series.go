package analysis

import (
	"math"

	"github.com/datalog-viewer/backend/internal/fieldtype"
	"github.com/datalog-viewer/backend/internal/models"
)

// TimeSeries splits log into runs where the first column keeps increasing.
// A new run starts whenever the device was reset and its clock went back.
func TimeSeries(log *models.DataLog) []*models.DataLog {
	return log.Split(models.TimeDiscontinuity(0))
}

// DiscontinuousRows returns the indexes into log.Data of rows whose Timestamp
// value is lower than the row before. Returns nil when the log has no
// Timestamp column.
func DiscontinuousRows(log *models.DataLog) []int {
	col := log.FindFieldIndex(fieldtype.Timestamp)
	if col == -1 {
		return nil
	}

	var rows []int
	prev := 0.0
	for i := range log.Data {
		v := models.CellNumber(&log.Data[i], col)
		if i != 0 && v < prev {
			rows = append(rows, i)
		}
		prev = v
	}
	return rows
}

// SeriesColumn is one plotted line of a time series segment.
type SeriesColumn struct {
	Header string    `json:"header" msgpack:"header"`
	Values []float64 `json:"values" msgpack:"values"`
}

// Segment is one continuous run of a time series.
type Segment struct {
	Start   int            `json:"start" msgpack:"start"` // index of the first row, counting non-heading rows
	Times   []float64      `json:"times" msgpack:"times"`
	Columns []SeriesColumn `json:"columns" msgpack:"columns"`
}

// Segments converts TimeSeries output into numeric columns keyed by header.
// Values that are not finite numbers become 0 so the result encodes as JSON.
func Segments(log *models.DataLog) []Segment {
	return SegmentsBy(log, 0)
}

// SegmentsBy is Segments with the time axis read from column instead of the
// first column.
func SegmentsBy(log *models.DataLog, column int) []Segment {
	parts := log.Split(models.TimeDiscontinuity(column))
	segments := make([]Segment, 0, len(parts))

	start := 0
	for _, part := range parts {
		seg := Segment{
			Start:   start,
			Times:   numbers(part.DataForHeader(models.ByIndex(column), true)),
			Columns: []SeriesColumn{},
		}
		for i := range part.Headers {
			if i == column {
				continue
			}
			seg.Columns = append(seg.Columns, SeriesColumn{
				Header: part.Headers[i],
				Values: numbers(part.DataForHeader(models.ByIndex(i), true)),
			})
		}
		segments = append(segments, seg)
		start += len(part.Data)
	}
	return segments
}

func numbers(cells []*string) []float64 {
	out := make([]float64, len(cells))
	for i, c := range cells {
		v := cellValue(c)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		out[i] = v
	}
	return out
}
