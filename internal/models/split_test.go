package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nonHeadingRows flattens the data rows of logs, skipping headings.
func nonHeadingRows(logs ...*DataLog) [][]string {
	var out [][]string
	for _, l := range logs {
		for _, row := range l.Data {
			if !row.IsHeading {
				out = append(out, row.Data)
			}
		}
	}
	return out
}

func TestDataLog_Split(t *testing.T) {
	never := func(row, prev *DataLogRow, i int) bool { return false }
	always := func(row, prev *DataLogRow, i int) bool { return true }

	t.Run("no split yields one segment", func(t *testing.T) {
		log := sampleLog()
		segments := log.Split(never)
		require.Len(t, segments, 1)
		assert.Equal(t, nonHeadingRows(log), nonHeadingRows(segments...))
		assert.Equal(t, log.Headers, segments[0].Headers)
	})

	t.Run("empty log still yields one segment", func(t *testing.T) {
		segments := EmptyLog().Split(always)
		require.Len(t, segments, 1)
		assert.Empty(t, segments[0].Data)
	})

	t.Run("splitting on every row keeps an empty leading segment", func(t *testing.T) {
		log := sampleLog()
		segments := log.Split(always)
		require.Len(t, segments, 5)
		assert.Empty(t, segments[0].Data)
		assert.Equal(t, nonHeadingRows(log), nonHeadingRows(segments...))
	})

	t.Run("headings never reach the predicate", func(t *testing.T) {
		var seen []int
		sampleLog().Split(func(row, prev *DataLogRow, i int) bool {
			assert.False(t, row.IsHeading)
			if prev != nil {
				assert.False(t, prev.IsHeading)
			}
			seen = append(seen, i)
			return false
		})
		assert.Equal(t, []int{1, 2, 3, 5}, seen)
	})

	t.Run("segments are never full and leave the source untouched", func(t *testing.T) {
		log := NewDataLog(sampleLog().Headers, sampleLog().Data, true)
		for _, seg := range log.Split(always) {
			assert.False(t, seg.IsFull)
		}
		assert.True(t, log.IsFull)
		assert.Len(t, log.Data, 6)
	})
}

func TestTimeDiscontinuity(t *testing.T) {
	log := sampleLog()
	segments := log.Split(TimeDiscontinuity(0))

	// 0.5, 1.0 | 0.2 | heading | 0.7 continues after 0.2
	require.Len(t, segments, 2)
	assert.Equal(t, [][]string{{"0.5", "54.01", "-2.78"}, {"1.0", "54.02", "-2.79"}}, nonHeadingRows(segments[0]))
	assert.Len(t, segments[1].Data, 2)
	assert.Equal(t, nonHeadingRows(log), nonHeadingRows(segments...))
}

func TestTimeDiscontinuity_NonNumeric(t *testing.T) {
	log := NewDataLog([]string{"t"}, []DataLogRow{
		{IsHeading: true, Data: []string{"t"}},
		{Data: []string{"5"}},
		{Data: []string{"n/a"}},
		{Data: []string{"1"}},
	}, false)

	// NaN never compares less, so nothing splits around the bad cell
	segments := log.Split(TimeDiscontinuity(0))
	assert.Len(t, segments, 1)
}
