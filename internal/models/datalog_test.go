package models

import (
	"math"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLog() *DataLog {
	return NewDataLog(
		[]string{"Time (s)", "Latitude", "Longitude"},
		[]DataLogRow{
			{IsHeading: true, Data: []string{"Time (s)", "Latitude", "Longitude"}},
			{Data: []string{"0.5", "54.01", "-2.78"}},
			{Data: []string{"1.0", "54.02", "-2.79"}},
			{Data: []string{"0.2", "54.03"}},
			{IsHeading: true, Data: []string{"Time (s)", "Latitude", "Longitude", "Temp"}},
			{Data: []string{"0.7", "54.04", "-2.80", "21"}},
		},
		false,
	)
}

func TestDataLog_IsEmpty(t *testing.T) {
	t.Run("canonical empty log", func(t *testing.T) {
		log := EmptyLog()
		assert.True(t, log.IsEmpty())
		assert.False(t, log.IsFull)
		assert.Empty(t, log.Headers)
		assert.Empty(t, log.Data)
	})

	t.Run("headers without rows", func(t *testing.T) {
		assert.True(t, NewDataLog([]string{"a"}, nil, false).IsEmpty())
	})

	t.Run("populated", func(t *testing.T) {
		assert.False(t, sampleLog().IsEmpty())
	})
}

func TestDataLog_RowCount(t *testing.T) {
	if got := sampleLog().RowCount(); got != 4 {
		t.Errorf("Expected 4 data rows, got %d", got)
	}
}

func TestDataLog_DataForHeader(t *testing.T) {
	log := sampleLog()

	t.Run("by name keeps heading placeholders", func(t *testing.T) {
		values := log.DataForHeader(ByName("Latitude"), false)
		require.Len(t, values, 6)
		assert.Nil(t, values[0])
		assert.Equal(t, "54.01", *values[1])
		assert.Nil(t, values[4])
	})

	t.Run("excluding headings", func(t *testing.T) {
		values := log.DataForHeader(ByIndex(0), true)
		require.Len(t, values, 4)
		assert.Equal(t, "0.5", *values[0])
		assert.Equal(t, "0.7", *values[3])
	})

	t.Run("short rows yield nil", func(t *testing.T) {
		values := log.DataForHeader(ByName("Longitude"), true)
		require.Len(t, values, 4)
		assert.Nil(t, values[2])
		assert.Equal(t, "-2.80", *values[3])
	})

	t.Run("by pattern first match wins", func(t *testing.T) {
		values := log.DataForHeader(ByPattern(regexp.MustCompile(`(?i)itude`)), true)
		require.Len(t, values, 4)
		assert.Equal(t, "54.01", *values[0])
	})

	t.Run("unresolved selector", func(t *testing.T) {
		assert.Empty(t, log.DataForHeader(ByName("Nope"), false))
		assert.Empty(t, log.DataForHeader(ByIndex(-1), false))
		assert.Empty(t, log.DataForHeader(nil, false))
	})

	t.Run("values are copies", func(t *testing.T) {
		values := log.DataForHeader(ByIndex(0), true)
		*values[0] = "changed"
		assert.Equal(t, "0.5", *log.DataForHeader(ByIndex(0), true)[0])
	})

	t.Run("columns added by later headings are not addressable by name", func(t *testing.T) {
		assert.Empty(t, log.DataForHeader(ByName("Temp"), true))
		// but their cells are still reachable by index
		values := log.DataForHeader(ByIndex(3), true)
		require.Len(t, values, 4)
		assert.Equal(t, "21", *values[3])
	})
}

func TestDataLog_FindFieldIndex(t *testing.T) {
	log := NewDataLog([]string{"Time (s)", "Latitude", "Longitude"}, []DataLogRow{{IsHeading: true, Data: []string{"Time (s)", "Latitude", "Longitude"}}}, false)

	timeField := FieldType{Name: "Timestamp", Validator: regexp.MustCompile(`(?i)time`)}
	assert.Equal(t, 0, log.FindFieldIndex(timeField))

	lon := FieldType{Name: "Longitude", Validator: regexp.MustCompile(`(?i)longitude`)}
	assert.Equal(t, 2, log.FindFieldIndex(lon))

	missing := FieldType{Name: "Altitude", Validator: regexp.MustCompile(`(?i)altitude`)}
	assert.Equal(t, -1, log.FindFieldIndex(missing))
}

func TestDataLog_ToCSV(t *testing.T) {
	t.Run("joins rows and cells", func(t *testing.T) {
		log := NewDataLog([]string{"a", "b"}, []DataLogRow{
			{IsHeading: true, Data: []string{"a", "b"}},
			{Data: []string{"1", "2"}},
		}, false)
		assert.Equal(t, "a,b\n1,2", log.ToCSV())
	})

	t.Run("does not re-quote cells containing commas", func(t *testing.T) {
		log := NewDataLog([]string{"a"}, []DataLogRow{
			{IsHeading: true, Data: []string{"a", "b"}},
			{Data: []string{"x", "y,z"}},
		}, false)
		assert.Equal(t, "a,b\nx,y,z", log.ToCSV())
	})

	t.Run("empty log", func(t *testing.T) {
		assert.Equal(t, "", EmptyLog().ToCSV())
	})
}

func TestDataLog_ToBlob(t *testing.T) {
	blob := sampleLog().ToBlob()
	assert.Equal(t, "text/csv", blob.ContentType)
	assert.Equal(t, sampleLog().ToCSV(), string(blob.Data))
}

func TestStandaloneLogData(t *testing.T) {
	ld := StandaloneLogData(nil)
	assert.True(t, ld.Standalone)
	assert.True(t, ld.Log.IsEmpty())
	assert.Zero(t, ld.DataSize)
	assert.Zero(t, ld.BytesRemaining)
	assert.Zero(t, ld.DaplinkVersion)
}

func TestToNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1.5", 1.5},
		{" 2 ", 2},
		{"", 0},
		{"0x10", 16},
		{"-3e2", -300},
		{"-Infinity", math.Inf(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ToNumber(tt.in))
		})
	}

	assert.True(t, math.IsNaN(ToNumber("abc")))
	assert.True(t, math.IsNaN(ToNumber("inf")))
	assert.True(t, math.IsNaN(ToNumber("NaN")))
	assert.True(t, math.IsNaN(CellNumber(&DataLogRow{Data: []string{"1"}}, 3)))
}
