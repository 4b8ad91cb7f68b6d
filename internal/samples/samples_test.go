package samples

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/datalog-viewer/backend/internal/analysis"
	"github.com/datalog-viewer/backend/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltin(t *testing.T) {
	set := NewSet()
	list := set.List()
	require.Len(t, list, 2)

	t.Run("gps series", func(t *testing.T) {
		src, err := set.Get(0)
		require.NoError(t, err)
		assert.Equal(t, "GPS and temperature series", src.Title)

		data, err := parser.Decode(src.Log)
		require.NoError(t, err)
		assert.True(t, data.Standalone)
		assert.Equal(t, []string{"Time (s)", "Latitude", "Longitude", "Temperature"}, data.Log.Headers)
		assert.Len(t, analysis.Available(data.Log), 3)

		// the series contains one device reset
		assert.Len(t, analysis.TimeSeries(data.Log), 2)
	})

	t.Run("pet tally", func(t *testing.T) {
		src, err := set.Get(1)
		require.NoError(t, err)

		log := parser.FromCSV(src.Log, false)
		assert.Equal(t, 23, log.RowCount())

		totals := analysis.TallyLog(log)
		require.Len(t, totals, 4)
		var sum float64
		for _, e := range totals {
			sum += e.Total
		}
		assert.Equal(t, float64(23), sum)
	})

	_, err := set.Get(2)
	assert.Error(t, err)
	_, err = set.Get(-1)
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.yaml")
	content := "- title: Tiny\n  log: |\n    a,b\n    1,2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	set, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, set.List(), 1)

	src, err := set.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "Tiny", src.Title)
	assert.Equal(t, "a,b\n1,2\n", src.Log)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("- log: x\n"), 0644))
	_, err = LoadFile(bad)
	assert.Error(t, err)
}
