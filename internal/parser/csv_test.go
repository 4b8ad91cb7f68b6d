package parser

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"plain", "a,b,c", []string{"a", "b", "c"}},
		{"quoted comma", `a,"b,c",d`, []string{"a", "b,c", "d"}},
		{"leading quoted", `"x,y",z`, []string{"x,y", "z"}},
		{"only quoted", `"x,y"`, []string{"x,y"}},
		{"doubled quote closes the span", `"a""b"`, []string{"a", "b"}},
		{"doubled quotes inside text", `"say ""hi""",2`, []string{"say ", "hi", "", "2"}},
		{"trailing comma after quote", `"a",`, []string{"a", ""}},
		{"two quoted", `"a,1","b,2"`, []string{"a,1", "b,2"}},
		{"empty cells", "a,,c", []string{"a", "", "c"}},
		{"unmatched quote", `a,"b,c`, []string{"a", `"b`, "c"}},
		{"single cell", "value", []string{"value"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitLine(tt.line)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitLine(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestFromCSV(t *testing.T) {
	t.Run("headers and rows", func(t *testing.T) {
		log := FromCSV("Time (s),Temp\n0,20\n1,21\n", false)

		assert.Equal(t, []string{"Time (s)", "Temp"}, log.Headers)
		require.Len(t, log.Data, 3)
		assert.True(t, log.Data[0].IsHeading)
		assert.False(t, log.Data[1].IsHeading)
		assert.Equal(t, []string{"1", "21"}, log.Data[2].Data)
		assert.False(t, log.IsFull)
	})

	t.Run("blank line starts a new heading", func(t *testing.T) {
		log := FromCSV("h1,h2\n1,2\n\nh3,h4\n3,4", true)

		require.Len(t, log.Data, 4)
		assert.True(t, log.Data[0].IsHeading)
		assert.False(t, log.Data[1].IsHeading)
		assert.False(t, log.Data[2].IsHeading)
		assert.True(t, log.Data[3].IsHeading)
		assert.Equal(t, []string{"h3", "h4"}, log.Data[2].Data)
		assert.Equal(t, []string{"h1", "h2"}, log.Headers)
		assert.True(t, log.IsFull)
	})

	t.Run("carriage returns are stripped", func(t *testing.T) {
		log := FromCSV("a,b\r\n1,2\r\n", false)

		require.Len(t, log.Data, 2)
		assert.Equal(t, []string{"a", "b"}, log.Headers)
		assert.Equal(t, []string{"1", "2"}, log.Data[1].Data)
	})

	t.Run("empty input", func(t *testing.T) {
		log := FromCSV("", false)

		assert.True(t, log.IsEmpty())
		assert.Empty(t, log.Headers)
		assert.Empty(t, log.Data)
	})

	t.Run("only blank lines", func(t *testing.T) {
		log := FromCSV("\n\n\n", false)
		assert.Empty(t, log.Data)
		assert.Empty(t, log.Headers)
	})

	t.Run("round trip through ToCSV", func(t *testing.T) {
		src := "x,y\n1,2\n3,4"
		log := FromCSV(src, false)
		again := FromCSV(log.ToCSV(), false)

		assert.Equal(t, log.Headers, again.Headers)
		assert.Equal(t, log.Data, again.Data)
	})
}

func TestCSVParser(t *testing.T) {
	p := NewCSVParser()

	if p.Name() != "csv" {
		t.Errorf("Expected name csv, got %s", p.Name())
	}
	if !p.CanParse("anything at all") {
		t.Error("Expected CSV parser to accept any input")
	}

	data, err := p.Parse("a,b\n1,2")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !data.Standalone {
		t.Error("Expected standalone log data")
	}
	if data.DataSize != 0 || data.BytesRemaining != 0 || data.DaplinkVersion != 0 {
		t.Errorf("Expected zeroed metadata, got %+v", data)
	}
	if data.Log.RowCount() != 2 {
		t.Errorf("Expected 2 rows, got %d", data.Log.RowCount())
	}
}
