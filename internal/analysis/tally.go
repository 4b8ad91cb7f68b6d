package analysis

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/datalog-viewer/backend/internal/models"
)

// TallyEntry is the total of one column.
type TallyEntry struct {
	Header string  `json:"header" msgpack:"header"`
	Total  float64 `json:"total" msgpack:"total"`
}

// TallyLog totals every column by header name. Cells are read with
// ParseFloat, so a leading number counts and anything else adds nothing.
func TallyLog(log *models.DataLog) []TallyEntry {
	return lo.Map(log.Headers, func(header string, _ int) TallyEntry {
		cells := log.DataForHeader(models.ByName(header), true)
		total := lo.Reduce(cells, func(sum float64, cell *string, _ int) float64 {
			if cell == nil {
				return sum
			}
			v := ParseFloat(*cell)
			if math.IsNaN(v) {
				return sum
			}
			return sum + v
		}, 0)
		return TallyEntry{Header: header, Total: total}
	})
}

var floatPrefix = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)`)

// ParseFloat reads the longest numeric prefix of s after leading whitespace,
// returning NaN when there is none ("12.5kg" is 12.5, "kg" is NaN).
func ParseFloat(s string) float64 {
	m := floatPrefix.FindString(strings.TrimLeft(s, " \t\n\r\f\v"))
	if m == "" {
		return math.NaN()
	}
	switch strings.TrimLeft(m, "+-") {
	case "Infinity":
		if m[0] == '-' {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}
	// out of range values come back as a signed infinity
	v, _ := strconv.ParseFloat(m, 64)
	return v
}
