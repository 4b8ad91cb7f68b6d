package parser

import (
	"strings"

	"github.com/datalog-viewer/backend/internal/models"
)

// CSVParser handles plain CSV text with no device metadata.
// It accepts anything, so it must be the last parser in a registry.
type CSVParser struct{}

func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

func (p *CSVParser) Name() string {
	return "csv"
}

func (p *CSVParser) CanParse(raw string) bool {
	return true
}

func (p *CSVParser) Parse(raw string) (*models.LogData, error) {
	return models.StandaloneLogData(FromCSV(raw, false)), nil
}

// FromCSV builds a data log from CSV text.
//
// Blank lines are dropped but mark the following row as a heading row, which
// is how the device records a change of columns. The log's Headers are always
// the cells of the first row; later heading rows do not replace them.
func FromCSV(csv string, isFull bool) *models.DataLog {
	if len(csv) == 0 {
		return models.EmptyLog()
	}

	lines := strings.Split(strings.ReplaceAll(csv, "\r", ""), "\n")
	data := make([]models.DataLogRow, 0, len(lines))

	for i, line := range lines {
		if len(line) == 0 {
			continue
		}
		data = append(data, models.DataLogRow{
			Data:      SplitLine(line),
			IsHeading: i == 0 || len(lines[i-1]) == 0,
		})
	}

	var headers []string
	if len(data) > 0 {
		headers = data[0].Data
	}

	return models.NewDataLog(headers, data, isFull)
}

// SplitLine splits one CSV line into cells. A double-quoted span is a single
// cell with the quotes removed and its commas kept. A span ends at the next
// quote, so "a""b" is two cells. Text between quoted spans splits on commas as usual.
// An opening quote with no closing quote is treated as ordinary text.
func SplitLine(line string) []string {
	var cells []string
	rest := line

	for {
		open := strings.IndexByte(rest, '"')
		if open < 0 {
			return append(cells, strings.Split(rest, ",")...)
		}

		quoted, end, ok := scanQuoted(rest, open)
		if !ok {
			return append(cells, strings.Split(rest, ",")...)
		}

		if before := rest[:open]; before != "" {
			// the comma right before the quote separates cells, it does not start one
			cells = append(cells, strings.Split(strings.TrimSuffix(before, ","), ",")...)
		}
		cells = append(cells, quoted)

		rest = rest[end:]
		if rest == "" {
			return cells
		}
		if rest[0] == ',' {
			rest = rest[1:]
			if rest == "" {
				// trailing comma after a quoted cell leaves one empty cell
				return append(cells, "")
			}
		}
	}
}

// scanQuoted reads the quoted span opening at s[open]. It returns the unquoted
// content and the index just past the closing quote.
func scanQuoted(s string, open int) (string, int, bool) {
	for i := open + 1; i < len(s); i++ {
		if s[i] == '"' {
			return s[open+1 : i], i + 1, true
		}
	}
	return "", 0, false
}
