package parser

import (
	"errors"
	"strings"

	"github.com/datalog-viewer/backend/internal/models"
)

// Parser defines the interface for raw log decoders.
type Parser interface {
	// Name returns the unique name of the parser.
	Name() string
	// CanParse returns true if this parser recognises the raw text.
	CanParse(raw string) bool
	// Parse decodes the raw text. The returned LogData has no hash set;
	// the registry fills it in.
	Parse(raw string) (*models.LogData, error)
}

var (
	// ErrNoEndOfData is returned when a container payload is never terminated.
	ErrNoEndOfData = errors.New("end of data marker not found")
	// ErrCorruptHeader is returned when the container metadata block is unreadable.
	ErrCorruptHeader = errors.New("corrupt log header")
)

// parseFixedInt parses a fixed-width numeric field the way JavaScript's
// Number() does for the values the firmware writes: surrounding whitespace
// is ignored, "0x" selects hex, anything else must be plain decimal digits
// (leading zeros allowed). Returns false on anything else.
func parseFixedInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	base := 10
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base = 16
		s = s[2:]
	}

	result := 0
	for i := 0; i < len(s); i++ {
		d := digitValue(s[i])
		if d < 0 || d >= base {
			return 0, false
		}
		result = result*base + d
	}
	return result, true
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}
