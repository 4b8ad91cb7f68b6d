package parser

import (
	"unicode/utf16"

	"github.com/samber/lo"
)

// HashString computes the rolling h = h*31 + c fingerprint over the UTF-16
// code units of s, wrapping at 32 bits. It is only used to notice that a log
// changed; collisions are possible.
func HashString(s string) int32 {
	return lo.Reduce(
		utf16.Encode([]rune(s)),
		func(result int32, c uint16, _ int) int32 {
			return result*31 + int32(c)
		},
		0,
	)
}
