package core

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseRange parses an index ("4") or range ("4-7", "4..7") expression.
//
// Grammars are tried in order: "a-b" split on the first '-', then a single
// integer, then "a..b". Because '-' is tried first, an input such as "1..-2"
// is read as the dash form and rejected. The pair is returned as written;
// callers normalise order with NewByteRange.
func ParseRange(text string) (start, end int, ok bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, 0, false
	}
	if a, b, found := strings.Cut(s, "-"); found {
		return parsePair(a, b)
	}
	if n, err := parseIndex(s); err == nil {
		return n, n, true
	}
	if a, b, found := strings.Cut(s, ".."); found {
		return parsePair(a, b)
	}
	return 0, 0, false
}

func parsePair(a, b string) (int, int, bool) {
	start, err := parseIndex(strings.TrimSpace(a))
	if err != nil {
		return 0, 0, false
	}
	end, err := parseIndex(strings.TrimSpace(b))
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}

func parseIndex(s string) (int, error) {
	n, err := strconv.ParseUint(s, 10, 0)
	if err != nil {
		return 0, err
	}
	if n > uint64(maxIndex) {
		return 0, strconv.ErrRange
	}
	return int(n), nil
}

const maxIndex = int(^uint(0) >> 1)

// ByteRange is an inclusive [Start, End] window over a message, Start <= End.
type ByteRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// NewByteRange builds a range, swapping the bounds when given in reverse.
func NewByteRange(a, b int) ByteRange {
	if a > b {
		a, b = b, a
	}
	return ByteRange{Start: a, End: b}
}

// ParseByteRange parses text with ParseRange and normalises the result.
func ParseByteRange(text string) (ByteRange, error) {
	a, b, ok := ParseRange(text)
	if !ok {
		return ByteRange{}, fmt.Errorf("%w: %q", ErrInvalidRange, text)
	}
	return NewByteRange(a, b), nil
}

// Len is the number of bytes the range covers.
func (r ByteRange) Len() int {
	return r.End - r.Start + 1
}

// Resolve returns the sub-slice of msg covered by r. It fails when
// End >= len(msg) or the range is not normalised.
func (r ByteRange) Resolve(msg []byte) ([]byte, bool) {
	if r.Start < 0 || r.Start > r.End || r.End >= len(msg) {
		return nil, false
	}
	return msg[r.Start : r.End+1], true
}

func (r ByteRange) String() string {
	return fmt.Sprintf("[%d..%d]", r.Start, r.End)
}
